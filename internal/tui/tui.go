// Package tui provides a Bubble Tea terminal user interface for the mashup generator.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/mashup/internal/config"
	ioutils "github.com/handiism/mashup/internal/io"
	"github.com/handiism/mashup/internal/mashup"
	"github.com/handiism/mashup/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateRunning
	StateComplete
	StateError
)

// Form fields, in focus order.
const (
	fieldArtist = iota
	fieldCount
	fieldDuration
	fieldOutput
	numFields
)

const maxLogs = 10

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   mashup.ProgressLevel
}

// job is one generator run. It is shared by model copies.
type job struct {
	gen    *mashup.Generator
	req    *model.Request
	events chan mashup.ProgressEvent
	ctx    context.Context
	cancel context.CancelFunc
	start  time.Time

	// done is closed once Run returned and its cleanup finished.
	done   chan struct{}
	result *mashup.Result
	err    error
}

// startJob runs the generator for req in the background.
func startJob(settings *config.Settings, req *model.Request, opts ...mashup.Option) *job {
	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		req:    req,
		events: make(chan mashup.ProgressEvent, 64),
		ctx:    ctx,
		cancel: cancel,
		start:  time.Now(),
		done:   make(chan struct{}),
	}
	j.gen = mashup.NewGenerator(settings, j.report, opts...)

	go func() {
		defer close(j.done)
		j.result, j.err = j.gen.Run(ctx, req)
		close(j.events)
	}()
	return j
}

func (j *job) report(event mashup.ProgressEvent) {
	select {
	case j.events <- event:
	case <-time.After(time.Second):
	}
}

// stop cancels the run and blocks until its run directory is removed.
func (j *job) stop() {
	j.cancel()
	<-j.done
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	inputs   []textinput.Model
	focus    int
	spinner  spinner.Model
	progress progress.Model
	settings *config.Settings
	logs     []LogEntry
	err      error
	formErr  string

	job     *job
	result  *mashup.Result
	genOpts []mashup.Option

	processed int32
	target    int32
	phase     mashup.Phase

	// Options
	tracklist bool
	tags      bool
	verbose   bool

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel(settings *config.Settings) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	inputs := make([]textinput.Model, numFields)
	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 200
		ti.Width = 40
		inputs[i] = ti
	}
	inputs[fieldArtist].Placeholder = "e.g. The Weeknd"
	inputs[fieldCount].Placeholder = "more than 10"
	inputs[fieldCount].SetValue("20")
	inputs[fieldDuration].Placeholder = "more than 20 seconds"
	inputs[fieldDuration].SetValue("30")
	inputs[fieldOutput].Placeholder = "defaults to <artist>.mp3"
	inputs[fieldArtist].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	return Model{
		state:     StateInput,
		inputs:    inputs,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		tracklist: settings.CreateTracklist,
		tags:      settings.ModifyTags,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent for every generator progress event.
	ProgressMsg struct {
		Event mashup.ProgressEvent
	}

	// RunDoneMsg is sent when the generator returns.
	RunDoneMsg struct {
		Result *mashup.Result
		Err    error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.job != nil {
				m.job.cancel()
			}
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateRunning {
				// the run keeps reporting until cleanup finishes
				m.job.cancel()
			}

		case "tab", "down":
			if m.state == StateInput {
				m.setFocus(m.focus + 1)
				return m, nil
			}

		case "shift+tab", "up":
			if m.state == StateInput {
				m.setFocus(m.focus - 1)
				return m, nil
			}

		case "enter":
			if m.state == StateInput {
				if m.focus < fieldOutput {
					m.setFocus(m.focus + 1)
					return m, nil
				}
				return m.submit()
			}

		case "ctrl+t":
			if m.state == StateInput {
				m.tracklist = !m.tracklist
			}

		case "ctrl+g":
			if m.state == StateInput {
				m.tags = !m.tags
			}

		case "ctrl+o":
			if m.state == StateInput {
				m.verbose = !m.verbose
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.reset()
				return m, textinput.Blink
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		if msg.Event.Level != mashup.LevelVerbose || m.verbose {
			m.logs = append(m.logs, LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
			if len(m.logs) > maxLogs {
				m.logs = m.logs[len(m.logs)-maxLogs:]
			}
		}
		if m.job != nil {
			cmds = append(cmds, waitForEvent(m.job.events))
		}

	case RunDoneMsg:
		m.result = msg.Result
		switch {
		case m.job != nil && m.job.ctx.Err() != nil:
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.job != nil && m.state == StateRunning {
			m.processed, m.target, m.phase = m.job.gen.Progress()

			var percent float64
			if m.target > 0 {
				percent = float64(m.processed) / float64(m.target)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = (i + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
}

func (m *Model) reset() {
	m.state = StateInput
	m.logs = nil
	m.err = nil
	m.formErr = ""
	m.job = nil
	m.result = nil
	m.processed, m.target, m.phase = 0, 0, mashup.PhaseIdle
	m.progress.SetPercent(0)
	m.inputs[fieldArtist].SetValue("")
	m.inputs[fieldOutput].SetValue("")
	m.setFocus(fieldArtist)
}

// request validates the form.
func (m Model) request() (*model.Request, error) {
	artist := strings.TrimSpace(m.inputs[fieldArtist].Value())
	output := strings.TrimSpace(m.inputs[fieldOutput].Value())
	if output == "" && artist != "" {
		output = ioutils.SanitizeFileName(artist)
	}
	return model.ParseRequest(artist, m.inputs[fieldCount].Value(), m.inputs[fieldDuration].Value(), output)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	req, err := m.request()
	if err != nil {
		m.formErr = strings.ReplaceAll(err.Error(), "\n", "; ")
		return m, nil
	}
	m.formErr = ""

	settings := *m.settings
	settings.CreateTracklist = m.tracklist
	settings.ModifyTags = m.tags
	settings.EmbedArtwork = m.tags && m.settings.EmbedArtwork

	m.job = startJob(&settings, req, m.genOpts...)
	m.state = StateRunning
	m.target = int32(req.Count)
	m.inputs[m.focus].Blur()

	return m, tea.Batch(waitForRun(m.job), waitForEvent(m.job.events), m.tickProgress(), m.spinner.Tick)
}

// waitForRun reports the end of the run.
func waitForRun(j *job) tea.Cmd {
	return func() tea.Msg {
		<-j.done
		return RunDoneMsg{Result: j.result, Err: j.err}
	}
}

// waitForEvent delivers the next progress event. It yields nothing once the
// run has finished and the channel is closed.
func waitForEvent(events <-chan mashup.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return ProgressMsg{Event: event}
	}
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Mashup Generator"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Stitch an artist's search results into one track"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateRunning:
		b.WriteString(m.viewRunning())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	labels := []string{"Artist", "Number of videos", "Clip duration (s)", "Output file"}
	for i, label := range labels {
		style := dimStyle
		if i == m.focus {
			style = subtitleStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%-18s", label)))
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.formErr != "" {
		b.WriteString(errorStyle.Render(m.formErr))
		b.WriteString("\n\n")
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Write tracklist (ctrl+t)\n", checkbox(m.tracklist)))
	b.WriteString(fmt.Sprintf("  %s ID3 tags and cover art (ctrl+g)\n", checkbox(m.tags)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (ctrl+o)\n", checkbox(m.verbose)))

	return b.String()
}

func (m Model) viewRunning() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("%s %q...", m.phase, m.job.req.Artist)))
	b.WriteString("\n\n")

	var percent float64
	if m.target > 0 {
		percent = float64(m.processed) / float64(m.target)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Segments: %d/%d | Elapsed: %s",
		m.processed, m.target, time.Since(m.job.start).Round(time.Second))))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	output := m.job.req.Output
	if abs, err := filepath.Abs(output); err == nil {
		output = abs
	}

	content := fmt.Sprintf("Mashup complete!\n\nOutput: %s\nSegments: %d of %d\nTime: %.2f seconds",
		output, len(m.result.Segments), m.job.req.Count, m.result.Elapsed.Seconds())
	if m.result.Failures.Len() > 0 {
		content += fmt.Sprintf("\nSkipped: %d", m.result.Failures.Len())
	}
	if m.result.Tracklist != "" {
		content += "\nTracklist: " + m.result.Tracklist
	}
	return boxStyle.Render(content) + "\n\n" + m.renderLogs()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	if m.result != nil {
		b.WriteString(dimStyle.Render(fmt.Sprintf("\n  after %.2f seconds", m.result.Elapsed.Seconds())))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, entry := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch entry.Level {
		case mashup.LevelError:
			style = errorStyle
			prefix = "✗"
		case mashup.LevelWarning:
			style = warningStyle
			prefix = "!"
		case mashup.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case mashup.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + entry.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateInput:
		return "tab: next field • enter: start • esc: quit"
	case StateRunning:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new mashup • q: quit"
	}
	return ""
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	final, err := p.Run()
	shutdown(final)
	return err
}

// shutdown waits for a run that is still in flight when the program exits,
// so its temporary files are removed before the process ends.
func shutdown(final tea.Model) {
	if m, ok := final.(Model); ok && m.job != nil {
		m.job.stop()
	}
}
