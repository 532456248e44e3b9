package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/mashup/internal/mashup"
	"github.com/handiism/mashup/internal/model"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	styleRule    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFCC00"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// newPrinter renders progress events, one per line.
func newPrinter(w io.Writer, verbose bool) func(mashup.ProgressEvent) {
	return func(event mashup.ProgressEvent) {
		if event.Level == mashup.LevelVerbose && !verbose {
			return
		}

		var line string
		switch event.Level {
		case mashup.LevelError:
			line = styleError.Render("[x] " + event.Message)
		case mashup.LevelWarning:
			line = styleWarning.Render("[!] " + event.Message)
		case mashup.LevelSuccess:
			line = styleSuccess.Render("[+] " + event.Message)
		case mashup.LevelVerbose:
			line = styleMuted.Render("    " + event.Message)
		default:
			line = "[-] " + event.Message
		}
		fmt.Fprintln(w, line)
	}
}

func printSummary(w io.Writer, req *model.Request, res *mashup.Result) {
	output := req.Output
	if abs, err := filepath.Abs(output); err == nil {
		output = abs
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, styleRule.Render(rule))
	fmt.Fprintln(w, styleSuccess.Bold(true).Render(" SUCCESSFULLY COMPLETED "))
	fmt.Fprintf(w, " Output File: %s\n", output)
	fmt.Fprintf(w, " Segments:    %d of %d requested\n", len(res.Segments), req.Count)
	if res.Tracklist != "" {
		fmt.Fprintf(w, " Tracklist:   %s\n", res.Tracklist)
	}
	if n := res.Failures.Len(); n > 0 {
		fmt.Fprintln(w, styleWarning.Render(fmt.Sprintf(" Skipped:     %d", n)))
		for _, line := range strings.Split(strings.TrimSpace(res.Failures.Summary()), "\n") {
			fmt.Fprintln(w, styleMuted.Render("   "+strings.TrimSpace(line)))
		}
	}
	fmt.Fprintln(w, styleRule.Render(rule))
}
