package web

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/revx-official/output/log"
	"golang.org/x/sync/semaphore"

	"github.com/handiism/mashup/internal/config"
	ioutils "github.com/handiism/mashup/internal/io"
	"github.com/handiism/mashup/internal/mail"
	"github.com/handiism/mashup/internal/model"
	"github.com/handiism/mashup/internal/task"
)

// Invoker runs the generator process. *task.Runner satisfies it.
type Invoker interface {
	Run(ctx context.Context, cmd task.Command) (*task.Result, error)
}

// Form is the submitted request form.
type Form struct {
	Singer   string `form:"singer"`
	Count    string `form:"count"`
	Duration string `form:"duration"`
	Email    string `form:"email"`
}

// Status is the final state of a request.
type Status string

const (
	StatusPending     Status = "pending"
	StatusSuccess     Status = "success"
	StatusInvalid     Status = "invalid"
	StatusFailed      Status = "failed"
	StatusEmailFailed Status = "email_failed"
)

// Outcome is what the user is shown for one request.
type Outcome struct {
	ID      string        `json:"id"`
	Status  Status        `json:"status"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Detail  string        `json:"detail,omitempty"`
	Singer  string        `json:"singer"`
	Email   string        `json:"email"`
	Started time.Time     `json:"started"`
	Elapsed time.Duration `json:"elapsed"`
}

// OK reports whether the mashup was delivered.
func (o *Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// Service turns a form submission into an emailed mashup.
//
// Each request runs: validate, invoke the generator process, verify the
// output exists, zip it, email the zip. Both the audio file and the zip are
// deleted afterwards whatever happened. At most MaxConcurrentJobs requests
// generate at a time; the rest wait.
type Service struct {
	settings *config.Settings
	invoker  Invoker
	sender   mail.Sender
	history  *History
	sem      *semaphore.Weighted
	newID    func() string
}

// NewService creates a Service. history may be nil.
func NewService(settings *config.Settings, invoker Invoker, sender mail.Sender, history *History) *Service {
	jobs := settings.MaxConcurrentJobs
	if jobs < 1 {
		jobs = 1
	}
	return &Service{
		settings: settings,
		invoker:  invoker,
		sender:   sender,
		history:  history,
		sem:      semaphore.NewWeighted(int64(jobs)),
		newID:    NewRequestID,
	}
}

// NewRequestID returns a short random token.
func NewRequestID() string {
	return uuid.NewString()[:8]
}

// Artifacts returns the audio and zip paths for a request id.
func (s *Service) Artifacts(id string) (mp3, zip string) {
	name := "mashup_" + id
	return filepath.Join(s.settings.WorkDir, name+model.DefaultExtension), filepath.Join(s.settings.WorkDir, name+".zip")
}

// Lookup returns a recent outcome.
func (s *Service) Lookup(id string) (*Outcome, error) {
	if s.history == nil {
		return nil, ErrNotFound
	}
	return s.history.Get(id)
}

// Generate handles one form submission. It never returns nil.
func (s *Service) Generate(ctx context.Context, form Form) *Outcome {
	out := &Outcome{
		ID:      s.newID(),
		Status:  StatusPending,
		Singer:  strings.TrimSpace(form.Singer),
		Email:   strings.TrimSpace(form.Email),
		Started: time.Now(),
	}
	defer func() {
		out.Elapsed = time.Since(out.Started)
		s.remember(out)
	}()

	mp3Path, zipPath := s.Artifacts(out.ID)

	req, err := model.ParseRequest(form.Singer, form.Count, form.Duration, filepath.Base(mp3Path))
	if err != nil {
		log.Warnf("[%s] rejected request: %s", out.ID, err)
		if errors.Is(err, model.ErrNotInteger) {
			return out.fail(StatusInvalid, "Error", "Invalid numeric inputs.", "")
		}
		return out.fail(StatusInvalid, "Error", validationMessage(err), "")
	}
	if _, err := netmail.ParseAddress(out.Email); err != nil {
		log.Warnf("[%s] rejected email %q: %s", out.ID, out.Email, err)
		return out.fail(StatusInvalid, "Error", "Invalid email address.", "")
	}

	s.remember(out)
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return out.fail(StatusFailed, "Server Error", "Request cancelled while waiting for a free slot.", "")
	}
	defer s.sem.Release(1)

	defer s.cleanup(out.ID, mp3Path, zipPath)

	log.Infof("[%s] Starting mashup for %s...", out.ID, req.Artist)
	res, err := s.invoke(ctx, req)
	if err != nil {
		var exitErr *task.ExitError
		switch {
		case errors.As(err, &exitErr):
			log.Errorf("[%s] generator failed: %s", out.ID, err)
			return out.fail(StatusFailed, "Script Error", "The generator exited with an error.", res.Diagnostics())
		case errors.Is(err, task.ErrTimeout):
			log.Errorf("[%s] generator timed out after %s", out.ID, s.settings.JobTimeout.Duration)
			return out.fail(StatusFailed, "Script Error", "The generator took too long and was stopped.", res.Diagnostics())
		default:
			log.Errorf("[%s] could not run generator: %s", out.ID, err)
			return out.fail(StatusFailed, "Server Error", err.Error(), "")
		}
	}

	if !ioutils.Exists(mp3Path) {
		log.Errorf("[%s] generator produced no output: %s", out.ID, res.Diagnostics())
		return out.fail(StatusFailed, "Generation Failed", "The generator did not produce a mashup.", res.Diagnostics())
	}

	log.Infof("[%s] Zipping file...", out.ID)
	if err := ioutils.ZipFile(ctx, mp3Path, zipPath); err != nil {
		log.Errorf("[%s] zip failed: %s", out.ID, err)
		return out.fail(StatusFailed, "Server Error", fmt.Sprintf("Could not create zip: %s", err), "")
	}

	log.Infof("[%s] Sending email to %s...", out.ID, out.Email)
	if err := s.send(ctx, out.Email, zipPath); err != nil {
		log.Errorf("[%s] Failed to send email: %s", out.ID, err)
		return out.fail(StatusEmailFailed, "Error", "Mashup created, but email failed. Check server logs.", "")
	}
	log.Infof("[%s] Email sent successfully to %s", out.ID, out.Email)

	out.Status = StatusSuccess
	out.Title = "Success!"
	out.Message = fmt.Sprintf("The mashup %s has been sent to %s.", req.Artist, out.Email)
	return out
}

func (s *Service) invoke(ctx context.Context, req *model.Request) (*task.Result, error) {
	cmd := s.settings.GeneratorCommand
	if len(cmd) == 0 {
		return nil, errors.New("no generator command configured")
	}

	args := append(append([]string(nil), cmd[1:]...),
		req.Artist,
		strconv.Itoa(req.Count),
		strconv.Itoa(req.Duration),
		req.Output,
	)
	return s.invoker.Run(ctx, task.Command{
		Path:    cmd[0],
		Args:    args,
		Dir:     s.settings.WorkDir,
		Timeout: s.settings.JobTimeout.Duration,
	})
}

func (s *Service) send(ctx context.Context, recipient, zipPath string) error {
	data, err := os.ReadFile(zipPath)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, recipient, data, filepath.Base(zipPath))
}

func (s *Service) cleanup(id string, paths ...string) {
	var failed bool
	for _, p := range paths {
		if err := ioutils.RemoveIfExists(p); err != nil {
			failed = true
			log.Warnf("[%s] Cleanup failed: %s", id, err)
		}
	}
	if !failed {
		log.Infof("[%s] Cleaned up temp files.", id)
	}
}

func (s *Service) remember(o *Outcome) {
	if s.history == nil {
		return
	}
	if err := s.history.Put(o); err != nil {
		log.Warnf("[%s] could not record outcome: %s", o.ID, err)
	}
}

func (o *Outcome) fail(status Status, title, message, detail string) *Outcome {
	o.Status = status
	o.Title = title
	o.Message = message
	o.Detail = detail
	return o
}

// validationMessage flattens joined validation errors into one line.
func validationMessage(err error) string {
	var msgs []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			msgs = append(msgs, line)
		}
	}
	return strings.Join(msgs, "; ")
}
