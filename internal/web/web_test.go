package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zip"

	"github.com/handiism/mashup/internal/config"
	"github.com/handiism/mashup/internal/task"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeInvoker pretends to be the generator process.
type fakeInvoker struct {
	calls    []task.Command
	write    bool
	exitCode int
	stderr   string
	err      error
}

func (f *fakeInvoker) Run(ctx context.Context, cmd task.Command) (*task.Result, error) {
	f.calls = append(f.calls, cmd)
	if f.write {
		out := filepath.Join(cmd.Dir, cmd.Args[len(cmd.Args)-1])
		if err := os.WriteFile(out, []byte("ID3 mashup audio"), 0644); err != nil {
			return nil, err
		}
	}
	res := &task.Result{ExitCode: f.exitCode, Stderr: f.stderr}
	if f.err != nil {
		return res, f.err
	}
	if f.exitCode != 0 {
		return res, &task.ExitError{Command: cmd.String(), Result: res}
	}
	return res, nil
}

type fakeSender struct {
	recipient string
	filename  string
	data      []byte
	err       error
}

func (f *fakeSender) Send(ctx context.Context, recipient string, attachment []byte, filename string) error {
	f.recipient, f.filename, f.data = recipient, filename, attachment
	return f.err
}

type fixture struct {
	workDir string
	invoker *fakeInvoker
	sender  *fakeSender
	service *Service
	server  *Server
}

func newFixture(t *testing.T, invoker *fakeInvoker, sender *fakeSender) *fixture {
	t.Helper()
	settings := config.DefaultSettings()
	settings.WorkDir = t.TempDir()
	settings.GeneratorCommand = []string{"mashup-gen", "--verbose"}
	settings.JobTimeout = config.Duration{Duration: time.Minute}

	history, err := NewHistory(context.Background(), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { history.Close() })

	service := NewService(settings, invoker, sender, history)
	service.newID = func() string { return "abcd1234" }

	return &fixture{
		workDir: settings.WorkDir,
		invoker: invoker,
		sender:  sender,
		service: service,
		server:  NewServer(service),
	}
}

func (f *fixture) post(t *testing.T, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mashup", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func (f *fixture) assertNoArtifacts(t *testing.T) {
	t.Helper()
	mp3, zipPath := f.service.Artifacts("abcd1234")
	for _, p := range []string{mp3, zipPath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should be removed", filepath.Base(p))
		}
	}
}

func validForm() url.Values {
	return url.Values{
		"singer":   {"Adele"},
		"count":    {"12"},
		"duration": {"30"},
		"email":    {"you@example.com"},
	}
}

func TestIndex(t *testing.T) {
	f := newFixture(t, &fakeInvoker{}, &fakeSender{})
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`action="/mashup"`, `name="singer"`, `name="count"`, `name="duration"`, `name="email"`, `min="11"`} {
		if !strings.Contains(body, want) {
			t.Errorf("form missing %s", want)
		}
	}
}

func TestMashup_InvalidInputSkipsGenerator(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		want  string
	}{
		{"non-integer count", "count", "twelve", "Invalid numeric inputs."},
		{"non-integer duration", "duration", "3.5", "Invalid numeric inputs."},
		{"count too low", "count", "10", "must be &gt; 10"},
		{"duration too low", "duration", "20", "must be &gt; 20"},
		{"bad email", "email", "nobody", "Invalid email address."},
		{"empty singer", "singer", "  ", "must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &fakeInvoker{write: true}, &fakeSender{})
			form := validForm()
			form.Set(tt.field, tt.value)

			w := f.post(t, form)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("body missing %q:\n%s", tt.want, w.Body.String())
			}
			if len(f.invoker.calls) != 0 {
				t.Error("generator must not be invoked")
			}
		})
	}
}

func TestMashup_Success(t *testing.T) {
	f := newFixture(t, &fakeInvoker{write: true}, &fakeSender{})

	w := f.post(t, validForm())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d\n%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "has been sent to you@example.com") {
		t.Errorf("unexpected body:\n%s", w.Body.String())
	}

	call := f.invoker.calls[0]
	wantArgs := []string{"--verbose", "Adele", "12", "30", "mashup_abcd1234.mp3"}
	if call.Path != "mashup-gen" || strings.Join(call.Args, "|") != strings.Join(wantArgs, "|") {
		t.Errorf("invoked %s %v", call.Path, call.Args)
	}
	if call.Dir != f.workDir || call.Timeout != time.Minute {
		t.Errorf("Dir=%q Timeout=%v", call.Dir, call.Timeout)
	}

	if f.sender.recipient != "you@example.com" || f.sender.filename != "mashup_abcd1234.zip" {
		t.Errorf("sent %q to %q", f.sender.filename, f.sender.recipient)
	}
	zr, err := zip.NewReader(bytes.NewReader(f.sender.data), int64(len(f.sender.data)))
	if err != nil {
		t.Fatalf("attachment is not a zip: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "mashup_abcd1234.mp3" {
		t.Fatalf("zip entries = %v", zr.File)
	}
	rc, _ := zr.File[0].Open()
	content, _ := io.ReadAll(rc)
	rc.Close()
	if string(content) != "ID3 mashup audio" {
		t.Errorf("zip content = %q", content)
	}

	f.assertNoArtifacts(t)
}

func TestMashup_ScriptFailure(t *testing.T) {
	f := newFixture(t, &fakeInvoker{write: true, exitCode: 1, stderr: "<no results> for query"}, &fakeSender{})

	w := f.post(t, validForm())

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Script Error") || !strings.Contains(body, "&lt;no results&gt; for query") {
		t.Errorf("diagnostics should be shown escaped:\n%s", body)
	}
	if f.sender.recipient != "" {
		t.Error("nothing should be emailed")
	}
	f.assertNoArtifacts(t)
}

func TestMashup_Timeout(t *testing.T) {
	f := newFixture(t, &fakeInvoker{err: task.ErrTimeout}, &fakeSender{})

	w := f.post(t, validForm())

	if !strings.Contains(w.Body.String(), "took too long") {
		t.Errorf("unexpected body:\n%s", w.Body.String())
	}
	f.assertNoArtifacts(t)
}

func TestMashup_MissingOutput(t *testing.T) {
	f := newFixture(t, &fakeInvoker{stderr: "only 0 tracks downloaded"}, &fakeSender{})

	w := f.post(t, validForm())

	body := w.Body.String()
	if !strings.Contains(body, "Generation Failed") || !strings.Contains(body, "only 0 tracks downloaded") {
		t.Errorf("unexpected body:\n%s", body)
	}
	f.assertNoArtifacts(t)
}

func TestMashup_EmailFailure(t *testing.T) {
	f := newFixture(t, &fakeInvoker{write: true}, &fakeSender{err: errors.New("535 authentication failed")})

	w := f.post(t, validForm())

	if !strings.Contains(w.Body.String(), "Mashup created, but email failed") {
		t.Errorf("unexpected body:\n%s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "535") {
		t.Error("mail server errors belong in the logs, not the page")
	}
	f.assertNoArtifacts(t)
}

func TestMashupStatus(t *testing.T) {
	f := newFixture(t, &fakeInvoker{write: true}, &fakeSender{})
	f.post(t, validForm())

	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mashup/abcd1234", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Success!") {
		t.Errorf("status = %d\n%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mashup/unknown", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, &fakeInvoker{}, &fakeSender{})
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}

func TestGenerate_WaitsForFreeSlot(t *testing.T) {
	f := newFixture(t, &fakeInvoker{write: true}, &fakeSender{})
	if err := f.service.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer f.service.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	form := Form{Singer: "Adele", Count: "12", Duration: "30", Email: "you@example.com"}
	out := f.service.Generate(ctx, form)
	if out.Status != StatusFailed || len(f.invoker.calls) != 0 {
		t.Errorf("status=%s calls=%d", out.Status, len(f.invoker.calls))
	}
}
