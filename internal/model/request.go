package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinCount is the exclusive lower bound for the number of tracks.
	MinCount = 10

	// MinDuration is the exclusive lower bound for the per-track duration in seconds.
	MinDuration = 20

	// DefaultExtension is the extension every mashup output carries.
	DefaultExtension = ".mp3"
)

var (
	// ErrInvalidRequest is wrapped by every request validation failure.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotInteger is returned when a numeric field does not parse as an integer.
	ErrNotInteger = errors.New("not an integer")
)

// ValidationError describes a single rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// Request is a single mashup generation request.
//
// A Request is immutable once validated. Count and Duration are strict
// lower-bounded: Count must exceed MinCount and Duration must exceed
// MinDuration.
type Request struct {
	// Artist is the search keyword (usually a singer or band name).
	Artist string

	// Count is the number of segments the mashup should contain.
	Count int

	// Duration is the maximum length of every segment in seconds.
	Duration int

	// Output is the path of the mashup file. Always carries an audio extension
	// after NormalizeOutput.
	Output string
}

// ParseRequest builds a Request from string input and validates it.
//
// count and duration must be integers; a non-integer yields an error
// wrapping ErrNotInteger. The output name is normalized to carry
// DefaultExtension exactly once.
//
// Example:
//
//	req, err := ParseRequest("Adele", "15", "25", "adele")
//	// req.Output == "adele.mp3"
func ParseRequest(artist, count, duration, output string) (*Request, error) {
	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil {
		return nil, fmt.Errorf("count %q: %w", count, ErrNotInteger)
	}
	d, err := strconv.Atoi(strings.TrimSpace(duration))
	if err != nil {
		return nil, fmt.Errorf("duration %q: %w", duration, ErrNotInteger)
	}

	req := &Request{
		Artist:   strings.TrimSpace(artist),
		Count:    n,
		Duration: d,
		Output:   NormalizeOutput(output, DefaultExtension),
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate checks the request bounds.
//
// Every violated rule is reported; multiple violations are joined.
func (r *Request) Validate() error {
	var errs []error

	if strings.TrimSpace(r.Artist) == "" {
		errs = append(errs, &ValidationError{Field: "artist", Message: "must not be empty"})
	}
	if r.Count <= MinCount {
		errs = append(errs, &ValidationError{
			Field:   "count",
			Message: fmt.Sprintf("number of videos must be > %d, got %d", MinCount, r.Count),
		})
	}
	if r.Duration <= MinDuration {
		errs = append(errs, &ValidationError{
			Field:   "duration",
			Message: fmt.Sprintf("duration must be > %d seconds, got %d", MinDuration, r.Duration),
		})
	}

	return errors.Join(errs...)
}

// NormalizeOutput makes sure name ends with ext, compared case-insensitively.
//
// The extension is appended at most once:
//
//	NormalizeOutput("mix", ".mp3")     // "mix.mp3"
//	NormalizeOutput("mix.MP3", ".mp3") // "mix.MP3"
//	NormalizeOutput("", ".mp3")        // "mashup.mp3"
func NormalizeOutput(name, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "mashup"
	}
	if strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		return name
	}
	return name + ext
}
