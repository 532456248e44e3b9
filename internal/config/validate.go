package config

import (
	"errors"
	"fmt"
)

// Validate checks the settings for errors.
func (s *Settings) Validate() error {
	var errs []error

	if s.OverFetch < 0 {
		errs = append(errs, errors.New("over_fetch must be non-negative"))
	}
	if len(s.AudioExtensions) == 0 {
		errs = append(errs, errors.New("audio_extensions must not be empty"))
	}
	if s.SegmentFade < 0 || s.MashupFade < 0 {
		errs = append(errs, errors.New("fade durations must be non-negative"))
	}
	if s.ArtworkMaxSize < 0 {
		errs = append(errs, errors.New("artwork_max_size must be non-negative"))
	}
	switch s.TracklistFormat {
	case "", "cue", "m3u":
		// valid
	default:
		errs = append(errs, fmt.Errorf("invalid tracklist_format: %s (must be cue or m3u)", s.TracklistFormat))
	}
	if len(s.GeneratorCommand) == 0 {
		errs = append(errs, errors.New("generator_command must not be empty"))
	}
	if s.MaxConcurrentJobs < 1 {
		errs = append(errs, errors.New("max_concurrent_jobs must be at least 1"))
	}
	if s.JobTimeout.Duration < 0 {
		errs = append(errs, errors.New("job_timeout must be non-negative"))
	}
	if s.SMTPPort <= 0 || s.SMTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid smtp_port: %d", s.SMTPPort))
	}

	return errors.Join(errs...)
}
