package model

import (
	"path/filepath"
	"strings"
	"time"
)

// Track represents a downloaded candidate track.
//
// Track contains:
//   - The local file path in the run directory
//   - Title, uploader and source URLs, when the downloader left an info sidecar
//   - Duration reported by the source (0 if unknown)
//
// The file itself is owned by the run directory and disappears with it.
//
// Example:
//
//	track := NewTrack("/tmp/mashup_x/Hello.webm")
//	// track.Title = "Hello"
type Track struct {
	// Path is the local audio file.
	Path string

	// Title is the source title. Defaults to the file name without extension.
	Title string

	// Uploader is the channel or account that published the source.
	Uploader string

	// Duration is the source length in seconds as reported by the platform.
	Duration float64

	// WebpageURL is the page the track was downloaded from.
	WebpageURL string

	// ThumbnailURL points at the source thumbnail, used for cover art.
	ThumbnailURL string
}

// NewTrack creates a Track for path with a title derived from the file name.
func NewTrack(path string) *Track {
	base := filepath.Base(path)
	return &Track{
		Path:  path,
		Title: strings.TrimSuffix(base, filepath.Ext(base)),
	}
}

// FileName returns the base name of the track file.
func (t *Track) FileName() string {
	return filepath.Base(t.Path)
}

// HasThumbnail reports whether a thumbnail URL is known.
func (t *Track) HasThumbnail() bool {
	return t.ThumbnailURL != ""
}

// TracklistEntry places one source track inside a finished mashup.
type TracklistEntry struct {
	// Title is the source track title.
	Title string

	// Performer is the uploader, or the requested artist when unknown.
	Performer string

	// Source is the page the track came from, or its file name.
	Source string

	// Start is the offset of the segment inside the mashup.
	Start time.Duration

	// Length is the segment length.
	Length time.Duration
}
