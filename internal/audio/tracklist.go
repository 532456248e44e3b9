package audio

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/handiism/mashup/internal/model"
)

// TracklistFormat represents supported tracklist file formats.
type TracklistFormat int

const (
	// FormatCUE creates a .cue sheet indexing each source inside the mashup.
	// Players that understand CUE show the sources as separate tracks.
	FormatCUE TracklistFormat = iota

	// FormatM3U creates a .m3u playlist of the source pages.
	// Can be extended with EXTINF lines for length/title info.
	FormatM3U
)

// ParseTracklistFormat maps a config value to a TracklistFormat.
// Unknown values fall back to FormatCUE.
func ParseTracklistFormat(s string) TracklistFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m3u", "m3u8":
		return FormatM3U
	default:
		return FormatCUE
	}
}

// Extension returns the file extension for the format.
func (f TracklistFormat) Extension() string {
	if f == FormatM3U {
		return ".m3u"
	}
	return ".cue"
}

// TracklistWriter renders the list of sources used in a mashup.
//
// Example:
//
//	w := NewTracklistWriter(FormatCUE, false)
//	content := w.Render("Adele.mp3", "Adele", entries)
//	os.WriteFile("Adele.cue", []byte(content), 0644)
//
//	// Result:
//	// PERFORMER "Adele"
//	// TITLE "Adele Mashup"
//	// FILE "Adele.mp3" MP3
//	//   TRACK 01 AUDIO
//	//     TITLE "Hello"
//	//     PERFORMER "AdeleVEVO"
//	//     INDEX 01 00:00:00
type TracklistWriter struct {
	format   TracklistFormat
	extended bool // For M3U: include EXTINF lines with length/title
}

// NewTracklistWriter creates a new TracklistWriter.
//
// extended only applies to FormatM3U.
func NewTracklistWriter(format TracklistFormat, extended bool) *TracklistWriter {
	return &TracklistWriter{format: format, extended: extended}
}

// Format returns the writer's format.
func (w *TracklistWriter) Format() TracklistFormat {
	return w.format
}

// Render generates tracklist content for the mashup file at mashupPath.
func (w *TracklistWriter) Render(mashupPath, artist string, entries []model.TracklistEntry) string {
	if w.format == FormatM3U {
		return w.renderM3U(artist, entries)
	}
	return w.renderCUE(mashupPath, artist, entries)
}

// Path returns where the tracklist for mashupPath is written.
func (w *TracklistWriter) Path(mashupPath string) string {
	return strings.TrimSuffix(mashupPath, filepath.Ext(mashupPath)) + w.format.Extension()
}

func (w *TracklistWriter) renderCUE(mashupPath, artist string, entries []model.TracklistEntry) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "PERFORMER %s\n", cueQuote(artist))
	fmt.Fprintf(&sb, "TITLE %s\n", cueQuote(artist+" Mashup"))
	fmt.Fprintf(&sb, "FILE %s %s\n", cueQuote(filepath.Base(mashupPath)), cueFileType(mashupPath))

	for i, e := range entries {
		performer := e.Performer
		if performer == "" {
			performer = artist
		}
		fmt.Fprintf(&sb, "  TRACK %02d AUDIO\n", i+1)
		fmt.Fprintf(&sb, "    TITLE %s\n", cueQuote(e.Title))
		fmt.Fprintf(&sb, "    PERFORMER %s\n", cueQuote(performer))
		fmt.Fprintf(&sb, "    INDEX 01 %s\n", CueTime(e.Start))
	}

	return sb.String()
}

// renderM3U lists the source pages:
//
//	#EXTM3U
//	#EXTINF:30,AdeleVEVO - Hello
//	https://www.youtube.com/watch?v=YQHsXMglC9A
func (w *TracklistWriter) renderM3U(artist string, entries []model.TracklistEntry) string {
	var sb strings.Builder

	if w.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, e := range entries {
		if w.extended {
			performer := e.Performer
			if performer == "" {
				performer = artist
			}
			fmt.Fprintf(&sb, "#EXTINF:%d,%s - %s\n", int(e.Length.Round(time.Second)/time.Second), performer, e.Title)
		}
		sb.WriteString(e.Source + "\n")
	}

	return sb.String()
}

// CueTime formats d as a CUE index, mm:ss:ff with 75 frames per second.
func CueTime(d time.Duration) string {
	frames := d.Milliseconds() * 75 / 1000
	return fmt.Sprintf("%02d:%02d:%02d", frames/(75*60), (frames/75)%60, frames%75)
}

func cueQuote(s string) string {
	s = strings.ReplaceAll(s, `"`, "'")
	s = strings.ReplaceAll(s, "\n", " ")
	return `"` + s + `"`
}

func cueFileType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "MP3"
	case ".aif", ".aiff":
		return "AIFF"
	default:
		return "WAVE"
	}
}
