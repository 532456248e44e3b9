package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/handiism/mashup/internal/task"
)

// ErrNoInput is returned by Concatenate when there is nothing to join.
var ErrNoInput = errors.New("no segments to concatenate")

// Executor runs one external command. *task.Runner satisfies it.
type Executor interface {
	Run(ctx context.Context, cmd task.Command) (*task.Result, error)
}

// Clip is a loaded candidate track: a source file with a known length.
type Clip struct {
	Path     string
	Duration float64
}

// Segment is a trimmed portion of audio, backed by a scratch file.
//
// Segments are owned by whoever created them and must be closed once they
// are no longer needed. Close removes the scratch file and is safe to call
// more than once.
type Segment struct {
	Path     string
	Duration float64

	once sync.Once
	err  error
}

// Close releases the segment's scratch file.
func (s *Segment) Close() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
			s.err = err
		}
	})
	return s.err
}

// CloseAll closes every segment and joins the errors.
func CloseAll(segments ...*Segment) error {
	var errs []error
	for _, s := range segments {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteOptions controls the final encode.
type WriteOptions struct {
	// Fade is the fade-in and fade-out length in seconds for the whole mix.
	Fade float64

	// Bitrate for lossy codecs, e.g. "192k". Empty keeps the encoder default.
	Bitrate string

	// SampleRate of the output in Hz. Zero keeps the segment rate.
	SampleRate int
}

// FFmpeg edits audio by running ffprobe and ffmpeg.
//
// Segments are decoded to 16-bit PCM WAV scratch files placed next to their
// source, so removing the run directory also removes every segment. The
// final encode picks its codec from the output extension.
//
// Example usage:
//
//	ed := NewFFmpeg("ffmpeg", "ffprobe", task.NewRunner())
//	clip, err := ed.Load(ctx, "/tmp/mashup_x/Hello.webm")
//	seg, err := ed.Trim(ctx, clip, 30, 0.5)
//	defer seg.Close()
type FFmpeg struct {
	ffmpeg     string
	ffprobe    string
	exec       Executor
	sampleRate int
	seq        atomic.Int64
}

// NewFFmpeg creates an FFmpeg editor. Empty paths default to the binaries on PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string, exec Executor) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{
		ffmpeg:     ffmpegPath,
		ffprobe:    ffprobePath,
		exec:       exec,
		sampleRate: 44100,
	}
}

// Load probes path and returns it as a Clip. Unreadable or corrupt files fail here.
func (f *FFmpeg) Load(ctx context.Context, path string) (*Clip, error) {
	res, err := f.exec.Run(ctx, task.Command{
		Path: f.ffprobe,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w%s", filepath.Base(path), err, diagnostics(res))
	}

	duration, err := ParseDuration(res.Stdout)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", filepath.Base(path), err)
	}
	return &Clip{Path: path, Duration: duration}, nil
}

// Trim extracts [0, min(length, clip.Duration)) from clip with a fade of
// fade seconds at both ends. Tracks shorter than length are used whole.
func (f *FFmpeg) Trim(ctx context.Context, clip *Clip, length, fade float64) (*Segment, error) {
	cut := length
	if clip.Duration > 0 && clip.Duration < cut {
		cut = clip.Duration
	}
	if cut <= 0 {
		return nil, fmt.Errorf("trim %s: nothing to cut", filepath.Base(clip.Path))
	}

	out := f.scratchPath(filepath.Dir(clip.Path), "segment")
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", clip.Path,
		"-t", formatSeconds(cut),
		"-vn",
	}
	if filter := FadeFilter(cut, fade); filter != "" {
		args = append(args, "-af", filter)
	}
	args = append(args,
		"-ac", "2",
		"-ar", strconv.Itoa(f.sampleRate),
		"-c:a", "pcm_s16le",
		out,
	)

	res, err := f.exec.Run(ctx, task.Command{Path: f.ffmpeg, Args: args})
	if err != nil {
		os.Remove(out)
		return nil, fmt.Errorf("trim %s: %w%s", filepath.Base(clip.Path), err, diagnostics(res))
	}
	return &Segment{Path: out, Duration: cut}, nil
}

// Concatenate joins segments in order into a new segment. The inputs are
// left open; the caller still owns them.
func (f *FFmpeg) Concatenate(ctx context.Context, segments []*Segment) (*Segment, error) {
	if len(segments) == 0 {
		return nil, ErrNoInput
	}

	dir := filepath.Dir(segments[0].Path)
	list := f.scratchPath(dir, "concat") + ".txt"
	if err := os.WriteFile(list, []byte(ConcatList(segments)), 0644); err != nil {
		return nil, err
	}
	defer os.Remove(list)

	out := f.scratchPath(dir, "merged")
	res, err := f.exec.Run(ctx, task.Command{
		Path: f.ffmpeg,
		Args: []string{
			"-hide_banner", "-loglevel", "error", "-y",
			"-f", "concat", "-safe", "0",
			"-i", list,
			"-c", "copy",
			out,
		},
	})
	if err != nil {
		os.Remove(out)
		return nil, fmt.Errorf("concatenate %d segments: %w%s", len(segments), err, diagnostics(res))
	}

	var total float64
	for _, s := range segments {
		total += s.Duration
	}
	return &Segment{Path: out, Duration: total}, nil
}

// Write encodes seg to path, applying opts.Fade to the whole mix. The codec
// follows the extension of path. A partially written file is removed.
func (f *FFmpeg) Write(ctx context.Context, seg *Segment, path string, opts WriteOptions) error {
	codec, lossy := CodecFor(path)

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", seg.Path,
		"-vn",
	}
	if filter := FadeFilter(seg.Duration, opts.Fade); filter != "" {
		args = append(args, "-af", filter)
	}
	if opts.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(opts.SampleRate))
	}
	if codec != "" {
		args = append(args, "-c:a", codec)
	}
	if lossy && opts.Bitrate != "" {
		args = append(args, "-b:a", opts.Bitrate)
	}
	args = append(args, path)

	res, err := f.exec.Run(ctx, task.Command{Path: f.ffmpeg, Args: args})
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("write %s: %w%s", filepath.Base(path), err, diagnostics(res))
	}
	return nil
}

func (f *FFmpeg) scratchPath(dir, kind string) string {
	return filepath.Join(dir, fmt.Sprintf(".%s_%04d.wav", kind, f.seq.Add(1)))
}

// FadeFilter builds an afade chain for a clip of length seconds. The fade
// is clamped to half the length. A non-positive fade yields "".
func FadeFilter(length, fade float64) string {
	if fade <= 0 || length <= 0 {
		return ""
	}
	if fade > length/2 {
		fade = length / 2
	}
	return fmt.Sprintf("afade=t=in:st=0:d=%s,afade=t=out:st=%s:d=%s",
		formatSeconds(fade), formatSeconds(length-fade), formatSeconds(fade))
}

// CodecFor returns the ffmpeg encoder for the output extension and whether
// it is lossy. Unknown extensions return "" so ffmpeg picks a default.
func CodecFor(path string) (codec string, lossy bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "libmp3lame", true
	case ".m4a", ".aac", ".mp4":
		return "aac", true
	case ".ogg", ".oga":
		return "libvorbis", true
	case ".opus":
		return "libopus", true
	case ".wav":
		return "pcm_s16le", false
	case ".flac":
		return "flac", false
	}
	return "", false
}

// ConcatList renders the concat demuxer input for segments.
func ConcatList(segments []*Segment) string {
	var sb strings.Builder
	for _, s := range segments {
		// single quotes are closed, escaped and reopened
		sb.WriteString("file '" + strings.ReplaceAll(s.Path, "'", `'\''`) + "'\n")
	}
	return sb.String()
}

// ParseDuration reads ffprobe's bare duration output.
func ParseDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	if s == "" || s == "N/A" {
		return 0, errors.New("unknown duration")
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad duration %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("empty stream (duration %s)", s)
	}
	return d, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func diagnostics(res *task.Result) string {
	if d := res.Diagnostics(); d != "" {
		if len(d) > 300 {
			d = d[len(d)-300:]
		}
		return ": " + d
	}
	return ""
}
