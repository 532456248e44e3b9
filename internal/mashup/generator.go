package mashup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/handiism/mashup/internal/audio"
	"github.com/handiism/mashup/internal/config"
	"github.com/handiism/mashup/internal/http"
	ioutils "github.com/handiism/mashup/internal/io"
	"github.com/handiism/mashup/internal/model"
	"github.com/handiism/mashup/internal/task"
	"github.com/handiism/mashup/internal/ytsearch"
)

// ErrNoSegments is returned when not a single track could be processed.
var ErrNoSegments = errors.New("no usable audio segments")

// Searcher fetches candidate tracks for a keyword search into dir.
// It is best-effort: it may return fewer than maxItems files, and a non-nil
// error alongside files reports a partial failure.
type Searcher interface {
	SearchAndDownload(ctx context.Context, query string, maxItems int, dir string) ([]string, error)
}

// Editor loads, trims, joins and encodes audio.
type Editor interface {
	Load(ctx context.Context, path string) (*audio.Clip, error)
	Trim(ctx context.Context, clip *audio.Clip, length, fade float64) (*audio.Segment, error)
	Concatenate(ctx context.Context, segments []*audio.Segment) (*audio.Segment, error)
	Write(ctx context.Context, seg *audio.Segment, path string, opts audio.WriteOptions) error
}

// ArtworkFetcher downloads thumbnail bytes.
type ArtworkFetcher interface {
	DownloadBytes(ctx context.Context, url string) ([]byte, error)
}

// Result describes a finished run, successful or not.
type Result struct {
	// RunID is the short identifier naming the run directory.
	RunID string

	// Output is the mashup path.
	Output string

	// Segments lists the sources in mashup order with their offsets.
	Segments []model.TracklistEntry

	// Candidates is the number of audio files that were downloaded.
	Candidates int

	// Shortfall is set when fewer candidates than requested arrived.
	Shortfall bool

	// Failures holds every skipped item.
	Failures *Failures

	// Tracklist is the path of the tracklist file, if one was written.
	Tracklist string

	Elapsed time.Duration
}

// Option customizes a Generator.
type Option func(*Generator)

// WithSearcher replaces the yt-dlp downloader.
func WithSearcher(s Searcher) Option {
	return func(g *Generator) { g.searcher = s }
}

// WithEditor replaces the ffmpeg editor.
func WithEditor(e Editor) Option {
	return func(g *Generator) { g.editor = e }
}

// WithArtworkFetcher replaces the HTTP client used for thumbnails.
func WithArtworkFetcher(f ArtworkFetcher) Option {
	return func(g *Generator) { g.artwork = f }
}

// WithTrackReader replaces how metadata is read for a downloaded file.
func WithTrackReader(fn func(path string) *model.Track) Option {
	return func(g *Generator) { g.readTrack = fn }
}

// Generator builds mashups.
//
// A Generator runs one request at a time; Progress reflects the current run.
type Generator struct {
	settings     *config.Settings
	searcher     Searcher
	editor       Editor
	artwork      ArtworkFetcher
	readTrack    func(path string) *model.Track
	tagger       *audio.Tagger
	tracklist    *audio.TracklistWriter
	imageService *ioutils.ImageService

	processed atomic.Int32
	target    atomic.Int32
	phase     atomic.Int32

	onProgress func(ProgressEvent)
}

// NewGenerator creates a Generator from settings. Collaborators default to
// yt-dlp for search, ffmpeg for editing and the package HTTP client for
// thumbnails.
func NewGenerator(settings *config.Settings, onProgress func(ProgressEvent), opts ...Option) *Generator {
	var tagger *audio.Tagger
	if settings.ModifyTags || settings.EmbedArtwork {
		cfg := audio.DefaultTagConfig()
		cfg.ModifyTags = settings.ModifyTags
		tagger = audio.NewTagger(cfg)
	}

	g := &Generator{
		settings: settings,
		searcher: ytsearch.NewDownloader(ytsearch.Options{
			Format:     settings.SearchFormat,
			Executable: settings.YtDlpPath,
			Extensions: settings.AudioExtensions,
		}),
		editor:       audio.NewFFmpeg(settings.FFmpegPath, settings.FFprobePath, task.NewRunner()),
		artwork:      http.NewClient(),
		readTrack:    ytsearch.ReadTrack,
		tagger:       tagger,
		tracklist:    audio.NewTracklistWriter(audio.ParseTracklistFormat(settings.TracklistFormat), settings.TracklistExtInfo),
		imageService: ioutils.NewImageService(),
		onProgress:   onProgress,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Progress returns how many segments are done out of the target, and the
// current phase.
func (g *Generator) Progress() (processed, target int32, phase Phase) {
	return g.processed.Load(), g.target.Load(), Phase(g.phase.Load())
}

// Run validates req, downloads candidates into a fresh run directory, trims
// and joins them, and writes req.Output.
//
// The run directory is removed on every return path, including
// cancellation. The returned Result is never nil and carries the elapsed
// time even when err is set. Skipped items are collected in
// Result.Failures rather than aborting the run; the run only fails when
// nothing usable remains or the final write fails.
func (g *Generator) Run(ctx context.Context, req *model.Request) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: newRunID(), Output: req.Output, Failures: &Failures{}}
	defer func() {
		res.Elapsed = time.Since(start)
		g.setPhase(PhaseDone)
	}()

	if err := req.Validate(); err != nil {
		return res, err
	}

	g.processed.Store(0)
	g.target.Store(int32(req.Count))

	dir, err := os.MkdirTemp(g.settings.TempDir, "mashup_"+res.RunID+"_")
	if err != nil {
		return res, fmt.Errorf("create run directory: %w", err)
	}
	defer g.cleanup(dir)

	// Download
	g.setPhase(PhaseDownload)
	want := req.Count + max(g.settings.OverFetch, 0)
	g.progress(LevelInfo, "Downloading up to %d tracks for %q...", want, req.Artist)

	files, err := g.searcher.SearchAndDownload(ctx, req.Artist, want, dir)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if err != nil {
		res.Failures.Add("download", "", err)
		g.progress(LevelWarning, "Some downloads failed: %v", err)
	}
	g.progress(LevelVerbose, "Downloader returned %d files", len(files))

	// Process
	g.setPhase(PhaseProcess)
	candidates, err := ytsearch.ListAudio(dir, g.settings.AudioExtensions)
	if err != nil {
		return res, fmt.Errorf("list run directory: %w", err)
	}
	res.Candidates = len(candidates)
	if len(candidates) < req.Count {
		res.Shortfall = true
		g.progress(LevelWarning, "Only %d of %d tracks downloaded, continuing with what is available", len(candidates), req.Count)
	}

	segments, tracks := g.process(ctx, req, candidates, res.Failures)
	defer func() {
		if err := audio.CloseAll(segments...); err != nil {
			g.progress(LevelVerbose, "Releasing segments: %v", err)
		}
	}()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if len(segments) == 0 {
		return res, ErrNoSegments
	}
	res.Segments = tracklistEntries(req.Artist, segments, tracks)

	// Finalize
	g.setPhase(PhaseFinalize)
	g.progress(LevelInfo, "Merging %d segments...", len(segments))
	if err := g.finalize(ctx, req, segments); err != nil {
		return res, err
	}
	g.decorate(ctx, req, tracks, res)

	output := req.Output
	if abs, err := filepath.Abs(output); err == nil {
		output = abs
	}
	g.progress(LevelSuccess, "Mashup saved to %s", output)
	return res, nil
}

// process loads and trims candidates in order until req.Count segments succeeded.
func (g *Generator) process(ctx context.Context, req *model.Request, candidates []string, failures *Failures) ([]*audio.Segment, []*model.Track) {
	var segments []*audio.Segment
	var tracks []*model.Track

	for _, path := range candidates {
		if len(segments) >= req.Count || ctx.Err() != nil {
			break
		}
		name := filepath.Base(path)

		clip, err := g.editor.Load(ctx, path)
		if err == nil {
			var seg *audio.Segment
			seg, err = g.editor.Trim(ctx, clip, float64(req.Duration), g.settings.SegmentFade)
			if err == nil {
				segments = append(segments, seg)
				tracks = append(tracks, g.readTrack(path))
				g.processed.Add(1)
				g.progress(LevelVerbose, "Processed %s (%.1fs)", name, seg.Duration)
				continue
			}
		}

		if ctx.Err() != nil {
			break
		}
		failures.Add("process", name, err)
		g.progress(LevelWarning, "Skipping %s: %v", name, err)
	}

	return segments, tracks
}

// finalize joins segments and writes the output. The merged handle is
// released before returning; a partial output is removed on failure.
func (g *Generator) finalize(ctx context.Context, req *model.Request, segments []*audio.Segment) error {
	merged, err := g.editor.Concatenate(ctx, segments)
	if err != nil {
		return fmt.Errorf("concatenate: %w", err)
	}
	defer merged.Close()

	if dir := filepath.Dir(req.Output); dir != "." {
		if err := ioutils.EnsureDir(dir); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	opts := audio.WriteOptions{
		Fade:       g.settings.MashupFade,
		Bitrate:    g.settings.OutputBitrate,
		SampleRate: g.settings.SampleRate,
	}
	if err := g.editor.Write(ctx, merged, req.Output, opts); err != nil {
		ioutils.RemoveIfExists(req.Output)
		return fmt.Errorf("write %s: %w", req.Output, err)
	}
	return nil
}

// decorate tags the output and writes the tracklist. Failures here never
// fail the run.
func (g *Generator) decorate(ctx context.Context, req *model.Request, tracks []*model.Track, res *Result) {
	name := filepath.Base(req.Output)

	if g.tagger != nil && strings.EqualFold(filepath.Ext(req.Output), ".mp3") {
		var artwork []byte
		if g.settings.EmbedArtwork {
			artwork = g.coverArt(ctx, tracks, res.Failures)
		}

		info := audio.MashupInfo{Artist: req.Artist, Created: time.Now(), Sources: res.Segments}
		if err := g.tagger.SaveTags(req.Output, info, artwork); err != nil {
			res.Failures.Add("tags", name, err)
			g.progress(LevelWarning, "Error tagging %s: %v", name, err)
		}
	}

	if g.settings.CreateTracklist {
		path := g.tracklist.Path(req.Output)
		content := g.tracklist.Render(req.Output, req.Artist, res.Segments)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			res.Failures.Add("tracklist", filepath.Base(path), err)
			g.progress(LevelWarning, "Error creating tracklist: %v", err)
		} else {
			res.Tracklist = path
			g.progress(LevelVerbose, "Created tracklist %s", filepath.Base(path))
		}
	}
}

// coverArt returns JPEG cover art made from the first source thumbnail that downloads.
func (g *Generator) coverArt(ctx context.Context, tracks []*model.Track, failures *Failures) []byte {
	for _, track := range tracks {
		if !track.HasThumbnail() {
			continue
		}
		data, err := g.artwork.DownloadBytes(ctx, track.ThumbnailURL)
		if err == nil {
			data, err = g.imageService.CoverArt(ctx, data, g.settings.ArtworkMaxSize)
		}
		if err != nil {
			failures.Add("artwork", track.Title, err)
			g.progress(LevelVerbose, "No artwork from %s: %v", track.Title, err)
			continue
		}
		return data
	}
	return nil
}

func (g *Generator) cleanup(dir string) {
	g.setPhase(PhaseCleanup)
	if err := os.RemoveAll(dir); err != nil {
		g.progress(LevelVerbose, "Could not remove %s: %v", dir, err)
		return
	}
	g.progress(LevelVerbose, "Removed temporary files")
}

func (g *Generator) setPhase(p Phase) {
	g.phase.Store(int32(p))
}

func (g *Generator) progress(level ProgressLevel, format string, args ...any) {
	if g.onProgress != nil {
		g.onProgress(ProgressEvent{Message: fmt.Sprintf(format, args...), Level: level})
	}
}

func tracklistEntries(artist string, segments []*audio.Segment, tracks []*model.Track) []model.TracklistEntry {
	entries := make([]model.TracklistEntry, len(segments))
	var offset time.Duration
	for i, seg := range segments {
		track := tracks[i]
		length := time.Duration(seg.Duration * float64(time.Second))

		performer := track.Uploader
		if performer == "" {
			performer = artist
		}
		source := track.WebpageURL
		if source == "" {
			source = track.FileName()
		}

		entries[i] = model.TracklistEntry{
			Title:     track.Title,
			Performer: performer,
			Source:    source,
			Start:     offset,
			Length:    length,
		}
		offset += length
	}
	return entries
}

func newRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
