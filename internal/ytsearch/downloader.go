package ytsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/handiism/mashup/internal/model"
	"github.com/handiism/mashup/internal/ytsearch/dto"
)

// ExitMaxDownloads is yt-dlp's exit status when --max-downloads is reached.
const ExitMaxDownloads = 101

// InfoSuffix is the extension of yt-dlp's info sidecar files.
const InfoSuffix = ".info.json"

// Options configures a Downloader.
type Options struct {
	// Format is the yt-dlp format selector.
	Format string

	// Executable is the yt-dlp binary. Empty uses the one on PATH.
	Executable string

	// Extensions limits the returned files. Empty returns every non-sidecar file.
	Extensions []string
}

// RunFunc executes one search download into dir and reports yt-dlp's exit status.
type RunFunc func(ctx context.Context, query string, maxItems int, dir string) (exitCode int, stderr string, err error)

// Downloader fetches audio-only streams for a search query.
//
// Downloader provides:
//   - A single best-effort "ytsearchN:" download per call
//   - Tolerance of yt-dlp's download-limit exit
//   - Listing of the audio files that actually arrived
//
// Example usage:
//
//	d := NewDownloader(Options{Format: "bestaudio/best"})
//	files, err := d.SearchAndDownload(ctx, "Adele", 16, "/tmp/mashup_x")
type Downloader struct {
	opts Options
	run  RunFunc
}

// NewDownloader creates a Downloader backed by yt-dlp.
func NewDownloader(opts Options) *Downloader {
	if opts.Format == "" {
		opts.Format = "bestaudio/best"
	}
	d := &Downloader{opts: opts}
	d.run = d.runYtDlp
	return d
}

// NewDownloaderWithRunner creates a Downloader that delegates the download to run.
func NewDownloaderWithRunner(opts Options, run RunFunc) *Downloader {
	d := NewDownloader(opts)
	d.run = run
	return d
}

// SearchQuery builds the yt-dlp search URL for query limited to maxItems results.
func SearchQuery(query string, maxItems int) string {
	return fmt.Sprintf("ytsearch%d:%s", maxItems, strings.TrimSpace(query))
}

// SearchAndDownload searches for query and downloads up to maxItems audio
// streams into dir, one file per result named from its title.
//
// The returned slice lists the audio files present in dir afterwards, sorted
// by name. It may hold fewer than maxItems entries. A non-nil error with a
// non-empty slice describes a partial failure; callers decide whether it is
// fatal. Context cancellation is always returned as the error.
func (d *Downloader) SearchAndDownload(ctx context.Context, query string, maxItems int, dir string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if maxItems <= 0 {
		return nil, fmt.Errorf("max items must be positive, got %d", maxItems)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	exitCode, stderr, runErr := d.run(ctx, query, maxItems, dir)

	files, listErr := ListAudio(dir, d.opts.Extensions)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return files, ctxErr
	}
	if listErr != nil {
		return files, listErr
	}

	switch {
	case exitCode == ExitMaxDownloads:
		// limit reached: the expected way for a full search to end
		return files, nil
	case runErr != nil:
		return files, fmt.Errorf("yt-dlp: %w%s", runErr, formatStderr(stderr))
	case exitCode != 0:
		return files, fmt.Errorf("yt-dlp exited with status %d%s", exitCode, formatStderr(stderr))
	}

	return files, nil
}

func (d *Downloader) runYtDlp(ctx context.Context, query string, maxItems int, dir string) (int, string, error) {
	cmd := ytdlp.New().
		Format(d.opts.Format).
		NoPlaylist().
		MaxDownloads(maxItems).
		Output(filepath.Join(dir, "%(title)s.%(ext)s")).
		IgnoreErrors().
		WriteInfoJSON().
		Quiet().
		NoWarnings()
	if d.opts.Executable != "" {
		cmd.SetExecutable(d.opts.Executable)
	}

	res, err := cmd.Run(ctx, SearchQuery(query, maxItems))
	if res == nil {
		return -1, "", err
	}
	if res.ExitCode == ExitMaxDownloads {
		return res.ExitCode, res.Stderr, nil
	}
	return res.ExitCode, res.Stderr, err
}

// ListAudio returns the files in dir, sorted by name, skipping info sidecars,
// partial downloads and directories. If extensions is non-empty only files
// with a matching extension (case-insensitive) are returned.
func ListAudio(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, InfoSuffix) || strings.HasSuffix(lower, ".part") || strings.HasSuffix(lower, ".ytdl") {
			continue
		}
		if len(extensions) > 0 && !hasExtension(lower, extensions) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}

	sort.Strings(files)
	return files, nil
}

// ReadTrack builds a model.Track for the audio file at path, reading the
// info sidecar when one exists. A missing or malformed sidecar is not an
// error; the title then falls back to the file name.
func ReadTrack(path string) *model.Track {
	data, err := os.ReadFile(InfoPath(path))
	if err != nil {
		return model.NewTrack(path)
	}

	var info dto.JSONInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return model.NewTrack(path)
	}
	return info.ToTrack(path)
}

// InfoPath returns the sidecar path yt-dlp writes for the audio file at path.
func InfoPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + InfoSuffix
}

func hasExtension(name string, extensions []string) bool {
	ext := filepath.Ext(name)
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func formatStderr(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return ""
	}
	if len(stderr) > 500 {
		stderr = stderr[len(stderr)-500:]
	}
	return ": " + stderr
}
