package ytsearch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSearchQuery(t *testing.T) {
	if got := SearchQuery("  Daft Punk ", 17); got != "ytsearch17:Daft Punk" {
		t.Errorf("SearchQuery = %q", got)
	}
}

func TestSearchAndDownload_LimitReachedIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	var gotQuery string
	var gotMax int

	d := NewDownloaderWithRunner(Options{Extensions: []string{".webm", ".m4a"}},
		func(ctx context.Context, query string, maxItems int, runDir string) (int, string, error) {
			gotQuery, gotMax = query, maxItems
			writeFiles(t, runDir, "b.webm", "a.m4a", "a.info.json", "c.webm.part")
			return ExitMaxDownloads, "", errors.New("exit status 101")
		})

	files, err := d.SearchAndDownload(context.Background(), "Adele", 16, dir)
	if err != nil {
		t.Fatalf("limit-reached exit should be swallowed, got %v", err)
	}
	if gotQuery != "Adele" || gotMax != 16 {
		t.Errorf("runner got query=%q max=%d", gotQuery, gotMax)
	}

	want := []string{filepath.Join(dir, "a.m4a"), filepath.Join(dir, "b.webm")}
	if len(files) != len(want) {
		t.Fatalf("got %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestSearchAndDownload_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	d := NewDownloaderWithRunner(Options{}, func(ctx context.Context, query string, maxItems int, runDir string) (int, string, error) {
		writeFiles(t, runDir, "one.webm")
		return 1, "ERROR: video unavailable", errors.New("exit status 1")
	})

	files, err := d.SearchAndDownload(context.Background(), "Adele", 16, dir)
	if err == nil {
		t.Fatal("expected a partial failure error")
	}
	if len(files) != 1 {
		t.Errorf("files should still be listed, got %v", files)
	}
}

func TestSearchAndDownload_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDownloaderWithRunner(Options{}, func(ctx context.Context, query string, maxItems int, runDir string) (int, string, error) {
		cancel()
		return -1, "", ctx.Err()
	})

	_, err := d.SearchAndDownload(ctx, "Adele", 16, t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSearchAndDownload_InvalidInput(t *testing.T) {
	d := NewDownloaderWithRunner(Options{}, func(ctx context.Context, query string, maxItems int, runDir string) (int, string, error) {
		t.Fatal("runner should not be called")
		return 0, "", nil
	})

	if _, err := d.SearchAndDownload(context.Background(), " ", 16, t.TempDir()); err == nil {
		t.Error("expected error for empty query")
	}
	if _, err := d.SearchAndDownload(context.Background(), "Adele", 0, t.TempDir()); err == nil {
		t.Error("expected error for zero max items")
	}
}

func TestReadTrack(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "Hello.webm")
	writeFiles(t, dir, "Hello.webm")
	info := `{
		"id": "YQHsXMglC9A",
		"title": "Adele - Hello",
		"channel": "AdeleVEVO",
		"duration": 367,
		"webpage_url": "https://www.youtube.com/watch?v=YQHsXMglC9A",
		"thumbnails": [
			{"url": "https://i.ytimg.com/small.jpg", "width": 120, "height": 90},
			{"url": "https://i.ytimg.com/large.jpg", "width": 1280, "height": 720}
		]
	}`
	if err := os.WriteFile(InfoPath(audio), []byte(info), 0644); err != nil {
		t.Fatal(err)
	}

	track := ReadTrack(audio)

	if track.Title != "Adele - Hello" {
		t.Errorf("Title = %q", track.Title)
	}
	if track.Uploader != "AdeleVEVO" {
		t.Errorf("Uploader = %q, want channel fallback", track.Uploader)
	}
	if track.Duration != 367 {
		t.Errorf("Duration = %v", track.Duration)
	}
	if track.ThumbnailURL != "https://i.ytimg.com/large.jpg" {
		t.Errorf("ThumbnailURL = %q, want largest", track.ThumbnailURL)
	}
}

func TestReadTrack_NoSidecar(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Plain Title.m4a", "Broken.webm", "Broken.info.json")
	if err := os.WriteFile(filepath.Join(dir, "Broken.info.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if got := ReadTrack(filepath.Join(dir, "Plain Title.m4a")).Title; got != "Plain Title" {
		t.Errorf("Title = %q, want file name", got)
	}
	if got := ReadTrack(filepath.Join(dir, "Broken.webm")).Title; got != "Broken" {
		t.Errorf("Title = %q, want file name", got)
	}
}
