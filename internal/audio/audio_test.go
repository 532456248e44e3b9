package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bogem/id3v2"

	"github.com/handiism/mashup/internal/model"
	"github.com/handiism/mashup/internal/task"
)

// fakeExec records commands. The last argument of an ffmpeg call is
// created as the output file unless fail is set.
type fakeExec struct {
	calls  []task.Command
	stdout string
	fail   bool
}

func (f *fakeExec) Run(ctx context.Context, cmd task.Command) (*task.Result, error) {
	f.calls = append(f.calls, cmd)
	res := &task.Result{Stdout: f.stdout}
	if filepath.Base(cmd.Path) == "ffmpeg" && len(cmd.Args) > 0 {
		os.WriteFile(cmd.Args[len(cmd.Args)-1], []byte("RIFF"), 0644)
	}
	if f.fail {
		res.ExitCode = 1
		res.Stderr = "Invalid data found when processing input"
		return res, &task.ExitError{Command: cmd.String(), Result: res}
	}
	return res, nil
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestFadeFilter(t *testing.T) {
	tests := []struct {
		length, fade float64
		want         string
	}{
		{30, 0.5, "afade=t=in:st=0:d=0.500,afade=t=out:st=29.500:d=0.500"},
		{330, 2, "afade=t=in:st=0:d=2.000,afade=t=out:st=328.000:d=2.000"},
		{0.6, 0.5, "afade=t=in:st=0:d=0.300,afade=t=out:st=0.300:d=0.300"},
		{30, 0, ""},
		{0, 0.5, ""},
	}
	for _, tt := range tests {
		if got := FadeFilter(tt.length, tt.fade); got != tt.want {
			t.Errorf("FadeFilter(%v, %v) = %q, want %q", tt.length, tt.fade, got, tt.want)
		}
	}
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		path  string
		codec string
		lossy bool
	}{
		{"a.mp3", "libmp3lame", true},
		{"a.MP3", "libmp3lame", true},
		{"a.m4a", "aac", true},
		{"a.ogg", "libvorbis", true},
		{"a.wav", "pcm_s16le", false},
		{"a.flac", "flac", false},
		{"a.xyz", "", false},
	}
	for _, tt := range tests {
		codec, lossy := CodecFor(tt.path)
		if codec != tt.codec || lossy != tt.lossy {
			t.Errorf("CodecFor(%q) = %q, %v", tt.path, codec, lossy)
		}
	}
}

func TestParseDuration(t *testing.T) {
	if d, err := ParseDuration("367.523000\n"); err != nil || d != 367.523 {
		t.Errorf("got %v, %v", d, err)
	}
	for _, bad := range []string{"", "N/A\n", "abc", "0.000"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Errorf("ParseDuration(%q) should fail", bad)
		}
	}
}

func TestConcatList(t *testing.T) {
	got := ConcatList([]*Segment{{Path: "/tmp/a.wav"}, {Path: "/tmp/it's.wav"}})
	want := "file '/tmp/a.wav'\nfile '/tmp/it'\\''s.wav'\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFFmpeg_Load(t *testing.T) {
	ex := &fakeExec{stdout: "245.1\n"}
	ed := NewFFmpeg("", "", ex)

	clip, err := ed.Load(context.Background(), "/tmp/run/Hello.webm")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if clip.Duration != 245.1 {
		t.Errorf("Duration = %v", clip.Duration)
	}
	if ex.calls[0].Path != "ffprobe" {
		t.Errorf("probe ran %q", ex.calls[0].Path)
	}

	ex.fail = true
	if _, err := ed.Load(context.Background(), "/tmp/run/corrupt.webm"); err == nil {
		t.Error("corrupt file should fail to load")
	}
}

func TestFFmpeg_TrimShortTrack(t *testing.T) {
	dir := t.TempDir()
	ex := &fakeExec{}
	ed := NewFFmpeg("", "", ex)

	seg, err := ed.Trim(context.Background(), &Clip{Path: filepath.Join(dir, "short.m4a"), Duration: 12}, 30, 0.5)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	defer seg.Close()

	if seg.Duration != 12 {
		t.Errorf("Duration = %v, short tracks are used whole", seg.Duration)
	}
	args := ex.calls[0].Args
	if got := argValue(args, "-t"); got != "12.000" {
		t.Errorf("-t = %q", got)
	}
	if got := argValue(args, "-af"); got != FadeFilter(12, 0.5) {
		t.Errorf("-af = %q", got)
	}
	if filepath.Dir(seg.Path) != dir {
		t.Errorf("segment %q should live next to its source", seg.Path)
	}
}

func TestFFmpeg_TrimLongTrack(t *testing.T) {
	ex := &fakeExec{}
	ed := NewFFmpeg("", "", ex)

	seg, err := ed.Trim(context.Background(), &Clip{Path: filepath.Join(t.TempDir(), "long.webm"), Duration: 300}, 30, 0.5)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	defer seg.Close()

	if seg.Duration != 30 {
		t.Errorf("Duration = %v", seg.Duration)
	}
}

func TestFFmpeg_Concatenate(t *testing.T) {
	dir := t.TempDir()
	ex := &fakeExec{}
	ed := NewFFmpeg("", "", ex)

	if _, err := ed.Concatenate(context.Background(), nil); !errors.Is(err, ErrNoInput) {
		t.Errorf("err = %v, want ErrNoInput", err)
	}

	segs := []*Segment{
		{Path: filepath.Join(dir, "a.wav"), Duration: 30},
		{Path: filepath.Join(dir, "b.wav"), Duration: 12},
	}
	merged, err := ed.Concatenate(context.Background(), segs)
	if err != nil {
		t.Fatalf("Concatenate: %v", err)
	}
	defer merged.Close()

	if merged.Duration != 42 {
		t.Errorf("Duration = %v", merged.Duration)
	}
	list := argValue(ex.calls[0].Args, "-i")
	if _, err := os.Stat(list); !os.IsNotExist(err) {
		t.Error("concat list file should be removed")
	}
}

func TestFFmpeg_WriteFailureRemovesPartialOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "mix.mp3")
	ex := &fakeExec{fail: true}
	ed := NewFFmpeg("", "", ex)

	err := ed.Write(context.Background(), &Segment{Path: "/tmp/merged.wav", Duration: 60}, out, WriteOptions{Fade: 2, Bitrate: "192k"})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("partial output should be removed")
	}
	if !strings.Contains(err.Error(), "Invalid data") {
		t.Errorf("error should carry ffmpeg diagnostics: %v", err)
	}
}

func TestFFmpeg_WriteArgs(t *testing.T) {
	out := filepath.Join(t.TempDir(), "mix.mp3")
	ex := &fakeExec{}
	ed := NewFFmpeg("/opt/ffmpeg", "", ex)

	if err := ed.Write(context.Background(), &Segment{Path: "/tmp/merged.wav", Duration: 60}, out, WriteOptions{Fade: 2, Bitrate: "192k", SampleRate: 44100}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	args := ex.calls[0].Args
	if ex.calls[0].Path != "/opt/ffmpeg" {
		t.Errorf("Path = %q", ex.calls[0].Path)
	}
	if got := argValue(args, "-c:a"); got != "libmp3lame" {
		t.Errorf("-c:a = %q", got)
	}
	if got := argValue(args, "-b:a"); got != "192k" {
		t.Errorf("-b:a = %q", got)
	}
	if got := argValue(args, "-af"); got != FadeFilter(60, 2) {
		t.Errorf("-af = %q", got)
	}
	if args[len(args)-1] != out {
		t.Errorf("output = %q", args[len(args)-1])
	}
}

func TestSegmentClose(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	os.WriteFile(a, []byte("x"), 0644)
	os.WriteFile(b, []byte("x"), 0644)

	segA, segB := &Segment{Path: a}, &Segment{Path: b}
	if err := CloseAll(segA, segB, nil); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if err := segA.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	for _, p := range []string{a, b} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should be removed", p)
		}
	}
}

func testEntries() []model.TracklistEntry {
	return []model.TracklistEntry{
		{Title: "Hello", Performer: "AdeleVEVO", Source: "https://www.youtube.com/watch?v=YQHsXMglC9A", Start: 0, Length: 30 * time.Second},
		{Title: `Skyfall "Live"`, Source: "Skyfall.webm", Start: 30 * time.Second, Length: 12500 * time.Millisecond},
	}
}

func TestTracklist_CUE(t *testing.T) {
	w := NewTracklistWriter(FormatCUE, false)
	content := w.Render("/out/Adele.mp3", "Adele", testEntries())

	for _, want := range []string{
		`PERFORMER "Adele"`,
		`TITLE "Adele Mashup"`,
		`FILE "Adele.mp3" MP3`,
		"  TRACK 02 AUDIO",
		`    TITLE "Skyfall 'Live'"`,
		`    PERFORMER "Adele"`,
		"    INDEX 01 00:30:00",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("CUE missing %q:\n%s", want, content)
		}
	}
	if got := w.Path("/out/Adele.mp3"); got != "/out/Adele.cue" {
		t.Errorf("Path = %q", got)
	}
}

func TestTracklist_M3UExtended(t *testing.T) {
	w := NewTracklistWriter(ParseTracklistFormat("M3U"), true)
	content := w.Render("Adele.mp3", "Adele", testEntries())

	if !strings.HasPrefix(content, "#EXTM3U\n") {
		t.Error("extended M3U should start with #EXTM3U")
	}
	if !strings.Contains(content, "#EXTINF:30,AdeleVEVO - Hello\nhttps://www.youtube.com/watch?v=YQHsXMglC9A\n") {
		t.Errorf("unexpected M3U:\n%s", content)
	}
	if !strings.Contains(content, "#EXTINF:13,Adele - Skyfall") {
		t.Errorf("length should round and performer fall back to artist:\n%s", content)
	}
}

func TestCueTime(t *testing.T) {
	tests := map[time.Duration]string{
		0:                       "00:00:00",
		1500 * time.Millisecond: "00:01:37",
		61 * time.Second:        "01:01:00",
		90 * time.Minute:        "90:00:00",
	}
	for d, want := range tests {
		if got := CueTime(d); got != want {
			t.Errorf("CueTime(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestTagger_SaveTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Adele.mp3")
	frame := append([]byte{0xFF, 0xFB, 0x90, 0x64}, make([]byte, 412)...)
	if err := os.WriteFile(path, frame, 0644); err != nil {
		t.Fatal(err)
	}

	info := MashupInfo{
		Artist:  "Adele",
		Created: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Sources: testEntries(),
	}
	cover := []byte{0xFF, 0xD8, 0xFF, 0xE0}

	if err := NewTagger(nil).SaveTags(path, info, cover); err != nil {
		t.Fatalf("SaveTags: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatal(err)
	}
	defer tag.Close()

	if tag.Artist() != "Adele" {
		t.Errorf("Artist = %q", tag.Artist())
	}
	if tag.Title() != "Adele Mashup" {
		t.Errorf("Title = %q", tag.Title())
	}
	if tag.Year() != "2024" {
		t.Errorf("Year = %q", tag.Year())
	}

	comments := tag.GetFrames(tag.CommonID("Comments"))
	if len(comments) != 1 {
		t.Fatalf("got %d comment frames", len(comments))
	}
	if cf, ok := comments[0].(id3v2.CommentFrame); !ok || !strings.Contains(cf.Text, "0:30 Skyfall") {
		t.Errorf("comment = %#v", comments[0])
	}

	if pics := tag.GetFrames(tag.CommonID("Attached picture")); len(pics) != 1 {
		t.Errorf("got %d pictures", len(pics))
	}
}

func TestSourceList(t *testing.T) {
	got := SourceList([]model.TracklistEntry{
		{Title: "A", Start: 0},
		{Title: "B", Start: 3723 * time.Second},
	})
	if got != "0:00 A\n1:02:03 B" {
		t.Errorf("got %q", got)
	}
}
