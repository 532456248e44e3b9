package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Settings holds all configuration options.
type Settings struct {
	// Acquisition
	OverFetch       int      `json:"over_fetch" toml:"over_fetch"`
	SearchFormat    string   `json:"search_format" toml:"search_format"`
	YtDlpPath       string   `json:"ytdlp_path" toml:"ytdlp_path"`
	AudioExtensions []string `json:"audio_extensions" toml:"audio_extensions"`
	TempDir         string   `json:"temp_dir" toml:"temp_dir"`

	// Processing
	FFmpegPath    string  `json:"ffmpeg_path" toml:"ffmpeg_path"`
	FFprobePath   string  `json:"ffprobe_path" toml:"ffprobe_path"`
	SegmentFade   float64 `json:"segment_fade" toml:"segment_fade"`
	MashupFade    float64 `json:"mashup_fade" toml:"mashup_fade"`
	OutputBitrate string  `json:"output_bitrate" toml:"output_bitrate"`
	SampleRate    int     `json:"sample_rate" toml:"sample_rate"`

	// Tagging and tracklist
	ModifyTags       bool   `json:"modify_tags" toml:"modify_tags"`
	EmbedArtwork     bool   `json:"embed_artwork" toml:"embed_artwork"`
	ArtworkMaxSize   int    `json:"artwork_max_size" toml:"artwork_max_size"` // 0 keeps the thumbnail size
	CreateTracklist  bool   `json:"create_tracklist" toml:"create_tracklist"`
	TracklistFormat  string `json:"tracklist_format" toml:"tracklist_format"` // cue, m3u
	TracklistExtInfo bool   `json:"tracklist_extinfo" toml:"tracklist_extinfo"`

	// Request service
	ListenAddr        string   `json:"listen_addr" toml:"listen_addr"`
	GeneratorCommand  []string `json:"generator_command" toml:"generator_command"`
	WorkDir           string   `json:"work_dir" toml:"work_dir"`
	JobTimeout        Duration `json:"job_timeout" toml:"job_timeout"`
	MaxConcurrentJobs int      `json:"max_concurrent_jobs" toml:"max_concurrent_jobs"`
	HistoryTTL        Duration `json:"history_ttl" toml:"history_ttl"`

	// Email
	SMTPHost     string `json:"smtp_host" toml:"smtp_host"`
	SMTPPort     int    `json:"smtp_port" toml:"smtp_port"`
	SMTPUsername string `json:"-" toml:"-"`
	SMTPPassword string `json:"-" toml:"-"`
	MailFrom     string `json:"mail_from" toml:"mail_from"`
	MailSubject  string `json:"mail_subject" toml:"mail_subject"`
}

// Duration is a time.Duration that reads and writes as a Go duration string ("15m").
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		OverFetch:       5,
		SearchFormat:    "bestaudio/best",
		YtDlpPath:       "yt-dlp",
		AudioExtensions: []string{".webm", ".m4a", ".mp3", ".mp4"},
		TempDir:         "",

		FFmpegPath:    "ffmpeg",
		FFprobePath:   "ffprobe",
		SegmentFade:   0.5,
		MashupFade:    2.0,
		OutputBitrate: "192k",
		SampleRate:    44100,

		ModifyTags:       true,
		EmbedArtwork:     true,
		ArtworkMaxSize:   500,
		CreateTracklist:  false,
		TracklistFormat:  "cue",
		TracklistExtInfo: true,

		ListenAddr:        ":5000",
		GeneratorCommand:  []string{"mashup"},
		WorkDir:           ".",
		JobTimeout:        Duration{15 * time.Minute},
		MaxConcurrentJobs: 1,
		HistoryTTL:        Duration{60 * time.Minute},

		SMTPHost:    "smtp.gmail.com",
		SMTPPort:    465,
		MailSubject: "Your Custom Mashup is Ready!",
	}
}

// Load reads settings from a JSON or TOML file.
//
// A missing file is not an error; defaults are returned instead.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), settings); err != nil {
			return nil, err
		}
		return settings, nil
	}

	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON or TOML file, chosen by extension.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if isTOML(path) {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return toml.NewEncoder(f).Encode(s)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides settings with environment variables.
func (s *Settings) ApplyEnv() {
	if v := os.Getenv("EMAIL_USER"); v != "" {
		s.SMTPUsername = v
		if s.MailFrom == "" {
			s.MailFrom = v
		}
	}
	if v := os.Getenv("EMAIL_PASS"); v != "" {
		s.SMTPPassword = v
	}
	if v := os.Getenv("MASHUP_SMTP_HOST"); v != "" {
		s.SMTPHost = v
	}
	if v := os.Getenv("MASHUP_SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.SMTPPort = n
		}
	}
	if v := os.Getenv("MASHUP_MAIL_FROM"); v != "" {
		s.MailFrom = v
	}

	if v := os.Getenv("MASHUP_LISTEN_ADDR"); v != "" {
		s.ListenAddr = v
	}
	if v := os.Getenv("MASHUP_GENERATOR"); v != "" {
		s.GeneratorCommand = strings.Fields(v)
	}
	if v := os.Getenv("MASHUP_WORK_DIR"); v != "" {
		s.WorkDir = v
	}
	if v := os.Getenv("MASHUP_JOB_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			s.JobTimeout = Duration{d}
		}
	}
	if v := os.Getenv("MASHUP_MAX_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MaxConcurrentJobs = n
		}
	}

	if v := os.Getenv("MASHUP_OVER_FETCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.OverFetch = n
		}
	}
	if v := os.Getenv("MASHUP_TEMP_DIR"); v != "" {
		s.TempDir = v
	}
	if v := os.Getenv("MASHUP_FFMPEG"); v != "" {
		s.FFmpegPath = v
	}
	if v := os.Getenv("MASHUP_FFPROBE"); v != "" {
		s.FFprobePath = v
	}
	if v := os.Getenv("MASHUP_YTDLP"); v != "" {
		s.YtDlpPath = v
	}
}

// DetectLocalFFmpeg prefers ffmpeg/ffprobe binaries sitting in dir over the
// ones found on PATH. Only paths still at their defaults are replaced.
func (s *Settings) DetectLocalFFmpeg(dir string) {
	d := DefaultSettings()
	for _, name := range []string{"ffmpeg", "ffmpeg.exe"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil && s.FFmpegPath == d.FFmpegPath {
			s.FFmpegPath = p
			break
		}
	}
	for _, name := range []string{"ffprobe", "ffprobe.exe"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil && s.FFprobePath == d.FFprobePath {
			s.FFprobePath = p
			break
		}
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
