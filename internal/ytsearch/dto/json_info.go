package dto

import (
	"github.com/handiism/mashup/internal/model"
)

// JSONInfo is the subset of yt-dlp's info JSON used by the mashup.
type JSONInfo struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Uploader   string          `json:"uploader"`
	Channel    string          `json:"channel"`
	Duration   float64         `json:"duration"`
	WebpageURL string          `json:"webpage_url"`
	Thumbnail  string          `json:"thumbnail"`
	Thumbnails []JSONThumbnail `json:"thumbnails"`
}

// JSONThumbnail is one entry of the thumbnails list.
type JSONThumbnail struct {
	URL        string `json:"url"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Preference int    `json:"preference"`
}

// ToTrack converts JSONInfo to a model.Track for the audio file at path.
func (ji *JSONInfo) ToTrack(path string) *model.Track {
	track := model.NewTrack(path)

	if ji.Title != "" {
		track.Title = ji.Title
	}
	track.Uploader = ji.Uploader
	if track.Uploader == "" {
		track.Uploader = ji.Channel
	}
	track.Duration = ji.Duration
	track.WebpageURL = ji.WebpageURL
	track.ThumbnailURL = ji.bestThumbnail()

	return track
}

// bestThumbnail prefers the top-level thumbnail, then the largest listed one.
func (ji *JSONInfo) bestThumbnail() string {
	if ji.Thumbnail != "" {
		return ji.Thumbnail
	}

	best := ""
	bestArea := -1
	for _, t := range ji.Thumbnails {
		if t.URL == "" {
			continue
		}
		if area := t.Width * t.Height; area > bestArea {
			best = t.URL
			bestArea = area
		}
	}
	return best
}
