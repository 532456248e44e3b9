// Package http provides a small HTTP client for fetching thumbnails used as
// mashup cover art.
//
// Downloads are held in memory, so every response is size-limited
// (MaxDownloadSize unless WithMaxSize is given). Non-200 responses are
// reported as *StatusError.
//
// # Basic Usage
//
//	client := http.NewClient()
//	thumb, err := client.DownloadBytes(ctx, track.ThumbnailURL)
package http
