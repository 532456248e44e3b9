// Package model defines the core data types for the mashup generator.
//
// This package contains:
//   - Request: a validated generation request (artist, count, duration, output)
//   - Track: a downloaded candidate track and its metadata
//   - TracklistEntry: the position of one source track inside a finished mashup
//
// # Requests
//
// Requests are parsed from loosely typed input (CLI arguments, form fields)
// and validated before any side effect is attempted:
//
//	req, err := model.ParseRequest("Daft Punk", "12", "30", "mix")
//	if err != nil {
//	    // errors.Is(err, model.ErrNotInteger) or errors.Is(err, model.ErrInvalidRequest)
//	}
//	// req.Output == "mix.mp3"
//
// # Tracks
//
// Tracks are created by the downloader, one per audio file that landed in
// the run directory:
//
//	track := model.NewTrack("/tmp/mashup_ab12cd34_1/Song.webm")
//	// track.Title == "Song"
package model
