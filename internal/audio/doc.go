// Package audio trims, joins and encodes mashup audio, and writes the
// metadata that travels with a finished mashup.
//
// # Editing
//
// FFmpeg implements the editing steps by running ffprobe and ffmpeg:
//
//	ed := audio.NewFFmpeg("ffmpeg", "ffprobe", task.NewRunner())
//	clip, err := ed.Load(ctx, path)           // probe length, rejects corrupt files
//	seg, err := ed.Trim(ctx, clip, 30, 0.5)   // [0, min(30, length)) with fades
//	merged, err := ed.Concatenate(ctx, segs)  // in order
//	err = ed.Write(ctx, merged, "Adele.mp3", audio.WriteOptions{Fade: 2})
//	audio.CloseAll(append(segs, merged)...)
//
// Every Segment is a scratch file and must be closed. Fades are clamped to
// half the clip so very short tracks keep an audible middle.
//
// # ID3 Tagging
//
// Use the Tagger to write ID3 tags to an mp3 mashup:
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	err := tagger.SaveTags("Adele.mp3", info, coverJPEG)
//
// # Tracklists
//
// Record where each source lands inside the mashup:
//
//	w := audio.NewTracklistWriter(audio.FormatCUE, false)
//	os.WriteFile(w.Path("Adele.mp3"), []byte(w.Render("Adele.mp3", "Adele", entries)), 0644)
//
// Supported formats:
//   - CUE (indexes into the mashup file)
//   - M3U (with optional extended info, listing the source pages)
package audio
