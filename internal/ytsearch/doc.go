// Package ytsearch acquires candidate tracks through a keyword search on a
// video platform, using yt-dlp.
//
// # Downloader
//
// The Downloader runs a single "ytsearchN:<query>" download of audio-only
// streams into a run directory:
//
//	d := ytsearch.NewDownloader(ytsearch.Options{Format: "bestaudio/best"})
//	files, err := d.SearchAndDownload(ctx, "Daft Punk", 17, dir)
//	if err != nil {
//	    // non-fatal: some downloads failed, files still lists what arrived
//	}
//
// Acquisition is best-effort. yt-dlp's "maximum number of downloads reached"
// exit is expected and swallowed, individual failures are ignored, and the
// caller is responsible for checking whether enough files arrived.
//
// # Track Metadata
//
// Each download leaves an info sidecar next to the audio file. ReadTrack
// turns an audio path into a model.Track, filling title, uploader and
// thumbnail from the sidecar when present:
//
//	track := ytsearch.ReadTrack(files[0])
//	fmt.Println(track.Title, track.ThumbnailURL)
package ytsearch
