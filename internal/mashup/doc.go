// Package mashup orchestrates a mashup run: acquire candidate tracks, trim
// each one, join them and write the result.
//
// # Generator
//
// The Generator drives a linear run:
//
//  1. Validate the request
//  2. Download count plus an over-fetch margin of candidates into a fresh
//     run directory
//  3. Trim candidates in file name order until count segments succeeded
//  4. Join the segments, fade the whole mix, write the output
//  5. Tag the output and write a tracklist (optional)
//  6. Remove the run directory, always
//
// # Basic Usage
//
//	gen := mashup.NewGenerator(settings, func(event mashup.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	req, err := model.ParseRequest("Adele", "12", "30", "adele")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := gen.Run(ctx, req)
//	fmt.Println(res.Elapsed)
//
// # Failures
//
// Download errors and unreadable tracks do not stop a run. They are
// collected in Result.Failures and reported as warnings. A run fails only
// when no segment could be produced (ErrNoSegments), when joining or
// writing fails, or when ctx is cancelled.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	LevelInfo    - General information
//	LevelVerbose - Detailed progress (per-track)
//	LevelWarning - Non-fatal issues (shortfall, skipped tracks)
//	LevelError   - Fatal errors
//	LevelSuccess - Successful completion
//
// Pollers such as a terminal UI can call Progress for segment counts and
// the current phase.
package mashup
