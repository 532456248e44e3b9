// Package ioutils provides file system utilities for the mashup tools.
//
// This package contains functions for:
//   - Filename sanitization
//   - Directory creation and best-effort removal
//   - Zip archiving of generated files
//   - Square cover art from video thumbnails
//
// All functions that accept a context.Context respect cancellation,
// though file operations themselves may not be interruptible.
package ioutils
