package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // thumbnails are commonly served as WebP
)

// CoverQuality is the JPEG quality of generated cover art.
const CoverQuality = 90

// ImageService turns source thumbnails into mashup cover art.
//
// Video thumbnails are 16:9 (often letterboxed) while ID3 front covers are
// expected to be square, so the service center-crops before scaling. Output
// is always JPEG for ID3 compatibility.
//
// Example usage:
//
//	svc := NewImageService()
//	thumb, _ := client.DownloadBytes(ctx, track.ThumbnailURL)
//	cover, err := svc.CoverArt(ctx, thumb, 500)
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// CoverArt decodes a PNG, JPEG or WebP thumbnail, crops the centered square
// and scales it down to at most maxSize pixels per side.
//
// Images are never upscaled. A maxSize of 0 or less keeps the cropped size.
//
// Example:
//
//	cover, err := svc.CoverArt(ctx, thumb, 500)
//	// A 1280x720 thumbnail becomes 500x500, a 320x180 one 180x180
func (s *ImageService) CoverArt(ctx context.Context, data []byte, maxSize int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	src := CenterSquare(img.Bounds())
	side := src.Dx()
	if maxSize > 0 && side > maxSize {
		side = maxSize
	}

	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: CoverQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CenterSquare returns the largest square centered in r.
func CenterSquare(r image.Rectangle) image.Rectangle {
	w, h := r.Dx(), r.Dy()
	if w > h {
		off := (w - h) / 2
		return image.Rect(r.Min.X+off, r.Min.Y, r.Min.X+off+h, r.Max.Y)
	}
	off := (h - w) / 2
	return image.Rect(r.Min.X, r.Min.Y+off, r.Max.X, r.Min.Y+off+w)
}
