// Package media turns uploaded bytes into the renditions that get stored:
// images are oriented, downsized and re-encoded, videos are checked and passed
// through.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

const (
	DefaultTargetWidth = 1600
	DefaultQuality     = 78

	// MaxPixels bounds the decoded size so a small, highly compressed file
	// cannot expand into gigabytes of pixels.
	MaxPixels = 60_000_000

	OutputContentType = "image/jpeg"
	OutputExtension   = ".jpg"
	VideoContentType  = "video/mp4"
	VideoExtension    = ".mp4"
)

var (
	ErrUnsupported = errors.New("unsupported media type")
	ErrDecode      = errors.New("image could not be decoded")
	ErrTooManyPx   = errors.New("image dimensions too large")
)

type Options struct {
	TargetWidth int
	Quality     int
}

func (o Options) withDefaults() Options {
	if o.TargetWidth <= 0 {
		o.TargetWidth = DefaultTargetWidth
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	return o
}

// Variant names the rendition produced for these options, e.g. "@1600w.jpg".
func (o Options) Variant() string {
	return fmt.Sprintf("@%dw%s", o.withDefaults().TargetWidth, OutputExtension)
}

type Result struct {
	Data        []byte
	Width       int
	Height      int
	ContentType string
	Extension   string
}

func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "image/")
}

func IsVideo(contentType string) bool {
	return strings.EqualFold(contentType, VideoContentType)
}

// Transcode decodes an image, rotates it upright from its EXIF orientation,
// narrows it to TargetWidth when wider (never upscaling) and encodes it as JPEG.
// Transparent areas are flattened onto white.
func Transcode(ctx context.Context, data []byte, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooManyPx, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if img.Bounds().Dx() > opts.TargetWidth {
		img = imaging.Resize(img, opts.TargetWidth, 0, imaging.Lanczos)
	}
	if !opaque(img) {
		bounds := img.Bounds()
		bg := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
		img = imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return &Result{
		Data:        buf.Bytes(),
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ContentType: OutputContentType,
		Extension:   OutputExtension,
	}, nil
}

func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return true
}

// CheckVideo confirms that bytes declared as mp4 actually look like mp4.
func CheckVideo(data []byte) (*Result, error) {
	if !mimetype.Detect(data).Is(VideoContentType) {
		return nil, fmt.Errorf("%w: content is not mp4", ErrUnsupported)
	}

	return &Result{
		Data:        data,
		ContentType: VideoContentType,
		Extension:   VideoExtension,
	}, nil
}
