// Package imageprep turns a page photograph into upload-sized JPEG bytes.
package imageprep

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/bookscan/internal/common"
	"github.com/joseph-ayodele/bookscan/internal/llm"
)

const (
	startQuality = 90
	minQuality   = 55
	qualityStep  = 7
	scaleStep    = 0.85
	// Quality used once downscaling starts, capped by the last quality tried.
	downscaleQuality = 85

	// Bottom strip of the page searched for a printed page number, and its upscale.
	pageNumberStrip   = 0.18
	pageNumberUpscale = 2
)

type Options struct {
	MaxBytes    int
	MaxAttempts int
	MinSide     int
}

func (o Options) withDefaults() Options {
	if o.MaxBytes <= 0 {
		o.MaxBytes = 5 * 1024 * 1024
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 12
	}
	if o.MinSide <= 0 {
		o.MinSide = 400
	}
	return o
}

// Prepared is the transient upload form of one image. Nothing is written to disk.
type Prepared struct {
	Image    llm.Image
	Width    int
	Height   int
	Quality  int
	Attempts int

	src *image.RGBA // upright full-resolution pixels, kept for CropBottom
}

type Preprocessor struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{opts: opts.withDefaults(), logger: logger}
}

// Prepare decodes path (JPEG, PNG or WebP), applies EXIF orientation and encodes a
// JPEG at or under the size ceiling. It fails with *common.ImageTooLargeError when
// no encoding fits within the attempt budget.
func (p *Preprocessor) Prepare(ctx context.Context, path string) (Prepared, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Prepared{}, fmt.Errorf("read image: %w", err)
	}
	return p.PrepareBytes(ctx, path, data)
}

// PrepareBytes is Prepare for an already loaded file; name is used in errors and logs.
func (p *Preprocessor) PrepareBytes(ctx context.Context, name string, data []byte) (Prepared, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Prepared{}, fmt.Errorf("decode image: %w", err)
	}
	rgba := flatten(img)
	if format == "jpeg" {
		rgba = applyOrientation(rgba, exifOrientation(data))
	}

	out, err := p.fit(ctx, name, rgba)
	if err != nil {
		return Prepared{}, err
	}
	out.src = rgba

	p.logger.Debug("imageprep.ok",
		"path", name,
		"format", format,
		"bytes", len(out.Image.Data),
		"width", out.Width,
		"height", out.Height,
		"quality", out.Quality,
		"attempts", out.Attempts,
	)
	return out, nil
}

// CropBottom returns the bottom strip of the page, upscaled, sized like Prepare.
func (p *Preprocessor) CropBottom(ctx context.Context, prep Prepared) (Prepared, error) {
	if prep.src == nil {
		return Prepared{}, fmt.Errorf("crop bottom: no source pixels")
	}
	b := prep.src.Bounds()
	top := b.Min.Y + int(float64(b.Dy())*(1-pageNumberStrip))
	strip := prep.src.SubImage(image.Rect(b.Min.X, top, b.Max.X, b.Max.Y))
	sb := strip.Bounds()

	up := image.NewRGBA(image.Rect(0, 0, sb.Dx()*pageNumberUpscale, sb.Dy()*pageNumberUpscale))
	draw.CatmullRom.Scale(up, up.Bounds(), strip, sb, draw.Src, nil)

	return p.fit(ctx, "bottom-crop", up)
}

func (p *Preprocessor) fit(ctx context.Context, name string, img *image.RGBA) (Prepared, error) {
	quality := startQuality
	attempts := 1
	data, err := encode(img, quality)
	if err != nil {
		return Prepared{}, err
	}

	for len(data) > p.opts.MaxBytes && quality > minQuality && attempts < p.opts.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return Prepared{}, err
		}
		quality -= qualityStep
		attempts++
		if data, err = encode(img, quality); err != nil {
			return Prepared{}, err
		}
	}

	cur := image.Image(img)
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := 1.0
	for len(data) > p.opts.MaxBytes && attempts < p.opts.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return Prepared{}, err
		}
		next := scale * scaleStep
		nw, nh := int(float64(b.Dx())*next), int(float64(b.Dy())*next)
		if nw < p.opts.MinSide || nh < p.opts.MinSide {
			break
		}
		scale = next
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		cur, w, h = dst, nw, nh
		attempts++
		if data, err = encode(cur, min(downscaleQuality, quality)); err != nil {
			return Prepared{}, err
		}
	}

	if len(data) > p.opts.MaxBytes {
		p.logger.Warn("imageprep.too_large", "path", name, "bytes", len(data), "limit", p.opts.MaxBytes, "attempts", attempts)
		return Prepared{}, &common.ImageTooLargeError{
			Path:     name,
			Bytes:    len(data),
			Limit:    p.opts.MaxBytes,
			Attempts: attempts,
			Width:    w,
			Height:   h,
		}
	}
	if scale < 1 {
		quality = min(downscaleQuality, quality)
	}
	return Prepared{
		Image:    llm.Image{MIME: "image/jpeg", Data: data},
		Width:    w,
		Height:   h,
		Quality:  quality,
		Attempts: attempts,
	}, nil
}

func encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg q=%d: %w", quality, err)
	}
	return buf.Bytes(), nil
}

// flatten copies img onto an opaque white canvas; JPEG has no alpha channel.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
