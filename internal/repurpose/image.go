package repurpose

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"repurposer/internal/media/exif"
	"repurposer/internal/media/imagefx"
	"repurposer/internal/media/plan"
)

// RepurposeImage decodes in, applies a freshly drawn plan and writes a JPEG
// with an embedded EXIF block to out. The output keeps the source dimensions.
func (e *Engine) RepurposeImage(ctx context.Context, in, out string) (Output, error) {
	src, err := decodeImage(in)
	if err != nil {
		return Output{}, err
	}

	b := src.Bounds()
	p := e.planner.PlanImage(b.Dx(), b.Dy())
	img := applyImagePlan(src, p)

	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	data, err := e.encodeImage(img, p)
	if err != nil {
		return Output{}, fmt.Errorf("%w: %w", ErrProcessingFailed, err)
	}
	if int64(len(data)) < e.opts.MinOutputBytes {
		return Output{}, fmt.Errorf("%w: output %d bytes", ErrProcessingFailed, len(data))
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		removeQuietly(out)
		return Output{}, fmt.Errorf("%w: write output: %w", ErrProcessingFailed, err)
	}

	e.log.Debug().
		Str("filename", p.Filename).
		Strs("steps", p.Steps()).
		Int("bytes", len(data)).
		Msg("image repurposed")

	return Output{Path: out, Filename: p.Filename, Size: int64(len(data)), Steps: p.Steps()}, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedMedia, err)
	}
	return img, nil
}

// applyImagePlan runs the selected steps in their fixed order.
func applyImagePlan(img image.Image, p plan.ImagePlan) image.Image {
	if p.Rotate {
		img = imagefx.Rotate(img, p.Angle)
	}
	if p.Crop {
		img = imagefx.CropResize(img, p.CropRect.Add(img.Bounds().Min))
	}
	if p.Brighten {
		img = imagefx.Brightness(img, p.Brightness)
	}
	if p.Contrast {
		img = imagefx.Contrast(img, p.ContrastF)
	}
	if p.Colorize {
		img = imagefx.Saturation(img, p.Saturation)
	}
	if p.Noise {
		rng := rand.New(rand.NewPCG(p.NoiseSeed, p.NoiseSeed^0x9e3779b97f4a7c15))
		img = imagefx.Noise(img, p.NoiseSigma, rng)
	}
	return img
}

func (e *Engine) encodeImage(img image.Image, p plan.ImagePlan) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(e.opts.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	out, err := exif.Stamp(buf.Bytes(), p.Capture())
	if err != nil {
		return nil, fmt.Errorf("stamp exif: %w", err)
	}
	return out, nil
}
