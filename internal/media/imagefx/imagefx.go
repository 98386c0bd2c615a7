// Package imagefx holds the pixel-level perturbations applied to still images.
package imagefx

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Rotate turns img counter-clockwise by degrees around its centre using
// Catmull-Rom (bicubic) resampling. The canvas keeps its size; uncovered
// corners are filled black.
func Rotate(img image.Image, degrees float64) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	theta := degrees * math.Pi / 180
	sin, cos := math.Sincos(theta)
	cx := float64(b.Min.X) + float64(b.Dx())/2
	cy := float64(b.Min.Y) + float64(b.Dy())/2
	dx := float64(b.Dx()) / 2
	dy := float64(b.Dy()) / 2

	// Maps source coordinates onto the destination canvas.
	s2d := f64.Aff3{
		cos, sin, dx - cos*cx - sin*cy,
		-sin, cos, dy + sin*cx - cos*cy,
	}
	xdraw.CatmullRom.Transform(dst, s2d, img, b, xdraw.Over, nil)
	return dst
}

// CropResize cuts rect out of img and scales it back to the original size
// with a Lanczos filter.
func CropResize(img image.Image, rect image.Rectangle) *image.NRGBA {
	b := img.Bounds()
	cropped := imaging.Crop(img, rect)
	return imaging.Resize(cropped, b.Dx(), b.Dy(), imaging.Lanczos)
}

// Brightness scales every channel by factor, blending toward black below 1.
func Brightness(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clamp(float64(c.R) * factor),
			G: clamp(float64(c.G) * factor),
			B: clamp(float64(c.B) * factor),
			A: c.A,
		}
	})
}

// Contrast moves every channel away from the mean grey level by factor.
func Contrast(img image.Image, factor float64) *image.NRGBA {
	mean := meanLuma(img)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clamp(mean + (float64(c.R)-mean)*factor),
			G: clamp(mean + (float64(c.G)-mean)*factor),
			B: clamp(mean + (float64(c.B)-mean)*factor),
			A: c.A,
		}
	})
}

// Saturation blends each pixel with its own grey value by factor.
func Saturation(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		l := luma(c)
		return color.NRGBA{
			R: clamp(l + (float64(c.R)-l)*factor),
			G: clamp(l + (float64(c.G)-l)*factor),
			B: clamp(l + (float64(c.B)-l)*factor),
			A: c.A,
		}
	})
}

// Noise adds zero-mean gaussian noise with the given standard deviation to
// every colour channel, clipping to the valid range.
func Noise(img image.Image, sigma float64, rng *rand.Rand) *image.NRGBA {
	dst := imaging.Clone(img)
	pix := dst.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		for ch := 0; ch < 3; ch++ {
			pix[i+ch] = clamp(float64(pix[i+ch]) + rng.NormFloat64()*sigma)
		}
	}
	return dst
}

func luma(c color.NRGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

func meanLuma(img image.Image) float64 {
	n := imaging.Clone(img)
	pix := n.Pix
	count := len(pix) / 4
	if count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+3 < len(pix); i += 4 {
		sum += math.Round(luma(color.NRGBA{R: pix[i], G: pix[i+1], B: pix[i+2]}))
	}
	return math.Floor(sum/float64(count) + 0.5)
}

func clamp(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
