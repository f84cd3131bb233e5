package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Percentiles of the gray histogram mapped to black and white by Normalize.
const (
	normalizeLowPercentile  = 0.01
	normalizeHighPercentile = 0.99
)

// Grayscale converts img to a gray NRGBA image (R == G == B).
func Grayscale(img image.Image) *image.NRGBA {
	return imaging.Grayscale(img)
}

// Normalize stretches the intensity range of a grayscale image so that the
// 1st percentile becomes black and the 99th becomes white.
//
// The stretch is linear in CIE L* rather than in raw sRGB values, which keeps
// mid-tones (faded print on a laminated card) from collapsing into the
// background. Since the input is gray, the mapping depends on the level only
// and is applied through a 256-entry lookup table.
//
// Images with a flat histogram are returned unchanged.
func Normalize(gray *image.NRGBA) *image.NRGBA {
	var hist [256]int
	total := 0
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[(y-b.Min.Y)*gray.Stride:]
		for x := 0; x < b.Dx(); x++ {
			hist[row[x*4]]++
			total++
		}
	}
	if total == 0 {
		return gray
	}

	lo := percentileLevel(hist, total, normalizeLowPercentile)
	hi := percentileLevel(hist, total, normalizeHighPercentile)
	if hi <= lo {
		return gray
	}

	lLo := lightness(uint8(lo))
	lHi := lightness(uint8(hi))

	var lut [256]uint8
	for v := 0; v < 256; v++ {
		t := (lightness(uint8(v)) - lLo) / (lHi - lLo)
		t = math.Max(0, math.Min(1, t))
		r, _, _ := colorful.Lab(t, 0, 0).Clamped().RGB255()
		lut[v] = r
	}

	return imaging.AdjustFunc(gray, func(c color.NRGBA) color.NRGBA {
		v := lut[c.R]
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

// LinearContrast maps every channel value v to gain*v + offset, clamped.
func LinearContrast(img image.Image, gain, offset float64) *image.NRGBA {
	var lut [256]uint8
	for v := 0; v < 256; v++ {
		lut[v] = clamp8(gain*float64(v) + offset)
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

// Sharpen applies an unsharp mask with the given Gaussian sigma.
// A non-positive sigma returns a copy of img.
func Sharpen(img image.Image, sigma float64) *image.NRGBA {
	if sigma <= 0 {
		return imaging.Clone(img)
	}
	return imaging.Sharpen(img, sigma)
}

// Binarize sets pixels below level to black and all others to white.
func Binarize(img image.Image, level uint8) *image.Gray {
	return segment.Threshold(img, level)
}

// ResizeToWidth scales img to width pixels, preserving aspect ratio.
func ResizeToWidth(img image.Image, width int) *image.NRGBA {
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

// lightness returns CIE L* (0..1) of a neutral gray level.
func lightness(v uint8) float64 {
	f := float64(v) / 255
	l, _, _ := colorful.Color{R: f, G: f, B: f}.Lab()
	return l
}

func percentileLevel(hist [256]int, total int, p float64) int {
	target := int(math.Ceil(float64(total) * p))
	if target < 1 {
		target = 1
	}
	seen := 0
	for v, n := range hist {
		seen += n
		if seen >= target {
			return v
		}
	}
	return 255
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}
