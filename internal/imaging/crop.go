package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// MarginRect computes the rectangle left after removing fractional margins
// from a width x height frame. marginX applies to the left and right edges,
// marginY to the top and bottom.
func MarginRect(width, height int, marginX, marginY float64) image.Rectangle {
	left := int(math.Round(float64(width) * marginX))
	top := int(math.Round(float64(height) * marginY))
	return image.Rect(left, top, width-left, height-top)
}

// CropMargins strips card borders from img.
//
// The margins are computed from dims rather than from img, because dims is
// what the header reported (or the assumed default). The rectangle is then
// clipped to the decoded bounds.
func CropMargins(img image.Image, dims Dimensions, marginX, marginY float64) (*image.NRGBA, error) {
	bounds := img.Bounds()
	rect := MarginRect(dims.Width, dims.Height, marginX, marginY).
		Add(bounds.Min).
		Intersect(bounds)

	if rect.Empty() {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", rect, bounds)
	}

	return imaging.Crop(img, rect), nil
}
