package imaging

import (
	"encoding/binary"
	"image"

	"github.com/disintegration/imaging"
)

// Orientation is the value of the EXIF Orientation tag (0x0112).
// Values outside 1..8 are treated as OrientationNormal.
type Orientation int

// EXIF orientation values
const (
	OrientationUnspecified Orientation = 0
	OrientationNormal      Orientation = 1
	OrientationFlipH       Orientation = 2
	OrientationRotate180   Orientation = 3
	OrientationFlipV       Orientation = 4
	OrientationTranspose   Orientation = 5
	OrientationRotate270   Orientation = 6
	OrientationTransverse  Orientation = 7
	OrientationRotate90    Orientation = 8
)

const (
	jpegSOI          = 0xD8
	jpegSOS          = 0xDA
	jpegAPP1         = 0xE1
	exifTagOrient    = 0x0112
	exifShortType    = 3
	tiffHeaderLength = 8
)

// ReadOrientation returns the EXIF orientation embedded in JPEG data.
// Non-JPEG data, data without an EXIF segment, or a malformed segment all
// return OrientationUnspecified.
func ReadOrientation(data []byte) Orientation {
	if len(data) < 4 || data[0] != 0xFF || data[1] != jpegSOI {
		return OrientationUnspecified
	}

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return OrientationUnspecified
		}
		marker := data[pos+1]
		if marker == jpegSOS {
			return OrientationUnspecified
		}
		size := int(binary.BigEndian.Uint16(data[pos+2:]))
		if size < 2 || pos+2+size > len(data) {
			return OrientationUnspecified
		}
		segment := data[pos+4 : pos+2+size]
		if marker == jpegAPP1 && len(segment) > 6 && string(segment[:6]) == "Exif\x00\x00" {
			return parseTIFFOrientation(segment[6:])
		}
		pos += 2 + size
	}
	return OrientationUnspecified
}

func parseTIFFOrientation(tiff []byte) Orientation {
	if len(tiff) < tiffHeaderLength {
		return OrientationUnspecified
	}

	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return OrientationUnspecified
	}

	ifd := int(order.Uint32(tiff[4:8]))
	if ifd < tiffHeaderLength || ifd+2 > len(tiff) {
		return OrientationUnspecified
	}
	count := int(order.Uint16(tiff[ifd:]))
	for i := 0; i < count; i++ {
		entry := ifd + 2 + i*12
		if entry+12 > len(tiff) {
			break
		}
		if order.Uint16(tiff[entry:]) != exifTagOrient {
			continue
		}
		if order.Uint16(tiff[entry+2:]) != exifShortType {
			return OrientationUnspecified
		}
		o := Orientation(order.Uint16(tiff[entry+8:]))
		if o < OrientationNormal || o > OrientationRotate90 {
			return OrientationUnspecified
		}
		return o
	}
	return OrientationUnspecified
}

// ApplyOrientation transforms img so that it displays upright for the given
// orientation. Unspecified and normal orientations return img unchanged.
func ApplyOrientation(img image.Image, o Orientation) image.Image {
	switch o {
	case OrientationFlipH:
		return imaging.FlipH(img)
	case OrientationRotate180:
		return imaging.Rotate180(img)
	case OrientationFlipV:
		return imaging.FlipV(img)
	case OrientationTranspose:
		return imaging.Transpose(img)
	case OrientationRotate270:
		return imaging.Rotate270(img)
	case OrientationTransverse:
		return imaging.Transverse(img)
	case OrientationRotate90:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
