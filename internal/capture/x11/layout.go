package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/xpic/internal/capture"
)

// imageLayout is how the server lays out a ZPixmap image of a given depth
// and width.
type imageLayout struct {
	BitsPerPixel int
	Stride       int
}

// Size is the number of bytes needed to hold height scanlines.
func (l imageLayout) Size(height int) int {
	return l.Stride * height
}

// layoutFor derives bits per pixel and scanline stride from the pixmap
// format the server advertises for depth.
func layoutFor(formats []xproto.Format, depth, width int) (imageLayout, error) {
	if width <= 0 {
		return imageLayout{}, fmt.Errorf("%w: width %d", capture.ErrUnsupportedFormat, width)
	}
	for _, format := range formats {
		if int(format.Depth) != depth {
			continue
		}
		bpp := int(format.BitsPerPixel)
		pad := int(format.ScanlinePad)
		if bpp == 0 {
			break
		}
		if pad == 0 {
			pad = 8
		}
		bits := width * bpp
		bits = (bits + pad - 1) / pad * pad
		return imageLayout{BitsPerPixel: bpp, Stride: bits / 8}, nil
	}
	return imageLayout{}, fmt.Errorf("%w: no pixmap format for depth %d", capture.ErrUnsupportedFormat, depth)
}
