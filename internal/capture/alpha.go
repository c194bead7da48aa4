package capture

import "fmt"

const opaque = 0xff

// NormalizeAlpha forces every pixel of a 32-bit BGRA buffer to full opacity.
// Window buffers commonly carry an undefined alpha byte; left alone the
// encoded PNG would come out transparent.
func NormalizeAlpha(res *Result) error {
	if res == nil {
		return fmt.Errorf("normalize alpha: %w: missing result", ErrUnsupportedFormat)
	}
	if res.BitsPerPixel != 32 {
		return fmt.Errorf("normalize alpha: %w: %d bits per pixel", ErrUnsupportedFormat, res.BitsPerPixel)
	}
	if len(res.Pix)%4 != 0 {
		return fmt.Errorf("normalize alpha: %w: %d bytes is not a whole number of pixels", ErrUnsupportedFormat, len(res.Pix))
	}
	for i := 3; i < len(res.Pix); i += 4 {
		res.Pix[i] = opaque
	}
	return nil
}
