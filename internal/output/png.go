package output

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/bryanchriswhite/xpic/internal/capture"
	"github.com/bryanchriswhite/xpic/internal/logger"
)

// StdoutPath makes the encoder write to standard output instead of a file.
const StdoutPath = "-"

// PNGEncoder writes capture results as PNG files. It implements
// capture.Encoder.
type PNGEncoder struct {
	enc    png.Encoder
	stdout io.Writer
}

var _ capture.Encoder = (*PNGEncoder)(nil)

// NewPNGEncoder returns an encoder using the given compression level.
func NewPNGEncoder(level png.CompressionLevel) *PNGEncoder {
	return &PNGEncoder{
		enc:    png.Encoder{CompressionLevel: level},
		stdout: os.Stdout,
	}
}

// ParseCompression maps a config value to a PNG compression level.
func ParseCompression(name string) (png.CompressionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return png.DefaultCompression, nil
	case "none", "no":
		return png.NoCompression, nil
	case "speed", "fast":
		return png.BestSpeed, nil
	case "best", "size":
		return png.BestCompression, nil
	default:
		return 0, fmt.Errorf("unsupported png compression %q (use default, none, speed or best)", name)
	}
}

// Encode creates or truncates path and writes res to it. A file left
// half-written by a failed encode is removed.
func (e *PNGEncoder) Encode(res *capture.Result, path string) error {
	img, err := ToRGBA(res)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", capture.ErrEncode, path, err)
	}

	if path == StdoutPath {
		if err := e.enc.Encode(e.stdout, img); err != nil {
			return fmt.Errorf("%w: write PNG to stdout: %v", capture.ErrEncode, err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: couldn't open file: %v", capture.ErrEncode, err)
	}
	if err := e.enc.Encode(f, img); err != nil {
		f.Close()
		removePartial(path)
		return fmt.Errorf("%w: could not save the png image %q: %v", capture.ErrEncode, path, err)
	}
	if err := f.Close(); err != nil {
		removePartial(path)
		return fmt.Errorf("%w: close %q: %v", capture.ErrEncode, path, err)
	}
	return nil
}

// ToRGBA converts a B, G, R[, A] ordered buffer into an image.RGBA. Only
// width*bytesPerPixel bytes of every stride-long scanline are read.
func ToRGBA(res *capture.Result) (*image.RGBA, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: missing capture result", capture.ErrUnsupportedFormat)
	}
	if res.Width <= 0 || res.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", capture.ErrUnsupportedFormat, res.Width, res.Height)
	}
	bpp := res.BytesPerPixel()
	if bpp < 3 || bpp > 4 {
		return nil, fmt.Errorf("%w: %d bits per pixel", capture.ErrUnsupportedFormat, res.BitsPerPixel)
	}
	scanline := res.Width * bpp
	if res.Stride < scanline {
		return nil, fmt.Errorf("%w: stride %d shorter than scanline %d", capture.ErrUnsupportedFormat, res.Stride, scanline)
	}
	if need := res.Stride*(res.Height-1) + scanline; len(res.Pix) < need {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d image, need %d", capture.ErrUnsupportedFormat, len(res.Pix), res.Width, res.Height, need)
	}

	img := image.NewRGBA(image.Rect(0, 0, res.Width, res.Height))
	for y := 0; y < res.Height; y++ {
		row := res.Pix[y*res.Stride : y*res.Stride+scanline]
		dst := img.Pix[y*img.Stride : y*img.Stride+res.Width*4]
		for x := 0; x < res.Width; x++ {
			s := row[x*bpp:]
			d := dst[x*4:]
			d[0] = s[2]
			d[1] = s[1]
			d[2] = s[0]
			if bpp == 4 {
				d[3] = s[3]
			} else {
				d[3] = 0xff
			}
		}
	}
	return img, nil
}

func removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.WithComponent("output").Debug().Err(err).Str("path", path).Msg("Failed to remove partial file")
	}
}
