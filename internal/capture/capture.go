package capture

import (
	"errors"
	"fmt"
)

// Handle names a window or pixmap known to the X server.
type Handle uint32

func (h Handle) String() string {
	return fmt.Sprintf("0x%x", uint32(h))
}

// Geometry is the server-reported geometry of a drawable, queried fresh
// before every capture.
type Geometry struct {
	X           int
	Y           int
	Width       int
	Height      int
	BorderWidth int
	Depth       int
}

// Valid reports whether the geometry describes a non-empty drawable.
func (g Geometry) Valid() bool {
	return g.Width > 0 && g.Height > 0 && g.Depth > 0
}

// Result is a populated pixel buffer ready for encoding. Pix is laid out
// in the server's ZPixmap order, which for 24/32 bit depths on little-endian
// hosts is B, G, R, A per pixel.
type Result struct {
	Width        int
	Height       int
	BitsPerPixel int
	Stride       int
	Pix          []byte
}

// BytesPerPixel returns BitsPerPixel rounded down to whole bytes.
func (r *Result) BytesPerPixel() int {
	return r.BitsPerPixel / 8
}

// Strategy selects how windows are read for the whole run.
type Strategy int

const (
	// StrategyDirect reads each window straight into shared memory.
	StrategyDirect Strategy = iota
	// StrategyComposited reads the Composite pixmap of every non-root window.
	StrategyComposited
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyComposited:
		return "composited"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

var (
	ErrConnection        = errors.New("cannot open display")
	ErrUnsupported       = errors.New("extension unsupported")
	ErrGeometry          = errors.New("window geometry unavailable")
	ErrResource          = errors.New("shared memory unavailable")
	ErrEncode            = errors.New("encode failed")
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
)

// Prober reports which optional server extensions can be used.
type Prober interface {
	ProbeSharedMemory() bool
	ProbeCompositing() error
}

// Channel is a shared-memory image sized for one geometry. It must be
// closed exactly once on every path after a successful open.
type Channel interface {
	Fill(src Handle) error
	Result() *Result
	Close() error
}

// Display is the subset of the X server a capture run needs.
type Display interface {
	Prober
	Root() Handle
	Geometry(win Handle) (Geometry, error)
	Redirect(win Handle) (Handle, error)
	OpenChannel(geom Geometry) (Channel, error)
}

// Encoder persists a capture result to a destination path.
type Encoder interface {
	Encode(res *Result, path string) error
}
