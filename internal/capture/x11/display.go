package x11

import (
	"fmt"
	"os"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/xpic/internal/capture"
	"github.com/bryanchriswhite/xpic/internal/logger"
)

// Display is the process-wide connection to the X server. It implements
// capture.Display; every request is a synchronous round-trip.
type Display struct {
	conn   *xgb.Conn
	setup  *xproto.SetupInfo
	screen *xproto.ScreenInfo
	root   xproto.Window

	shmProbed       bool
	shmOK           bool
	compositeProbed bool
	compositeErr    error
}

var _ capture.Display = (*Display)(nil)

// Open connects to the named display, or $DISPLAY when name is empty.
func Open(name string) (*Display, error) {
	var (
		conn *xgb.Conn
		err  error
	)
	if name == "" {
		conn, err = xgb.NewConn()
	} else {
		conn, err = xgb.NewConnDisplay(name)
	}
	if err != nil {
		shown := name
		if shown == "" {
			shown = os.Getenv("DISPLAY")
		}
		return nil, fmt.Errorf("%w %q: %v", capture.ErrConnection, shown, err)
	}

	setup := xproto.Setup(conn)
	if setup == nil {
		conn.Close()
		return nil, fmt.Errorf("%w: xproto setup unavailable", capture.ErrConnection)
	}
	screen := setup.DefaultScreen(conn)
	if screen == nil {
		conn.Close()
		return nil, fmt.Errorf("%w: default screen unavailable", capture.ErrConnection)
	}

	logger.WithComponent("x11").Debug().
		Str("display", name).
		Uint32("root", uint32(screen.Root)).
		Uint8("root_depth", screen.RootDepth).
		Msg("Connected to X server")

	return &Display{
		conn:   conn,
		setup:  setup,
		screen: screen,
		root:   screen.Root,
	}, nil
}

// Close flushes outstanding requests and closes the connection.
func (d *Display) Close() error {
	d.conn.Sync()
	d.conn.Close()
	return nil
}

// Conn returns the underlying connection for callers that issue their own
// requests, such as window listing.
func (d *Display) Conn() *xgb.Conn {
	return d.conn
}

// RootWindow returns the root window of the default screen.
func (d *Display) RootWindow() xproto.Window {
	return d.root
}

// Root returns the root window as a capture handle.
func (d *Display) Root() capture.Handle {
	return capture.Handle(d.root)
}

// Geometry queries the current geometry of a window or pixmap.
func (d *Display) Geometry(win capture.Handle) (capture.Geometry, error) {
	geom, err := xproto.GetGeometry(d.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return capture.Geometry{}, fmt.Errorf("get geometry of %s: %w: %v", win, capture.ErrGeometry, err)
	}
	g := capture.Geometry{
		X:           int(geom.X),
		Y:           int(geom.Y),
		Width:       int(geom.Width),
		Height:      int(geom.Height),
		BorderWidth: int(geom.BorderWidth),
		Depth:       int(geom.Depth),
	}
	if !g.Valid() {
		return capture.Geometry{}, fmt.Errorf("%s has empty geometry %dx%d depth %d: %w", win, g.Width, g.Height, g.Depth, capture.ErrGeometry)
	}
	return g, nil
}
