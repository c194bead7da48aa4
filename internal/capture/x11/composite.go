package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/xpic/internal/capture"
	"github.com/bryanchriswhite/xpic/internal/logger"
)

// Redirect asks the server to keep the window's rendering in an off-screen
// store and returns the pixmap mirroring it. The root window is returned
// unchanged. Redirecting an already redirected window is treated as a no-op
// by the server and is not an error here.
func (d *Display) Redirect(win capture.Handle) (capture.Handle, error) {
	if win == d.Root() {
		return win, nil
	}
	log := logger.WithComponent("x11")
	w := xproto.Window(win)

	if err := composite.RedirectWindowChecked(d.conn, w, composite.RedirectAutomatic).Check(); err != nil {
		return 0, fmt.Errorf("redirect %s: %w", win, err)
	}

	pixmap, err := xproto.NewPixmapId(d.conn)
	if err != nil {
		return 0, fmt.Errorf("allocate pixmap id: %w", err)
	}
	if err := composite.NameWindowPixmapChecked(d.conn, w, pixmap).Check(); err != nil {
		return 0, fmt.Errorf("name pixmap of %s: %w", win, err)
	}

	log.Debug().
		Stringer("window", win).
		Uint32("pixmap", uint32(pixmap)).
		Msg("Using Composite pixmap for window capture")
	return capture.Handle(pixmap), nil
}
