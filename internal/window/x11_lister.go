package window

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/xpic/internal/logger"
)

// Info represents information about a window
type Info struct {
	ID       uint32   `json:"id" yaml:"id"`
	Title    string   `json:"title" yaml:"title"`
	Class    string   `json:"class" yaml:"class"`
	PID      int      `json:"pid" yaml:"pid"`
	Geometry Geometry `json:"geometry" yaml:"geometry"`
	Desktop  int      `json:"desktop" yaml:"desktop"` // -1 means all desktops/sticky
}

// Geometry represents window geometry
type Geometry struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	Depth  int `json:"depth" yaml:"depth"`
}

// X11Lister enumerates top-level windows on a borrowed connection
type X11Lister struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

// NewX11Lister creates a lister on an existing connection
func NewX11Lister(conn *xgb.Conn, root xproto.Window) *X11Lister {
	return &X11Lister{
		conn:  conn,
		root:  root,
		atoms: make(map[string]xproto.Atom),
	}
}

// ListWindows returns all visible windows using EWMH _NET_CLIENT_LIST with QueryTree fallback
func (l *X11Lister) ListWindows() ([]*Info, error) {
	log := logger.WithComponent("x11-lister")

	windows, err := l.listWindowsEWMH()
	if err == nil && len(windows) > 0 {
		log.Debug().Int("count", len(windows)).Msg("ListWindows: using EWMH _NET_CLIENT_LIST")
		return windows, nil
	}
	if err != nil {
		log.Debug().Err(err).Msg("ListWindows: EWMH failed, falling back to QueryTree")
	} else {
		log.Debug().Msg("ListWindows: EWMH returned empty, falling back to QueryTree")
	}

	windows, err = l.listWindowsQueryTree()
	if err != nil {
		return nil, err
	}
	log.Debug().Int("count", len(windows)).Msg("ListWindows: using QueryTree fallback")
	return windows, nil
}

// listWindowsEWMH gets windows from _NET_CLIENT_LIST (EWMH standard)
func (l *X11Lister) listWindowsEWMH() ([]*Info, error) {
	clientListAtom, err := l.getAtom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST atom: %w", err)
	}

	reply, err := xproto.GetProperty(
		l.conn,
		false,
		l.root,
		clientListAtom,
		xproto.GetPropertyTypeAny,
		0,
		(1<<32)-1,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST property: %w", err)
	}
	if reply.ValueLen == 0 {
		return nil, fmt.Errorf("_NET_CLIENT_LIST is empty")
	}

	return l.describeAll(decodeWindowIDs(reply.Value)), nil
}

// listWindowsQueryTree gets windows by querying root window children
func (l *X11Lister) listWindowsQueryTree() ([]*Info, error) {
	tree, err := xproto.QueryTree(l.conn, l.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query tree: %w", err)
	}
	return l.describeAll(tree.Children), nil
}

func (l *X11Lister) describeAll(ids []xproto.Window) []*Info {
	log := logger.WithComponent("x11-lister")
	windows := make([]*Info, 0, len(ids))
	for _, win := range ids {
		info, err := l.getWindowInfo(win)
		if err != nil {
			log.Debug().Uint32("winID", uint32(win)).Err(err).Msg("failed to get window info")
			continue
		}
		// Skip windows without titles or class (usually not user windows)
		if info.Title == "" && info.Class == "" {
			continue
		}
		windows = append(windows, info)
	}
	return windows
}

// getWindowInfo retrieves information about a window
func (l *X11Lister) getWindowInfo(win xproto.Window) (*Info, error) {
	geom, err := xproto.GetGeometry(l.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, err
	}
	info := &Info{
		ID: uint32(win),
		Geometry: Geometry{
			X:      int(geom.X),
			Y:      int(geom.Y),
			Width:  int(geom.Width),
			Height: int(geom.Height),
			Depth:  int(geom.Depth),
		},
	}

	info.Title = l.stringProperty(win, "_NET_WM_NAME")
	if info.Title == "" {
		info.Title = l.stringProperty(win, "WM_NAME")
	}
	info.Class = parseClass(l.stringProperty(win, "WM_CLASS"))

	if pid, ok := l.cardinalProperty(win, "_NET_WM_PID"); ok {
		info.PID = int(pid)
	}

	info.Desktop = 0
	if desktop, ok := l.cardinalProperty(win, "_NET_WM_DESKTOP"); ok {
		// 0xFFFFFFFF means the window is on all desktops (sticky)
		if desktop == 0xFFFFFFFF {
			info.Desktop = -1
		} else {
			info.Desktop = int(desktop)
		}
	}

	return info, nil
}

// getAtom gets an atom ID by name
func (l *X11Lister) getAtom(name string) (xproto.Atom, error) {
	if atom, ok := l.atoms[name]; ok {
		return atom, nil
	}
	reply, err := xproto.InternAtom(l.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	l.atoms[name] = reply.Atom
	return reply.Atom, nil
}

func (l *X11Lister) stringProperty(win xproto.Window, name string) string {
	atom, err := l.getAtom(name)
	if err != nil {
		return ""
	}
	reply, err := xproto.GetProperty(l.conn, false, win, atom, xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil || reply.ValueLen == 0 {
		return ""
	}
	return string(reply.Value)
}

func (l *X11Lister) cardinalProperty(win xproto.Window, name string) (uint32, bool) {
	atom, err := l.getAtom(name)
	if err != nil {
		return 0, false
	}
	reply, err := xproto.GetProperty(l.conn, false, win, atom, xproto.AtomCardinal, 0, 1).Reply()
	if err != nil || len(reply.Value) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(reply.Value), true
}

// decodeWindowIDs parses a 32-bit window list property as sent by the server.
func decodeWindowIDs(value []byte) []xproto.Window {
	ids := make([]xproto.Window, 0, len(value)/4)
	for i := 0; i+4 <= len(value); i += 4 {
		ids = append(ids, xproto.Window(binary.LittleEndian.Uint32(value[i:])))
	}
	return ids
}

// parseClass extracts the class from WM_CLASS, formatted as
// instance\0class\0, falling back to the instance.
func parseClass(raw string) string {
	parts := strings.Split(raw, "\x00")
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	if len(parts) >= 1 {
		return parts[0]
	}
	return ""
}
