package output

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Defaults for synthesized file names: xpic-<YYYYMMDDHHMMSS>-<id>.png
const (
	DefaultPrefix          = "xpic"
	DefaultExtension       = ".png"
	DefaultTimestampLayout = "20060102150405"
)

// Config holds common configuration for naming output files
type Config struct {
	Dir             string
	Prefix          string
	Extension       string
	TimestampLayout string
	// Explicit is the operator supplied path; empty means synthesize one
	// name per window.
	Explicit string
}

// Namer produces one output path per window. The timestamp is fixed when the
// Namer is built and shared by every window of the run.
type Namer struct {
	cfg   Config
	stamp string
	count int
}

// NewNamer fixes the run timestamp and fills config defaults.
func NewNamer(cfg Config, runStart time.Time, windows int) *Namer {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Extension == "" {
		cfg.Extension = DefaultExtension
	}
	if !strings.HasPrefix(cfg.Extension, ".") {
		cfg.Extension = "." + cfg.Extension
	}
	if cfg.TimestampLayout == "" {
		cfg.TimestampLayout = DefaultTimestampLayout
	}
	return &Namer{
		cfg:   cfg,
		stamp: runStart.Format(cfg.TimestampLayout),
		count: windows,
	}
}

// Stamp returns the run timestamp as it appears in synthesized names.
func (n *Namer) Stamp() string {
	return n.stamp
}

// Path returns the destination for the window whose id was given as idText.
// An explicit path shared by several windows gets the id inserted before
// its extension so captures do not overwrite each other.
func (n *Namer) Path(idText string) string {
	if n.cfg.Explicit != "" {
		if n.count <= 1 || n.cfg.Explicit == StdoutPath {
			return n.cfg.Explicit
		}
		ext := filepath.Ext(n.cfg.Explicit)
		base := strings.TrimSuffix(n.cfg.Explicit, ext)
		return fmt.Sprintf("%s-%s%s", base, idText, ext)
	}
	name := fmt.Sprintf("%s-%s-%s%s", n.cfg.Prefix, n.stamp, idText, n.cfg.Extension)
	if n.cfg.Dir == "" {
		return name
	}
	return filepath.Join(n.cfg.Dir, name)
}
