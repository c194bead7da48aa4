package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/shm"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/xpic/internal/capture"
	"github.com/bryanchriswhite/xpic/internal/logger"
)

const allPlanes = 0xffffffff

// shmChannel is one shared-memory image attached to the server, sized for a
// single geometry. It is never reused across windows.
type shmChannel struct {
	d      *Display
	seg    *segment
	shmseg shm.Seg
	geom   capture.Geometry
	res    capture.Result
	closed bool
}

// OpenChannel allocates a segment of exactly stride*height bytes for geom,
// attaches it to the server and waits for the server to register it before
// marking it for removal.
func (d *Display) OpenChannel(geom capture.Geometry) (capture.Channel, error) {
	log := logger.WithComponent("x11")

	layout, err := layoutFor(d.setup.PixmapFormats, geom.Depth, geom.Width)
	if err != nil {
		return nil, fmt.Errorf("couldn't allocate image structure: %w", err)
	}
	size := layout.Size(geom.Height)

	seg, err := createSegment(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", capture.ErrResource, err)
	}

	shmseg, err := shm.NewSegId(d.conn)
	if err != nil {
		releaseSegment(seg)
		return nil, fmt.Errorf("%w: allocate segment id: %v", capture.ErrResource, err)
	}
	if err := shm.AttachChecked(d.conn, shmseg, uint32(seg.id), false).Check(); err != nil {
		releaseSegment(seg)
		return nil, fmt.Errorf("%w: couldn't attach to shared memory: %v", capture.ErrResource, err)
	}
	d.conn.Sync()

	if err := seg.markRemoved(); err != nil {
		shm.Detach(d.conn, shmseg)
		releaseSegment(seg)
		return nil, fmt.Errorf("%w: %v", capture.ErrResource, err)
	}

	log.Debug().
		Int("shmid", seg.id).
		Int("width", geom.Width).
		Int("height", geom.Height).
		Int("depth", geom.Depth).
		Int("stride", layout.Stride).
		Int("bytes", size).
		Msg("Attached shared memory image")

	return &shmChannel{
		d:      d,
		seg:    seg,
		shmseg: shmseg,
		geom:   geom,
		res: capture.Result{
			Width:        geom.Width,
			Height:       geom.Height,
			BitsPerPixel: layout.BitsPerPixel,
			Stride:       layout.Stride,
			Pix:          seg.data,
		},
	}, nil
}

// Fill pulls the current contents of src into the shared segment.
func (c *shmChannel) Fill(src capture.Handle) error {
	if c.closed {
		return fmt.Errorf("%w: fill on released channel", capture.ErrResource)
	}
	reply, err := shm.GetImage(
		c.d.conn,
		xproto.Drawable(src),
		0, 0,
		uint16(c.geom.Width), uint16(c.geom.Height),
		allPlanes,
		xproto.ImageFormatZPixmap,
		c.shmseg,
		0,
	).Reply()
	if err != nil {
		return fmt.Errorf("%w: shm get image of %s: %v", capture.ErrResource, src, err)
	}
	if int(reply.Size) > len(c.res.Pix) {
		return fmt.Errorf("%w: server wrote %d bytes into a %d byte segment", capture.ErrResource, reply.Size, len(c.res.Pix))
	}
	return nil
}

func (c *shmChannel) Result() *capture.Result {
	return &c.res
}

// Close detaches the segment from the server, then from this process.
func (c *shmChannel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.res.Pix = nil

	var firstErr error
	if err := shm.DetachChecked(c.d.conn, c.shmseg).Check(); err != nil {
		firstErr = fmt.Errorf("shm detach: %w", err)
	}
	if err := c.seg.detach(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func releaseSegment(seg *segment) {
	if err := seg.markRemoved(); err != nil {
		logger.WithComponent("x11").Debug().Err(err).Msg("Failed to mark segment removed")
	}
	if err := seg.detach(); err != nil {
		logger.WithComponent("x11").Debug().Err(err).Msg("Failed to detach segment")
	}
}
