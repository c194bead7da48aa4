package capture

import (
	"errors"
	"fmt"
)

const (
	fakeRoot   Handle = 0x1e5
	pixmapBase Handle = 0x4000000
)

type fakeDisplay struct {
	shm          bool
	compositeErr error

	geometries  map[Handle]Geometry
	geometryErr map[Handle]error
	openErr     error
	fillErr     error
	closeErr    error
	// alpha written into every pixel by Fill
	fillAlpha byte

	redirects []Handle
	opened    []*fakeChannel
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{
		shm:         true,
		geometries:  map[Handle]Geometry{},
		geometryErr: map[Handle]error{},
	}
}

func (f *fakeDisplay) ProbeSharedMemory() bool { return f.shm }
func (f *fakeDisplay) ProbeCompositing() error { return f.compositeErr }
func (f *fakeDisplay) Root() Handle            { return fakeRoot }

func (f *fakeDisplay) Geometry(win Handle) (Geometry, error) {
	if err := f.geometryErr[win]; err != nil {
		return Geometry{}, err
	}
	if g, ok := f.geometries[win]; ok {
		return g, nil
	}
	return Geometry{}, fmt.Errorf("bad window %s: %w", win, ErrGeometry)
}

func (f *fakeDisplay) Redirect(win Handle) (Handle, error) {
	f.redirects = append(f.redirects, win)
	pix := pixmapBase + win
	if _, ok := f.geometries[pix]; !ok {
		g := f.geometries[win]
		g.Width += 2 * g.BorderWidth
		g.Height += 2 * g.BorderWidth
		f.geometries[pix] = g
	}
	return pix, nil
}

func (f *fakeDisplay) OpenChannel(geom Geometry) (Channel, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	stride := geom.Width * 4
	ch := &fakeChannel{
		display: f,
		res: Result{
			Width:        geom.Width,
			Height:       geom.Height,
			BitsPerPixel: 32,
			Stride:       stride,
			Pix:          make([]byte, stride*geom.Height),
		},
	}
	f.opened = append(f.opened, ch)
	return ch, nil
}

type fakeChannel struct {
	display *fakeDisplay
	res     Result
	filled  []Handle
	closes  int
}

func (c *fakeChannel) Fill(src Handle) error {
	if c.display.fillErr != nil {
		return c.display.fillErr
	}
	c.filled = append(c.filled, src)
	for i := 0; i+3 < len(c.res.Pix); i += 4 {
		c.res.Pix[i] = 0x10
		c.res.Pix[i+1] = 0x20
		c.res.Pix[i+2] = 0x30
		c.res.Pix[i+3] = c.display.fillAlpha
	}
	return nil
}

func (c *fakeChannel) Result() *Result { return &c.res }

func (c *fakeChannel) Close() error {
	c.closes++
	return c.display.closeErr
}

type recordingEncoder struct {
	paths []string
	alpha []byte
	err   error
}

func (e *recordingEncoder) Encode(res *Result, path string) error {
	if e.err != nil {
		return e.err
	}
	e.paths = append(e.paths, path)
	for i := 3; i < len(res.Pix); i += 4 {
		e.alpha = append(e.alpha, res.Pix[i])
	}
	return nil
}

var errBoom = errors.New("boom")
