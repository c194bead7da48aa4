//go:build !linux

package x11

import "errors"

var errNoSysvShm = errors.New("SysV shared memory is only supported on linux")

type segment struct {
	id   int
	data []byte
}

func createSegment(int) (*segment, error) { return nil, errNoSysvShm }

func (s *segment) markRemoved() error { return errNoSysvShm }

func (s *segment) detach() error { return nil }
