//go:build linux

package x11

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// segment is a private SysV shared-memory segment mapped into this process.
type segment struct {
	id      int
	data    []byte
	removed bool
}

func createSegment(size int) (*segment, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shmget: invalid size %d", size)
	}
	id, err := unix.SysvShmGet(unix.IPC_PRIVATE, size, unix.IPC_CREAT|0o777)
	if err != nil {
		return nil, fmt.Errorf("couldn't get shared memory: %w", err)
	}
	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		_, _ = unix.SysvShmCtl(id, unix.IPC_RMID, nil)
		return nil, fmt.Errorf("couldn't map shared memory address space: %w", err)
	}
	return &segment{id: id, data: data[:size]}, nil
}

// markRemoved schedules the segment for destruction once every process has
// detached, so an abnormal exit cannot leak it.
func (s *segment) markRemoved() error {
	if s.removed {
		return nil
	}
	if _, err := unix.SysvShmCtl(s.id, unix.IPC_RMID, nil); err != nil {
		return fmt.Errorf("shmctl IPC_RMID: %w", err)
	}
	s.removed = true
	return nil
}

func (s *segment) detach() error {
	if s.data == nil {
		return nil
	}
	data := s.data
	s.data = nil
	if err := unix.SysvShmDetach(data[:cap(data)]); err != nil {
		return fmt.Errorf("shmdt: %w", err)
	}
	return nil
}
