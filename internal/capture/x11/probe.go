package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/shm"

	"github.com/bryanchriswhite/xpic/internal/capture"
	"github.com/bryanchriswhite/xpic/internal/logger"
)

// Version announced to the server. The server must answer with at least
// 0.2, the first version with NameWindowPixmap.
const (
	compositeClientMajor = 0
	compositeClientMinor = 4
)

// ProbeSharedMemory reports whether MIT-SHM is present. The answer is cached
// for the lifetime of the connection.
func (d *Display) ProbeSharedMemory() bool {
	if d.shmProbed {
		return d.shmOK
	}
	d.shmProbed = true

	log := logger.WithComponent("x11")
	if err := shm.Init(d.conn); err != nil {
		log.Debug().Err(err).Msg("MIT-SHM extension not available")
		return false
	}
	reply, err := shm.QueryVersion(d.conn).Reply()
	if err != nil {
		log.Debug().Err(err).Msg("MIT-SHM version query failed")
		return false
	}
	log.Debug().
		Uint16("major", reply.MajorVersion).
		Uint16("minor", reply.MinorVersion).
		Msg("MIT-SHM extension available")
	d.shmOK = true
	return true
}

// ProbeCompositing checks for a Composite extension new enough to name
// window pixmaps. The result is cached for the lifetime of the connection.
func (d *Display) ProbeCompositing() error {
	if d.compositeProbed {
		return d.compositeErr
	}
	d.compositeProbed = true
	d.compositeErr = d.probeCompositing()
	return d.compositeErr
}

func (d *Display) probeCompositing() error {
	if err := composite.Init(d.conn); err != nil {
		return fmt.Errorf("X Composite Extension is not available: %w: %v", capture.ErrUnsupported, err)
	}
	reply, err := composite.QueryVersion(d.conn, compositeClientMajor, compositeClientMinor).Reply()
	if err != nil {
		return fmt.Errorf("X Composite Extension version query: %w: %v", capture.ErrUnsupported, err)
	}
	if !compositeVersionSupported(reply.MajorVersion, reply.MinorVersion) {
		return fmt.Errorf("X Composite Extension has a non compatible version %d.%d: %w",
			reply.MajorVersion, reply.MinorVersion, capture.ErrUnsupported)
	}
	logger.WithComponent("x11").Debug().
		Uint32("major", reply.MajorVersion).
		Uint32("minor", reply.MinorVersion).
		Msg("Composite extension available")
	return nil
}

func compositeVersionSupported(major, minor uint32) bool {
	return major >= 1 || minor >= 2
}
