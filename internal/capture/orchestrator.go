package capture

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/bryanchriswhite/xpic/internal/logger"
)

// State is the progress of a single window through the capture pipeline.
type State int

const (
	StateIdle State = iota
	StateGeometryQueried
	StateSurfaceResolved
	StateBufferAcquired
	StatePixelsFilled
	StateNormalized
	StateEncoded
	StateReleased
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateGeometryQueried: "geometry-queried",
	StateSurfaceResolved: "surface-resolved",
	StateBufferAcquired:  "buffer-acquired",
	StatePixelsFilled:    "pixels-filled",
	StateNormalized:      "normalized",
	StateEncoded:         "encoded",
	StateReleased:        "released",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Job is one window to capture and where to write it.
type Job struct {
	Window Handle
	Path   string
}

// Options tune an Orchestrator.
type Options struct {
	// DisableComposite forces StrategyDirect even when Composite is usable.
	DisableComposite bool
	// OnTransition, when set, observes every state change.
	OnTransition func(win Handle, state State)
}

// Orchestrator drives windows through the capture pipeline one at a time.
type Orchestrator struct {
	display  Display
	encoder  Encoder
	strategy Strategy
	observe  func(Handle, State)
}

// NewOrchestrator probes the display and picks the strategy for the run.
// A missing shared-memory extension is fatal; a missing or outdated
// Composite extension only downgrades the strategy.
func NewOrchestrator(d Display, enc Encoder, opts Options) (*Orchestrator, error) {
	if !d.ProbeSharedMemory() {
		return nil, fmt.Errorf("X Shared Memory Extension: %w", ErrUnsupported)
	}
	return &Orchestrator{
		display:  d,
		encoder:  enc,
		strategy: SelectStrategy(d, !opts.DisableComposite),
		observe:  opts.OnTransition,
	}, nil
}

// SelectStrategy returns StrategyComposited when compositing is both allowed
// and supported by the server.
func SelectStrategy(p Prober, allowComposite bool) Strategy {
	log := logger.WithComponent("capture")
	if !allowComposite {
		log.Info().Msg("composite disabled by configuration, using XShm")
		return StrategyDirect
	}
	if err := p.ProbeCompositing(); err != nil {
		log.Warn().Err(err).Msg("falling back to XShm")
		return StrategyDirect
	}
	return StrategyComposited
}

// Strategy reports the strategy chosen for this run.
func (o *Orchestrator) Strategy() Strategy {
	return o.strategy
}

// Run captures every job in order. A failing window does not stop the batch;
// the returned error aggregates every failure and is the only place they are
// reported above debug level.
func (o *Orchestrator) Run(ctx context.Context, jobs []Job) error {
	var result *multierror.Error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}
		log := logger.WithField("window", job.Window.String())
		if err := o.Capture(job); err != nil {
			log.Debug().Err(err).Msg("capture failed")
			result = multierror.Append(result, err)
			continue
		}
		log.Info().Str("path", job.Path).Msg("saved")
	}
	if result != nil {
		result.ErrorFormat = singleLine
	}
	return result.ErrorOrNil()
}

func appendError(err, next error) error {
	if err == nil {
		return next
	}
	merged := multierror.Append(err, next)
	merged.ErrorFormat = singleLine
	return merged
}

// singleLine keeps aggregated failures on one diagnostic line.
func singleLine(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Capture takes one window from Idle to Released. Once a buffer has been
// acquired it is released on every path.
func (o *Orchestrator) Capture(job Job) (err error) {
	win := job.Window
	o.enter(win, StateIdle)

	geom, err := o.display.Geometry(win)
	if err != nil {
		return fmt.Errorf("window %s: %w", win, err)
	}
	o.enter(win, StateGeometryQueried)

	src, err := o.resolveSurface(win)
	if err != nil {
		return fmt.Errorf("window %s: %w", win, err)
	}
	if src != win {
		// The named pixmap includes the window border, so size the buffer
		// from the pixmap rather than the window.
		if geom, err = o.display.Geometry(src); err != nil {
			return fmt.Errorf("window %s: pixmap %s: %w", win, src, err)
		}
	}
	o.enter(win, StateSurfaceResolved)

	ch, err := o.display.OpenChannel(geom)
	if err != nil {
		return fmt.Errorf("window %s: %w", win, err)
	}
	o.enter(win, StateBufferAcquired)
	defer func() {
		if cerr := ch.Close(); cerr != nil {
			err = appendError(err, fmt.Errorf("window %s: release: %w", win, cerr))
		}
		o.enter(win, StateReleased)
	}()

	if err := ch.Fill(src); err != nil {
		return fmt.Errorf("window %s: %w", win, err)
	}
	o.enter(win, StatePixelsFilled)

	res := ch.Result()
	if err := NormalizeAlpha(res); err != nil {
		return fmt.Errorf("window %s: %w", win, err)
	}
	o.enter(win, StateNormalized)

	if err := o.encoder.Encode(res, job.Path); err != nil {
		return fmt.Errorf("window %s: %w", win, err)
	}
	o.enter(win, StateEncoded)
	return nil
}

func (o *Orchestrator) resolveSurface(win Handle) (Handle, error) {
	if o.strategy != StrategyComposited || win == o.display.Root() {
		return win, nil
	}
	return o.display.Redirect(win)
}

func (o *Orchestrator) enter(win Handle, s State) {
	logger.WithComponent("capture").Debug().Stringer("window", win).Stringer("state", s).Msg("transition")
	if o.observe != nil {
		o.observe(win, s)
	}
}
