package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/xpic/internal/logger"
)

const (
	winA Handle = 0x3a00007
	winB Handle = 0x3a0000c
)

func twoWindowDisplay() *fakeDisplay {
	d := newFakeDisplay()
	d.geometries[fakeRoot] = Geometry{Width: 8, Height: 4, Depth: 24}
	d.geometries[winA] = Geometry{X: 10, Y: 20, Width: 3, Height: 2, BorderWidth: 1, Depth: 24}
	d.geometries[winB] = Geometry{Width: 5, Height: 5, Depth: 32}
	return d
}

func TestSelectStrategy(t *testing.T) {
	d := newFakeDisplay()
	require.Equal(t, StrategyComposited, SelectStrategy(d, true))
	require.Equal(t, StrategyDirect, SelectStrategy(d, false))

	d.compositeErr = fmt.Errorf("composite 0.1: %w", ErrUnsupported)
	require.Equal(t, StrategyDirect, SelectStrategy(d, true))
}

func TestNewOrchestratorRequiresSharedMemory(t *testing.T) {
	d := newFakeDisplay()
	d.shm = false
	_, err := NewOrchestrator(d, &recordingEncoder{}, Options{})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestRootWindowIsNeverRedirected(t *testing.T) {
	d := twoWindowDisplay()
	enc := &recordingEncoder{}
	o, err := NewOrchestrator(d, enc, Options{})
	require.NoError(t, err)
	require.Equal(t, StrategyComposited, o.Strategy())

	require.NoError(t, o.Run(context.Background(), []Job{{Window: fakeRoot, Path: "root.png"}}))
	require.Empty(t, d.redirects)
	require.Equal(t, []Handle{fakeRoot}, d.opened[0].filled)
}

func TestNonRootWindowIsRedirectedWhenCompositing(t *testing.T) {
	d := twoWindowDisplay()
	o, err := NewOrchestrator(d, &recordingEncoder{}, Options{})
	require.NoError(t, err)

	require.NoError(t, o.Capture(Job{Window: winA, Path: "a.png"}))
	require.Equal(t, []Handle{winA}, d.redirects)

	ch := d.opened[0]
	require.Equal(t, []Handle{pixmapBase + winA}, ch.filled)
	// sized from the pixmap, border included
	require.Equal(t, 5, ch.res.Width)
	require.Equal(t, 4, ch.res.Height)
}

func TestDirectStrategySkipsRedirection(t *testing.T) {
	d := twoWindowDisplay()
	d.compositeErr = ErrUnsupported
	o, err := NewOrchestrator(d, &recordingEncoder{}, Options{})
	require.NoError(t, err)
	require.Equal(t, StrategyDirect, o.Strategy())

	require.NoError(t, o.Run(context.Background(), []Job{{Window: winA, Path: "a.png"}, {Window: winB, Path: "b.png"}}))
	require.Empty(t, d.redirects)
	require.Equal(t, []Handle{winA}, d.opened[0].filled)
	require.Equal(t, 3, d.opened[0].res.Width)
}

func TestDisableCompositeForcesDirect(t *testing.T) {
	d := twoWindowDisplay()
	o, err := NewOrchestrator(d, &recordingEncoder{}, Options{DisableComposite: true})
	require.NoError(t, err)
	require.Equal(t, StrategyDirect, o.Strategy())
}

func TestCaptureWalksEveryState(t *testing.T) {
	d := twoWindowDisplay()
	var states []State
	o, err := NewOrchestrator(d, &recordingEncoder{}, Options{
		OnTransition: func(_ Handle, s State) { states = append(states, s) },
	})
	require.NoError(t, err)

	require.NoError(t, o.Capture(Job{Window: winB, Path: "b.png"}))
	require.Equal(t, []State{
		StateIdle,
		StateGeometryQueried,
		StateSurfaceResolved,
		StateBufferAcquired,
		StatePixelsFilled,
		StateNormalized,
		StateEncoded,
		StateReleased,
	}, states)
}

func TestCaptureEncodesOpaquePixels(t *testing.T) {
	d := twoWindowDisplay()
	d.fillAlpha = 0
	enc := &recordingEncoder{}
	o, err := NewOrchestrator(d, enc, Options{})
	require.NoError(t, err)

	require.NoError(t, o.Capture(Job{Window: winB, Path: "b.png"}))
	require.Len(t, enc.alpha, 25)
	for _, a := range enc.alpha {
		require.Equal(t, byte(0xff), a)
	}
}

func TestEncodeFailureStillReleases(t *testing.T) {
	d := twoWindowDisplay()
	enc := &recordingEncoder{err: fmt.Errorf("open out.png: %w", ErrEncode)}
	var last State
	o, err := NewOrchestrator(d, enc, Options{
		OnTransition: func(_ Handle, s State) { last = s },
	})
	require.NoError(t, err)

	err = o.Capture(Job{Window: winB, Path: "out.png"})
	require.ErrorIs(t, err, ErrEncode)
	require.Equal(t, StateReleased, last)
	require.Equal(t, 1, d.opened[0].closes)
}

func TestFillFailureStillReleases(t *testing.T) {
	d := twoWindowDisplay()
	d.fillErr = fmt.Errorf("shm get image: %w", ErrResource)
	o, err := NewOrchestrator(d, &recordingEncoder{}, Options{})
	require.NoError(t, err)

	require.ErrorIs(t, o.Capture(Job{Window: winB, Path: "b.png"}), ErrResource)
	require.Equal(t, 1, d.opened[0].closes)
}

func TestReleaseFailureIsReported(t *testing.T) {
	d := twoWindowDisplay()
	d.closeErr = errBoom
	o, err := NewOrchestrator(d, &recordingEncoder{}, Options{})
	require.NoError(t, err)

	err = o.Capture(Job{Window: winB, Path: "b.png"})
	require.ErrorIs(t, err, errBoom)
	require.Contains(t, err.Error(), "release")
}

func TestGeometryFailureAcquiresNothing(t *testing.T) {
	d := twoWindowDisplay()
	o, err := NewOrchestrator(d, &recordingEncoder{}, Options{})
	require.NoError(t, err)

	err = o.Capture(Job{Window: 0xdead, Path: "x.png"})
	require.ErrorIs(t, err, ErrGeometry)
	require.Empty(t, d.opened)
	require.Empty(t, d.redirects)
}

func TestRunContinuesAfterFailure(t *testing.T) {
	d := twoWindowDisplay()
	d.geometryErr[winA] = fmt.Errorf("window destroyed: %w", ErrGeometry)
	enc := &recordingEncoder{}
	o, err := NewOrchestrator(d, enc, Options{})
	require.NoError(t, err)

	err = o.Run(context.Background(), []Job{
		{Window: winA, Path: "a.png"},
		{Window: winB, Path: "b.png"},
	})
	require.ErrorIs(t, err, ErrGeometry)
	require.NotContains(t, err.Error(), "\n")
	require.Equal(t, []string{"b.png"}, enc.paths)
}

func TestRunReportsFailuresOnlyThroughItsError(t *testing.T) {
	t.Cleanup(func() { logger.InitWithWriter(logger.WarnLevel, false, os.Stderr) })

	run := func(level logger.LogLevel) string {
		var buf bytes.Buffer
		logger.InitWithWriter(level, false, &buf)
		d := twoWindowDisplay()
		d.geometryErr[winA] = fmt.Errorf("window destroyed: %w", ErrGeometry)
		o, err := NewOrchestrator(d, &recordingEncoder{}, Options{})
		require.NoError(t, err)
		require.Error(t, o.Run(context.Background(), []Job{{Window: winA, Path: "a.png"}}))
		return buf.String()
	}

	require.NotContains(t, run(logger.InfoLevel), "capture failed")

	out := run(logger.DebugLevel)
	require.Contains(t, out, "capture failed")
	require.Contains(t, out, `"window":"0x3a00007"`)
}

func TestRunAggregatesEveryFailure(t *testing.T) {
	d := twoWindowDisplay()
	d.openErr = fmt.Errorf("shmget: %w", ErrResource)
	o, err := NewOrchestrator(d, &recordingEncoder{}, Options{})
	require.NoError(t, err)

	err = o.Run(context.Background(), []Job{
		{Window: winA, Path: "a.png"},
		{Window: winB, Path: "b.png"},
	})
	require.ErrorIs(t, err, ErrResource)
	require.Contains(t, err.Error(), winA.String())
	require.Contains(t, err.Error(), winB.String())
}

func TestRunStopsWhenContextDone(t *testing.T) {
	d := twoWindowDisplay()
	enc := &recordingEncoder{}
	o, err := NewOrchestrator(d, enc, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = o.Run(ctx, []Job{{Window: winB, Path: "b.png"}})
	require.True(t, errors.Is(err, context.Canceled))
	require.Empty(t, enc.paths)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "buffer-acquired", StateBufferAcquired.String())
	require.Equal(t, "state(42)", State(42).String())
	require.Equal(t, "composited", StrategyComposited.String())
	require.Equal(t, "0x1e5", fakeRoot.String())
}
