package export

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	renderer   *fakeRenderer
	surface    *fakeSurface
	controls   *fakeControls
	compressor *countingCompressor
	exporter   *Exporter
	events     <-chan Event
}

func newHarness(t *testing.T, playing, controlsVisible bool, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		renderer:   &fakeRenderer{playing: playing},
		controls:   &fakeControls{visible: controlsVisible},
		compressor: &countingCompressor{inner: &GIFCompressor{Workers: 2}},
	}
	h.surface = newFakeSurface(h.renderer, 8, 6)
	opts = append([]Option{WithControls(h.controls), WithLease(&Lease{})}, opts...)
	h.exporter = NewExporter(
		h.renderer,
		NewSequencer(NewFrameSource(h.renderer, h.surface, 0, 0)),
		NewEncoder(h.compressor, "strava-animation.gif"),
		opts...,
	)
	h.events = h.exporter.Events().Subscribe("test", 1024)
	return h
}

func progressOf(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == EventProgress {
			out = append(out, ev)
		}
	}
	return out
}

func TestExportProducesArtifact(t *testing.T) {
	h := newHarness(t, true, true)

	artifact, err := h.exporter.Export(context.Background(), smallRequest())
	require.NoError(t, err)

	assert.Equal(t, 10, artifact.FrameCount)
	assert.Equal(t, ContentTypeGIF, artifact.ContentType)
	assert.Equal(t, "strava-animation.gif", artifact.Filename)
	assert.Equal(t, smallRequest().Delay(), artifact.Delay)
	assert.Greater(t, artifact.Size(), 0)
	assert.Equal(t, StateIdle, h.exporter.State())

	events := drain(h.events)
	last := events[len(events)-1]
	assert.Equal(t, EventComplete, last.Kind)
	assert.Same(t, artifact, last.Artifact)
}

func TestExportProgressIsMonotonic(t *testing.T) {
	h := newHarness(t, false, true)

	_, err := h.exporter.Export(context.Background(), smallRequest())
	require.NoError(t, err)

	progress := progressOf(drain(h.events))
	require.NotEmpty(t, progress)

	assert.Equal(t, 0.0, progress[0].Percent)
	assert.Equal(t, "Capturing 10 frames...", progress[0].Message)

	boundary := -1
	for i, ev := range progress {
		if i > 0 {
			assert.GreaterOrEqual(t, ev.Percent, progress[i-1].Percent)
		}
		if ev.Message == "Captured frame 10/10" {
			boundary = i
		} else if strings.HasPrefix(ev.Message, "Captured frame") {
			assert.Less(t, ev.Percent, 50.0)
		}
	}
	require.Greater(t, boundary, 0)
	assert.Equal(t, 50.0, progress[boundary].Percent)
	assert.Equal(t, "Captured frame 10/10", progress[boundary].Message)
	assert.Equal(t, "Encoding GIF...", progress[boundary+1].Message)
	assert.Equal(t, 50.0, progress[boundary+1].Percent)

	final := progress[len(progress)-1]
	assert.Equal(t, 100.0, final.Percent)
	assert.Equal(t, "Complete!", final.Message)
	assert.Equal(t, "Complete!", h.exporter.Status().Message)
}

func TestExportProgressIsMonotonicWithConcurrentReports(t *testing.T) {
	h := newHarness(t, false, false)
	h.compressor.inner = &fanoutCompressor{workers: 8, steps: 50, inner: &GIFCompressor{Workers: 2}}

	_, err := h.exporter.Export(context.Background(), smallRequest())
	require.NoError(t, err)

	progress := progressOf(drain(h.events))
	require.Greater(t, len(progress), 8*50)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i].Percent, progress[i-1].Percent, "event %d", i)
	}
	assert.Equal(t, 100.0, progress[len(progress)-1].Percent)
}

func TestExportWeightsMoveBoundary(t *testing.T) {
	h := newHarness(t, false, false, WithWeights(Weights{Capture: 0.8}))

	_, err := h.exporter.Export(context.Background(), smallRequest())
	require.NoError(t, err)

	for _, ev := range progressOf(drain(h.events)) {
		if ev.Message == "Encoding GIF..." {
			assert.Equal(t, 80.0, ev.Percent)
			return
		}
	}
	t.Fatal("no encode start event")
}

func TestExportRestoresStateOnSuccess(t *testing.T) {
	for _, playing := range []bool{true, false} {
		for _, visible := range []bool{true, false} {
			h := newHarness(t, playing, visible)
			_, err := h.exporter.Export(context.Background(), smallRequest())
			require.NoError(t, err)
			assert.Equal(t, playing, h.renderer.IsPlaying())
			assert.Equal(t, visible, h.controls.ControlsVisible())
		}
	}
}

func TestExportCaptureFailureSkipsEncode(t *testing.T) {
	h := newHarness(t, true, true)
	h.surface.failAt = 42
	h.surface.err = ErrSurfaceUnavailable

	req := smallRequest()
	req.FrameRate = 10
	req.Duration = 5

	artifact, err := h.exporter.Export(context.Background(), req)
	assert.Nil(t, artifact)

	var captureErr *CaptureError
	require.ErrorAs(t, err, &captureErr)
	assert.Equal(t, 42, captureErr.Index)
	assert.ErrorIs(t, err, ErrSurfaceUnavailable)
	assert.Equal(t, 0, h.compressor.calls)

	assert.True(t, h.renderer.IsPlaying())
	assert.True(t, h.controls.ControlsVisible())
	assert.Equal(t, StateIdle, h.exporter.State())

	events := drain(h.events)
	last := events[len(events)-1]
	assert.Equal(t, EventFailed, last.Kind)
	assert.Same(t, err, last.Err)
}

func TestExportEncodeFailureRestoresState(t *testing.T) {
	h := newHarness(t, false, true)
	h.compressor.err = errors.New("out of palette")

	_, err := h.exporter.Export(context.Background(), smallRequest())
	var encodeErr *EncodeError
	require.ErrorAs(t, err, &encodeErr)
	assert.EqualError(t, encodeErr.Err, "out of palette")

	assert.False(t, h.renderer.IsPlaying())
	assert.True(t, h.controls.ControlsVisible())
}

func TestExportCancelRestoresState(t *testing.T) {
	h := newHarness(t, true, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.surface.onSnapshot = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	_, err := h.exporter.Export(ctx, smallRequest())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.True(t, h.renderer.IsPlaying())
	assert.True(t, h.controls.ControlsVisible())
	assert.Equal(t, 0, h.compressor.calls)
}

func TestExportRejectsConcurrentExport(t *testing.T) {
	h := newHarness(t, true, true)
	blocking := &blockingCompressor{
		started: make(chan struct{}),
		release: make(chan struct{}),
		inner:   &GIFCompressor{Workers: 1},
	}
	h.exporter.encoder = NewEncoder(blocking, "a.gif")

	type result struct {
		artifact *Artifact
		err      error
	}
	done := make(chan result, 1)
	go func() {
		a, err := h.exporter.Export(context.Background(), smallRequest())
		done <- result{a, err}
	}()
	<-blocking.started

	assert.Equal(t, StateEncoding, h.exporter.State())
	seeks := h.renderer.seekCount()

	_, err := h.exporter.Export(context.Background(), smallRequest())
	assert.ErrorIs(t, err, ErrExportInProgress)

	// The running export still owns the renderer.
	assert.False(t, h.renderer.IsPlaying())
	assert.False(t, h.controls.ControlsVisible())
	assert.Equal(t, seeks, h.renderer.seekCount())
	assert.Equal(t, StateEncoding, h.exporter.State())

	close(blocking.release)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, 10, res.artifact.FrameCount)
	assert.True(t, h.renderer.IsPlaying())
	assert.True(t, h.controls.ControlsVisible())

	h.exporter.encoder = NewEncoder(&GIFCompressor{Workers: 1}, "b.gif")
	_, err = h.exporter.Export(context.Background(), smallRequest())
	assert.NoError(t, err)
}

func TestExportInvalidRequestLeavesRendererAlone(t *testing.T) {
	h := newHarness(t, true, true)
	req := smallRequest()
	req.Quality = 0

	_, err := h.exporter.Export(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 0, h.renderer.seekCount())
	assert.True(t, h.renderer.IsPlaying())
}
