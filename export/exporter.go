// Package export captures a time range of a rendered animation as frames and
// encodes them into a single animated image.
//
// One export runs at a time per process. An Exporter pauses the renderer and
// hides its controls for the duration of an export, captures the frames in
// order, encodes them and restores the renderer on every exit path.
package export

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// State is the lifecycle position of an Exporter.
type State int32

const (
	StateIdle State = iota
	StateCapturing
	StateEncoding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateEncoding:
		return "encoding"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Exporter runs the capture and encode phases of an export.
type Exporter struct {
	renderer  Renderer
	controls  Controls
	sequencer *Sequencer
	encoder   *Encoder
	events    *Broadcaster
	lease     *Lease
	weights   Weights
	log       *logrus.Entry

	state  atomic.Int32
	mu     sync.Mutex
	status Status
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithControls sets the overlay hidden while frames are captured.
func WithControls(c Controls) Option {
	return func(e *Exporter) { e.controls = c }
}

// WithEvents publishes progress and terminal events to b.
func WithEvents(b *Broadcaster) Option {
	return func(e *Exporter) { e.events = b }
}

// WithLease replaces the process-wide lease.
func WithLease(l *Lease) Option {
	return func(e *Exporter) { e.lease = l }
}

// WithWeights changes how the two phases share the progress scale.
func WithWeights(w Weights) Option {
	return func(e *Exporter) {
		if w.Capture > 0 && w.Capture < 1 {
			e.weights = w
		}
	}
}

// NewExporter creates an Exporter around renderer.
func NewExporter(renderer Renderer, sequencer *Sequencer, encoder *Encoder, opts ...Option) *Exporter {
	e := &Exporter{
		renderer:  renderer,
		sequencer: sequencer,
		encoder:   encoder,
		lease:     &processLease,
		weights:   DefaultWeights(),
		log:       logrus.WithField("component", "exporter"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.events == nil {
		e.events = NewBroadcaster()
	}
	return e
}

// Events returns the broadcaster the exporter publishes to.
func (e *Exporter) Events() *Broadcaster {
	return e.events
}

// State returns the current lifecycle state.
func (e *Exporter) State() State {
	return State(e.state.Load())
}

// Status returns the state together with the last reported progress.
func (e *Exporter) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.status
	s.State = e.State()
	return s
}

// Export captures and encodes req. It fails immediately with
// ErrExportInProgress while another export holds the lease. The renderer's
// playback state and the controls' visibility are restored before Export
// returns, whatever the outcome.
func (e *Exporter) Export(ctx context.Context, req Request) (artifact *Artifact, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, err := e.lease.Acquire()
	if err != nil {
		e.log.Warn("Export rejected, another export is running")
		return nil, err
	}
	defer session.Release()

	log := e.log.WithField("session", session.ID)
	frameCount := req.FrameCount()
	log.WithFields(logrus.Fields{
		"start":   req.Start,
		"end":     req.End,
		"size":    fmt.Sprintf("%dx%d", req.Width, req.Height),
		"fps":     req.FrameRate,
		"frames":  frameCount,
		"quality": req.Quality,
	}).Info("Starting export")

	session.takeOver(e.renderer, e.controls)
	defer func() {
		session.handBack()
		e.state.Store(int32(StateIdle))
		if err != nil {
			log.WithError(err).Error("Export failed")
			e.events.Publish(Event{Kind: EventFailed, Session: session.ID, Err: err})
			return
		}
		log.WithFields(logrus.Fields{"bytes": artifact.Size()}).Info("Export complete")
		e.events.Publish(Event{Kind: EventComplete, Session: session.ID, Percent: 100, Artifact: artifact})
	}()

	t := &tracker{weights: e.weights, session: session.ID, emit: e.emit}

	e.state.Store(int32(StateCapturing))
	t.capture(0, fmt.Sprintf("Capturing %d frames...", frameCount))
	seq, err := e.sequencer.CaptureRange(ctx, req, t.capture)
	if err != nil {
		return nil, err
	}
	defer seq.Release()

	e.state.Store(int32(StateEncoding))
	t.encode(0, "Encoding GIF...")
	artifact, err = e.encoder.Encode(ctx, seq, req.FrameRate, req.Quality, req.Width, req.Height, t.encode)
	if err != nil {
		return nil, err
	}

	t.report(100, "Complete!")
	return artifact, nil
}

func (e *Exporter) emit(ev Event) {
	e.mu.Lock()
	e.status = Status{Session: ev.Session, Percent: ev.Percent, Message: ev.Message}
	e.mu.Unlock()
	e.events.Publish(ev)
}
