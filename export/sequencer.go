package export

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ProgressFunc receives the fraction of a phase completed, in [0,1].
type ProgressFunc func(fraction float64, message string)

// Sequencer captures the frames of a request in ascending order.
type Sequencer struct {
	source Capturer
	log    *logrus.Entry
}

// NewSequencer creates a Sequencer drawing frames from source.
func NewSequencer(source Capturer) *Sequencer {
	return &Sequencer{
		source: source,
		log:    logrus.WithField("component", "sequencer"),
	}
}

// CaptureRange captures FrameCount frames evenly spaced across the request
// window. Any failure aborts the whole range.
func (s *Sequencer) CaptureRange(ctx context.Context, req Request, progress ProgressFunc) (*Sequence, error) {
	n := req.FrameCount()
	step := req.Step()
	seq := newSequence(n)

	s.log.WithFields(logrus.Fields{"frames": n, "step": step}).Debug("Capturing range")

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			seq.Release()
			return nil, cancelled(ctx)
		}

		instant := req.Instant(i)
		frame, err := s.source.Capture(ctx, i, instant, req.Width, req.Height)
		if err != nil {
			seq.Release()
			if errors.Is(err, ErrCancelled) {
				return nil, err
			}
			s.log.WithError(err).WithField("frame", i).Error("Frame capture failed")
			return nil, &CaptureError{Index: i, Err: err}
		}
		if err := seq.append(frame); err != nil {
			seq.Release()
			return nil, &CaptureError{Index: i, Err: err}
		}

		if progress != nil {
			progress(float64(i+1)/float64(n), fmt.Sprintf("Captured frame %d/%d", i+1, n))
		}
	}

	return seq, nil
}
