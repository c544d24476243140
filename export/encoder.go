package export

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CompressOptions are the per-export parameters handed to a Compressor.
type CompressOptions struct {
	Width   int
	Height  int
	Delay   time.Duration
	Quality int
}

// Compressor turns ordered rasters into one animated image. It takes
// ownership of frames and may clear entries once they are consumed. The
// output frame order must equal the input order. progress may be called
// from any goroutine, concurrently; the Encoder serializes the reports.
type Compressor interface {
	Compress(ctx context.Context, frames []*image.RGBA, opts CompressOptions, progress func(fraction float64)) ([]byte, error)
	ContentType() string
}

// Encoder wraps a Compressor and produces Artifacts.
type Encoder struct {
	compressor Compressor
	filename   string
	log        *logrus.Entry
}

// NewEncoder creates an Encoder. filename is the suggested name of the
// artifacts it produces.
func NewEncoder(compressor Compressor, filename string) *Encoder {
	return &Encoder{
		compressor: compressor,
		filename:   filename,
		log:        logrus.WithField("component", "encoder"),
	}
}

// Encode compresses seq. The sequence is released once handed to the
// compressor.
func (e *Encoder) Encode(ctx context.Context, seq *Sequence, frameRate float64, quality, width, height int, progress ProgressFunc) (*Artifact, error) {
	if seq == nil {
		return nil, &EncodeError{Err: errors.New("no frame sequence")}
	}
	if frameRate <= 0 {
		return nil, &EncodeError{Err: errors.Errorf("frame rate must be positive, got %v", frameRate)}
	}

	delay := frameDelay(frameRate)
	count := seq.Len()
	opts := CompressOptions{Width: width, Height: height, Delay: delay, Quality: quality}

	e.log.WithFields(logrus.Fields{
		"frames":  count,
		"delay":   delay,
		"quality": quality,
	}).Debug("Encoding frames")

	var reportMu sync.Mutex
	report := func(fraction float64) {
		if progress == nil {
			return
		}
		reportMu.Lock()
		defer reportMu.Unlock()
		progress(fraction, fmt.Sprintf("Encoding GIF... %d%%", int(math.Round(fraction*100))))
	}

	data, err := e.compressor.Compress(ctx, seq.images(), opts, report)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		e.log.WithError(err).Error("Compression failed")
		return nil, &EncodeError{Err: err}
	}

	return NewArtifact(data, e.compressor.ContentType(), e.filename, count, delay), nil
}
