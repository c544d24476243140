package export

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// Quality bounds. Lower values spend more passes on colour accuracy.
const (
	MinQuality = 1
	MaxQuality = 30
)

// Request describes one export. It is read-only input to the pipeline.
type Request struct {
	Start time.Time
	End   time.Time

	Width  int
	Height int

	// FrameRate is in frames per second.
	FrameRate float64
	// Duration is the playback length of the artifact in seconds.
	Duration float64
	Quality  int
}

// FrameCount is floor(Duration * FrameRate).
func (r Request) FrameCount() int {
	return int(math.Floor(r.Duration * r.FrameRate))
}

// Step is the animation time between consecutive frames.
func (r Request) Step() time.Duration {
	n := r.FrameCount()
	if n < 1 {
		return 0
	}
	return r.End.Sub(r.Start) / time.Duration(n)
}

// Instant returns the display instant of frame i.
func (r Request) Instant(i int) time.Time {
	return r.Start.Add(r.Step() * time.Duration(i))
}

// Delay is the display time of every frame, 1000/FrameRate milliseconds.
func (r Request) Delay() time.Duration {
	return frameDelay(r.FrameRate)
}

// Validate checks the request constraints.
func (r Request) Validate() error {
	switch {
	case r.Width <= 0 || r.Height <= 0:
		return errors.Wrapf(ErrInvalidRequest, "dimensions must be positive, got %dx%d", r.Width, r.Height)
	case r.FrameRate <= 0:
		return errors.Wrapf(ErrInvalidRequest, "frame rate must be positive, got %v", r.FrameRate)
	case r.Duration <= 0:
		return errors.Wrapf(ErrInvalidRequest, "duration must be positive, got %v", r.Duration)
	case r.Quality < MinQuality || r.Quality > MaxQuality:
		return errors.Wrapf(ErrInvalidRequest, "quality must be within %d..%d, got %d", MinQuality, MaxQuality, r.Quality)
	case r.FrameCount() < 1:
		return errors.Wrapf(ErrInvalidRequest, "duration %vs at %v fps yields no frames", r.Duration, r.FrameRate)
	case !r.End.After(r.Start):
		return errors.Wrapf(ErrInvalidRequest, "end %s is not after start %s", r.End, r.Start)
	case r.Step() <= 0:
		return errors.Wrapf(ErrInvalidRequest, "time window too short for %d frames", r.FrameCount())
	}
	return nil
}

func frameDelay(frameRate float64) time.Duration {
	return time.Duration(float64(time.Second) / frameRate)
}
