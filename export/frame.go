package export

import (
	"image"
	"time"

	"github.com/pkg/errors"
)

// Frame is one captured raster. It is never modified after capture.
type Frame struct {
	index   int
	instant time.Time
	img     *image.RGBA
}

// Index is the 0-based ordinal of the frame within its sequence.
func (f *Frame) Index() int { return f.index }

// Instant is the animation time the frame shows.
func (f *Frame) Instant() time.Time { return f.instant }

// Image returns the frame raster. Callers must not modify it.
func (f *Frame) Image() *image.RGBA { return f.img }

// Sequence is the ordered, gap-free set of frames of one export.
type Sequence struct {
	frames []*Frame
}

func newSequence(capacity int) *Sequence {
	return &Sequence{frames: make([]*Frame, 0, capacity)}
}

func (s *Sequence) append(f *Frame) error {
	if f.index != len(s.frames) {
		return errors.Errorf("frame %d appended at position %d", f.index, len(s.frames))
	}
	s.frames = append(s.frames, f)
	return nil
}

// Len returns the number of frames.
func (s *Sequence) Len() int { return len(s.frames) }

// At returns frame i.
func (s *Sequence) At(i int) *Frame { return s.frames[i] }

// Release drops the references to the captured rasters.
func (s *Sequence) Release() {
	s.frames = nil
}

// images hands the rasters over in order and releases the sequence's
// references to them.
func (s *Sequence) images() []*image.RGBA {
	out := make([]*image.RGBA, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.img
	}
	s.Release()
	return out
}
