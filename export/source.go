package export

import (
	"context"
	"image"
	"time"

	"golang.org/x/image/draw"
)

// Renderer is a time-seekable animation. Seek is not safe for concurrent use.
type Renderer interface {
	Seek(instant time.Time)
	Pause()
	Play()
	IsPlaying() bool
}

// Idler is implemented by renderers that can report when an asynchronous
// redraw has finished.
type Idler interface {
	Idle() bool
}

// Surface produces raster snapshots of what the renderer currently shows.
type Surface interface {
	Snapshot() (image.Image, error)
}

// Controls is an on-screen overlay that must not appear in captured frames.
type Controls interface {
	ControlsVisible() bool
	SetControlsVisible(visible bool)
}

// Capturer produces the frame for a given instant.
type Capturer interface {
	Capture(ctx context.Context, index int, instant time.Time, width, height int) (*Frame, error)
}

// FrameSource seeks a renderer and samples its surface at a target size.
type FrameSource struct {
	renderer Renderer
	surface  Surface
	settle   time.Duration
	idlePoll time.Duration
	scaler   draw.Scaler
}

// NewFrameSource creates a FrameSource. After every seek it waits settle
// and, when the renderer is an Idler, polls Idle every idlePoll until the
// redraw is done.
func NewFrameSource(renderer Renderer, surface Surface, settle, idlePoll time.Duration) *FrameSource {
	if idlePoll <= 0 {
		idlePoll = 10 * time.Millisecond
	}
	return &FrameSource{
		renderer: renderer,
		surface:  surface,
		settle:   settle,
		idlePoll: idlePoll,
		scaler:   draw.ApproxBiLinear,
	}
}

// Capture seeks to instant and returns a width x height snapshot.
func (s *FrameSource) Capture(ctx context.Context, index int, instant time.Time, width, height int) (*Frame, error) {
	s.renderer.Seek(instant)

	if err := s.waitForRender(ctx); err != nil {
		return nil, err
	}

	src, err := s.surface.Snapshot()
	if err != nil {
		return nil, err
	}

	return &Frame{
		index:   index,
		instant: instant,
		img:     s.fit(src, width, height),
	}, nil
}

func (s *FrameSource) waitForRender(ctx context.Context) error {
	if s.settle > 0 {
		timer := time.NewTimer(s.settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return cancelled(ctx)
		case <-timer.C:
		}
	}

	idler, ok := s.renderer.(Idler)
	if !ok || idler.Idle() {
		return nil
	}

	ticker := time.NewTicker(s.idlePoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return cancelled(ctx)
		case <-ticker.C:
			if idler.Idle() {
				return nil
			}
		}
	}
}

// fit scales src to cover width x height and crops the overflow evenly.
func (s *FrameSource) fit(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	sb := src.Bounds()

	if sb.Dx() == width && sb.Dy() == height {
		draw.Copy(dst, image.Point{}, src, sb, draw.Src, nil)
		return dst
	}

	crop := sb
	if sb.Dx()*height > sb.Dy()*width {
		w := sb.Dy() * width / height
		crop.Min.X += (sb.Dx() - w) / 2
		crop.Max.X = crop.Min.X + w
	} else {
		h := sb.Dx() * height / width
		crop.Min.Y += (sb.Dy() - h) / 2
		crop.Max.Y = crop.Min.Y + h
	}

	s.scaler.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}
