package export

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"
)

type fakeRenderer struct {
	mu      sync.Mutex
	playing bool
	seeks   []time.Time
}

func (r *fakeRenderer) Seek(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeks = append(r.seeks, t)
}

func (r *fakeRenderer) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing = false
}

func (r *fakeRenderer) Play() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing = true
}

func (r *fakeRenderer) IsPlaying() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing
}

func (r *fakeRenderer) seekCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seeks)
}

// idleRenderer reports busy for the first busyPolls calls to Idle.
type idleRenderer struct {
	fakeRenderer
	busyPolls int
	polls     int
}

func (r *idleRenderer) Idle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls++
	return r.polls > r.busyPolls
}

type fakeControls struct {
	mu      sync.Mutex
	visible bool
}

func (c *fakeControls) ControlsVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

func (c *fakeControls) SetControlsVisible(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = v
}

// fakeSurface returns a solid image whose shade encodes the seek count. It
// fails on the snapshot that follows seek number failAt (0-based).
type fakeSurface struct {
	renderer      *fakeRenderer
	width, height int
	failAt        int
	err           error
	onSnapshot    func(n int)
}

func newFakeSurface(r *fakeRenderer, w, h int) *fakeSurface {
	return &fakeSurface{renderer: r, width: w, height: h, failAt: -1}
}

func (s *fakeSurface) Snapshot() (image.Image, error) {
	n := s.renderer.seekCount() - 1
	if s.onSnapshot != nil {
		s.onSnapshot(n)
	}
	if s.failAt >= 0 && n == s.failAt {
		return nil, s.err
	}
	return solid(s.width, s.height, shade(n)), nil
}

func shade(n int) color.RGBA {
	return color.RGBA{R: uint8(n * 17), G: uint8(255 - n*17), B: 0x40, A: 0xff}
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

type countingCompressor struct {
	mu    sync.Mutex
	calls int
	err   error
	inner Compressor
}

func (c *countingCompressor) ContentType() string { return ContentTypeGIF }

func (c *countingCompressor) Compress(ctx context.Context, frames []*image.RGBA, opts CompressOptions, progress func(float64)) ([]byte, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Compress(ctx, frames, opts, progress)
}

// blockingCompressor waits for release before compressing.
type blockingCompressor struct {
	started chan struct{}
	release chan struct{}
	inner   Compressor
}

func (c *blockingCompressor) ContentType() string { return ContentTypeGIF }

func (c *blockingCompressor) Compress(ctx context.Context, frames []*image.RGBA, opts CompressOptions, progress func(float64)) ([]byte, error) {
	close(c.started)
	<-c.release
	return c.inner.Compress(ctx, frames, opts, progress)
}

func drain(ch <-chan Event) []Event {
	var events []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

// fanoutCompressor reports progress from several goroutines at once before
// delegating to inner.
type fanoutCompressor struct {
	workers int
	steps   int
	inner   Compressor
}

func (c *fanoutCompressor) ContentType() string { return ContentTypeGIF }

func (c *fanoutCompressor) Compress(ctx context.Context, frames []*image.RGBA, opts CompressOptions, progress func(float64)) ([]byte, error) {
	total := float64(c.workers * c.steps)
	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for s := 0; s < c.steps; s++ {
				progress(float64(s*c.workers+w) / total)
			}
		}(w)
	}
	wg.Wait()
	return c.inner.Compress(ctx, frames, opts, progress)
}
