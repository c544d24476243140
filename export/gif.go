package export

import (
	"bytes"
	"context"
	"image"
	"image/gif"
	"math"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Share of the encode phase spent quantising; the rest is the final write.
const quantizeShare = 0.9

// GIFCompressor quantises frames on a pool of workers and writes a looping
// animated GIF.
type GIFCompressor struct {
	Workers int
}

// ContentType implements Compressor.
func (c *GIFCompressor) ContentType() string { return ContentTypeGIF }

// Compress implements Compressor.
func (c *GIFCompressor) Compress(ctx context.Context, frames []*image.RGBA, opts CompressOptions, progress func(float64)) ([]byte, error) {
	if len(frames) == 0 {
		return nil, errors.New("gif: no frames to encode")
	}
	for i, f := range frames {
		if f == nil {
			return nil, errors.Errorf("gif: frame %d is missing", i)
		}
		if f.Bounds().Dx() != opts.Width || f.Bounds().Dy() != opts.Height {
			return nil, errors.Errorf("gif: frame %d is %dx%d, want %dx%d",
				i, f.Bounds().Dx(), f.Bounds().Dy(), opts.Width, opts.Height)
		}
	}
	if progress == nil {
		progress = func(float64) {}
	}

	workers := c.Workers
	if workers < 1 {
		workers = 1
	}

	paletted := make([]*image.Paletted, len(frames))

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range frames {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			paletted[i] = quantize(frames[i], opts.Quality)
			frames[i] = nil

			mu.Lock()
			done++
			progress(quantizeShare * float64(done) / float64(len(paletted)))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, cancelled(ctx)
	}

	delay := gifDelay(opts.Delay.Seconds() * 1000)
	anim := &gif.GIF{
		Image:     paletted,
		Delay:     make([]int, len(paletted)),
		LoopCount: 0,
	}
	for i := range anim.Delay {
		anim.Delay[i] = delay
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, errors.Wrap(err, "gif: write")
	}
	progress(1)

	return buf.Bytes(), nil
}

// gifDelay converts milliseconds to the format's hundredths of a second.
func gifDelay(ms float64) int {
	d := int(math.Round(ms / 10))
	if d < 1 {
		d = 1
	}
	return d
}
