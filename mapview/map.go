// Package mapview renders activity tracks onto a headless Web Mercator map
// whose playback cursor progressively reveals each track over its elapsed
// time. A Map is the seekable renderer and raster surface used by exports.
package mapview

import (
	"image"
	"math"
	"sync"
	"time"

	"github.com/gogpu/gg"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/trailcast/activity"
	"github.com/matt-g-everett/trailcast/config"
	"github.com/matt-g-everett/trailcast/export"
	"github.com/matt-g-everett/trailcast/polyline"
	"github.com/matt-g-everett/trailcast/util"
)

const (
	controlsHeight = 36.0
	fadeLutLength  = 256
)

type track struct {
	id      int64
	start   time.Time
	elapsed time.Duration
	colour  colorful.Color
	points  []point
}

// Map is a headless animated map. Seek, Pause, Play and SetControlsVisible
// schedule a redraw on a background goroutine; Idle reports when the latest
// one has been rasterised. Close stops the redraw goroutine.
type Map struct {
	width      int
	height     int
	background colorful.Color
	lineWidth  float64
	opacity    float64
	fade       time.Duration
	lut        []float64
	tracks     []track
	start      time.Time
	end        time.Time

	mu        sync.Mutex
	cursor    time.Time
	playing   bool
	controls  bool
	mounted   bool
	requested uint64
	rendered  uint64
	frame     *image.RGBA

	dc   *gg.Context
	wake chan struct{}
	quit chan struct{}
	done chan struct{}
	once sync.Once
	log  *logrus.Entry
}

// New builds a Map of the activities with a track, sized and styled by the
// map section of cfg. The cursor starts at the earliest activity start.
func New(cfg config.Config, acts []activity.Activity) (*Map, error) {
	background, err := colorful.Hex(cfg.Map.Background)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid map background %q", cfg.Map.Background)
	}
	if cfg.Map.Width <= 0 || cfg.Map.Height <= 0 {
		return nil, errors.Errorf("map size must be positive, got %dx%d", cfg.Map.Width, cfg.Map.Height)
	}

	m := &Map{
		width:      cfg.Map.Width,
		height:     cfg.Map.Height,
		background: background,
		lineWidth:  cfg.Map.LineWidth,
		opacity:    cfg.Map.Opacity,
		fade:       cfg.Map.Fade,
		lut:        util.FadeLut(fadeLutLength),
		playing:    true,
		controls:   true,
		mounted:    true,
		dc:         gg.NewContext(cfg.Map.Width, cfg.Map.Height),
		wake:       make(chan struct{}, 1),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		log:        logrus.WithField("component", "mapview"),
	}

	sorted := activity.SortByStart(acts)

	var projected []point
	for _, a := range sorted {
		if !a.HasTrack() {
			continue
		}
		coords, err := polyline.Decode(a.Map.SummaryPolyline)
		if err != nil {
			m.log.WithError(err).WithField("activity", a.ID).Warn("Skipping activity with invalid polyline")
			continue
		}
		pts := make([]point, len(coords))
		for i, ll := range coords {
			pts[i] = mercator(ll)
		}
		projected = append(projected, pts...)
		m.tracks = append(m.tracks, track{
			id:      a.ID,
			start:   a.StartDate,
			elapsed: a.Elapsed(),
			colour:  colourFor(a.Type),
			points:  pts,
		})
	}

	if start, end, ok := activity.Span(sorted); ok {
		m.start, m.end = start, end
	}

	vp := fitBounds(projected, m.width, m.height, cfg.Map.Padding)
	for i := range m.tracks {
		for j, p := range m.tracks[i].points {
			m.tracks[i].points[j] = vp.toPixel(p)
		}
	}

	m.cursor = m.start
	m.frame = m.render(m.cursor, m.controls, m.playing)

	m.log.WithFields(logrus.Fields{
		"tracks": len(m.tracks),
		"start":  m.start,
		"end":    m.end,
	}).Info("Map ready")

	go m.redrawLoop()
	return m, nil
}

// Close stops the redraw goroutine and releases the drawing context.
func (m *Map) Close() error {
	var err error
	m.once.Do(func() {
		close(m.quit)
		<-m.done
		err = m.dc.Close()
	})
	return err
}

// Size returns the pixel dimensions of the map surface.
func (m *Map) Size() (int, int) {
	return m.width, m.height
}

// Span returns the time range covered by the map's activities.
func (m *Map) Span() (time.Time, time.Time) {
	return m.start, m.end
}

// Tracks returns the number of drawable tracks.
func (m *Map) Tracks() int {
	return len(m.tracks)
}

// Cursor returns the current playback instant.
func (m *Map) Cursor() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// Seek moves the cursor to instant and schedules a redraw.
func (m *Map) Seek(instant time.Time) {
	m.mu.Lock()
	m.cursor = instant
	m.invalidate()
	m.mu.Unlock()
}

// Pause stops the Player from advancing the cursor.
func (m *Map) Pause() {
	m.mu.Lock()
	m.playing = false
	m.invalidate()
	m.mu.Unlock()
}

// Play resumes cursor advancement.
func (m *Map) Play() {
	m.mu.Lock()
	m.playing = true
	m.invalidate()
	m.mu.Unlock()
}

// IsPlaying reports whether the cursor is advancing.
func (m *Map) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// ControlsVisible reports whether the playback bar is drawn.
func (m *Map) ControlsVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controls
}

// SetControlsVisible shows or hides the playback bar.
func (m *Map) SetControlsVisible(visible bool) {
	m.mu.Lock()
	m.controls = visible
	m.invalidate()
	m.mu.Unlock()
}

// Idle reports whether every scheduled redraw has completed.
func (m *Map) Idle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rendered == m.requested
}

// Mount makes the surface available for snapshots.
func (m *Map) Mount() {
	m.mu.Lock()
	m.mounted = true
	m.mu.Unlock()
}

// Unmount withdraws the surface. Snapshots fail until it is mounted again.
func (m *Map) Unmount() {
	m.mu.Lock()
	m.mounted = false
	m.mu.Unlock()
}

// Snapshot returns the most recently completed redraw. The returned image
// is never written to again.
func (m *Map) Snapshot() (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return nil, export.ErrSurfaceUnavailable
	}
	return m.frame, nil
}

// advance moves a playing cursor forward by d, wrapping to the start once it
// passes the end of the span.
func (m *Map) advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return
	}
	m.cursor = m.cursor.Add(d)
	if m.cursor.After(m.end) {
		m.cursor = m.start
	}
	m.invalidate()
}

// invalidate must be called with mu held.
func (m *Map) invalidate() {
	m.requested++
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Map) redrawLoop() {
	defer close(m.done)
	for {
		select {
		case <-m.quit:
			return
		case <-m.wake:
			m.mu.Lock()
			generation := m.requested
			cursor, controls, playing := m.cursor, m.controls, m.playing
			m.mu.Unlock()

			frame := m.render(cursor, controls, playing)

			m.mu.Lock()
			m.frame = frame
			m.rendered = generation
			m.mu.Unlock()
		}
	}
}

// render draws the map at cursor. Only New and redrawLoop call it, never
// concurrently, so the drawing context needs no lock.
func (m *Map) render(cursor time.Time, controls, playing bool) *image.RGBA {
	dc := m.dc
	dc.ClearWithColor(gg.RGB(m.background.R, m.background.G, m.background.B))
	dc.SetLineWidth(m.lineWidth)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	for _, t := range m.tracks {
		if cursor.Before(t.start) {
			break
		}
		m.drawTrack(t, cursor)
	}

	if controls {
		m.drawControls(cursor, playing)
	}

	if err := dc.FlushGPU(); err != nil {
		m.log.WithError(err).Warn("Failed to flush drawing")
	}
	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		m.log.Error("Unexpected image type from drawing context")
		return image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	}
	return img
}

func (m *Map) drawTrack(t track, cursor time.Time) {
	if len(t.points) == 0 {
		return
	}

	age := cursor.Sub(t.start)
	revealed := 1.0
	if t.elapsed > 0 && age < t.elapsed {
		revealed = float64(age) / float64(t.elapsed)
	}
	n := int(math.Ceil(revealed*float64(len(t.points)-1))) + 1
	if n > len(t.points) {
		n = len(t.points)
	}

	settled := 1.0
	if m.fade > 0 {
		settled = util.Sample(m.lut, float64(age)/float64(m.fade))
	}
	c := trackColour(t.colour, settled)
	alpha := m.opacity + (1-m.opacity)*(1-settled)

	dc := m.dc
	dc.SetRGBA(c.R, c.G, c.B, alpha)
	if n == 1 {
		dc.DrawCircle(t.points[0].X, t.points[0].Y, m.lineWidth/2)
		if err := dc.Fill(); err != nil {
			m.log.WithError(err).WithField("activity", t.id).Debug("Failed to draw track")
		}
		return
	}
	dc.MoveTo(t.points[0].X, t.points[0].Y)
	for _, p := range t.points[1:n] {
		dc.LineTo(p.X, p.Y)
	}
	if err := dc.Stroke(); err != nil {
		m.log.WithError(err).WithField("activity", t.id).Debug("Failed to draw track")
	}
}

// drawControls draws the playback bar along the bottom edge.
func (m *Map) drawControls(cursor time.Time, playing bool) {
	dc := m.dc
	w, h := float64(m.width), float64(m.height)
	top := h - controlsHeight

	bar := mustHex(controlsColour)
	dc.SetRGBA(bar.R, bar.G, bar.B, 0.75)
	dc.DrawRectangle(0, top, w, controlsHeight)
	if err := dc.Fill(); err != nil {
		m.log.WithError(err).Debug("Failed to draw controls")
		return
	}

	// Play triangle or pause bars.
	dc.SetRGBA(1, 1, 1, 0.9)
	if playing {
		dc.DrawRectangle(12, top+10, 5, 16)
		dc.DrawRectangle(21, top+10, 5, 16)
	} else {
		dc.MoveTo(12, top+10)
		dc.LineTo(26, top+18)
		dc.LineTo(12, top+26)
		dc.ClosePath()
	}
	if err := dc.Fill(); err != nil {
		m.log.WithError(err).Debug("Failed to draw controls")
	}

	progress := 0.0
	if span := m.end.Sub(m.start); span > 0 {
		progress = math.Max(0, math.Min(1, float64(cursor.Sub(m.start))/float64(span)))
	}
	left, right := 40.0, w-12
	if right <= left {
		return
	}
	dc.SetRGBA(1, 1, 1, 0.3)
	dc.DrawRectangle(left, top+16, right-left, 4)
	if err := dc.Fill(); err != nil {
		m.log.WithError(err).Debug("Failed to draw controls")
	}
	accent := colourFor("Run")
	dc.SetRGBA(accent.R, accent.G, accent.B, 1)
	dc.DrawRectangle(left, top+16, (right-left)*progress, 4)
	if err := dc.Fill(); err != nil {
		m.log.WithError(err).Debug("Failed to draw controls")
	}
}
