package mapview

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matt-g-everett/trailcast/polyline"
)

func TestMercator(t *testing.T) {
	p := mercator(polyline.LatLng{Lat: 0, Lng: 0})
	assert.InDelta(t, 0.5, p.X, 1e-9)
	assert.InDelta(t, 0.5, p.Y, 1e-9)

	north := mercator(polyline.LatLng{Lat: 60, Lng: 90})
	assert.InDelta(t, 0.75, north.X, 1e-9)
	assert.Less(t, north.Y, 0.5)

	pole := mercator(polyline.LatLng{Lat: 90, Lng: 0})
	assert.InDelta(t, 0, pole.Y, 1e-6)
}

func TestFitBoundsCentresWithPadding(t *testing.T) {
	pts := []point{{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.25}}
	vp := fitBounds(pts, 200, 100, 10)

	a, b := vp.toPixel(pts[0]), vp.toPixel(pts[1])
	assert.InDelta(t, 100, (a.X+b.X)/2, 1e-9)
	assert.InDelta(t, 50, (a.Y+b.Y)/2, 1e-9)
	// Width limited: 180px of room over 0.2 units.
	assert.InDelta(t, 180, b.X-a.X, 1e-9)
	assert.InDelta(t, 45, b.Y-a.Y, 1e-9)
}

func TestFitBoundsSinglePoint(t *testing.T) {
	vp := fitBounds([]point{{X: 0.4, Y: 0.6}}, 50, 40, 5)
	p := vp.toPixel(point{X: 0.4, Y: 0.6})
	assert.InDelta(t, 25, p.X, 1e-9)
	assert.InDelta(t, 20, p.Y, 1e-9)
}

func TestTrackColourFadesFromHighlight(t *testing.T) {
	base := colourFor("Ride")
	assert.InDelta(t, 0, trackColour(base, 0).DistanceRgb(mustHex(highlightColour)), 0.01)
	assert.InDelta(t, 0, trackColour(base, 1).DistanceRgb(base), 0.01)
	assert.Equal(t, mustHex(defaultColour), colourFor("Kitesurf"))
}
