package mapview

import (
	"math"

	"github.com/matt-g-everett/trailcast/polyline"
)

type point struct {
	X float64
	Y float64
}

// mercator projects a coordinate onto the unit Web Mercator square.
func mercator(ll polyline.LatLng) point {
	lat := math.Max(-85.05112878, math.Min(85.05112878, ll.Lat))
	rad := lat * math.Pi / 180
	return point{
		X: (ll.Lng + 180) / 360,
		Y: (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2,
	}
}

// viewport maps projected points into a width x height pixel area.
type viewport struct {
	scale   float64
	offsetX float64
	offsetY float64
}

// fitBounds returns the viewport that centres pts with padding on every side.
func fitBounds(pts []point, width, height int, padding float64) viewport {
	if len(pts) == 0 {
		return viewport{scale: 1}
	}

	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	availW := math.Max(1, float64(width)-2*padding)
	availH := math.Max(1, float64(height)-2*padding)
	dx, dy := maxX-minX, maxY-minY

	var scale float64
	switch {
	case dx == 0 && dy == 0:
		scale = 1
	case dx == 0:
		scale = availH / dy
	case dy == 0:
		scale = availW / dx
	default:
		scale = math.Min(availW/dx, availH/dy)
	}

	return viewport{
		scale:   scale,
		offsetX: float64(width)/2 - (minX+dx/2)*scale,
		offsetY: float64(height)/2 - (minY+dy/2)*scale,
	}
}

func (v viewport) toPixel(p point) point {
	return point{X: p.X*v.scale + v.offsetX, Y: p.Y*v.scale + v.offsetY}
}
