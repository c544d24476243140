package util

import (
	"github.com/fogleman/ease"
)

// FadeLut returns a rising InOutQuad easing table of the given length,
// running from 0 at index 0 to 1 at the last index.
func FadeLut(length int) []float64 {
	if length < 2 {
		return []float64{1}
	}
	lut := make([]float64, length)
	increment := 1.0 / float64(length-1)
	for i := range lut {
		lut[i] = ease.InOutQuad(float64(i) * increment)
	}
	return lut
}

// Sample returns the table value for t in [0,1].
func Sample(lut []float64, t float64) float64 {
	if t <= 0 {
		return lut[0]
	}
	if t >= 1 {
		return lut[len(lut)-1]
	}
	return lut[int(t*float64(len(lut)-1))]
}
