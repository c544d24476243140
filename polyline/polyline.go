// Package polyline adapts the encoded polyline format used for activity
// summary tracks to LatLng coordinates.
package polyline

import (
	"github.com/pkg/errors"
	gopolyline "github.com/twpayne/go-polyline"
)

var (
	// ErrTruncated is returned when an encoded string ends in the middle of
	// a value or a coordinate pair.
	ErrTruncated = errors.New("polyline: truncated input")
	// ErrInvalidByte is returned for characters outside the encoding's
	// '?'..'~' alphabet.
	ErrInvalidByte = errors.New("polyline: invalid byte")
)

// LatLng is a coordinate in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// Decode converts an encoded polyline into coordinates.
func Decode(encoded string) ([]LatLng, error) {
	if encoded == "" {
		return nil, nil
	}
	for i := 0; i < len(encoded); i++ {
		if c := encoded[i]; c < '?' || c > '~' {
			return nil, errors.Wrapf(ErrInvalidByte, "%q at offset %d", c, i)
		}
	}

	coords, _, err := gopolyline.DecodeCoords([]byte(encoded))
	switch {
	case errors.Is(err, gopolyline.ErrEmpty), errors.Is(err, gopolyline.ErrUnterminatedSequence):
		return nil, errors.Wrap(ErrTruncated, err.Error())
	case errors.Is(err, gopolyline.ErrInvalidByte):
		return nil, errors.Wrap(ErrInvalidByte, err.Error())
	case err != nil:
		return nil, errors.Wrap(err, "decoding polyline")
	}

	points := make([]LatLng, len(coords))
	for i, c := range coords {
		points[i] = LatLng{Lat: c[0], Lng: c[1]}
	}
	return points, nil
}

// Encode converts coordinates into an encoded polyline.
func Encode(points []LatLng) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return string(gopolyline.EncodeCoords(coords))
}
