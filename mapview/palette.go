package mapview

import (
	"github.com/lucasb-eyer/go-colorful"
)

// Colours by activity type. Types not listed use defaultColour.
var activityColours = map[string]string{
	"Run":  "#fc4c02",
	"Ride": "#0066cc",
	"Swim": "#00cccc",
	"Walk": "#66cc00",
	"Hike": "#996600",
}

const (
	defaultColour   = "#888888"
	highlightColour = "#ffd200"
	controlsColour  = "#202020"
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

func colourFor(activityType string) colorful.Color {
	if hex, ok := activityColours[activityType]; ok {
		return mustHex(hex)
	}
	return mustHex(defaultColour)
}

// trackColour blends from the highlight colour of a fresh track to its base
// colour as settled goes from 0 to 1.
func trackColour(base colorful.Color, settled float64) colorful.Color {
	return mustHex(highlightColour).BlendHcl(base, settled).Clamped()
}
