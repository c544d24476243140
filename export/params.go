package export

import (
	"time"

	"github.com/pkg/errors"
)

const dateOnly = "2006-01-02"

// Params is the wire form of a Request accepted over HTTP and MQTT. Zero
// fields take their value from the defaults passed to Request.
type Params struct {
	StartDate string  `json:"startDate,omitempty"`
	EndDate   string  `json:"endDate,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	FPS       float64 `json:"fps,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Quality   int     `json:"quality,omitempty"`
}

// Request resolves p over defaults. Dates are RFC3339 or YYYY-MM-DD; a
// date-only end covers the whole of that day. The result is not validated.
func (p Params) Request(defaults Request) (Request, error) {
	r := defaults

	if p.StartDate != "" {
		t, err := parseDate(p.StartDate, false)
		if err != nil {
			return r, errors.Wrapf(ErrInvalidRequest, "bad startDate %q", p.StartDate)
		}
		r.Start = t
	}
	if p.EndDate != "" {
		t, err := parseDate(p.EndDate, true)
		if err != nil {
			return r, errors.Wrapf(ErrInvalidRequest, "bad endDate %q", p.EndDate)
		}
		r.End = t
	}
	if p.Width != 0 {
		r.Width = p.Width
	}
	if p.Height != 0 {
		r.Height = p.Height
	}
	if p.FPS != 0 {
		r.FrameRate = p.FPS
	}
	if p.Duration != 0 {
		r.Duration = p.Duration
	}
	if p.Quality != 0 {
		r.Quality = p.Quality
	}
	return r, nil
}

func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}
