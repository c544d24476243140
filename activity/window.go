package activity

import (
	"time"

	"github.com/pkg/errors"
)

// Window is a time range selected to cover a number of activities.
type Window struct {
	Start time.Time
	End   time.Time
	Count int
}

// WindowForCount picks a window centred in the data that spans roughly
// target activities by start date.
func WindowForCount(acts []Activity, target int) (Window, error) {
	if len(acts) == 0 {
		return Window{}, errors.New("no activities loaded")
	}
	if target < 1 {
		target = 1
	}

	sorted := SortByStart(acts)
	mid := len(sorted) / 2
	startIndex := mid - target/2
	if startIndex < 0 {
		startIndex = 0
	}
	endIndex := startIndex + target - 1
	if endIndex > len(sorted)-1 {
		endIndex = len(sorted) - 1
	}

	return Window{
		Start: sorted[startIndex].StartDate,
		End:   sorted[endIndex].StartDate,
		Count: endIndex - startIndex + 1,
	}, nil
}
