package store

import (
	"strings"
	"time"

	"github.com/kapu/youtube-dashboard-go/internal/domain"
	"github.com/kapu/youtube-dashboard-go/pkg/errors"
)

var presetLookbackDays = map[domain.DateRangeMode]int{
	domain.DateRangeLast30Days: 30,
	domain.DateRangeLast60Days: 60,
	domain.DateRangeLast90Days: 90,
	domain.DateRangeLastYear:   365,
}

// DateRange is a resolved query window. A zero Start means unbounded.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) StartString() string {
	if r.Start.IsZero() {
		return ""
	}
	return r.Start.Format(domain.DateLayout)
}

func (r DateRange) EndString() string {
	if r.End.IsZero() {
		return ""
	}
	return r.End.Format(domain.DateLayout)
}

// Days returns the whole-day span between Start and End.
func (r DateRange) Days() int {
	if r.Start.IsZero() {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// ResolveDateRange turns a mode into concrete bounds. Presets look back a
// fixed number of days from now; allTime has no start; custom uses the given
// bounds, swapped when reversed.
func ResolveDateRange(mode domain.DateRangeMode, customStart, customEnd string, now time.Time) (DateRange, error) {
	if days, ok := presetLookbackDays[mode]; ok {
		return DateRange{Start: now.AddDate(0, 0, -days), End: now}, nil
	}

	switch mode {
	case domain.DateRangeAllTime, "":
		return DateRange{End: now}, nil
	case domain.DateRangeCustom:
		start, end, err := ParseCustomBounds(customStart, customEnd)
		if err != nil {
			return DateRange{}, err
		}
		return DateRange{Start: start, End: end}, nil
	default:
		return DateRange{}, errors.NewValidationError("Unknown date range", "date_range", string(mode))
	}
}

// ParseCustomBounds validates a custom range and orders it.
func ParseCustomBounds(startStr, endStr string) (time.Time, time.Time, error) {
	startStr, endStr = strings.TrimSpace(startStr), strings.TrimSpace(endStr)
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, errors.NewValidationError("Custom date range requires both start and end dates", "custom_range", []string{startStr, endStr})
	}
	start, err := time.Parse(domain.DateLayout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.NewValidationError("Invalid start date", "custom_start", startStr)
	}
	end, err := time.Parse(domain.DateLayout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.NewValidationError("Invalid end date", "custom_end", endStr)
	}
	if end.Before(start) {
		start, end = end, start
	}
	return start, end, nil
}
