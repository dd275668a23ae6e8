package domain

import "strings"

// DateRangeMode is a preset lookback or an explicit custom range.
type DateRangeMode string

const (
	DateRangeAllTime    DateRangeMode = "allTime"
	DateRangeLast30Days DateRangeMode = "last30days"
	DateRangeLast60Days DateRangeMode = "last60days"
	DateRangeLast90Days DateRangeMode = "last90days"
	DateRangeLastYear   DateRangeMode = "lastYear"
	DateRangeCustom     DateRangeMode = "custom"
)

// ParseDateRangeMode accepts the canonical names plus the legacy "last12months".
func ParseDateRangeMode(s string) (DateRangeMode, bool) {
	switch strings.TrimSpace(s) {
	case "allTime", "":
		return DateRangeAllTime, true
	case "last30days":
		return DateRangeLast30Days, true
	case "last60days":
		return DateRangeLast60Days, true
	case "last90days":
		return DateRangeLast90Days, true
	case "lastYear", "last12months":
		return DateRangeLastYear, true
	case "custom":
		return DateRangeCustom, true
	default:
		return "", false
	}
}

// StatMode selects how several channels' stats are folded together.
type StatMode string

const (
	StatModeTotal   StatMode = "total"
	StatModeAverage StatMode = "average"
)

func ParseStatMode(s string) (StatMode, bool) {
	switch StatMode(strings.ToLower(strings.TrimSpace(s))) {
	case StatModeTotal:
		return StatModeTotal, true
	case StatModeAverage:
		return StatModeAverage, true
	default:
		return "", false
	}
}

// DateLayout is the wire format for date-only values.
const DateLayout = "2006-01-02"
