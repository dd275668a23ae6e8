package store

import (
	"strconv"
	"time"

	"github.com/kapu/youtube-dashboard-go/internal/domain"
)

const labelDateLayout = "Jan 2, 2006"

var dateRangeNames = map[domain.DateRangeMode]string{
	domain.DateRangeAllTime:    "All time",
	domain.DateRangeLast30Days: "Last 30 days",
	domain.DateRangeLast60Days: "Last 60 days",
	domain.DateRangeLast90Days: "Last 90 days",
	domain.DateRangeLastYear:   "Last 12 months",
}

// ChannelSelectionLabel names the current channel selection.
func (s *FilterStore) ChannelSelectionLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ChannelSelectionLabel(s.state.ChannelIDs, s.state.Channels)
}

// DateRangeLabel names the current date range.
func (s *FilterStore) DateRangeLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DateRangeLabel(s.state.DateRange, s.state.CustomStartDate, s.state.CustomEndDate)
}

func ChannelSelectionLabel(selected []string, channels []domain.Channel) string {
	switch {
	case len(selected) == 0, len(selected) == len(channels):
		return "All channels"
	case len(selected) == 1:
		if ch, ok := domain.FindChannel(channels, selected[0]); ok && ch.Title != "" {
			return ch.Title
		}
		return "Selected channel"
	default:
		return strconv.Itoa(len(selected)) + " channels"
	}
}

func DateRangeLabel(mode domain.DateRangeMode, customStart, customEnd string) string {
	if mode == domain.DateRangeCustom {
		if customStart == "" || customEnd == "" {
			return "All time"
		}
		start, err := time.Parse(domain.DateLayout, customStart)
		if err != nil {
			return "Custom range"
		}
		end, err := time.Parse(domain.DateLayout, customEnd)
		if err != nil {
			return "Custom range"
		}
		return start.Format(labelDateLayout) + " - " + end.Format(labelDateLayout)
	}
	if name, ok := dateRangeNames[mode]; ok {
		return name
	}
	return "All time"
}
