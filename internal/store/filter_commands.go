package store

import (
	"slices"
	"strings"

	"github.com/kapu/youtube-dashboard-go/internal/domain"
	"github.com/kapu/youtube-dashboard-go/pkg/errors"
)

// ChangeKind flags which part of the selection a command touched.
type ChangeKind uint8

const (
	ChangeChannels ChangeKind = 1 << iota
	ChangeDateRange
	ChangeStatMode
	ChangePage
)

// Changes that make an outstanding fetch's result stale.
const invalidatingChanges = ChangeChannels | ChangeDateRange | ChangePage

func (k ChangeKind) Has(flag ChangeKind) bool {
	return k&flag != 0
}

func (k ChangeKind) String() string {
	var parts []string
	if k.Has(ChangeChannels) {
		parts = append(parts, "channels")
	}
	if k.Has(ChangeDateRange) {
		parts = append(parts, "date_range")
	}
	if k.Has(ChangeStatMode) {
		parts = append(parts, "stat_mode")
	}
	if k.Has(ChangePage) {
		parts = append(parts, "page")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// SelectionChanged is emitted after every effective selection mutation.
type SelectionChanged struct {
	Kind       ChangeKind
	Generation uint64
	Selection  Selection
}

// FilterCommand is a selection mutation. apply reports what changed; a zero
// kind means the command was a no-op.
type FilterCommand interface {
	apply(st *FilterState) (ChangeKind, error)
}

type SetSelectedChannels struct {
	IDs []string
}

type ToggleChannel struct {
	ID string
}

type SetDateRange struct {
	Mode domain.DateRangeMode
}

type SetStatMode struct {
	Mode domain.StatMode
}

type SetCustomDateRange struct {
	Start string
	End   string
}

type SetCurrentPage struct {
	Page int
}

func (c SetSelectedChannels) apply(st *FilterState) (ChangeKind, error) {
	ids := dedupe(c.IDs)
	if slices.Equal(ids, st.ChannelIDs) {
		return 0, nil
	}
	st.ChannelIDs = ids
	return ChangeChannels, nil
}

func (c ToggleChannel) apply(st *FilterState) (ChangeKind, error) {
	if c.ID == "" {
		return 0, nil
	}
	if i := slices.Index(st.ChannelIDs, c.ID); i >= 0 {
		st.ChannelIDs = slices.Delete(slices.Clone(st.ChannelIDs), i, i+1)
	} else {
		st.ChannelIDs = append(slices.Clone(st.ChannelIDs), c.ID)
	}
	return ChangeChannels, nil
}

func (c SetDateRange) apply(st *FilterState) (ChangeKind, error) {
	if _, ok := presetLookbackDays[c.Mode]; !ok && c.Mode != domain.DateRangeAllTime && c.Mode != domain.DateRangeCustom {
		return 0, errors.NewValidationError("Unknown date range", "date_range", string(c.Mode))
	}
	if c.Mode == domain.DateRangeCustom && (st.CustomStartDate == "" || st.CustomEndDate == "") {
		return 0, errors.NewValidationError("Custom date range requires both start and end dates", "date_range", string(c.Mode))
	}
	if st.DateRange == c.Mode {
		return 0, nil
	}
	st.DateRange = c.Mode
	return ChangeDateRange, nil
}

func (c SetStatMode) apply(st *FilterState) (ChangeKind, error) {
	if c.Mode != domain.StatModeTotal && c.Mode != domain.StatModeAverage {
		return 0, errors.NewValidationError("Unknown stat type", "stat_type", string(c.Mode))
	}
	if st.StatMode == c.Mode {
		return 0, nil
	}
	st.StatMode = c.Mode
	return ChangeStatMode, nil
}

// apply orders the bounds and forces the custom mode.
func (c SetCustomDateRange) apply(st *FilterState) (ChangeKind, error) {
	start, end, err := ParseCustomBounds(c.Start, c.End)
	if err != nil {
		return 0, err
	}
	startStr, endStr := start.Format(domain.DateLayout), end.Format(domain.DateLayout)
	if st.DateRange == domain.DateRangeCustom && st.CustomStartDate == startStr && st.CustomEndDate == endStr {
		return 0, nil
	}
	st.DateRange = domain.DateRangeCustom
	st.CustomStartDate = startStr
	st.CustomEndDate = endStr
	return ChangeDateRange, nil
}

func (c SetCurrentPage) apply(st *FilterState) (ChangeKind, error) {
	page := max(c.Page, 1)
	if st.CurrentPage == page {
		return 0, nil
	}
	st.CurrentPage = page
	return ChangePage, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func cloneSelection(sel Selection) Selection {
	sel.ChannelIDs = slices.Clone(sel.ChannelIDs)
	return sel
}
