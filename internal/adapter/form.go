package adapter

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/kapu/youtube-dashboard-go/internal/domain"
	"github.com/kapu/youtube-dashboard-go/internal/store"
	"github.com/kapu/youtube-dashboard-go/pkg/errors"
)

// FilterFormAdapter converts a submitted filter form into store commands.
type FilterFormAdapter struct{}

func NewFilterFormAdapter() *FilterFormAdapter {
	return &FilterFormAdapter{}
}

// ParseFilters returns the commands for the fields present in form, in the
// order channels, date range, stat type, page. Absent fields produce no
// command, except "channel" which is always sent by the dashboard form.
func (a *FilterFormAdapter) ParseFilters(form url.Values) ([]store.FilterCommand, error) {
	var cmds []store.FilterCommand

	if _, ok := form["channel"]; ok || form.Has("channels_submitted") {
		cmds = append(cmds, store.SetSelectedChannels{IDs: cleanValues(form["channel"])})
	}

	if raw := strings.TrimSpace(form.Get("date_range")); raw != "" {
		mode, ok := domain.ParseDateRangeMode(raw)
		if !ok {
			return nil, errors.NewValidationError("Unknown date range", "date_range", raw)
		}
		if mode == domain.DateRangeCustom {
			cmds = append(cmds, store.SetCustomDateRange{
				Start: form.Get("custom_start"),
				End:   form.Get("custom_end"),
			})
		} else {
			cmds = append(cmds, store.SetDateRange{Mode: mode})
		}
	}

	if raw := strings.TrimSpace(form.Get("stat_type")); raw != "" {
		mode, ok := domain.ParseStatMode(raw)
		if !ok {
			return nil, errors.NewValidationError("Unknown stat type", "stat_type", raw)
		}
		cmds = append(cmds, store.SetStatMode{Mode: mode})
	}

	if raw := strings.TrimSpace(form.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.NewValidationError("Invalid page", "page", raw)
		}
		cmds = append(cmds, store.SetCurrentPage{Page: page})
	}

	if toggle := strings.TrimSpace(form.Get("toggle")); toggle != "" {
		cmds = append(cmds, store.ToggleChannel{ID: toggle})
	}

	return cmds, nil
}

// ParsePage reads a 1-based page number, defaulting to fallback.
func ParsePage(raw string, fallback int) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return fallback
	}
	return page
}

func cleanValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
