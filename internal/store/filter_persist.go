package store

import (
	"context"

	"github.com/kapu/youtube-dashboard-go/internal/domain"
	"go.uber.org/zap"
)

// persistedFilter is exactly what survives a reload. Videos, loading and
// error flags stay out.
type persistedFilter struct {
	Selection
	Channels []domain.Channel `json:"channels"`
}

func (s *FilterStore) persistedLocked() persistedFilter {
	return persistedFilter{
		Selection: cloneSelection(s.state.Selection),
		Channels:  append([]domain.Channel(nil), s.state.Channels...),
	}
}

func (s *FilterStore) persist(p persistedFilter) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Set(context.Background(), FilterStorageKey, p); err != nil {
		s.logger.Error("Failed to persist filter state", zap.Error(err))
	}
}

// Restore rebuilds the store from storage. Volatile fields start at their
// defaults whatever was stored.
func (s *FilterStore) Restore(ctx context.Context) {
	if s.storage == nil {
		return
	}
	var p persistedFilter
	found, err := s.storage.Get(ctx, FilterStorageKey, &p)
	if err != nil {
		s.logger.Warn("Failed to restore filter state", zap.Error(err))
		return
	}
	if !found {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := defaultFilterState()
	st.StatMode = s.state.StatMode
	if p.ChannelIDs != nil {
		st.ChannelIDs = dedupe(p.ChannelIDs)
	}
	if mode, ok := domain.ParseDateRangeMode(string(p.DateRange)); ok {
		st.DateRange = mode
	}
	if mode, ok := domain.ParseStatMode(string(p.StatMode)); ok {
		st.StatMode = mode
	}
	if start, end, err := ParseCustomBounds(p.CustomStartDate, p.CustomEndDate); err == nil {
		st.CustomStartDate = start.Format(domain.DateLayout)
		st.CustomEndDate = end.Format(domain.DateLayout)
	} else if st.DateRange == domain.DateRangeCustom {
		st.DateRange = domain.DateRangeAllTime
	}
	if p.Channels != nil {
		st.Channels = p.Channels
	}
	st.CurrentPage = max(p.CurrentPage, 1)
	st.Generation = s.state.Generation + 1

	s.state = st
	s.lastVideoParams = ""

	s.logger.Info("Filter state restored",
		zap.Int("selected", len(st.ChannelIDs)),
		zap.String("date_range", string(st.DateRange)),
		zap.Int("channels", len(st.Channels)),
	)
}
