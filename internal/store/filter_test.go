package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/kapu/youtube-dashboard-go/internal/api"
	"github.com/kapu/youtube-dashboard-go/internal/domain"
	"github.com/kapu/youtube-dashboard-go/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 5, 31, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fakeFilterAPI struct {
	mu          sync.Mutex
	channels    []domain.Channel
	channelsErr error
	page        *domain.VideoPage
	videosErr   error
	requests    []api.FetchVideosRequest
	videoGate   chan struct{}
	started     chan struct{}
}

func (f *fakeFilterAPI) GetChannels(ctx context.Context) ([]domain.Channel, error) {
	return f.channels, f.channelsErr
}

func (f *fakeFilterAPI) FetchVideos(ctx context.Context, req api.FetchVideosRequest) (*domain.VideoPage, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	gate, started := f.videoGate, f.started
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return f.page, f.videosErr
}

func (f *fakeFilterAPI) videoRequests() []api.FetchVideosRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.FetchVideosRequest(nil), f.requests...)
}

func testChannels() []domain.Channel {
	return []domain.Channel{
		{ID: "a", ChannelID: "UCa", Title: "Alpha"},
		{ID: "b", ChannelID: "UCb", Title: "Beta"},
		{ID: "c", ChannelID: "UCc", Title: "Gamma"},
	}
}

func newTestFilterStore(t *testing.T, fake *fakeFilterAPI) (*FilterStore, *storage.MemoryStorage) {
	t.Helper()
	mem := storage.NewMemoryStorage()
	s := NewFilterStore(fake, mem, fixedClock, nil)
	if fake.channels != nil {
		require.Equal(t, OutcomeCompleted, s.FetchChannels(context.Background()))
	}
	return s, mem
}

func TestToggleChannelIsItsOwnInverse(t *testing.T) {
	s, _ := newTestFilterStore(t, &fakeFilterAPI{})
	s.SetSelectedChannels([]string{"a", "b"})

	for _, id := range []string{"a", "z"} {
		before := s.State().ChannelIDs
		s.ToggleChannel(id)
		s.ToggleChannel(id)
		assert.ElementsMatch(t, before, s.State().ChannelIDs, "toggle %s twice", id)
	}
}

func TestToggleUnknownIDDoesNotError(t *testing.T) {
	s, _ := newTestFilterStore(t, &fakeFilterAPI{})
	require.NoError(t, s.Apply(ToggleChannel{ID: "unknown"}))
	assert.Equal(t, []string{"unknown"}, s.State().ChannelIDs)
}

func TestSetCustomDateRangeForcesCustomAndOrdersBounds(t *testing.T) {
	for _, prior := range []domain.DateRangeMode{domain.DateRangeAllTime, domain.DateRangeLast30Days, domain.DateRangeLastYear} {
		s, _ := newTestFilterStore(t, &fakeFilterAPI{})
		s.SetDateRange(prior)
		s.SetCustomDateRange("2025-03-10", "2025-01-05")

		st := s.State()
		assert.Equal(t, domain.DateRangeCustom, st.DateRange)
		assert.Equal(t, "2025-01-05", st.CustomStartDate)
		assert.Equal(t, "2025-03-10", st.CustomEndDate)
	}
}

func TestSetDateRangeCustomWithoutBoundsRejected(t *testing.T) {
	s, _ := newTestFilterStore(t, &fakeFilterAPI{})

	err := s.Apply(SetDateRange{Mode: domain.DateRangeCustom})
	require.Error(t, err)

	st := s.State()
	assert.Equal(t, domain.DateRangeAllTime, st.DateRange)
	assert.Equal(t, "Custom date range requires both start and end dates", st.Error)
}

func TestSetCurrentPageClamps(t *testing.T) {
	s, _ := newTestFilterStore(t, &fakeFilterAPI{})
	s.SetCurrentPage(4)
	s.SetCurrentPage(-3)
	assert.Equal(t, 1, s.State().CurrentPage)
}

func TestSelectionChangedEvents(t *testing.T) {
	s, _ := newTestFilterStore(t, &fakeFilterAPI{})
	var events []SelectionChanged
	unsubscribe := s.Subscribe(func(ev SelectionChanged) { events = append(events, ev) })

	s.SetSelectedChannels([]string{"a"})
	s.SetSelectedChannels([]string{"a"})
	s.SetStatMode(domain.StatModeAverage)
	s.SetDateRange(domain.DateRangeLast90Days)
	s.SetCurrentPage(2)

	require.Len(t, events, 4)
	assert.True(t, events[0].Kind.Has(ChangeChannels))
	assert.Equal(t, ChangeStatMode, events[1].Kind)
	assert.Equal(t, events[0].Generation, events[1].Generation, "stat mode must not invalidate fetches")
	assert.True(t, events[2].Kind.Has(ChangeDateRange))
	assert.Greater(t, events[2].Generation, events[1].Generation)
	assert.Equal(t, 2, events[3].Selection.CurrentPage)

	unsubscribe()
	s.SetCurrentPage(3)
	assert.Len(t, events, 4)
}

func TestFetchChannelsFailureKeepsCache(t *testing.T) {
	fake := &fakeFilterAPI{channels: testChannels()}
	s, _ := newTestFilterStore(t, fake)

	fake.channels, fake.channelsErr = nil, stderrors.New("Failed to get channels")
	assert.Equal(t, OutcomeFailed, s.FetchChannels(context.Background()))

	st := s.State()
	assert.Len(t, st.Channels, 3)
	assert.Equal(t, "Failed to get channels", st.Error)
	assert.False(t, st.IsLoading)
}

func TestFetchVideosWithNoResolvableChannels(t *testing.T) {
	fake := &fakeFilterAPI{channels: testChannels(), page: &domain.VideoPage{Videos: []domain.Video{{ID: "v1"}}, Page: 1, TotalPages: 1, Total: 1}}
	s, _ := newTestFilterStore(t, fake)
	s.SetSelectedChannels([]string{"a"})
	require.Equal(t, OutcomeCompleted, s.FetchVideos(context.Background(), "views", 1))

	s.SetSelectedChannels([]string{"ghost"})
	out := s.FetchVideos(context.Background(), "most_views", 2)

	assert.Equal(t, OutcomeFailed, out)
	assert.Len(t, fake.videoRequests(), 1, "no HTTP call for unresolved selection")
	st := s.State()
	assert.Empty(t, st.Videos)
	assert.Equal(t, "No valid channels selected", st.VideoError)
}

func TestFetchVideosBatchesSelectionAndResolvesDates(t *testing.T) {
	fake := &fakeFilterAPI{channels: testChannels(), page: &domain.VideoPage{Videos: []domain.Video{{ID: "v1"}, {ID: "v2"}}, Page: 2, TotalPages: 5, Total: 42}}
	s, _ := newTestFilterStore(t, fake)
	s.SetSelectedChannels([]string{"b", "ghost", "a"})
	s.SetDateRange(domain.DateRangeLast30Days)

	require.Equal(t, OutcomeCompleted, s.FetchVideos(context.Background(), "likes", 2))

	reqs := fake.videoRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"UCb", "UCa"}, reqs[0].ChannelIDs)
	assert.Equal(t, "2025-05-01", reqs[0].StartDate)
	assert.Equal(t, "2025-05-31", reqs[0].EndDate)
	assert.Equal(t, "most_likes", reqs[0].SortBy)
	assert.Equal(t, 2, reqs[0].Page)

	st := s.State()
	assert.Len(t, st.Videos, 2)
	assert.Equal(t, 2, st.CurrentPage)
	assert.Equal(t, 5, st.TotalPages)
	assert.Equal(t, 42, st.TotalVideos)
}

func TestFetchVideosSameParamsGuard(t *testing.T) {
	fake := &fakeFilterAPI{channels: testChannels(), page: &domain.VideoPage{Page: 1, TotalPages: 1}}
	s, _ := newTestFilterStore(t, fake)
	s.SetSelectedChannels([]string{"a"})

	assert.Equal(t, OutcomeCompleted, s.FetchVideos(context.Background(), "views", 1))
	assert.Equal(t, OutcomeSkippedUnchanged, s.FetchVideos(context.Background(), "views", 1))
	assert.Len(t, fake.videoRequests(), 1)

	assert.Equal(t, OutcomeCompleted, s.ReloadVideos(context.Background()))
	assert.Len(t, fake.videoRequests(), 2)
}

func TestFetchVideosInFlightGuard(t *testing.T) {
	fake := &fakeFilterAPI{
		channels:  testChannels(),
		page:      &domain.VideoPage{Page: 1, TotalPages: 1},
		videoGate: make(chan struct{}),
		started:   make(chan struct{}, 1),
	}
	s, _ := newTestFilterStore(t, fake)
	s.SetSelectedChannels([]string{"a"})

	done := make(chan Outcome)
	go func() { done <- s.FetchVideos(context.Background(), "views", 1) }()
	<-fake.started

	assert.Equal(t, OutcomeSkippedInFlight, s.FetchVideos(context.Background(), "views", 1))
	close(fake.videoGate)
	assert.Equal(t, OutcomeCompleted, <-done)
	assert.Len(t, fake.videoRequests(), 1)
}

func TestFetchVideosDiscardsStaleResponse(t *testing.T) {
	fake := &fakeFilterAPI{
		channels:  testChannels(),
		page:      &domain.VideoPage{Videos: []domain.Video{{ID: "old"}}, Page: 1, TotalPages: 1, Total: 1},
		videoGate: make(chan struct{}),
		started:   make(chan struct{}, 1),
	}
	s, _ := newTestFilterStore(t, fake)
	s.SetSelectedChannels([]string{"a"})

	done := make(chan Outcome)
	go func() { done <- s.FetchVideos(context.Background(), "views", 1) }()
	<-fake.started

	s.ToggleChannel("b")
	close(fake.videoGate)

	assert.Equal(t, OutcomeDiscardedStale, <-done)
	st := s.State()
	assert.Empty(t, st.Videos)
	assert.False(t, st.IsLoadingVideos)
}

func TestFetchVideosErrorClearsVideosButKeepsChannels(t *testing.T) {
	fake := &fakeFilterAPI{channels: testChannels(), page: &domain.VideoPage{Videos: []domain.Video{{ID: "v1"}}, Page: 1, TotalPages: 1, Total: 1}}
	s, _ := newTestFilterStore(t, fake)
	s.SetSelectedChannels([]string{"a"})
	require.Equal(t, OutcomeCompleted, s.FetchVideos(context.Background(), "views", 1))

	fake.videosErr = stderrors.New("Failed to fetch videos")
	s.SetCurrentPage(2)
	assert.Equal(t, OutcomeFailed, s.FetchVideos(context.Background(), "views", 2))

	st := s.State()
	assert.Empty(t, st.Videos)
	assert.Equal(t, "Failed to fetch videos", st.VideoError)
	assert.Len(t, st.Channels, 3)
}

func TestPersistenceBoundary(t *testing.T) {
	ctx := context.Background()
	fake := &fakeFilterAPI{channels: testChannels(), page: &domain.VideoPage{Videos: []domain.Video{{ID: "v1"}}, Page: 3, TotalPages: 4, Total: 31}}
	s, mem := newTestFilterStore(t, fake)
	s.SetSelectedChannels([]string{"a", "c"})
	s.SetCustomDateRange("2025-01-01", "2025-02-01")
	s.SetStatMode(domain.StatModeAverage)
	s.SetCurrentPage(3)
	require.Equal(t, OutcomeCompleted, s.FetchVideos(ctx, "views", 3))

	raw, ok := mem.Raw(FilterStorageKey)
	require.True(t, ok)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{
		"selectedChannelIds", "dateRange", "statType", "customStartDate", "customEndDate", "channels", "currentPage",
	}, keys)

	restored := NewFilterStore(fake, mem, fixedClock, nil)
	restored.Restore(ctx)
	st := restored.State()
	assert.Equal(t, []string{"a", "c"}, st.ChannelIDs)
	assert.Equal(t, domain.DateRangeCustom, st.DateRange)
	assert.Equal(t, "2025-01-01", st.CustomStartDate)
	assert.Equal(t, domain.StatModeAverage, st.StatMode)
	assert.Equal(t, 3, st.CurrentPage)
	assert.Len(t, st.Channels, 3)

	assert.Empty(t, st.Videos)
	assert.Zero(t, st.TotalPages)
	assert.Zero(t, st.TotalVideos)
	assert.False(t, st.IsLoading)
	assert.False(t, st.IsLoadingVideos)
	assert.Empty(t, st.Error)
	assert.Empty(t, st.VideoError)
}

func TestRestoreDropsCustomWithoutBounds(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	require.NoError(t, mem.Set(ctx, FilterStorageKey, map[string]any{
		"selectedChannelIds": []string{"a"},
		"dateRange":          "custom",
		"statType":           "total",
		"currentPage":        0,
	}))

	s := NewFilterStore(&fakeFilterAPI{}, mem, fixedClock, nil)
	s.Restore(ctx)

	st := s.State()
	assert.Equal(t, domain.DateRangeAllTime, st.DateRange)
	assert.Equal(t, 1, st.CurrentPage)
}

func TestRestoreAcceptsLegacyLast12Months(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	require.NoError(t, mem.Set(ctx, FilterStorageKey, map[string]any{"dateRange": "last12months"}))

	s := NewFilterStore(&fakeFilterAPI{}, mem, fixedClock, nil)
	s.Restore(ctx)
	assert.Equal(t, domain.DateRangeLastYear, s.State().DateRange)
}

func TestLabels(t *testing.T) {
	fake := &fakeFilterAPI{channels: testChannels()}
	s, _ := newTestFilterStore(t, fake)

	assert.Equal(t, "All channels", s.ChannelSelectionLabel())
	s.SetSelectedChannels([]string{"b"})
	assert.Equal(t, "Beta", s.ChannelSelectionLabel())
	s.ToggleChannel("a")
	assert.Equal(t, "2 channels", s.ChannelSelectionLabel())
	s.ToggleChannel("c")
	assert.Equal(t, "All channels", s.ChannelSelectionLabel())

	assert.Equal(t, "All time", s.DateRangeLabel())
	s.SetDateRange(domain.DateRangeLast90Days)
	assert.Equal(t, "Last 90 days", s.DateRangeLabel())
	s.SetCustomDateRange("2023-01-01", "2025-05-02")
	assert.Equal(t, "Jan 1, 2023 - May 2, 2025", s.DateRangeLabel())

	assert.Equal(t, "Custom range", DateRangeLabel(domain.DateRangeCustom, "bad", "2025-01-01"))
	assert.Equal(t, "Selected channel", ChannelSelectionLabel([]string{"ghost"}, testChannels()))
}

func TestUnresolvableDateRangeClearsVideoTotals(t *testing.T) {
	fake := &fakeFilterAPI{
		channels: testChannels(),
		page:     &domain.VideoPage{Videos: []domain.Video{{ID: "v1"}}, Page: 1, TotalPages: 4, Total: 37},
	}
	s, _ := newTestFilterStore(t, fake)
	s.SetSelectedChannels([]string{"a"})
	require.Equal(t, OutcomeCompleted, s.ReloadVideos(context.Background()))
	require.Equal(t, 4, s.State().TotalPages)

	s.mu.Lock()
	s.state.DateRange = "lastDecade"
	s.mu.Unlock()

	assert.Equal(t, OutcomeFailed, s.ReloadVideos(context.Background()))
	st := s.State()
	assert.Empty(t, st.Videos)
	assert.Zero(t, st.TotalPages)
	assert.Zero(t, st.TotalVideos)
	assert.Equal(t, "Unknown date range", st.VideoError)
}
