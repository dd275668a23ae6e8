package store

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/kapu/youtube-dashboard-go/internal/api"
	"github.com/kapu/youtube-dashboard-go/internal/domain"
	"github.com/kapu/youtube-dashboard-go/internal/storage"
	"github.com/kapu/youtube-dashboard-go/internal/util"
	"github.com/kapu/youtube-dashboard-go/pkg/errors"
	"go.uber.org/zap"
)

// FilterStorageKey holds the persisted subset of the filter store.
const FilterStorageKey = "filter-storage"

// FilterAPI is the slice of the backend the filter store calls.
type FilterAPI interface {
	GetChannels(ctx context.Context) ([]domain.Channel, error)
	FetchVideos(ctx context.Context, req api.FetchVideosRequest) (*domain.VideoPage, error)
}

// Selection is the part of the filter state that drives fetching.
type Selection struct {
	ChannelIDs      []string             `json:"selectedChannelIds"`
	DateRange       domain.DateRangeMode `json:"dateRange"`
	CustomStartDate string               `json:"customStartDate,omitempty"`
	CustomEndDate   string               `json:"customEndDate,omitempty"`
	StatMode        domain.StatMode      `json:"statType"`
	CurrentPage     int                  `json:"currentPage"`
}

// FilterState is a copy of the filter store's state.
type FilterState struct {
	Selection
	SortKey         string
	Channels        []domain.Channel
	Videos          []domain.Video
	TotalPages      int
	TotalVideos     int
	IsLoading       bool
	IsLoadingVideos bool
	Error           string
	VideoError      string
	Generation      uint64
}

// FilterStore holds the view's selection, the channel cache and the current
// video page. Mutators never fetch; they emit SelectionChanged events.
type FilterStore struct {
	api     FilterAPI
	storage storage.Storage
	logger  *zap.Logger
	now     util.Clock

	mu               sync.Mutex
	state            FilterState
	lastVideoParams  string
	channelsInFlight bool
	videosInFlight   bool
	subscribers      map[int]func(SelectionChanged)
	nextSubscriberID int
}

func NewFilterStore(filterAPI FilterAPI, store storage.Storage, clock util.Clock, logger *zap.Logger) *FilterStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = util.SystemClock
	}
	return &FilterStore{
		api:         filterAPI,
		storage:     store,
		logger:      logger,
		now:         clock,
		state:       defaultFilterState(),
		subscribers: make(map[int]func(SelectionChanged)),
	}
}

func defaultFilterState() FilterState {
	return FilterState{
		Selection: Selection{
			ChannelIDs:  []string{},
			DateRange:   domain.DateRangeAllTime,
			StatMode:    domain.StatModeTotal,
			CurrentPage: 1,
		},
		SortKey:  "views",
		Channels: []domain.Channel{},
		Videos:   []domain.Video{},
	}
}

// SetDefaultStatMode sets the stat mode used before anything is persisted.
func (s *FilterStore) SetDefaultStatMode(mode domain.StatMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.StatMode = mode
}

// State returns a deep copy of the current state.
func (s *FilterStore) State() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyStateLocked()
}

func (s *FilterStore) copyStateLocked() FilterState {
	st := s.state
	st.ChannelIDs = slices.Clone(s.state.ChannelIDs)
	st.Channels = slices.Clone(s.state.Channels)
	st.Videos = slices.Clone(s.state.Videos)
	return st
}

// Generation increases whenever the channel set, date range or page changes.
func (s *FilterStore) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Generation
}

// Subscribe registers fn for selection-changed events and returns a function
// that removes it. Events are delivered synchronously after the mutation.
func (s *FilterStore) Subscribe(fn func(SelectionChanged)) func() {
	s.mu.Lock()
	id := s.nextSubscriberID
	s.nextSubscriberID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *FilterStore) SetSelectedChannels(ids []string) {
	_ = s.Apply(SetSelectedChannels{IDs: ids})
}

func (s *FilterStore) ToggleChannel(id string) {
	_ = s.Apply(ToggleChannel{ID: id})
}

func (s *FilterStore) SetDateRange(mode domain.DateRangeMode) {
	_ = s.Apply(SetDateRange{Mode: mode})
}

func (s *FilterStore) SetStatMode(mode domain.StatMode) {
	_ = s.Apply(SetStatMode{Mode: mode})
}

func (s *FilterStore) SetCustomDateRange(start, end string) {
	_ = s.Apply(SetCustomDateRange{Start: start, End: end})
}

func (s *FilterStore) SetCurrentPage(page int) {
	_ = s.Apply(SetCurrentPage{Page: page})
}

// Apply is the single state-update entry point for selection mutations. A
// rejected command records its message in Error and returns it.
func (s *FilterStore) Apply(cmd FilterCommand) error {
	s.mu.Lock()
	kind, err := cmd.apply(&s.state)
	if err != nil {
		s.state.Error = errors.Message(err)
		s.mu.Unlock()
		return err
	}
	if kind == 0 {
		s.mu.Unlock()
		return nil
	}
	if kind&invalidatingChanges != 0 {
		s.state.Generation++
	}
	event := SelectionChanged{
		Kind:       kind,
		Generation: s.state.Generation,
		Selection:  cloneSelection(s.state.Selection),
	}
	persisted := s.persistedLocked()
	subscribers := s.subscriberListLocked()
	s.mu.Unlock()

	s.persist(persisted)
	for _, fn := range subscribers {
		fn(event)
	}
	return nil
}

func (s *FilterStore) subscriberListLocked() []func(SelectionChanged) {
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(SelectionChanged), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subscribers[id])
	}
	return out
}

// FetchChannels replaces the channel cache with the backend's list. A failure
// keeps the previous cache.
func (s *FilterStore) FetchChannels(ctx context.Context) Outcome {
	s.mu.Lock()
	if s.channelsInFlight {
		s.mu.Unlock()
		return OutcomeSkippedInFlight
	}
	s.channelsInFlight = true
	s.state.IsLoading = true
	s.state.Error = ""
	s.mu.Unlock()

	channels, err := s.api.GetChannels(ctx)

	s.mu.Lock()
	s.channelsInFlight = false
	s.state.IsLoading = false
	if err != nil {
		s.state.Error = errors.Message(err)
		s.mu.Unlock()
		s.logger.Warn("Failed to fetch channels", zap.Error(err))
		return OutcomeFailed
	}
	if channels == nil {
		channels = []domain.Channel{}
	}
	s.state.Channels = channels
	persisted := s.persistedLocked()
	s.mu.Unlock()

	s.persist(persisted)
	s.logger.Info("Channels refreshed", zap.Int("count", len(channels)))
	return OutcomeCompleted
}

// FetchVideos loads one server-sorted page across every selected channel.
// Identical parameters to the last successful fetch are skipped.
func (s *FilterStore) FetchVideos(ctx context.Context, sortKey string, page int) Outcome {
	return s.fetchVideos(ctx, sortKey, page, false)
}

// ReloadVideos refetches the current sort and page, bypassing the
// same-parameters guard.
func (s *FilterStore) ReloadVideos(ctx context.Context) Outcome {
	s.mu.Lock()
	sortKey, page := s.state.SortKey, s.state.CurrentPage
	s.mu.Unlock()
	return s.fetchVideos(ctx, sortKey, page, true)
}

func (s *FilterStore) fetchVideos(ctx context.Context, sortKey string, page int, force bool) Outcome {
	if page < 1 {
		page = 1
	}

	s.mu.Lock()
	if s.videosInFlight {
		s.mu.Unlock()
		return OutcomeSkippedInFlight
	}

	sel := s.state.Selection
	externalIDs := resolveExternalIDs(sel.ChannelIDs, s.state.Channels)
	sortBy := MapSortKey(sortKey)
	params := videoParamsKey(sel, externalIDs, sortBy, page)
	if !force && params == s.lastVideoParams {
		s.mu.Unlock()
		return OutcomeSkippedUnchanged
	}

	if len(externalIDs) == 0 {
		s.state.Videos = []domain.Video{}
		s.state.TotalPages = 0
		s.state.TotalVideos = 0
		s.state.VideoError = "No valid channels selected"
		s.lastVideoParams = ""
		s.mu.Unlock()
		s.logger.Warn("Video fetch skipped: no selected channel resolves",
			zap.Strings("selected", sel.ChannelIDs))
		return OutcomeFailed
	}

	dr, err := ResolveDateRange(sel.DateRange, sel.CustomStartDate, sel.CustomEndDate, s.now())
	if err != nil {
		s.state.Videos = []domain.Video{}
		s.state.TotalPages = 0
		s.state.TotalVideos = 0
		s.state.VideoError = errors.Message(err)
		s.lastVideoParams = ""
		s.mu.Unlock()
		return OutcomeFailed
	}

	s.videosInFlight = true
	s.state.IsLoadingVideos = true
	s.state.VideoError = ""
	generation := s.state.Generation
	s.mu.Unlock()

	result, err := s.api.FetchVideos(ctx, api.FetchVideosRequest{
		ChannelIDs: externalIDs,
		StartDate:  dr.StartString(),
		EndDate:    dr.EndString(),
		SortBy:     sortBy,
		Page:       page,
	})

	s.mu.Lock()
	s.videosInFlight = false
	s.state.IsLoadingVideos = false
	if s.state.Generation != generation {
		s.mu.Unlock()
		s.logger.Debug("Discarding stale video page",
			zap.Uint64("requested_generation", generation))
		return OutcomeDiscardedStale
	}
	if err != nil {
		s.state.Videos = []domain.Video{}
		s.state.TotalPages = 0
		s.state.TotalVideos = 0
		s.state.VideoError = errors.Message(err)
		s.lastVideoParams = ""
		s.mu.Unlock()
		s.logger.Warn("Failed to fetch videos", zap.Error(err))
		return OutcomeFailed
	}

	videos := result.Videos
	if videos == nil {
		videos = []domain.Video{}
	}
	s.state.Videos = videos
	s.state.CurrentPage = page
	if result.Page > 0 {
		s.state.CurrentPage = result.Page
	}
	s.state.TotalPages = result.TotalPages
	s.state.TotalVideos = result.Total
	s.state.SortKey = sortKey
	s.lastVideoParams = params
	persisted := s.persistedLocked()
	s.mu.Unlock()

	s.persist(persisted)
	return OutcomeCompleted
}

// ExternalChannelIDs resolves the selection to YouTube channel ids in
// selection order, dropping ids with no known channel.
func (s *FilterStore) ExternalChannelIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return resolveExternalIDs(s.state.ChannelIDs, s.state.Channels)
}

// ResolvedDateRange resolves the current date range against the store's clock.
func (s *FilterStore) ResolvedDateRange() (DateRange, error) {
	s.mu.Lock()
	sel := s.state.Selection
	s.mu.Unlock()
	return ResolveDateRange(sel.DateRange, sel.CustomStartDate, sel.CustomEndDate, s.now())
}

func resolveExternalIDs(selected []string, channels []domain.Channel) []string {
	out := make([]string, 0, len(selected))
	for _, id := range selected {
		ch, ok := domain.FindChannel(channels, id)
		if !ok || ch.ChannelID == "" {
			continue
		}
		out = append(out, ch.ChannelID)
	}
	return out
}

func videoParamsKey(sel Selection, externalIDs []string, sortBy string, page int) string {
	var b strings.Builder
	b.WriteString(strings.Join(externalIDs, ","))
	b.WriteByte('|')
	b.WriteString(string(sel.DateRange))
	b.WriteByte('|')
	b.WriteString(sel.CustomStartDate)
	b.WriteByte('|')
	b.WriteString(sel.CustomEndDate)
	b.WriteByte('|')
	b.WriteString(sortBy)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(page))
	return b.String()
}
