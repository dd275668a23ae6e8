package stats

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/kapu/youtube-dashboard-go/internal/domain"
	"github.com/kapu/youtube-dashboard-go/internal/store"
	"github.com/kapu/youtube-dashboard-go/pkg/errors"
	"go.uber.org/zap"
)

// StatsAPI is the slice of the backend the loader calls.
type StatsAPI interface {
	GetChannelStats(ctx context.Context, externalChannelID, startDate, endDate string) (*domain.StatsSnapshot, error)
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Params identify one stats fetch. ChannelIDs are external ids in selection
// order; StartDate and EndDate are already resolved.
type Params struct {
	ChannelIDs      []string
	DateRange       domain.DateRangeMode
	CustomStartDate string
	CustomEndDate   string
	StartDate       string
	EndDate         string
	StatMode        domain.StatMode
	Generation      uint64
}

func (p Params) key() string {
	return strings.Join([]string{
		strings.Join(p.ChannelIDs, ","),
		string(p.DateRange),
		p.CustomStartDate,
		p.CustomEndDate,
	}, "|")
}

// State is a copy of the loader's state.
type State struct {
	Phase      Phase
	Snapshots  []domain.StatsSnapshot
	Aggregated *domain.AggregatedStats
	StatMode   domain.StatMode
	Error      string
	// Skipped lists channels whose fetch failed in an otherwise successful cycle.
	Skipped []string
}

// Loader fetches one snapshot per channel, sequentially, and keeps the
// aggregated result for the current stat mode.
type Loader struct {
	api        StatsAPI
	logger     *zap.Logger
	generation func() uint64

	mu        sync.Mutex
	state     State
	inFlight  bool
	lastKey   string
	hasLoaded bool
	selected  int
}

type LoaderOption func(*Loader)

// WithGenerationSource lets the loader discard results whose selection
// generation has moved on by the time they arrive.
func WithGenerationSource(fn func() uint64) LoaderOption {
	return func(l *Loader) {
		l.generation = fn
	}
}

func NewLoader(statsAPI StatsAPI, logger *zap.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{
		api:    statsAPI,
		logger: logger,
		state:  State{StatMode: domain.StatModeTotal},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.state
	st.Snapshots = slices.Clone(l.state.Snapshots)
	st.Skipped = slices.Clone(l.state.Skipped)
	if st.Aggregated != nil {
		agg := *st.Aggregated
		st.Aggregated = &agg
	}
	return st
}

// Load runs one fetch cycle. A cycle for the same parameters as the last
// successful one is skipped unless force is set.
func (l *Loader) Load(ctx context.Context, p Params, force bool) store.Outcome {
	l.mu.Lock()
	if l.inFlight {
		l.mu.Unlock()
		return store.OutcomeSkippedInFlight
	}
	key := p.key()
	if !force && l.hasLoaded && key == l.lastKey {
		l.state.StatMode = p.StatMode
		l.state.Aggregated = Select(l.state.Snapshots, l.selected, p.StatMode)
		l.mu.Unlock()
		return store.OutcomeSkippedUnchanged
	}
	l.inFlight = true
	l.state.Phase = PhaseFetching
	l.state.Error = ""
	l.mu.Unlock()

	snapshots := make([]domain.StatsSnapshot, 0, len(p.ChannelIDs))
	var skipped []string
	var firstErr error
	for _, id := range p.ChannelIDs {
		snap, err := l.api.GetChannelStats(ctx, id, p.StartDate, p.EndDate)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			skipped = append(skipped, id)
			l.logger.Warn("Failed to fetch channel stats",
				zap.String("channel_id", id),
				zap.Error(err),
			)
			continue
		}
		if snap != nil {
			snapshots = append(snapshots, *snap)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight = false

	if l.generation != nil && l.generation() != p.Generation {
		l.state.Phase = PhaseIdle
		l.logger.Debug("Discarding stale stats", zap.Uint64("requested_generation", p.Generation))
		return store.OutcomeDiscardedStale
	}

	if len(snapshots) == 0 && firstErr != nil {
		l.state = State{
			Phase:    PhaseError,
			StatMode: p.StatMode,
			Error:    errors.Message(firstErr),
			Skipped:  skipped,
		}
		l.hasLoaded = false
		return store.OutcomeFailed
	}

	l.state = State{
		Phase:      PhaseSuccess,
		Snapshots:  snapshots,
		Aggregated: Select(snapshots, len(p.ChannelIDs), p.StatMode),
		StatMode:   p.StatMode,
		Skipped:    skipped,
	}
	l.lastKey = key
	l.hasLoaded = true
	l.selected = len(p.ChannelIDs)

	if len(skipped) > 0 {
		l.logger.Info("Stats aggregated with partial results",
			zap.Int("succeeded", len(snapshots)),
			zap.Strings("skipped", skipped),
		)
	}
	return store.OutcomeCompleted
}

// SetStatMode re-aggregates the cached snapshots without fetching.
func (l *Loader) SetStatMode(mode domain.StatMode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.StatMode = mode
	l.state.Aggregated = Select(l.state.Snapshots, l.selected, mode)
}

// Reset forgets the cached cycle, e.g. after logout.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = State{StatMode: l.state.StatMode}
	l.lastKey = ""
	l.hasLoaded = false
	l.selected = 0
}
