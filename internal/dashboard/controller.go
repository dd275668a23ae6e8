// Package dashboard decides which fetches a selection change needs and runs
// them.
package dashboard

import (
	"context"
	"sync"

	"github.com/kapu/youtube-dashboard-go/internal/stats"
	"github.com/kapu/youtube-dashboard-go/internal/store"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// staleRetries bounds how often a fetch discarded as stale is reissued.
const staleRetries = 3

// Event is pushed to live viewers after the controller changes state.
type Event struct {
	Type       string `json:"type"`
	Changes    string `json:"changes,omitempty"`
	Generation uint64 `json:"generation"`
}

// Notifier receives controller events. The websocket hub implements it.
type Notifier interface {
	Broadcast(ev Event)
}

// Controller reacts to selection-changed events from the filter store.
type Controller struct {
	auth   *store.AuthStore
	filter *store.FilterStore
	loader *stats.Loader
	logger *zap.Logger

	batchMu     sync.Mutex
	mu          sync.Mutex
	notifier    Notifier
	batching    bool
	pending     store.ChangeKind
	unsubscribe func()
}

func NewController(auth *store.AuthStore, filter *store.FilterStore, loader *stats.Loader, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		auth:   auth,
		filter: filter,
		loader: loader,
		logger: logger,
	}
	c.unsubscribe = filter.Subscribe(c.onSelectionChanged)
	return c
}

// SetNotifier attaches the live-update sink.
func (c *Controller) SetNotifier(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
}

// Close detaches the controller from the filter store.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *Controller) onSelectionChanged(ev store.SelectionChanged) {
	c.mu.Lock()
	if c.batching {
		c.pending |= ev.Kind
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.HandleSelectionChanged(context.Background(), ev.Kind)
}

// ApplyFilters applies cmds as one batch and reconciles once afterwards.
// The first rejected command stops the batch; changes already applied are
// still reconciled.
func (c *Controller) ApplyFilters(ctx context.Context, cmds []store.FilterCommand) error {
	kind, err := c.batch(func() error {
		for _, cmd := range cmds {
			if err := c.filter.Apply(cmd); err != nil {
				return err
			}
		}
		return nil
	})
	if kind != 0 {
		c.HandleSelectionChanged(ctx, kind)
	}
	return err
}

func (c *Controller) batch(fn func() error) (store.ChangeKind, error) {
	c.batchMu.Lock()
	defer c.batchMu.Unlock()

	c.mu.Lock()
	c.batching = true
	c.pending = 0
	c.mu.Unlock()

	err := fn()

	c.mu.Lock()
	kind := c.pending
	c.batching = false
	c.pending = 0
	c.mu.Unlock()
	return kind, err
}

// HandleSelectionChanged issues the fetches a change needs: channel or date
// changes reload stats and the first video page, page changes reload videos
// only, and stat mode changes re-aggregate cached stats without fetching.
func (c *Controller) HandleSelectionChanged(ctx context.Context, kind store.ChangeKind) {
	c.logger.Debug("Selection changed", zap.Stringer("changes", kind))

	if kind.Has(store.ChangeStatMode) {
		c.loader.SetStatMode(c.filter.State().StatMode)
	}

	switch {
	case kind.Has(store.ChangeChannels) || kind.Has(store.ChangeDateRange):
		if c.filter.State().CurrentPage != 1 {
			_, _ = c.batch(func() error { return c.filter.Apply(store.SetCurrentPage{Page: 1}) })
		}
		var wg conc.WaitGroup
		wg.Go(func() { c.loadStats(ctx, false) })
		wg.Go(func() { c.loadVideos(ctx) })
		wg.Wait()
	case kind.Has(store.ChangePage):
		c.loadVideos(ctx)
	}

	c.notify(Event{Type: "selection", Changes: kind.String(), Generation: c.filter.Generation()})
}

// Refresh runs the initial load: profile and channel list, then stats and
// the current video page. A selection that resolves to no known channel,
// such as ids left over from a previous account, picks every channel.
func (c *Controller) Refresh(ctx context.Context) {
	var wg conc.WaitGroup
	wg.Go(func() {
		if c.auth != nil && c.auth.Token() != "" {
			c.auth.FetchUserProfile(ctx)
		}
	})
	wg.Go(func() { c.filter.FetchChannels(ctx) })
	wg.Wait()

	st := c.filter.State()
	if len(st.Channels) > 0 && len(c.filter.ExternalChannelIDs()) == 0 {
		ids := make([]string, 0, len(st.Channels))
		for _, ch := range st.Channels {
			ids = append(ids, ch.ID)
		}
		_, _ = c.batch(func() error { return c.filter.Apply(store.SetSelectedChannels{IDs: ids}) })
	}

	var loads conc.WaitGroup
	loads.Go(func() { c.loadStats(ctx, true) })
	loads.Go(func() { c.filter.ReloadVideos(ctx) })
	loads.Wait()

	c.notify(Event{Type: "refresh", Generation: c.filter.Generation()})
}

// ReloadStats refetches stats for the current selection, bypassing the
// same-parameters guard.
func (c *Controller) ReloadStats(ctx context.Context) store.Outcome {
	return c.loadStats(ctx, true)
}

// LoadVideoPage fetches one page with the given sort, used by the videos page.
func (c *Controller) LoadVideoPage(ctx context.Context, sortKey string, page int) store.Outcome {
	out := c.filter.FetchVideos(ctx, sortKey, page)
	for i := 0; out == store.OutcomeDiscardedStale && i < staleRetries; i++ {
		st := c.filter.State()
		out = c.filter.FetchVideos(ctx, sortKey, st.CurrentPage)
	}
	return out
}

func (c *Controller) loadStats(ctx context.Context, force bool) store.Outcome {
	var out store.Outcome
	for i := 0; i <= staleRetries; i++ {
		params, ok := c.statsParams()
		if !ok {
			return store.OutcomeFailed
		}
		out = c.loader.Load(ctx, params, force)
		if out != store.OutcomeDiscardedStale {
			break
		}
	}
	return out
}

func (c *Controller) statsParams() (stats.Params, bool) {
	st := c.filter.State()
	dr, err := c.filter.ResolvedDateRange()
	if err != nil {
		c.logger.Warn("Cannot resolve date range for stats", zap.Error(err))
		return stats.Params{}, false
	}
	return stats.Params{
		ChannelIDs:      c.filter.ExternalChannelIDs(),
		DateRange:       st.DateRange,
		CustomStartDate: st.CustomStartDate,
		CustomEndDate:   st.CustomEndDate,
		StartDate:       dr.StartString(),
		EndDate:         dr.EndString(),
		StatMode:        st.StatMode,
		Generation:      st.Generation,
	}, true
}

func (c *Controller) loadVideos(ctx context.Context) store.Outcome {
	st := c.filter.State()
	return c.LoadVideoPage(ctx, st.SortKey, st.CurrentPage)
}

func (c *Controller) notify(ev Event) {
	c.mu.Lock()
	n := c.notifier
	c.mu.Unlock()
	if n != nil {
		n.Broadcast(ev)
	}
}
