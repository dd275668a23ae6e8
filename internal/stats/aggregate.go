// Package stats folds per-channel snapshots into the figures shown on the
// dashboard and loads those snapshots from the backend.
package stats

import (
	"math"

	"github.com/kapu/youtube-dashboard-go/internal/domain"
)

// Combine sums the additive counters of every snapshot. Ratio fields are
// copied from the last snapshot and the period bounds from the first.
// Returns nil for an empty list.
func Combine(snapshots []domain.StatsSnapshot) *domain.AggregatedStats {
	if len(snapshots) == 0 {
		return nil
	}

	var sum domain.YouTubeStats
	for _, s := range snapshots {
		c := s.YouTubeStats
		sum.TotalSubscribers += c.TotalSubscribers
		sum.TotalViews += c.TotalViews
		sum.VideoCount += c.VideoCount
		sum.PeriodViews += c.PeriodViews
		sum.PeriodWatchTimeMinutes += c.PeriodWatchTimeMinutes
		sum.PeriodLikes += c.PeriodLikes
		sum.PeriodDislikes += c.PeriodDislikes
		sum.PeriodComments += c.PeriodComments
		sum.PeriodSubscribersGained += c.PeriodSubscribersGained
		sum.PeriodSubscribersLost += c.PeriodSubscribersLost
	}

	first, last := snapshots[0], snapshots[len(snapshots)-1]
	return &domain.AggregatedStats{
		Mode:            domain.AggregationCombined,
		ChannelCount:    len(snapshots),
		YouTubeStats:    domain.CountersFrom(sum),
		CalculatedStats: last.CalculatedStats,
		StartDate:       copyString(first.StartDate),
		EndDate:         copyString(first.EndDate),
	}
}

// Average divides every combined field by the snapshot count and rounds half
// up, except PeriodComments which keeps its fractional part.
func Average(snapshots []domain.StatsSnapshot) *domain.AggregatedStats {
	combined := Combine(snapshots)
	if combined == nil {
		return nil
	}
	n := float64(len(snapshots))
	div := func(v float64) float64 { return roundHalfUp(v / n) }

	c := combined.YouTubeStats
	r := combined.CalculatedStats
	return &domain.AggregatedStats{
		Mode:         domain.AggregationAverage,
		ChannelCount: combined.ChannelCount,
		YouTubeStats: domain.AggregatedCounters{
			TotalSubscribers:        div(c.TotalSubscribers),
			TotalViews:              div(c.TotalViews),
			VideoCount:              div(c.VideoCount),
			PeriodViews:             div(c.PeriodViews),
			PeriodWatchTimeMinutes:  div(c.PeriodWatchTimeMinutes),
			PeriodLikes:             div(c.PeriodLikes),
			PeriodDislikes:          div(c.PeriodDislikes),
			PeriodComments:          c.PeriodComments / n,
			PeriodSubscribersGained: div(c.PeriodSubscribersGained),
			PeriodSubscribersLost:   div(c.PeriodSubscribersLost),
		},
		CalculatedStats: domain.CalculatedStats{
			SubscriberGrowthPercentage:       div(r.SubscriberGrowthPercentage),
			ViewsGrowthPercentage:            div(r.ViewsGrowthPercentage),
			WatchTimeGrowthPercentage:        div(r.WatchTimeGrowthPercentage),
			LikesGrowthPercentage:            div(r.LikesGrowthPercentage),
			DislikesGrowthPercentage:         div(r.DislikesGrowthPercentage),
			CommentsGrowthPercentage:         div(r.CommentsGrowthPercentage),
			TotalWatchTimeHours:              div(r.TotalWatchTimeHours),
			TotalWatchTimeDays:               div(r.TotalWatchTimeDays),
			ReturningViewers:                 div(r.ReturningViewers),
			ReturningViewersGrowthPercentage: div(r.ReturningViewersGrowthPercentage),
			UniqueViewers:                    div(r.UniqueViewers),
			UniqueViewersGrowthPercentage:    div(r.UniqueViewersGrowthPercentage),
		},
		StartDate: combined.StartDate,
		EndDate:   combined.EndDate,
	}
}

// Single wraps one snapshot without aggregation.
func Single(s domain.StatsSnapshot) *domain.AggregatedStats {
	return &domain.AggregatedStats{
		Mode:            domain.AggregationSingle,
		ChannelCount:    1,
		YouTubeStats:    domain.CountersFrom(s.YouTubeStats),
		CalculatedStats: s.CalculatedStats,
		StartDate:       copyString(s.StartDate),
		EndDate:         copyString(s.EndDate),
	}
}

// Select picks what the dashboard shows. selected is the number of channels
// the user chose, which may exceed len(snapshots) when some fetches failed:
// only a one-channel selection is shown raw, a multi-channel selection is
// always folded with Combine or Average by stat mode.
func Select(snapshots []domain.StatsSnapshot, selected int, mode domain.StatMode) *domain.AggregatedStats {
	if len(snapshots) == 0 {
		return nil
	}
	if selected <= 1 && len(snapshots) == 1 {
		return Single(snapshots[0])
	}
	if mode == domain.StatModeAverage {
		return Average(snapshots)
	}
	return Combine(snapshots)
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
