package domain

// YouTubeStats holds the additive counters reported for one channel and period.
type YouTubeStats struct {
	TotalSubscribers        int64 `json:"total_subscribers"`
	TotalViews              int64 `json:"total_views"`
	VideoCount              int64 `json:"video_count"`
	PeriodViews             int64 `json:"period_views"`
	PeriodWatchTimeMinutes  int64 `json:"period_watch_time_minutes"`
	PeriodLikes             int64 `json:"period_likes"`
	PeriodDislikes          int64 `json:"period_dislikes"`
	PeriodComments          int64 `json:"period_comments"`
	PeriodSubscribersGained int64 `json:"period_subscribers_gained"`
	PeriodSubscribersLost   int64 `json:"period_subscribers_lost"`
}

// CalculatedStats holds values derived by the backend (ratios, growth percentages).
type CalculatedStats struct {
	SubscriberGrowthPercentage       float64 `json:"subscriber_growth_percentage"`
	ViewsGrowthPercentage            float64 `json:"views_growth_percentage"`
	WatchTimeGrowthPercentage        float64 `json:"watch_time_growth_percentage"`
	LikesGrowthPercentage            float64 `json:"likes_growth_percentage"`
	DislikesGrowthPercentage         float64 `json:"dislikes_growth_percentage"`
	CommentsGrowthPercentage         float64 `json:"comments_growth_percentage"`
	TotalWatchTimeHours              float64 `json:"total_watch_time_hours"`
	TotalWatchTimeDays               float64 `json:"total_watch_time_days"`
	ReturningViewers                 float64 `json:"returning_viewers"`
	ReturningViewersGrowthPercentage float64 `json:"returning_viewers_growth_percentage"`
	UniqueViewers                    float64 `json:"unique_viewers"`
	UniqueViewersGrowthPercentage    float64 `json:"unique_viewers_growth_percentage"`
}

// StatsSnapshot is one channel's statistics for a fixed date range.
type StatsSnapshot struct {
	YouTubeStats    YouTubeStats    `json:"youtube_stats"`
	CalculatedStats CalculatedStats `json:"calculated_stats"`
	StartDate       *string         `json:"start_date"`
	EndDate         *string         `json:"end_date"`
}

// AggregationMode tells which variant an AggregatedStats value holds.
type AggregationMode string

const (
	AggregationSingle   AggregationMode = "single"
	AggregationCombined AggregationMode = "combined"
	AggregationAverage  AggregationMode = "average"
)

// AggregatedCounters mirrors YouTubeStats with float values so the averaged
// variant can carry its one unrounded field.
type AggregatedCounters struct {
	TotalSubscribers        float64 `json:"total_subscribers"`
	TotalViews              float64 `json:"total_views"`
	VideoCount              float64 `json:"video_count"`
	PeriodViews             float64 `json:"period_views"`
	PeriodWatchTimeMinutes  float64 `json:"period_watch_time_minutes"`
	PeriodLikes             float64 `json:"period_likes"`
	PeriodDislikes          float64 `json:"period_dislikes"`
	PeriodComments          float64 `json:"period_comments"`
	PeriodSubscribersGained float64 `json:"period_subscribers_gained"`
	PeriodSubscribersLost   float64 `json:"period_subscribers_lost"`
}

// AggregatedStats is the display-ready result of combining snapshots.
type AggregatedStats struct {
	Mode            AggregationMode    `json:"mode"`
	ChannelCount    int                `json:"channel_count"`
	YouTubeStats    AggregatedCounters `json:"youtube_stats"`
	CalculatedStats CalculatedStats    `json:"calculated_stats"`
	StartDate       *string            `json:"start_date"`
	EndDate         *string            `json:"end_date"`
}

// CountersFrom lifts integer counters into the aggregated representation.
func CountersFrom(s YouTubeStats) AggregatedCounters {
	return AggregatedCounters{
		TotalSubscribers:        float64(s.TotalSubscribers),
		TotalViews:              float64(s.TotalViews),
		VideoCount:              float64(s.VideoCount),
		PeriodViews:             float64(s.PeriodViews),
		PeriodWatchTimeMinutes:  float64(s.PeriodWatchTimeMinutes),
		PeriodLikes:             float64(s.PeriodLikes),
		PeriodDislikes:          float64(s.PeriodDislikes),
		PeriodComments:          float64(s.PeriodComments),
		PeriodSubscribersGained: float64(s.PeriodSubscribersGained),
		PeriodSubscribersLost:   float64(s.PeriodSubscribersLost),
	}
}
