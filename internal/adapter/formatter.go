package adapter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kapu/youtube-dashboard-go/internal/domain"
	"github.com/kapu/youtube-dashboard-go/internal/stats"
	"github.com/kapu/youtube-dashboard-go/internal/store"
)

const videoTitleLimit = 80

// StatCard is one tile of the stats grid.
type StatCard struct {
	Label  string
	Value  string
	Growth string
	// Trend is "up", "down" or "" when there is no growth figure.
	Trend string
}

type ChannelOption struct {
	ID        string
	Title     string
	Thumbnail string
	Initial   string
	Selected  bool
}

type VideoRow struct {
	Title        string
	URL          string
	ThumbnailURL string
	Channel      string
	Published    string
	Duration     string
	Views        string
	Likes        string
	Comments     string
}

// DashboardView is the data behind the dashboard page.
type DashboardView struct {
	User           *domain.User
	ChannelLabel   string
	DateRangeLabel string
	DateRange      string
	CustomStart    string
	CustomEnd      string
	StatMode       string
	Channels       []ChannelOption
	Cards          []StatCard
	Loading        bool
	Error          string
	Notice         string
}

// VideosView is the data behind the paginated video listing.
type VideosView struct {
	User        *domain.User
	Label       string
	Videos      []VideoRow
	Sort        string
	SortOptions []store.SortOption
	Page        int
	TotalPages  int
	Total       string
	HasPrev     bool
	HasNext     bool
	Error       string
}

type LoginView struct {
	Signup bool
	Email  string
	Error  string
	// Next is the local path to return to after signing in.
	Next string
}

type SettingsView struct {
	User     *domain.User
	Channels []ChannelOption
	Error    string
}

// DashboardFormatter turns store state into page view models.
type DashboardFormatter struct{}

func NewDashboardFormatter() *DashboardFormatter {
	return &DashboardFormatter{}
}

func (f *DashboardFormatter) Dashboard(user *domain.User, filter store.FilterState, loaded stats.State) DashboardView {
	view := DashboardView{
		User:           user,
		ChannelLabel:   store.ChannelSelectionLabel(filter.ChannelIDs, filter.Channels),
		DateRangeLabel: store.DateRangeLabel(filter.DateRange, filter.CustomStartDate, filter.CustomEndDate),
		DateRange:      string(filter.DateRange),
		CustomStart:    filter.CustomStartDate,
		CustomEnd:      filter.CustomEndDate,
		StatMode:       string(filter.StatMode),
		Channels:       f.channelOptions(filter.Channels, filter.ChannelIDs),
		Cards:          f.StatCards(loaded.Aggregated),
		Loading:        loaded.Phase == stats.PhaseFetching || filter.IsLoading,
		Error:          firstNonEmpty(loaded.Error, filter.Error),
	}
	if n := len(loaded.Skipped); n > 0 {
		view.Notice = fmt.Sprintf("Stats for %d channel(s) could not be loaded", n)
	}
	return view
}

func (f *DashboardFormatter) Videos(user *domain.User, filter store.FilterState) VideosView {
	channels := make(map[string]string, len(filter.Channels))
	for _, ch := range filter.Channels {
		channels[ch.ChannelID] = ch.GetDisplayName()
	}

	rows := make([]VideoRow, 0, len(filter.Videos))
	for _, v := range filter.Videos {
		rows = append(rows, VideoRow{
			Title:        f.truncateTitle(v.Title),
			URL:          "https://www.youtube.com/watch?v=" + v.VideoID,
			ThumbnailURL: v.ThumbnailURL,
			Channel:      channels[v.ChannelID],
			Published:    FormatPublished(v.PublishedAt),
			Duration:     FormatDuration(v.Duration),
			Views:        FormatCount(float64(v.ViewCount)),
			Likes:        FormatCount(float64(v.LikeCount)),
			Comments:     FormatCount(float64(v.CommentCount)),
		})
	}

	return VideosView{
		User:        user,
		Label:       store.ChannelSelectionLabel(filter.ChannelIDs, filter.Channels),
		Videos:      rows,
		Sort:        filter.SortKey,
		SortOptions: store.SortOptions,
		Page:        filter.CurrentPage,
		TotalPages:  filter.TotalPages,
		Total:       FormatCount(float64(filter.TotalVideos)),
		HasPrev:     filter.CurrentPage > 1,
		HasNext:     filter.CurrentPage < filter.TotalPages,
		Error:       filter.VideoError,
	}
}

func (f *DashboardFormatter) Settings(auth store.AuthState, filter store.FilterState) SettingsView {
	return SettingsView{
		User:     auth.Session.User,
		Channels: f.channelOptions(filter.Channels, filter.ChannelIDs),
		Error:    firstNonEmpty(auth.Error, filter.Error),
	}
}

// StatCards renders the aggregated figures. Nil yields no cards.
func (f *DashboardFormatter) StatCards(agg *domain.AggregatedStats) []StatCard {
	if agg == nil {
		return nil
	}
	c := agg.YouTubeStats
	r := agg.CalculatedStats
	return []StatCard{
		{Label: "Subscribers", Value: FormatCount(c.TotalSubscribers)},
		{Label: "Views", Value: FormatCount(c.PeriodViews), Growth: FormatGrowth(r.ViewsGrowthPercentage), Trend: trend(r.ViewsGrowthPercentage)},
		{Label: "Watch time", Value: FormatWatchTime(c.PeriodWatchTimeMinutes), Growth: FormatGrowth(r.WatchTimeGrowthPercentage), Trend: trend(r.WatchTimeGrowthPercentage)},
		{Label: "Subscribers gained", Value: FormatCount(c.PeriodSubscribersGained), Growth: FormatGrowth(r.SubscriberGrowthPercentage), Trend: trend(r.SubscriberGrowthPercentage)},
		{Label: "Subscribers lost", Value: FormatCount(c.PeriodSubscribersLost)},
		{Label: "Likes", Value: FormatCount(c.PeriodLikes), Growth: FormatGrowth(r.LikesGrowthPercentage), Trend: trend(r.LikesGrowthPercentage)},
		{Label: "Dislikes", Value: FormatCount(c.PeriodDislikes), Growth: FormatGrowth(r.DislikesGrowthPercentage), Trend: trend(r.DislikesGrowthPercentage)},
		{Label: "Comments", Value: FormatCount(c.PeriodComments), Growth: FormatGrowth(r.CommentsGrowthPercentage), Trend: trend(r.CommentsGrowthPercentage)},
		{Label: "Videos", Value: FormatCount(c.VideoCount)},
		{Label: "Returning viewers", Value: FormatCount(r.ReturningViewers), Growth: FormatGrowth(r.ReturningViewersGrowthPercentage), Trend: trend(r.ReturningViewersGrowthPercentage)},
		{Label: "Unique viewers", Value: FormatCount(r.UniqueViewers), Growth: FormatGrowth(r.UniqueViewersGrowthPercentage), Trend: trend(r.UniqueViewersGrowthPercentage)},
	}
}

func (f *DashboardFormatter) channelOptions(channels []domain.Channel, selected []string) []ChannelOption {
	picked := make(map[string]bool, len(selected))
	for _, id := range selected {
		picked[id] = true
	}
	out := make([]ChannelOption, 0, len(channels))
	for i := range channels {
		ch := &channels[i]
		out = append(out, ChannelOption{
			ID:        ch.ID,
			Title:     ch.GetDisplayName(),
			Thumbnail: ch.ThumbnailURL,
			Initial:   ch.Initial(),
			Selected:  picked[ch.ID],
		})
	}
	return out
}

// truncateTitle truncates a title to the maximum length
func (f *DashboardFormatter) truncateTitle(title string) string {
	if utf8.RuneCountInString(title) <= videoTitleLimit {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:videoTitleLimit-3])) + "..."
}

// FormatCount abbreviates large counts: 1.2M, 12K, 950. Fractional values
// below a thousand keep one decimal.
func FormatCount(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return strconv.FormatFloat(v/1_000_000, 'f', 1, 64) + "M"
	case abs >= 1_000:
		return strconv.FormatFloat(v/1_000, 'f', 0, 64) + "K"
	case v != math.Trunc(v):
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}

// FormatGrowth renders a signed percentage, "" for zero.
func FormatGrowth(pct float64) string {
	if pct == 0 {
		return ""
	}
	return fmt.Sprintf("%+.1f%%", pct)
}

func trend(pct float64) string {
	switch {
	case pct > 0:
		return "up"
	case pct < 0:
		return "down"
	default:
		return ""
	}
}

// FormatWatchTime renders minutes as "N days M hours", dropping a zero day part.
func FormatWatchTime(minutes float64) string {
	if minutes <= 0 {
		return "0 hours"
	}
	totalHours := int64(minutes / 60)
	days, hours := totalHours/24, totalHours%24
	if days == 0 {
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%d days %d hours", days, hours)
}

// FormatDuration renders an ISO-8601 duration like PT1H2M3S as "1h 2m 3s".
// Input that does not parse is returned unchanged.
func FormatDuration(iso string) string {
	d, ok := ParseISODuration(iso)
	if !ok {
		return iso
	}
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)

	var parts []string
	if h > 0 {
		parts = append(parts, strconv.Itoa(h)+"h")
	}
	if m > 0 {
		parts = append(parts, strconv.Itoa(m)+"m")
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, strconv.Itoa(s)+"s")
	}
	return strings.Join(parts, " ")
}

// ParseISODuration parses the PnDTnHnMnS subset YouTube emits.
func ParseISODuration(iso string) (time.Duration, bool) {
	iso = strings.TrimSpace(iso)
	if !strings.HasPrefix(iso, "P") || len(iso) < 3 {
		return 0, false
	}

	var total time.Duration
	inTime := false
	num := ""
	for _, r := range iso[1:] {
		switch {
		case r == 'T':
			if inTime || num != "" {
				return 0, false
			}
			inTime = true
		case r >= '0' && r <= '9':
			num += string(r)
		default:
			if num == "" {
				return 0, false
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, false
			}
			num = ""
			unit, ok := durationUnit(r, inTime)
			if !ok {
				return 0, false
			}
			total += time.Duration(n) * unit
		}
	}
	if num != "" {
		return 0, false
	}
	return total, true
}

func durationUnit(r rune, inTime bool) (time.Duration, bool) {
	if !inTime {
		if r == 'D' {
			return 24 * time.Hour, true
		}
		return 0, false
	}
	switch r {
	case 'H':
		return time.Hour, true
	case 'M':
		return time.Minute, true
	case 'S':
		return time.Second, true
	default:
		return 0, false
	}
}

// FormatPublished renders an RFC 3339 timestamp as "Jan 2, 2006".
func FormatPublished(ts string) string {
	if ts == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", domain.DateLayout} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return ts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
