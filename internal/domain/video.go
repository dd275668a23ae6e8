package domain

// Video is a single upload as returned by the batched video endpoint.
type Video struct {
	ID           string `json:"id"`
	VideoID      string `json:"video_id"`
	ChannelID    string `json:"channel_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`
	PublishedAt  string `json:"published_at"`
	Duration     string `json:"duration"` // ISO-8601, e.g. PT12M3S
	ViewCount    int64  `json:"view_count"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// VideoPage is one server-sorted page of videos across the selected channels.
type VideoPage struct {
	Videos     []Video `json:"videos"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	Total      int     `json:"total"`
}
