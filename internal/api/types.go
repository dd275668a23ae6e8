package api

import "github.com/kapu/youtube-dashboard-go/internal/domain"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OrgName  string `json:"org_name"`
}

type AuthResponse struct {
	Success     bool         `json:"success"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *domain.User `json:"user"`
}

type ProfileResponse struct {
	Success bool         `json:"success"`
	User    *domain.User `json:"user"`
}

type YouTubeAuthResponse struct {
	Success bool   `json:"success"`
	AuthURL string `json:"auth_url"`
}

type YouTubeCallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type ChannelsResponse struct {
	Success  bool             `json:"success"`
	Channels []domain.Channel `json:"channels"`
}

type ChannelStatsResponse struct {
	Success bool                 `json:"success"`
	Stats   domain.StatsSnapshot `json:"stats"`
}

type FetchVideosRequest struct {
	ChannelIDs []string `json:"channel_ids"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	SortBy     string   `json:"sort_by"`
	Page       int      `json:"page"`
}

type FetchVideosResponse struct {
	Success    bool           `json:"success"`
	Videos     []domain.Video `json:"videos"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
}

type VideosResponse struct {
	Success bool           `json:"success"`
	Videos  []domain.Video `json:"videos"`
}

// successEnvelope is decoded from every body to detect success=false.
type successEnvelope struct {
	Success *bool `json:"success"`
}

// errorBody covers the message shapes the backend uses for failures.
type errorBody struct {
	Message string `json:"message"`
	Detail  any    `json:"detail"`
	Error   string `json:"error"`
}
