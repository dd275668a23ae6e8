package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kapu/youtube-dashboard-go/internal/domain"
	"github.com/kapu/youtube-dashboard-go/pkg/errors"
)

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doRequest(ctx, opLogin, http.MethodPost, "/auth/login", nil, LoginRequest{
		Email:    email,
		Password: password,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Signup(ctx context.Context, email, password, orgName string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doRequest(ctx, opSignup, http.MethodPost, "/auth/signup", nil, SignupRequest{
		Email:    email,
		Password: password,
		OrgName:  orgName,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetUserProfile(ctx context.Context) (*domain.User, error) {
	var resp ProfileResponse
	if err := c.doRequest(ctx, opProfile, http.MethodGet, "/users/profile", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, errors.NewAPIError(opProfile.defaultMessage, opProfile.name, 200, nil)
	}
	return resp.User, nil
}

func (c *Client) GetYouTubeAuthURL(ctx context.Context) (string, error) {
	var resp YouTubeAuthResponse
	if err := c.doRequest(ctx, opYouTubeAuth, http.MethodGet, "/youtube/auth", nil, nil, &resp); err != nil {
		return "", err
	}
	if resp.AuthURL == "" {
		return "", errors.NewAPIError(opYouTubeAuth.defaultMessage, opYouTubeAuth.name, 200, nil)
	}
	return resp.AuthURL, nil
}

// HandleYouTubeCallback forwards the OAuth code/state pair. The response is opaque.
func (c *Client) HandleYouTubeCallback(ctx context.Context, code, state string) (map[string]any, error) {
	resp := map[string]any{}
	if err := c.doRequest(ctx, opYouTubeCallback, http.MethodPost, "/youtube/callback", nil, YouTubeCallbackRequest{
		Code:  code,
		State: state,
	}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetChannels(ctx context.Context) ([]domain.Channel, error) {
	var resp ChannelsResponse
	if err := c.doRequest(ctx, opChannels, http.MethodGet, "/channels/all", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Channels == nil {
		resp.Channels = []domain.Channel{}
	}
	return resp.Channels, nil
}

// GetChannelStats fetches one channel's snapshot. Empty dates are omitted.
func (c *Client) GetChannelStats(ctx context.Context, externalChannelID, startDate, endDate string) (*domain.StatsSnapshot, error) {
	query := url.Values{}
	query.Set("channel_id", externalChannelID)
	if startDate != "" {
		query.Set("start_date", startDate)
	}
	if endDate != "" {
		query.Set("end_date", endDate)
	}

	var resp ChannelStatsResponse
	if err := c.doRequest(ctx, opChannelStats, http.MethodGet, "/channels/stats", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}

// FetchVideos issues the batched request; the backend merges, sorts and
// paginates across every channel in the request.
func (c *Client) FetchVideos(ctx context.Context, req FetchVideosRequest) (*domain.VideoPage, error) {
	if req.ChannelIDs == nil {
		req.ChannelIDs = []string{}
	}
	var resp FetchVideosResponse
	if err := c.doRequest(ctx, opFetchVideos, http.MethodPost, "/videos/fetch", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Videos == nil {
		resp.Videos = []domain.Video{}
	}
	return &domain.VideoPage{
		Videos:     resp.Videos,
		Page:       resp.Page,
		TotalPages: resp.TotalPages,
		Total:      resp.Total,
	}, nil
}

// GetVideosByChannelID is the single-channel listing superseded by FetchVideos.
func (c *Client) GetVideosByChannelID(ctx context.Context, externalChannelID string) ([]domain.Video, error) {
	var resp VideosResponse
	if err := c.doRequest(ctx, opChannelVideos, http.MethodGet, "/videos/by-channel/"+url.PathEscape(externalChannelID), nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Videos == nil {
		resp.Videos = []domain.Video{}
	}
	return resp.Videos, nil
}
