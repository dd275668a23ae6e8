package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kapu/youtube-dashboard-go/internal/storage"
	"github.com/kapu/youtube-dashboard-go/pkg/errors"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, zap.NewNop(), opts...)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestLoginSendsCredentialsWithoutToken(t *testing.T) {
	var gotAuth string
	var gotBody LoginRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, 200, map[string]any{
			"success":      true,
			"access_token": "tok-1",
			"token_type":   "bearer",
			"user":         map[string]any{"id": "u1", "email": "a@b.c", "org_id": "o1", "org_name": "Org"},
		})
	})

	resp, err := client.Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("expected no Authorization header, got %q", gotAuth)
	}
	if gotBody.Email != "a@b.c" || gotBody.Password != "pw" {
		t.Fatalf("unexpected body %+v", gotBody)
	}
	if resp.AccessToken != "tok-1" || resp.User == nil || resp.User.OrgName != "Org" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestBearerTokenAttachedFromStorage(t *testing.T) {
	store := storage.NewMemoryStorage()
	if err := store.Set(context.Background(), AccessTokenKey, "secret"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	var gotAuth, gotRequestID string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		writeJSON(w, 200, map[string]any{"success": true, "channels": []any{}})
	}, WithTokenSource(StorageTokenSource(store)))

	channels, err := client.GetChannels(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channels == nil || len(channels) != 0 {
		t.Fatalf("expected empty non-nil channels, got %v", channels)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if gotRequestID == "" {
		t.Fatal("expected X-Request-ID header")
	}
}

func TestServerMessagePreferredOnHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 401, map[string]any{"message": "Invalid credentials"})
	})

	_, err := client.Login(context.Background(), "a@b.c", "bad")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := errors.Message(err); got != "Invalid credentials" {
		t.Fatalf("expected server message, got %q", got)
	}
	if errors.StatusCode(err) != 401 {
		t.Fatalf("expected status 401, got %d", errors.StatusCode(err))
	}
}

func TestDetailMessageUsedWhenNoMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, map[string]any{"detail": "Channel not found"})
	})

	_, err := client.GetChannelStats(context.Background(), "UC1", "", "")
	if got := errors.Message(err); got != "Channel not found" {
		t.Fatalf("expected detail message, got %q", got)
	}
}

func TestDefaultMessageOnSuccessFalse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"success": false})
	})

	_, err := client.GetChannels(context.Background())
	if got := errors.Message(err); got != "Failed to get channels" {
		t.Fatalf("expected default message, got %q", got)
	}
}

func TestNetworkFailureUsesRetryMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(url, nil)
	_, err := client.FetchVideos(context.Background(), FetchVideosRequest{ChannelIDs: []string{"UC1"}, Page: 1})
	if got := errors.Message(err); got != "Failed to fetch videos. Please try again." {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestGetChannelStatsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("channel_id") != "UC1" || q.Get("start_date") != "2025-01-01" || q.Get("end_date") != "2025-01-31" {
			t.Fatalf("unexpected query %v", q)
		}
		writeJSON(w, 200, map[string]any{
			"success": true,
			"stats": map[string]any{
				"youtube_stats":    map[string]any{"total_subscribers": 100, "total_views": 1000},
				"calculated_stats": map[string]any{"views_growth_percentage": 2.5},
				"start_date":       "2025-01-01",
				"end_date":         "2025-01-31",
			},
		})
	})

	stats, err := client.GetChannelStats(context.Background(), "UC1", "2025-01-01", "2025-01-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.YouTubeStats.TotalSubscribers != 100 || stats.CalculatedStats.ViewsGrowthPercentage != 2.5 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.StartDate == nil || *stats.StartDate != "2025-01-01" {
		t.Fatalf("unexpected start date %v", stats.StartDate)
	}
}

func TestGetChannelStatsOmitsEmptyDates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Has("start_date") || q.Has("end_date") {
			t.Fatalf("expected dates omitted, got %v", q)
		}
		writeJSON(w, 200, map[string]any{"success": true, "stats": map[string]any{}})
	})
	if _, err := client.GetChannelStats(context.Background(), "UC1", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchVideosSendsSingleBatchedRequest(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req FetchVideosRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.ChannelIDs) != 2 || req.SortBy != "most_views" || req.Page != 2 {
			t.Fatalf("unexpected request %+v", req)
		}
		writeJSON(w, 200, map[string]any{
			"success":     true,
			"videos":      []map[string]any{{"id": "v1", "video_id": "yt1", "view_count": 10}},
			"total":       21,
			"page":        2,
			"total_pages": 3,
		})
	})

	page, err := client.FetchVideos(context.Background(), FetchVideosRequest{
		ChannelIDs: []string{"UC1", "UC2"},
		StartDate:  "2025-01-01",
		EndDate:    "2025-01-31",
		SortBy:     "most_views",
		Page:       2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one request, got %d", calls)
	}
	if page.Total != 21 || page.TotalPages != 3 || page.Page != 2 || len(page.Videos) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestYouTubeAuthAndCallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/youtube/auth":
			writeJSON(w, 200, map[string]any{"success": true, "auth_url": "https://accounts.example.com/o/oauth2"})
		case "/youtube/callback":
			var req YouTubeCallbackRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Code != "c" || req.State != "s" {
				t.Fatalf("unexpected callback body %+v", req)
			}
			writeJSON(w, 200, map[string]any{"success": true, "channel_id": "UC9"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	authURL, err := client.GetYouTubeAuthURL(context.Background())
	if err != nil || authURL == "" {
		t.Fatalf("unexpected auth url %q err %v", authURL, err)
	}
	resp, err := client.HandleYouTubeCallback(context.Background(), "c", "s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp["channel_id"] != "UC9" {
		t.Fatalf("unexpected callback response %v", resp)
	}
}

func TestGetVideosByChannelIDEscapesPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/videos/by-channel/UC%2F1" {
			t.Fatalf("unexpected path %s", r.URL.EscapedPath())
		}
		writeJSON(w, 200, map[string]any{"success": true})
	})
	videos, err := client.GetVideosByChannelID(context.Background(), "UC/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if videos == nil {
		t.Fatal("expected non-nil slice")
	}
}

func TestYouTubeCallbackAcceptsNonObjectBody(t *testing.T) {
	for name, body := range map[string]string{
		"empty":  "",
		"string": `"connected"`,
		"array":  `[]`,
		"text":   "OK",
	} {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(body))
			})

			resp, err := client.HandleYouTubeCallback(context.Background(), "c", "s")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(resp) != 0 {
				t.Fatalf("expected empty response, got %v", resp)
			}
		})
	}
}

func TestYouTubeCallbackStillReportsSuccessFalse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"success": false, "message": "State mismatch"})
	})

	_, err := client.HandleYouTubeCallback(context.Background(), "c", "s")
	if err == nil || errors.Message(err) != "State mismatch" {
		t.Fatalf("expected server message, got %v", err)
	}
}

func TestEmptyBodyFailsForTypedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.GetChannels(context.Background())
	if err == nil || errors.Message(err) != "Failed to get channels" {
		t.Fatalf("expected default message, got %v", err)
	}
}
