package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kapu/youtube-dashboard-go/internal/adapter"
	"github.com/kapu/youtube-dashboard-go/internal/stats"
	"github.com/kapu/youtube-dashboard-go/internal/store"
	"github.com/kapu/youtube-dashboard-go/pkg/errors"
	"go.uber.org/zap"
)

func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := adapter.RenderPage(&buf, page, data); err != nil {
		s.logger.Error("Failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":        "ok",
		"authenticated": s.auth.IsAuthenticated(),
		"ws_clients":    s.hub.ClientCount(),
	}
	status := http.StatusOK
	if s.storageProbe != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if s.storageProbe(ctx) {
			body["storage"] = "ok"
		} else {
			body["status"] = "degraded"
			body["storage"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if s.auth.IsAuthenticated() {
		http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login", adapter.LoginView{
		Signup: r.URL.Query().Get("signup") != "",
		Next:   nextParam(next),
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "login", adapter.LoginView{Error: "Invalid form"})
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	next := r.PostForm.Get("next")
	if s.auth.Login(r.Context(), email, r.PostForm.Get("password")) != store.OutcomeCompleted {
		s.render(w, http.StatusUnauthorized, "login", adapter.LoginView{
			Email: email,
			Error: s.auth.State().Error,
			Next:  nextParam(next),
		})
		return
	}
	s.controller.Refresh(r.Context())
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "login", adapter.LoginView{Signup: true, Error: "Invalid form"})
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	orgName := strings.TrimSpace(r.PostForm.Get("org_name"))
	next := r.PostForm.Get("next")
	if s.auth.Signup(r.Context(), email, r.PostForm.Get("password"), orgName) != store.OutcomeCompleted {
		s.render(w, http.StatusUnauthorized, "login", adapter.LoginView{
			Signup: true,
			Email:  email,
			Error:  s.auth.State().Error,
			Next:   nextParam(next),
		})
		return
	}
	s.controller.Refresh(r.Context())
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(r.Context())
	s.loader.Reset()
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) dashboardPage(w http.ResponseWriter, r *http.Request) {
	// Idle means nothing has loaded since startup, restore or logout.
	if s.loader.State().Phase == stats.PhaseIdle {
		s.controller.Refresh(r.Context())
	}
	s.renderDashboard(w, http.StatusOK, "")
}

func (s *Server) renderDashboard(w http.ResponseWriter, status int, errMsg string) {
	view := s.formatter.Dashboard(s.auth.State().Session.User, s.filter.State(), s.loader.State())
	if errMsg != "" {
		view.Error = errMsg
	}
	s.render(w, status, "dashboard", view)
}

func (s *Server) applyFilters(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderDashboard(w, http.StatusBadRequest, "Invalid form")
		return
	}
	cmds, err := s.forms.ParseFilters(r.PostForm)
	if err != nil {
		s.renderDashboard(w, http.StatusBadRequest, errors.Message(err))
		return
	}
	if err := s.controller.ApplyFilters(r.Context(), cmds); err != nil {
		s.renderDashboard(w, http.StatusBadRequest, errors.Message(err))
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) reloadStats(w http.ResponseWriter, r *http.Request) {
	if out := s.controller.ReloadStats(r.Context()); out == store.OutcomeFailed {
		s.renderDashboard(w, http.StatusBadGateway, s.loader.State().Error)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) settingsPage(w http.ResponseWriter, r *http.Request) {
	s.auth.FetchUserProfile(r.Context())
	s.render(w, http.StatusOK, "settings", s.formatter.Settings(s.auth.State(), s.filter.State()))
}

func (s *Server) videosPage(w http.ResponseWriter, r *http.Request) {
	st := s.filter.State()
	sortKey := r.URL.Query().Get("sort")
	if sortKey == "" {
		sortKey = st.SortKey
	}
	page := adapter.ParsePage(r.URL.Query().Get("page"), st.CurrentPage)

	s.controller.LoadVideoPage(r.Context(), sortKey, page)
	s.render(w, http.StatusOK, "videos", s.formatter.Videos(s.auth.State().Session.User, s.filter.State()))
}

func (s *Server) youtubeConnect(w http.ResponseWriter, r *http.Request) {
	authURL, err := s.youtube.GetYouTubeAuthURL(r.Context())
	if err != nil {
		s.logger.Warn("Failed to get YouTube auth URL", zap.Error(err))
		s.render(w, http.StatusBadGateway, "settings", adapter.SettingsView{
			User:  s.auth.State().Session.User,
			Error: errors.Message(err),
		})
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// youtubeReturn completes the OAuth exchange. It always lands on the
// dashboard; failures are only logged.
func (s *Server) youtubeReturn(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		s.logger.Warn("YouTube callback without code or state",
			zap.Bool("has_code", code != ""),
			zap.Bool("has_state", state != ""),
			zap.String("error", r.URL.Query().Get("error")),
		)
	} else if _, err := s.youtube.HandleYouTubeCallback(r.Context(), code, state); err != nil {
		s.logger.Warn("YouTube callback failed", zap.Error(err))
	} else {
		s.logger.Info("YouTube channel connected")
		s.controller.Refresh(r.Context())
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// nextParam keeps a return path only when login may honour it.
func nextParam(raw string) string {
	if raw == "" || safeNext(raw) != raw {
		return ""
	}
	return raw
}
