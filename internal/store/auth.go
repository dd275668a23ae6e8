package store

import (
	"context"
	"sync"

	"github.com/kapu/youtube-dashboard-go/internal/api"
	"github.com/kapu/youtube-dashboard-go/internal/domain"
	"github.com/kapu/youtube-dashboard-go/internal/storage"
	"github.com/kapu/youtube-dashboard-go/pkg/errors"
	"go.uber.org/zap"
)

// Persisted keys owned by the auth store.
const (
	AuthStorageKey = "auth-storage"
	UserStorageKey = "user"
)

var sessionKeys = []string{api.AccessTokenKey, UserStorageKey, AuthStorageKey}

// AuthAPI is the slice of the backend the auth store calls.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Signup(ctx context.Context, email, password, orgName string) (*api.AuthResponse, error)
	GetUserProfile(ctx context.Context) (*domain.User, error)
}

// AuthState is a copy of the auth store's state.
type AuthState struct {
	Session domain.Session
	Loading bool
	Error   string
}

type AuthCommand interface {
	authCommand()
}

type LoginCommand struct {
	Email    string
	Password string
}

type SignupCommand struct {
	Email    string
	Password string
	OrgName  string
}

type FetchProfileCommand struct{}

type LogoutCommand struct{}

func (LoginCommand) authCommand()        {}
func (SignupCommand) authCommand()       {}
func (FetchProfileCommand) authCommand() {}
func (LogoutCommand) authCommand()       {}

// AuthStore holds the session identity and writes it through to storage.
type AuthStore struct {
	api     AuthAPI
	storage storage.Storage
	logger  *zap.Logger

	mu              sync.Mutex
	state           AuthState
	profileInFlight bool
	listeners       []func(AuthState)
}

func NewAuthStore(authAPI AuthAPI, store storage.Storage, logger *zap.Logger) *AuthStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthStore{
		api:     authAPI,
		storage: store,
		logger:  logger,
	}
}

// Restore reloads the persisted session. Loading and error always start cleared.
func (s *AuthStore) Restore(ctx context.Context) {
	var session domain.Session
	found, err := s.storage.Get(ctx, AuthStorageKey, &session)
	if err != nil {
		s.logger.Warn("Failed to restore session", zap.Error(err))
		return
	}
	if !found {
		return
	}
	if !session.Valid() {
		s.logger.Warn("Discarding persisted session without token")
		s.clearPersisted(ctx)
		return
	}

	s.mu.Lock()
	s.state = AuthState{Session: session}
	s.mu.Unlock()

	s.logger.Info("Session restored",
		zap.Bool("authenticated", session.Authenticated),
	)
}

// Apply is the single state-update entry point.
func (s *AuthStore) Apply(ctx context.Context, cmd AuthCommand) Outcome {
	switch c := cmd.(type) {
	case LoginCommand:
		return s.authenticate(ctx, "login", func() (*api.AuthResponse, error) {
			return s.api.Login(ctx, c.Email, c.Password)
		}, "Login failed", "An error occurred during login")
	case SignupCommand:
		return s.authenticate(ctx, "signup", func() (*api.AuthResponse, error) {
			return s.api.Signup(ctx, c.Email, c.Password, c.OrgName)
		}, "Signup failed", "An error occurred during signup")
	case FetchProfileCommand:
		return s.fetchUserProfile(ctx)
	case LogoutCommand:
		s.logout(ctx)
		return OutcomeCompleted
	default:
		s.logger.Warn("Unknown auth command", zap.Any("command", cmd))
		return OutcomeFailed
	}
}

func (s *AuthStore) Login(ctx context.Context, email, password string) Outcome {
	return s.Apply(ctx, LoginCommand{Email: email, Password: password})
}

func (s *AuthStore) Signup(ctx context.Context, email, password, orgName string) Outcome {
	return s.Apply(ctx, SignupCommand{Email: email, Password: password, OrgName: orgName})
}

func (s *AuthStore) FetchUserProfile(ctx context.Context) Outcome {
	return s.Apply(ctx, FetchProfileCommand{})
}

func (s *AuthStore) Logout(ctx context.Context) {
	s.Apply(ctx, LogoutCommand{})
}

func (s *AuthStore) authenticate(ctx context.Context, op string, call func() (*api.AuthResponse, error), rejected, fallback string) Outcome {
	s.update(func(st *AuthState) {
		st.Loading = true
		st.Error = ""
	})

	resp, err := call()
	if err != nil {
		msg := errors.Message(err)
		if msg == "" {
			msg = fallback
		}
		s.logger.Warn("Authentication failed", zap.String("operation", op), zap.Error(err))
		s.update(func(st *AuthState) {
			st.Loading = false
			st.Error = msg
		})
		return OutcomeFailed
	}
	if resp == nil || !resp.Success || resp.AccessToken == "" {
		s.update(func(st *AuthState) {
			st.Loading = false
			st.Error = rejected
		})
		return OutcomeFailed
	}

	session := domain.Session{
		Authenticated: true,
		User:          resp.User,
		Token:         resp.AccessToken,
	}
	if err := s.storage.Set(ctx, api.AccessTokenKey, resp.AccessToken); err != nil {
		s.logger.Error("Failed to persist access token", zap.Error(err))
	}
	s.persistSession(ctx, session)

	s.update(func(st *AuthState) {
		st.Session = session
		st.Loading = false
	})

	s.logger.Info("Authenticated", zap.String("operation", op), zap.String("email", userEmail(resp.User)))
	return OutcomeCompleted
}

func (s *AuthStore) fetchUserProfile(ctx context.Context) Outcome {
	s.mu.Lock()
	if s.profileInFlight {
		s.mu.Unlock()
		return OutcomeSkippedInFlight
	}
	if s.state.Session.Token == "" {
		s.state.Error = "Not authenticated"
		snapshot := s.state
		s.mu.Unlock()
		s.notify(snapshot)
		return OutcomeFailed
	}
	s.profileInFlight = true
	s.state.Loading = true
	s.state.Error = ""
	snapshot := s.state
	s.mu.Unlock()
	s.notify(snapshot)

	user, err := s.api.GetUserProfile(ctx)

	s.mu.Lock()
	s.profileInFlight = false
	s.state.Loading = false
	if err != nil {
		// Profile refresh failure keeps the existing session.
		s.state.Error = errors.Message(err)
		snapshot = s.state
		s.mu.Unlock()
		s.notify(snapshot)
		s.logger.Warn("Failed to refresh user profile", zap.Error(err))
		return OutcomeFailed
	}
	if s.state.Session.Token == "" {
		// Logged out while the request was outstanding.
		snapshot = s.state
		s.mu.Unlock()
		s.notify(snapshot)
		return OutcomeDiscardedStale
	}
	s.state.Session.User = user
	s.state.Session.Authenticated = true
	session := s.state.Session
	snapshot = s.state
	s.mu.Unlock()

	s.persistSession(ctx, session)
	s.notify(snapshot)
	return OutcomeCompleted
}

func (s *AuthStore) logout(ctx context.Context) {
	s.clearPersisted(ctx)
	s.update(func(st *AuthState) {
		st.Session = domain.Session{}
		st.Loading = false
		st.Error = ""
	})
	s.logger.Info("Logged out")
}

func (s *AuthStore) clearPersisted(ctx context.Context) {
	if err := s.storage.Remove(ctx, sessionKeys...); err != nil {
		s.logger.Error("Failed to clear persisted session", zap.Error(err))
	}
}

func (s *AuthStore) persistSession(ctx context.Context, session domain.Session) {
	if err := s.storage.Set(ctx, AuthStorageKey, session); err != nil {
		s.logger.Error("Failed to persist session", zap.Error(err))
	}
}

// State returns a copy of the current state.
func (s *AuthStore) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.Session.User != nil {
		u := *st.Session.User
		st.Session.User = &u
	}
	return st
}

func (s *AuthStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Session.Authenticated && s.state.Session.Token != ""
}

// Token is the current bearer token, "" when logged out.
func (s *AuthStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Session.Token
}

// Subscribe registers fn to receive state after every change.
func (s *AuthStore) Subscribe(fn func(AuthState)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *AuthStore) update(mutate func(*AuthState)) {
	s.mu.Lock()
	mutate(&s.state)
	snapshot := s.state
	s.mu.Unlock()
	s.notify(snapshot)
}

func (s *AuthStore) notify(st AuthState) {
	s.mu.Lock()
	listeners := append([]func(AuthState){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(st)
	}
}

func userEmail(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.Email
}
