package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
)

// User is the authenticated principal as persisted in the session. Timestamps are the stored
// record's, not the time of login.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ClientID  string    `json:"clientId,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// View is what every UI context of a profile renders from.
type View struct {
	User  *User           `json:"user"`
	Theme json.RawMessage `json:"theme"`
}

// Equal compares two views by value.
func (v View) Equal(other View) bool {
	a, errA := json.Marshal(v)
	b, errB := json.Marshal(other)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// ThemeKeys renders the built-in themes that KeyClubTheme names by key.
type ThemeKeys interface {
	PredefinedJSON(key string) (json.RawMessage, bool)
}

// Manager opens per-profile sessions over a shared Store.
type Manager struct {
	store        Store
	defaultTheme json.RawMessage
	keys         ThemeKeys
	logger       *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithThemeKeys lets sessions store and read built-in themes by key under KeyClubTheme.
func WithThemeKeys(keys ThemeKeys) ManagerOption {
	return func(m *Manager) { m.keys = keys }
}

func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager needs the JSON of the theme shown when none is stored.
func NewManager(store Store, defaultTheme json.RawMessage, opts ...ManagerOption) *Manager {
	if store == nil {
		panic("session store is required")
	}
	if !json.Valid(defaultTheme) {
		panic("default theme must be valid JSON")
	}
	m := &Manager{store: store, defaultTheme: append(json.RawMessage(nil), defaultTheme...), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Store() Store { return m.store }

func (m *Manager) DefaultTheme() json.RawMessage {
	return append(json.RawMessage(nil), m.defaultTheme...)
}

// For returns the session of one browser profile.
func (m *Manager) For(profile string) *Session {
	return &Session{m: m, profile: profile}
}

// Session is a typed view over the keys of one profile.
type Session struct {
	m       *Manager
	profile string
}

func (s *Session) Profile() string { return s.profile }

// User returns the stored user, or nil when absent or undecodable.
func (s *Session) User(ctx context.Context) (*User, error) {
	raw, err := s.m.store.Get(ctx, s.profile, KeyCurrentUser)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil || u.ID == "" {
		return nil, nil
	}
	return &u, nil
}

// Theme returns the stored theme document, then the theme named by the key-only entry, then the
// default theme. Store failures are logged and read as absent so callers always get a theme.
func (s *Session) Theme(ctx context.Context) json.RawMessage {
	if raw, ok := s.read(ctx, KeyCurrentClientTheme); ok && isThemeDocument(raw) {
		return json.RawMessage(raw)
	}
	if raw, ok := s.read(ctx, KeyClubTheme); ok {
		if theme, ok := s.m.themeFromKey(raw); ok {
			return theme
		}
	}
	return s.m.DefaultTheme()
}

func (s *Session) read(ctx context.Context, key string) ([]byte, bool) {
	raw, err := s.m.store.Get(ctx, s.profile, key)
	switch {
	case err == nil:
		return raw, true
	case errors.Is(err, ErrNotFound):
		return nil, false
	default:
		platformlogging.FromContext(ctx, s.m.logger).Warn("read session theme, using fallback",
			zap.String("profile", s.profile), zap.String("key", key), zap.Error(err))
		return nil, false
	}
}

// themeFromKey accepts a bare key ("penarol"), a quoted key, or a full theme document.
func (m *Manager) themeFromKey(raw []byte) (json.RawMessage, bool) {
	if m.keys != nil {
		key := strings.Trim(strings.TrimSpace(string(raw)), `"`)
		if theme, ok := m.keys.PredefinedJSON(key); ok {
			return theme, true
		}
	}
	if isThemeDocument(raw) {
		return json.RawMessage(raw), true
	}
	return nil, false
}

func isThemeDocument(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}

// View reads user and theme together. Only a failed user read is an error.
func (s *Session) View(ctx context.Context) (View, error) {
	user, err := s.User(ctx)
	if err != nil {
		return View{}, err
	}
	return View{User: user, Theme: s.Theme(ctx)}, nil
}

// SetUser writes the user and the flat id/role keys.
func (s *Session) SetUser(ctx context.Context, u User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	if err := s.m.store.Set(ctx, s.profile, KeyCurrentUser, raw); err != nil {
		return err
	}
	if err := s.m.store.Set(ctx, s.profile, KeyUserID, []byte(u.ID)); err != nil {
		return err
	}
	return s.m.store.Set(ctx, s.profile, KeyUserRole, []byte(u.Role))
}

// SetTheme writes the theme document under KeyCurrentClientTheme. KeyClubTheme gets the bare key
// when the theme is a built-in one and is removed otherwise.
func (s *Session) SetTheme(ctx context.Context, theme json.RawMessage) error {
	if !isThemeDocument(theme) {
		return errors.New("session theme must be a JSON object")
	}
	var head struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(theme, &head); err != nil {
		return fmt.Errorf("session theme must be a JSON object: %w", err)
	}
	if err := s.m.store.Set(ctx, s.profile, KeyCurrentClientTheme, theme); err != nil {
		return err
	}
	if s.m.keys != nil && head.Key != "" {
		if _, ok := s.m.keys.PredefinedJSON(head.Key); ok {
			return s.m.store.Set(ctx, s.profile, KeyClubTheme, []byte(head.Key))
		}
	}
	return s.m.store.Delete(ctx, s.profile, KeyClubTheme)
}

// ClearTheme removes any stored theme so readers fall back to the default.
func (s *Session) ClearTheme(ctx context.Context) error {
	return s.m.store.Delete(ctx, s.profile, KeyCurrentClientTheme, KeyClubTheme)
}

// Clear removes every session key of the profile.
func (s *Session) Clear(ctx context.Context) error {
	return s.m.store.Delete(ctx, s.profile, AllKeys...)
}
