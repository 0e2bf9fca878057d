package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	tenants "github.com/zenGate-Global/clubportal/domains/tenants/be/service"
	themes "github.com/zenGate-Global/clubportal/domains/themes/be/service"
	users "github.com/zenGate-Global/clubportal/domains/users/be/service"
	platformauth "github.com/zenGate-Global/clubportal/platform/go/auth"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
	"github.com/zenGate-Global/clubportal/platform/go/session"
)

// FailureKind names why a login was refused. Callers show PublicFailureMessage for all of them.
type FailureKind string

const (
	FailureInvalidCredentials FailureKind = "invalid_credentials"
	FailureInactiveAccount    FailureKind = "inactive_account"
	FailureInactiveTenant     FailureKind = "inactive_tenant"
)

// PublicFailureMessage does not reveal which check failed.
const PublicFailureMessage = "invalid credentials or inactive account"

// Landing routes per role.
const (
	RouteAdmin  = "/admin"
	RouteStaff  = "/staff"
	RoutePlayer = "/player"
)

// Result is the outcome of a login attempt. Exactly one of User and Failure is set.
type Result struct {
	User      *users.User
	Failure   FailureKind
	Route     string
	Theme     themes.Snapshot
	Token     string
	ExpiresAt time.Time
}

// OK reports whether the attempt succeeded.
func (r Result) OK() bool {
	return r.User != nil && r.Failure == ""
}

// Credentials checks username and password against the identity store.
type Credentials interface {
	VerifyCredentials(ctx context.Context, username, password string) (users.User, error)
}

// TenantDirectory loads the tenant a staff member or player belongs to.
type TenantDirectory interface {
	Get(ctx context.Context, id string) (tenants.Tenant, error)
}

// ThemeResolver computes the theme for a tenant.
type ThemeResolver interface {
	Resolve(ctx context.Context, subject themes.Subject) themes.Snapshot
	Default() themes.Snapshot
}

// TokenIssuer signs API session tokens.
type TokenIssuer interface {
	Issue(creds platformauth.UserCredentials) (string, time.Time, error)
}

// AttemptObserver counts login outcomes.
type AttemptObserver interface {
	AuthAttempt(outcome string)
}

// Gate authenticates principals and records the outcome in their session.
type Gate struct {
	credentials Credentials
	tenants     TenantDirectory
	themes      ThemeResolver
	sessions    *session.Manager
	tokens      TokenIssuer
	observer    AttemptObserver
	logger      *zap.Logger
}

func NewGate(credentials Credentials, tenants TenantDirectory, themes ThemeResolver, sessions *session.Manager, tokens TokenIssuer, observer AttemptObserver, logger *zap.Logger) *Gate {
	if credentials == nil {
		panic("credentials checker is required")
	}
	if tenants == nil {
		panic("tenant directory is required")
	}
	if themes == nil {
		panic("theme resolver is required")
	}
	if sessions == nil {
		panic("session manager is required")
	}
	if tokens == nil {
		panic("token issuer is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Gate{
		credentials: credentials,
		tenants:     tenants,
		themes:      themes,
		sessions:    sessions,
		tokens:      tokens,
		observer:    observer,
		logger:      logger,
	}
}

// Authenticate verifies the credentials, the account status and, for tenant-bound roles, the
// tenant status. On success the user and the effective theme are stored in the profile's session.
// Refusals are reported in Result.Failure; err is reserved for store failures.
func (g *Gate) Authenticate(ctx context.Context, profile, username, password string) (Result, error) {
	logger := platformlogging.FromContext(ctx, g.logger).With(zap.String("profile", profile))

	user, err := g.credentials.VerifyCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			return g.refuse(logger, FailureInvalidCredentials, ""), nil
		}
		g.observe("error")
		return Result{}, fmt.Errorf("verify credentials: %w", err)
	}
	logger = logger.With(zap.String("user_id", user.ID), zap.String("role", user.Role))

	if !user.Active() {
		return g.refuse(logger, FailureInactiveAccount, user.ID), nil
	}

	sess := g.sessions.For(profile)
	result := Result{User: &user, Route: RouteForRole(user.Role)}

	if users.NeedsTenant(user.Role) {
		if user.TenantID == "" {
			return g.refuse(logger, FailureInactiveTenant, user.ID), nil
		}
		t, err := g.tenants.Get(ctx, user.TenantID)
		switch {
		case errors.Is(err, tenants.ErrNotFound):
			return g.refuse(logger, FailureInactiveTenant, user.ID), nil
		case err != nil:
			g.observe("error")
			return Result{}, fmt.Errorf("load tenant: %w", err)
		case !t.Active():
			return g.refuse(logger, FailureInactiveTenant, user.ID), nil
		}

		result.Theme = g.themes.Resolve(ctx, t.ThemeSubject())
		if err := g.storeSession(ctx, sess, user, &result.Theme); err != nil {
			g.observe("error")
			return Result{}, err
		}
	} else {
		result.Theme = g.themes.Default()
		if err := g.storeSession(ctx, sess, user, nil); err != nil {
			g.observe("error")
			return Result{}, err
		}
	}

	creds := platformauth.UserCredentials{ID: user.ID, Username: user.Username, Role: user.Role}
	if user.TenantID != "" {
		tenantID := user.TenantID
		creds.TenantID = &tenantID
	}
	result.Token, result.ExpiresAt, err = g.tokens.Issue(creds)
	if err != nil {
		g.observe("error")
		return Result{}, fmt.Errorf("issue session token: %w", err)
	}

	g.observe("success")
	logger.Info("login succeeded", zap.String("theme_key", result.Theme.Key), zap.String("theme_source", string(result.Theme.Source)))
	return result, nil
}

// Logout clears every session key of the profile, reverting its contexts to the default theme.
func (g *Gate) Logout(ctx context.Context, profile string) error {
	if err := g.sessions.For(profile).Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	platformlogging.FromContext(ctx, g.logger).Info("logout", zap.String("profile", profile))
	return nil
}

// Current returns what the profile's contexts currently render.
func (g *Gate) Current(ctx context.Context, profile string) (session.View, error) {
	return g.sessions.For(profile).View(ctx)
}

// Theme is the profile's current theme, or the default one when nothing usable is stored.
func (g *Gate) Theme(ctx context.Context, profile string) json.RawMessage {
	return g.sessions.For(profile).Theme(ctx)
}

// RouteForRole is the landing page after login.
func RouteForRole(role string) string {
	switch role {
	case platformauth.RoleAdmin:
		return RouteAdmin
	case platformauth.RoleTenantStaff:
		return RouteStaff
	case platformauth.RolePlayer:
		return RoutePlayer
	default:
		return "/"
	}
}

// storeSession writes the user and either the tenant theme or, for administrators, clears any
// theme left by a previous login.
func (g *Gate) storeSession(ctx context.Context, sess *session.Session, user users.User, theme *themes.Snapshot) error {
	if err := sess.SetUser(ctx, toSessionUser(user)); err != nil {
		return fmt.Errorf("store session user: %w", err)
	}
	if theme == nil {
		if err := sess.ClearTheme(ctx); err != nil {
			return fmt.Errorf("clear session theme: %w", err)
		}
		return nil
	}

	raw, err := json.Marshal(theme)
	if err != nil {
		return fmt.Errorf("encode theme: %w", err)
	}
	if err := sess.SetTheme(ctx, raw); err != nil {
		return fmt.Errorf("store session theme: %w", err)
	}
	return nil
}

func (g *Gate) refuse(logger *zap.Logger, kind FailureKind, userID string) Result {
	g.observe(string(kind))
	logger.Info("login refused", zap.String("reason", string(kind)), zap.String("matched_user_id", userID))
	return Result{Failure: kind}
}

func (g *Gate) observe(outcome string) {
	if g.observer != nil {
		g.observer.AuthAttempt(outcome)
	}
}

func toSessionUser(u users.User) session.User {
	return session.User{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		ClientID:  u.TenantID,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
