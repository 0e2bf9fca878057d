package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	modules "github.com/zenGate-Global/clubportal/domains/modules/be/service"
	themes "github.com/zenGate-Global/clubportal/domains/themes/be/service"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
	"github.com/zenGate-Global/clubportal/platform/go/requesttrace"
	"github.com/zenGate-Global/clubportal/platform/go/tenant"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// ErrNotFound is returned when the tenant id does not exist. The tenant middleware matches it too.
var ErrNotFound = tenant.ErrNotFound

// Tenant is a sports club served by the deployment.
type Tenant struct {
	ID          string
	Name        string
	DisplayName string
	ThemeRef    string
	LogoURL     string
	Status      string
	// EnabledModuleIDs is nil when never configured; an empty slice means nothing is enabled.
	EnabledModuleIDs []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Active reports whether the tenant may be used.
func (t Tenant) Active() bool {
	return t.Status == tenant.StatusActive
}

// EffectiveDisplayName falls back to the tenant name.
func (t Tenant) EffectiveDisplayName() string {
	if strings.TrimSpace(t.DisplayName) != "" {
		return t.DisplayName
	}
	return t.Name
}

// ThemeSubject is the input the theme resolver needs for this tenant.
func (t Tenant) ThemeSubject() themes.Subject {
	return themes.Subject{Name: t.Name, DisplayName: t.DisplayName, ThemeRef: t.ThemeRef, LogoURL: t.LogoURL}
}

// Scope converts the tenant to the request-scoped view.
func (t Tenant) Scope() tenant.Scope {
	return tenant.Scope{
		TenantID:         t.ID,
		Name:             t.Name,
		DisplayName:      t.EffectiveDisplayName(),
		ThemeRef:         t.ThemeRef,
		LogoURL:          t.LogoURL,
		Status:           t.Status,
		EnabledModuleIDs: t.EnabledModuleIDs,
	}
}

// CreateInput carries a new tenant. Optional fields fall back to defaults.
type CreateInput struct {
	Name             string
	DisplayName      *string
	ThemeRef         *string
	LogoURL          *string
	Status           *string
	EnabledModuleIDs []string
}

// UpdateInput is a partial update. A non-nil EnabledModuleIDs replaces the stored list,
// including with an empty one.
type UpdateInput struct {
	Name             *string
	DisplayName      *string
	ThemeRef         *string
	LogoURL          *string
	Status           *string
	EnabledModuleIDs *[]string
}

// ListOptions filters tenants.
type ListOptions struct {
	Status *string
}

// Repository abstracts persistence of tenants.
type Repository interface {
	List(ctx context.Context, opts ListOptions) ([]Tenant, error)
	Get(ctx context.Context, id string) (Tenant, error)
	Create(ctx context.Context, t Tenant) (Tenant, error)
	Update(ctx context.Context, t Tenant) (Tenant, error)
	Delete(ctx context.Context, id string) error
}

// UserDirectory is the identity store as seen by tenant cascades. Writes to ids that no longer
// exist must fail with an error matching docstore.ErrNotFound; cascades count those as done.
type UserDirectory interface {
	IDsByTenant(ctx context.Context, tenantID string, onlyActive bool) ([]string, error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// PlayerDirectory is the tenant-owned business records as seen by tenant cascades.
type PlayerDirectory interface {
	IDsByTenant(ctx context.Context, tenantID string) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// ChangeHook is told about tenants that changed so cached scopes can be dropped.
type ChangeHook func(tenantID string)

// CascadeMetrics counts cascade writes that gave up.
type CascadeMetrics interface {
	CascadeFailures(phase string, n int)
}

// Config tunes the lifecycle manager.
type Config struct {
	Retry RetryPolicy
}

// Service implements the tenant lifecycle.
type Service struct {
	repo     Repository
	users    UserDirectory
	players  PlayerDirectory
	logger   *zap.Logger
	retry    RetryPolicy
	metrics  CascadeMetrics
	onChange []ChangeHook
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithMetrics reports cascade failures.
func WithMetrics(m CascadeMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithChangeHook registers fn to run after a tenant is updated or deleted.
func WithChangeHook(fn ChangeHook) Option {
	return func(s *Service) {
		if fn != nil {
			s.onChange = append(s.onChange, fn)
		}
	}
}

func New(repo Repository, users UserDirectory, players PlayerDirectory, logger *zap.Logger, cfg Config, opts ...Option) *Service {
	if repo == nil {
		panic("tenants repo is required")
	}
	if users == nil {
		panic("user directory is required")
	}
	if players == nil {
		panic("player directory is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	s := &Service{
		repo:    repo,
		users:   users,
		players: players,
		logger:  logger,
		retry:   cfg.Retry.withDefaults(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns tenants, optionally filtered by status.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Tenant, error) {
	if opts.Status != nil {
		if err := validateStatus(*opts.Status); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, opts)
}

func (s *Service) Get(ctx context.Context, id string) (Tenant, error) {
	if strings.TrimSpace(id) == "" {
		return Tenant{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Create stores a new tenant. Name uniqueness is not enforced.
func (s *Service) Create(ctx context.Context, input CreateInput) (Tenant, error) {
	fields := FieldErrors{}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		fields.add("name", "name is required")
	}

	status := tenant.StatusActive
	if input.Status != nil {
		status = strings.TrimSpace(*input.Status)
		if !validStatus(status) {
			fields.add("status", "status must be active or inactive")
		}
	}
	if len(fields) > 0 {
		return Tenant{}, &ValidationError{Fields: fields}
	}

	displayName := name
	if input.DisplayName != nil && strings.TrimSpace(*input.DisplayName) != "" {
		displayName = strings.TrimSpace(*input.DisplayName)
	}

	themeRef := themes.KeyDefault
	if input.ThemeRef != nil && strings.TrimSpace(*input.ThemeRef) != "" {
		themeRef = strings.TrimSpace(*input.ThemeRef)
	}

	enabled := input.EnabledModuleIDs
	if enabled == nil {
		enabled = modules.DefaultEnabledIDs()
	} else {
		enabled = append([]string{}, enabled...)
	}

	now := s.now()
	t := Tenant{
		ID:               uuid.NewString(),
		Name:             name,
		DisplayName:      displayName,
		ThemeRef:         themeRef,
		LogoURL:          trimmed(input.LogoURL),
		Status:           status,
		EnabledModuleIDs: enabled,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return Tenant{}, fmt.Errorf("create tenant: %w", err)
	}

	s.auditLogger(ctx).Info("tenant created", zap.String("tenant_id", created.ID), zap.String("tenant_name", created.Name))
	return created, nil
}

// Update applies input and, when the tenant is being deactivated, deactivates every active user
// of the tenant. A partial cascade failure returns the updated tenant together with a *CascadeError.
// Reactivating a tenant does not reactivate its users.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (Tenant, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Tenant{}, err
	}

	next, err := applyUpdate(current, input)
	if err != nil {
		return Tenant{}, err
	}
	next.UpdatedAt = s.now()

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Tenant{}, fmt.Errorf("update tenant: %w", err)
	}
	s.notifyChange(updated.ID)

	logger := s.auditLogger(ctx).With(zap.String("tenant_id", updated.ID))
	logger.Info("tenant updated", zap.String("status", updated.Status))

	if input.Status != nil && *input.Status == tenant.StatusInactive {
		if err := s.deactivateUsers(ctx, updated.ID, logger); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// Deactivate is Update with status inactive.
func (s *Service) Deactivate(ctx context.Context, id string) (Tenant, error) {
	status := tenant.StatusInactive
	return s.Update(ctx, id, UpdateInput{Status: &status})
}

// Delete removes the tenant's players, then its users, then the tenant itself. Each phase completes
// before the next starts; a failure aborts with the tenant record still present so the call can be
// repeated.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	logger := s.auditLogger(ctx).With(zap.String("tenant_id", id))

	playerIDs, err := s.players.IDsByTenant(ctx, id)
	if err != nil {
		return fmt.Errorf("list tenant players: %w", err)
	}
	if err := s.cascade(ctx, PhaseDeletePlayers, playerIDs, s.players.Delete, logger); err != nil {
		return err
	}

	userIDs, err := s.users.IDsByTenant(ctx, id, false)
	if err != nil {
		return fmt.Errorf("list tenant users: %w", err)
	}
	if err := s.cascade(ctx, PhaseDeleteUsers, userIDs, s.users.Delete, logger); err != nil {
		return err
	}

	op := func(ctx context.Context, tenantID string) error { return s.repo.Delete(ctx, tenantID) }
	if err := s.cascade(ctx, PhaseDeleteTenant, []string{id}, op, logger); err != nil {
		return err
	}

	s.notifyChange(id)
	logger.Info("tenant deleted", zap.Int("players_deleted", len(playerIDs)), zap.Int("users_deleted", len(userIDs)))
	return nil
}

// ResolveScope serves the tenant middleware.
func (s *Service) ResolveScope(ctx context.Context, tenantID string) (tenant.Scope, error) {
	t, err := s.Get(ctx, tenantID)
	if err != nil {
		return tenant.Scope{}, err
	}
	return t.Scope(), nil
}

func (s *Service) deactivateUsers(ctx context.Context, tenantID string, logger *zap.Logger) error {
	ids, err := s.users.IDsByTenant(ctx, tenantID, true)
	if err != nil {
		return &CascadeError{Phase: PhaseDeactivateUsers, Cause: err}
	}
	if err := s.cascade(ctx, PhaseDeactivateUsers, ids, s.users.Deactivate, logger); err != nil {
		return err
	}
	logger.Info("tenant users deactivated", zap.Int("users", len(ids)))
	return nil
}

func (s *Service) notifyChange(id string) {
	for _, fn := range s.onChange {
		fn(id)
	}
}

func (s *Service) auditLogger(ctx context.Context) *zap.Logger {
	audit := requesttrace.FromContextOrSystem(ctx)
	return platformlogging.FromContext(ctx, s.logger).With(audit.Fields()...)
}

func applyUpdate(current Tenant, input UpdateInput) (Tenant, error) {
	fields := FieldErrors{}
	next := current

	if input.Name != nil {
		next.Name = strings.TrimSpace(*input.Name)
		if next.Name == "" {
			fields.add("name", "name must not be empty")
		}
	}
	if input.DisplayName != nil {
		next.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.ThemeRef != nil {
		next.ThemeRef = strings.TrimSpace(*input.ThemeRef)
	}
	if input.LogoURL != nil {
		next.LogoURL = strings.TrimSpace(*input.LogoURL)
	}
	if input.Status != nil {
		if !validStatus(*input.Status) {
			fields.add("status", "status must be active or inactive")
		}
		next.Status = *input.Status
	}
	if input.EnabledModuleIDs != nil {
		next.EnabledModuleIDs = append([]string{}, (*input.EnabledModuleIDs)...)
	}

	if len(fields) > 0 {
		return Tenant{}, &ValidationError{Fields: fields}
	}
	return next, nil
}

func validStatus(s string) bool {
	return s == tenant.StatusActive || s == tenant.StatusInactive
}

func validateStatus(s string) error {
	if validStatus(s) {
		return nil
	}
	return &ValidationError{Fields: FieldErrors{"status": {"status must be active or inactive"}}}
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func (f FieldErrors) add(field, message string) {
	f[field] = append(f[field], message)
}
