package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/clubportal/platform/go/auth"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
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

// Domain sentinel errors.
var (
	ErrNotFound           = errors.New("user not found")
	ErrConflict           = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is an identity record without its password.
type User struct {
	ID       string
	Username string
	Role     string
	// TenantID is empty for administrators.
	TenantID  string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the account may sign in.
func (u User) Active() bool {
	return u.Status == tenant.StatusActive
}

// NeedsTenant reports whether the role is bound to a tenant.
func NeedsTenant(role string) bool {
	return role == platformauth.RoleTenantStaff || role == platformauth.RolePlayer
}

// Account is the stored record: the user plus its stored password.
type Account struct {
	User
	Password string
}

// CreateInput carries a new user.
type CreateInput struct {
	Username string
	Password string
	Role     string
	TenantID string
	Status   *string
}

// UpdateInput is a partial update. Role and tenant are fixed at creation.
type UpdateInput struct {
	Username *string
	Password *string
	Status   *string
}

// ListOptions filters users.
type ListOptions struct {
	TenantID *string
	Role     *string
	Status   *string
}

// Repository abstracts persistence of accounts.
type Repository interface {
	List(ctx context.Context, opts ListOptions) ([]Account, error)
	Get(ctx context.Context, id string) (Account, error)
	FindByUsername(ctx context.Context, username string) ([]Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	Update(ctx context.Context, account Account) (Account, error)
	Delete(ctx context.Context, id string) error
}

// Service defines the business operations for the identity store.
type Service interface {
	Create(ctx context.Context, input CreateInput) (User, error)
	List(ctx context.Context, opts ListOptions) ([]User, error)
	Get(ctx context.Context, id string) (User, error)
	Update(ctx context.Context, id string, input UpdateInput) (User, error)
	Delete(ctx context.Context, id string) error

	// VerifyCredentials returns the user whose username and password both match exactly,
	// whatever its status, or ErrInvalidCredentials.
	VerifyCredentials(ctx context.Context, username, password string) (User, error)
	// EnsureAdmin creates the administrator account unless a user with that username exists.
	EnsureAdmin(ctx context.Context, username, password string) (User, bool, error)

	IDsByTenant(ctx context.Context, tenantID string, onlyActive bool) ([]string, error)
	Deactivate(ctx context.Context, id string) error
}

type service struct {
	repo   Repository
	hasher PasswordHasher
	logger *zap.Logger
	now    func() time.Time
}

// New constructs a users Service backed by the provided repository.
func New(r Repository, hasher PasswordHasher, logger *zap.Logger) Service {
	if r == nil {
		panic("users repository is required")
	}
	if hasher == nil {
		panic("password hasher is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &service{repo: r, hasher: hasher, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

var validRoles = []string{platformauth.RoleAdmin, platformauth.RoleTenantStaff, platformauth.RolePlayer}

func (s *service) Create(ctx context.Context, input CreateInput) (User, error) {
	fieldErrors := FieldErrors{}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		fieldErrors.add("username", "username is required")
	}
	if input.Password == "" {
		fieldErrors.add("password", "password is required")
	}

	role := strings.TrimSpace(input.Role)
	tenantID := strings.TrimSpace(input.TenantID)
	switch {
	case !slices.Contains(validRoles, role):
		fieldErrors.add("role", "role must be admin, tenant_staff or player")
	case NeedsTenant(role) && tenantID == "":
		fieldErrors.add("clientId", "clientId is required for this role")
	case !NeedsTenant(role) && tenantID != "":
		fieldErrors.add("clientId", "administrators do not belong to a client")
	}

	status := tenant.StatusActive
	if input.Status != nil {
		status = *input.Status
		if !validStatus(status) {
			fieldErrors.add("status", "status must be active or inactive")
		}
	}

	if len(fieldErrors) > 0 {
		return User{}, &ValidationError{Fields: fieldErrors}
	}

	if err := s.ensureUsernameFree(ctx, username, ""); err != nil {
		return User{}, err
	}

	stored, err := s.hasher.Hash(input.Password)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	account, err := s.repo.Create(ctx, Account{
		User: User{
			ID:        uuid.NewString(),
			Username:  username,
			Role:      role,
			TenantID:  tenantID,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Password: stored,
	})
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}

	platformlogging.FromContext(ctx, s.logger).Info("user created",
		zap.String("user_id", account.ID), zap.String("role", account.Role), zap.String("client_id", account.TenantID))
	return account.User, nil
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]User, error) {
	accounts, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.User)
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id string) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, ErrNotFound
	}
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	return account.User, nil
}

func (s *service) Update(ctx context.Context, id string, input UpdateInput) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, ErrNotFound
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}

	fieldErrors := FieldErrors{}
	next := current
	fieldsSet := 0

	if input.Username != nil {
		next.Username = strings.TrimSpace(*input.Username)
		if next.Username == "" {
			fieldErrors.add("username", "username cannot be empty")
		}
		fieldsSet++
	}
	if input.Password != nil {
		if *input.Password == "" {
			fieldErrors.add("password", "password cannot be empty")
		}
		fieldsSet++
	}
	if input.Status != nil {
		if !validStatus(*input.Status) {
			fieldErrors.add("status", "status must be active or inactive")
		}
		next.Status = *input.Status
		fieldsSet++
	}
	if fieldsSet == 0 {
		fieldErrors.add("payload", "at least one field must be provided")
	}
	if len(fieldErrors) > 0 {
		return User{}, &ValidationError{Fields: fieldErrors}
	}

	if next.Username != current.Username {
		if err := s.ensureUsernameFree(ctx, next.Username, id); err != nil {
			return User{}, err
		}
	}
	if input.Password != nil {
		stored, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return User{}, err
		}
		next.Password = stored
	}

	next.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return User{}, err
	}
	return updated.User, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) VerifyCredentials(ctx context.Context, username, password string) (User, error) {
	if username == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	candidates, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	for _, c := range candidates {
		if c.Username == username && s.hasher.Verify(c.Password, password) {
			return c.User, nil
		}
	}
	return User{}, ErrInvalidCredentials
}

func (s *service) EnsureAdmin(ctx context.Context, username, password string) (User, bool, error) {
	existing, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return User{}, false, err
	}
	if len(existing) > 0 {
		return existing[0].User, false, nil
	}

	created, err := s.Create(ctx, CreateInput{Username: username, Password: password, Role: platformauth.RoleAdmin})
	if err != nil {
		return User{}, false, err
	}
	return created, true, nil
}

func (s *service) IDsByTenant(ctx context.Context, tenantID string, onlyActive bool) ([]string, error) {
	opts := ListOptions{TenantID: &tenantID}
	if onlyActive {
		active := tenant.StatusActive
		opts.Status = &active
	}

	accounts, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// Deactivate marks the user inactive. Already inactive users are left untouched.
func (s *service) Deactivate(ctx context.Context, id string) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == tenant.StatusInactive {
		return nil
	}
	current.Status = tenant.StatusInactive
	current.UpdatedAt = s.now()
	_, err = s.repo.Update(ctx, current)
	return err
}

// ensureUsernameFree is a best-effort check; the document store offers no unique index.
func (s *service) ensureUsernameFree(ctx context.Context, username, selfID string) error {
	existing, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	for _, a := range existing {
		if a.ID != selfID {
			return ErrConflict
		}
	}
	return nil
}

func validStatus(s string) bool {
	return s == tenant.StatusActive || s == tenant.StatusInactive
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
