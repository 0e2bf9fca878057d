package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	users "github.com/zenGate-Global/clubportal/domains/users/be/service"
	platformauth "github.com/zenGate-Global/clubportal/platform/go/auth"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
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

// ErrNotFound is returned when the player does not exist in the caller's tenant.
var ErrNotFound = errors.New("player not found")

// BirthDateLayout is the stored birth date format.
const BirthDateLayout = "2006-01-02"

// Player is a squad member owned by one tenant.
type Player struct {
	ID        string
	TenantID  string
	FirstName string
	LastName  string
	BirthDate string
	Position  string
	// PhotoURL is a data URL or a remote URL; it is stored as given.
	PhotoURL  string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput carries a new player. When Username is set a player account is created too.
type CreateInput struct {
	FirstName string
	LastName  string
	BirthDate string
	Position  string
	PhotoURL  string
	Username  string
	Password  string
}

// UpdateInput is a partial update.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	BirthDate *string
	Position  *string
	PhotoURL  *string
}

// Repository abstracts persistence of players.
type Repository interface {
	ListByTenant(ctx context.Context, tenantID string) ([]Player, error)
	Get(ctx context.Context, id string) (Player, error)
	Create(ctx context.Context, p Player) (Player, error)
	Update(ctx context.Context, p Player) (Player, error)
	Delete(ctx context.Context, id string) error
}

// Accounts creates and removes the login linked to a player.
type Accounts interface {
	Create(ctx context.Context, input users.CreateInput) (users.User, error)
	Delete(ctx context.Context, id string) error
}

// Service manages players within the caller's tenant.
type Service struct {
	repo     Repository
	accounts Accounts
	logger   *zap.Logger
	now      func() time.Time
}

func New(repo Repository, accounts Accounts, logger *zap.Logger) *Service {
	if repo == nil {
		panic("players repository is required")
	}
	if accounts == nil {
		panic("accounts service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Service{repo: repo, accounts: accounts, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns the tenant's players ordered by last name, then first name.
func (s *Service) List(ctx context.Context, tenantID string) ([]Player, error) {
	players, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if !strings.EqualFold(a.LastName, b.LastName) {
			return strings.ToLower(a.LastName) < strings.ToLower(b.LastName)
		}
		if !strings.EqualFold(a.FirstName, b.FirstName) {
			return strings.ToLower(a.FirstName) < strings.ToLower(b.FirstName)
		}
		return a.ID < b.ID
	})
	return players, nil
}

// Get returns a player of the tenant. Players of other tenants are reported as missing.
func (s *Service) Get(ctx context.Context, tenantID, id string) (Player, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Player{}, err
	}
	if p.TenantID != tenantID {
		return Player{}, ErrNotFound
	}
	return p, nil
}

// Create stores a player and, when a username is supplied, the player's own account.
func (s *Service) Create(ctx context.Context, tenantID string, input CreateInput) (Player, error) {
	fields := FieldErrors{}
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" {
		fields.add("firstName", "firstName is required")
	}
	if lastName == "" {
		fields.add("lastName", "lastName is required")
	}
	birthDate := strings.TrimSpace(input.BirthDate)
	validateBirthDate(birthDate, fields)

	username := strings.TrimSpace(input.Username)
	if username != "" && input.Password == "" {
		fields.add("password", "password is required when username is set")
	}
	if len(fields) > 0 {
		return Player{}, &ValidationError{Fields: fields}
	}

	logger := platformlogging.FromContext(ctx, s.logger).With(zap.String("client_id", tenantID))

	var account users.User
	if username != "" {
		var err error
		account, err = s.accounts.Create(ctx, users.CreateInput{
			Username: username,
			Password: input.Password,
			Role:     platformauth.RolePlayer,
			TenantID: tenantID,
		})
		if err != nil {
			return Player{}, fmt.Errorf("create player account: %w", err)
		}
	}

	now := s.now()
	created, err := s.repo.Create(ctx, Player{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		FirstName: firstName,
		LastName:  lastName,
		BirthDate: birthDate,
		Position:  strings.TrimSpace(input.Position),
		PhotoURL:  input.PhotoURL,
		UserID:    account.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if account.ID != "" {
			if delErr := s.accounts.Delete(ctx, account.ID); delErr != nil {
				logger.Error("orphaned player account", zap.String("user_id", account.ID), zap.Error(delErr))
			}
		}
		return Player{}, fmt.Errorf("create player: %w", err)
	}

	logger.Info("player created", zap.String("player_id", created.ID), zap.Bool("with_account", created.UserID != ""))
	return created, nil
}

func (s *Service) Update(ctx context.Context, tenantID, id string, input UpdateInput) (Player, error) {
	current, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return Player{}, err
	}

	fields := FieldErrors{}
	next := current
	if input.FirstName != nil {
		next.FirstName = strings.TrimSpace(*input.FirstName)
		if next.FirstName == "" {
			fields.add("firstName", "firstName cannot be empty")
		}
	}
	if input.LastName != nil {
		next.LastName = strings.TrimSpace(*input.LastName)
		if next.LastName == "" {
			fields.add("lastName", "lastName cannot be empty")
		}
	}
	if input.BirthDate != nil {
		next.BirthDate = strings.TrimSpace(*input.BirthDate)
		validateBirthDate(next.BirthDate, fields)
	}
	if input.Position != nil {
		next.Position = strings.TrimSpace(*input.Position)
	}
	if input.PhotoURL != nil {
		next.PhotoURL = *input.PhotoURL
	}
	if len(fields) > 0 {
		return Player{}, &ValidationError{Fields: fields}
	}

	next.UpdatedAt = s.now()
	return s.repo.Update(ctx, next)
}

// Delete removes the player and then its linked account.
func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	current, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	if current.UserID != "" {
		if err := s.accounts.Delete(ctx, current.UserID); err != nil && !errors.Is(err, users.ErrNotFound) {
			return fmt.Errorf("delete player account: %w", err)
		}
	}
	return nil
}

// Directory exposes unscoped player ids and deletes to the tenant cascade.
func (s *Service) Directory() *Directory {
	return &Directory{repo: s.repo}
}

// Directory is the players collection as seen by tenant cascades. Linked accounts are
// handled by the users phase.
type Directory struct {
	repo Repository
}

func (d *Directory) IDsByTenant(ctx context.Context, tenantID string) ([]string, error) {
	players, err := d.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (d *Directory) Delete(ctx context.Context, id string) error {
	return d.repo.Delete(ctx, id)
}

func validateBirthDate(value string, fields FieldErrors) {
	if value == "" {
		return
	}
	if _, err := time.Parse(BirthDateLayout, value); err != nil {
		fields.add("birthDate", "birthDate must be formatted as YYYY-MM-DD")
	}
}

func (f FieldErrors) add(field, message string) {
	f[field] = append(f[field], message)
}
