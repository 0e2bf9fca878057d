package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

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

// ErrNotFound is returned when a custom theme id does not exist.
var ErrNotFound = errors.New("theme not found")

// Palette is the six-color set every theme is reduced to. Values are #rrggbb.
type Palette struct {
	Primary    string `json:"primary" firestore:"primary"`
	Secondary  string `json:"secondary" firestore:"secondary"`
	Background string `json:"background" firestore:"background"`
	Text       string `json:"text" firestore:"text"`
	Accent     string `json:"accent" firestore:"accent"`
	Border     string `json:"border" firestore:"border"`
}

// DefaultPalette seeds custom themes created without colors.
func DefaultPalette() Palette {
	return Palette{
		Primary:    "#3b82f6",
		Secondary:  "#6b7280",
		Background: "#ffffff",
		Text:       "#111827",
		Accent:     "#8b5cf6",
		Border:     "#d1d5db",
	}
}

// CustomTheme is a tenant-definable palette stored in the themes collection.
type CustomTheme struct {
	ID        string
	Name      string
	Colors    Palette
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PalettePatch carries the colors to change; nil fields are kept.
type PalettePatch struct {
	Primary    *string
	Secondary  *string
	Background *string
	Text       *string
	Accent     *string
	Border     *string
}

func (p PalettePatch) apply(dst Palette) Palette {
	set := func(target *string, v *string) {
		if v != nil {
			*target = strings.ToLower(strings.TrimSpace(*v))
		}
	}
	set(&dst.Primary, p.Primary)
	set(&dst.Secondary, p.Secondary)
	set(&dst.Background, p.Background)
	set(&dst.Text, p.Text)
	set(&dst.Accent, p.Accent)
	set(&dst.Border, p.Border)
	return dst
}

type CreateInput struct {
	Name   string
	Colors *PalettePatch
}

type UpdateInput struct {
	Name   *string
	Colors *PalettePatch
}

// Repository abstracts persistence of custom themes.
type Repository interface {
	List(ctx context.Context) ([]CustomTheme, error)
	Get(ctx context.Context, id string) (CustomTheme, error)
	Create(ctx context.Context, theme CustomTheme) (CustomTheme, error)
	Update(ctx context.Context, theme CustomTheme) (CustomTheme, error)
	Delete(ctx context.Context, id string) error
}

// Catalog manages custom themes and exposes the predefined table.
type Catalog struct {
	repo      Repository
	validator *PaletteValidator
	logger    *zap.Logger
	now       func() time.Time
}

func NewCatalog(repo Repository, logger *zap.Logger) *Catalog {
	if repo == nil {
		panic("themes repository is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Catalog{repo: repo, validator: MustPaletteValidator(), logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Predefined lists the built-in themes in key order.
func (c *Catalog) Predefined() []PredefinedTheme {
	return PredefinedThemes()
}

func (c *Catalog) List(ctx context.Context) ([]CustomTheme, error) {
	return c.repo.List(ctx)
}

func (c *Catalog) Get(ctx context.Context, id string) (CustomTheme, error) {
	return c.repo.Get(ctx, id)
}

func (c *Catalog) Create(ctx context.Context, input CreateInput) (CustomTheme, error) {
	fields := FieldErrors{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		fields["name"] = append(fields["name"], "name is required")
	}

	colors := DefaultPalette()
	if input.Colors != nil {
		colors = input.Colors.apply(colors)
	}
	c.validator.Collect(colors, fields)
	if len(fields) > 0 {
		return CustomTheme{}, &ValidationError{Fields: fields}
	}

	now := c.now()
	theme := CustomTheme{
		ID:        uuid.NewString(),
		Name:      name,
		Colors:    colors,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := c.repo.Create(ctx, theme)
	if err != nil {
		return CustomTheme{}, fmt.Errorf("create theme: %w", err)
	}
	platformlogging.FromContext(ctx, c.logger).Info("custom theme created", zap.String("theme_id", created.ID))
	return created, nil
}

func (c *Catalog) Update(ctx context.Context, id string, input UpdateInput) (CustomTheme, error) {
	current, err := c.repo.Get(ctx, id)
	if err != nil {
		return CustomTheme{}, err
	}

	fields := FieldErrors{}
	next := current
	if input.Name != nil {
		next.Name = strings.TrimSpace(*input.Name)
		if next.Name == "" {
			fields["name"] = append(fields["name"], "name must not be empty")
		}
	}
	if input.Colors != nil {
		next.Colors = input.Colors.apply(next.Colors)
	}
	c.validator.Collect(next.Colors, fields)
	if len(fields) > 0 {
		return CustomTheme{}, &ValidationError{Fields: fields}
	}

	next.UpdatedAt = c.now()
	return c.repo.Update(ctx, next)
}

// Delete removes a custom theme. Tenants still referencing it resolve to the default theme.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if IsPredefined(id) {
		return &ValidationError{Fields: FieldErrors{"id": {"predefined themes cannot be deleted"}}}
	}
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	platformlogging.FromContext(ctx, c.logger).Info("custom theme deleted", zap.String("theme_id", id))
	return nil
}
