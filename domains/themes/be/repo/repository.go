package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zenGate-Global/clubportal/domains/themes/be/service"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
)

// themeDocument is the stored shape of the themes collection.
type themeDocument struct {
	Name      string          `json:"name" firestore:"name"`
	Colors    service.Palette `json:"colors" firestore:"colors"`
	CreatedAt time.Time       `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt" firestore:"updatedAt"`
}

// Repository persists custom themes in the document store.
type Repository struct {
	store docstore.Store
}

func New(store docstore.Store) *Repository {
	if store == nil {
		panic("document store is required")
	}
	return &Repository{store: store}
}

func (r *Repository) List(ctx context.Context) ([]service.CustomTheme, error) {
	snaps, err := r.store.Find(ctx, docstore.CollectionThemes)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}

	out := make([]service.CustomTheme, 0, len(snaps))
	for _, snap := range snaps {
		theme, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, theme)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id string) (service.CustomTheme, error) {
	snap, err := r.store.Get(ctx, docstore.CollectionThemes, id)
	if err != nil {
		return service.CustomTheme{}, mapNotFound(err)
	}
	return decode(snap)
}

func (r *Repository) Create(ctx context.Context, theme service.CustomTheme) (service.CustomTheme, error) {
	if err := r.store.Set(ctx, docstore.CollectionThemes, theme.ID, encode(theme)); err != nil {
		return service.CustomTheme{}, fmt.Errorf("store theme: %w", err)
	}
	return theme, nil
}

func (r *Repository) Update(ctx context.Context, theme service.CustomTheme) (service.CustomTheme, error) {
	fields := map[string]any{
		"name":      theme.Name,
		"colors":    theme.Colors,
		"updatedAt": theme.UpdatedAt,
	}
	if err := r.store.Update(ctx, docstore.CollectionThemes, theme.ID, fields); err != nil {
		return service.CustomTheme{}, mapNotFound(err)
	}
	return theme, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, docstore.CollectionThemes, id); err != nil {
		return fmt.Errorf("delete theme: %w", err)
	}
	return nil
}

func encode(t service.CustomTheme) themeDocument {
	return themeDocument{Name: t.Name, Colors: t.Colors, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
}

func decode(snap docstore.Snapshot) (service.CustomTheme, error) {
	var doc themeDocument
	if err := snap.DataTo(&doc); err != nil {
		return service.CustomTheme{}, err
	}
	return service.CustomTheme{
		ID:        snap.ID(),
		Name:      doc.Name,
		Colors:    doc.Colors,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// mapNotFound keeps the store error in the chain so callers may match either sentinel.
func mapNotFound(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", service.ErrNotFound, err)
	}
	return err
}

var _ service.Repository = (*Repository)(nil)
