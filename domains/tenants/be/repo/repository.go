package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zenGate-Global/clubportal/domains/tenants/be/service"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
)

// clientDocument is the stored shape of the clients collection.
type clientDocument struct {
	Name        string `json:"name" firestore:"name"`
	DisplayName string `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	Theme       string `json:"theme" firestore:"theme"`
	Logo        string `json:"logo,omitempty" firestore:"logo,omitempty"`
	Status      string `json:"status" firestore:"status"`
	// No omitempty: a missing list and an empty list mean different things.
	EnabledModuleIDs []string  `json:"enabledModuleIds" firestore:"enabledModuleIds"`
	CreatedAt        time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Repository is the tenant directory over the document store.
type Repository struct {
	store docstore.Store
}

func New(store docstore.Store) *Repository {
	if store == nil {
		panic("document store is required")
	}
	return &Repository{store: store}
}

func (r *Repository) List(ctx context.Context, opts service.ListOptions) ([]service.Tenant, error) {
	var filters []docstore.Filter
	if opts.Status != nil {
		filters = append(filters, docstore.Where("status", *opts.Status))
	}

	snaps, err := r.store.Find(ctx, docstore.CollectionClients, filters...)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	out := make([]service.Tenant, 0, len(snaps))
	for _, snap := range snaps {
		t, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id string) (service.Tenant, error) {
	snap, err := r.store.Get(ctx, docstore.CollectionClients, id)
	if err != nil {
		return service.Tenant{}, mapNotFound(err)
	}
	return decode(snap)
}

func (r *Repository) Create(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	if err := r.store.Set(ctx, docstore.CollectionClients, t.ID, encode(t)); err != nil {
		return service.Tenant{}, fmt.Errorf("store tenant: %w", err)
	}
	return t, nil
}

func (r *Repository) Update(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	fields := map[string]any{
		"name":             t.Name,
		"displayName":      t.DisplayName,
		"theme":            t.ThemeRef,
		"logo":             t.LogoURL,
		"status":           t.Status,
		"enabledModuleIds": t.EnabledModuleIDs,
		"updatedAt":        t.UpdatedAt,
	}
	if err := r.store.Update(ctx, docstore.CollectionClients, t.ID, fields); err != nil {
		return service.Tenant{}, mapNotFound(err)
	}
	return t, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, docstore.CollectionClients, id)
}

func encode(t service.Tenant) clientDocument {
	return clientDocument{
		Name:             t.Name,
		DisplayName:      t.DisplayName,
		Theme:            t.ThemeRef,
		Logo:             t.LogoURL,
		Status:           t.Status,
		EnabledModuleIDs: t.EnabledModuleIDs,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func decode(snap docstore.Snapshot) (service.Tenant, error) {
	var doc clientDocument
	if err := snap.DataTo(&doc); err != nil {
		return service.Tenant{}, fmt.Errorf("decode tenant %s: %w", snap.ID(), err)
	}
	return service.Tenant{
		ID:               snap.ID(),
		Name:             doc.Name,
		DisplayName:      doc.DisplayName,
		ThemeRef:         doc.Theme,
		LogoURL:          doc.Logo,
		Status:           doc.Status,
		EnabledModuleIDs: doc.EnabledModuleIDs,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
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
