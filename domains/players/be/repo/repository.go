package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zenGate-Global/clubportal/domains/players/be/service"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
)

// playerDocument is the stored shape of the jugadores collection.
type playerDocument struct {
	ClientID  string    `json:"clientId" firestore:"clientId"`
	FirstName string    `json:"firstName" firestore:"firstName"`
	LastName  string    `json:"lastName" firestore:"lastName"`
	BirthDate string    `json:"birthDate,omitempty" firestore:"birthDate,omitempty"`
	Position  string    `json:"position,omitempty" firestore:"position,omitempty"`
	PhotoURL  string    `json:"photoUrl,omitempty" firestore:"photoUrl,omitempty"`
	UserID    string    `json:"userId,omitempty" firestore:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

type Repository struct {
	store docstore.Store
}

func New(store docstore.Store) *Repository {
	if store == nil {
		panic("document store is required")
	}
	return &Repository{store: store}
}

func (r *Repository) ListByTenant(ctx context.Context, tenantID string) ([]service.Player, error) {
	snaps, err := r.store.Find(ctx, docstore.CollectionPlayers, docstore.Where("clientId", tenantID))
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	out := make([]service.Player, 0, len(snaps))
	for _, snap := range snaps {
		p, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id string) (service.Player, error) {
	snap, err := r.store.Get(ctx, docstore.CollectionPlayers, id)
	if err != nil {
		return service.Player{}, mapNotFound(err)
	}
	return decode(snap)
}

func (r *Repository) Create(ctx context.Context, p service.Player) (service.Player, error) {
	if err := r.store.Set(ctx, docstore.CollectionPlayers, p.ID, encode(p)); err != nil {
		return service.Player{}, fmt.Errorf("store player: %w", err)
	}
	return p, nil
}

func (r *Repository) Update(ctx context.Context, p service.Player) (service.Player, error) {
	fields := map[string]any{
		"firstName": p.FirstName,
		"lastName":  p.LastName,
		"birthDate": p.BirthDate,
		"position":  p.Position,
		"photoUrl":  p.PhotoURL,
		"updatedAt": p.UpdatedAt,
	}
	if err := r.store.Update(ctx, docstore.CollectionPlayers, p.ID, fields); err != nil {
		return service.Player{}, mapNotFound(err)
	}
	return p, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, docstore.CollectionPlayers, id)
}

func encode(p service.Player) playerDocument {
	return playerDocument{
		ClientID:  p.TenantID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		BirthDate: p.BirthDate,
		Position:  p.Position,
		PhotoURL:  p.PhotoURL,
		UserID:    p.UserID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func decode(snap docstore.Snapshot) (service.Player, error) {
	var doc playerDocument
	if err := snap.DataTo(&doc); err != nil {
		return service.Player{}, fmt.Errorf("decode player %s: %w", snap.ID(), err)
	}
	return service.Player{
		ID:        snap.ID(),
		TenantID:  doc.ClientID,
		FirstName: doc.FirstName,
		LastName:  doc.LastName,
		BirthDate: doc.BirthDate,
		Position:  doc.Position,
		PhotoURL:  doc.PhotoURL,
		UserID:    doc.UserID,
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
