package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zenGate-Global/clubportal/domains/users/be/service"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
)

// userDocument is the stored shape of the users collection.
type userDocument struct {
	Username  string    `json:"username" firestore:"username"`
	Password  string    `json:"password" firestore:"password"`
	Role      string    `json:"role" firestore:"role"`
	ClientID  string    `json:"clientId,omitempty" firestore:"clientId,omitempty"`
	Status    string    `json:"status" firestore:"status"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Repository is the identity store over the document store.
type Repository struct {
	store docstore.Store
}

func New(store docstore.Store) *Repository {
	if store == nil {
		panic("document store is required")
	}
	return &Repository{store: store}
}

func (r *Repository) List(ctx context.Context, opts service.ListOptions) ([]service.Account, error) {
	var filters []docstore.Filter
	if opts.TenantID != nil {
		filters = append(filters, docstore.Where("clientId", *opts.TenantID))
	}
	if opts.Role != nil {
		filters = append(filters, docstore.Where("role", *opts.Role))
	}
	if opts.Status != nil {
		filters = append(filters, docstore.Where("status", *opts.Status))
	}

	accounts, err := r.find(ctx, filters...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].Username != accounts[j].Username {
			return accounts[i].Username < accounts[j].Username
		}
		return accounts[i].ID < accounts[j].ID
	})
	return accounts, nil
}

func (r *Repository) FindByUsername(ctx context.Context, username string) ([]service.Account, error) {
	accounts, err := r.find(ctx, docstore.Where("username", username))
	if err != nil {
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return accounts, nil
}

func (r *Repository) Get(ctx context.Context, id string) (service.Account, error) {
	snap, err := r.store.Get(ctx, docstore.CollectionUsers, id)
	if err != nil {
		return service.Account{}, mapNotFound(err)
	}
	return decode(snap)
}

func (r *Repository) Create(ctx context.Context, account service.Account) (service.Account, error) {
	if err := r.store.Set(ctx, docstore.CollectionUsers, account.ID, encode(account)); err != nil {
		return service.Account{}, fmt.Errorf("store user: %w", err)
	}
	return account, nil
}

func (r *Repository) Update(ctx context.Context, account service.Account) (service.Account, error) {
	fields := map[string]any{
		"username":  account.Username,
		"password":  account.Password,
		"status":    account.Status,
		"updatedAt": account.UpdatedAt,
	}
	if err := r.store.Update(ctx, docstore.CollectionUsers, account.ID, fields); err != nil {
		return service.Account{}, mapNotFound(err)
	}
	return account, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, docstore.CollectionUsers, id)
}

func (r *Repository) find(ctx context.Context, filters ...docstore.Filter) ([]service.Account, error) {
	snaps, err := r.store.Find(ctx, docstore.CollectionUsers, filters...)
	if err != nil {
		return nil, err
	}
	out := make([]service.Account, 0, len(snaps))
	for _, snap := range snaps {
		account, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, nil
}

func encode(a service.Account) userDocument {
	return userDocument{
		Username:  a.Username,
		Password:  a.Password,
		Role:      a.Role,
		ClientID:  a.TenantID,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func decode(snap docstore.Snapshot) (service.Account, error) {
	var doc userDocument
	if err := snap.DataTo(&doc); err != nil {
		return service.Account{}, fmt.Errorf("decode user %s: %w", snap.ID(), err)
	}
	return service.Account{
		User: service.User{
			ID:        snap.ID(),
			Username:  doc.Username,
			Role:      doc.Role,
			TenantID:  doc.ClientID,
			Status:    doc.Status,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		},
		Password: doc.Password,
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
