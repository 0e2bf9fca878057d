package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	platformauth "github.com/zenGate-Global/clubportal/platform/go/auth"
	"github.com/zenGate-Global/clubportal/platform/go/tenant"
)

type memoryRepo struct {
	mu       sync.Mutex
	accounts map[string]Account
	updates  int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: make(map[string]Account)}
}

func (r *memoryRepo) List(_ context.Context, opts ListOptions) ([]Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Account
	for _, a := range r.accounts {
		if opts.TenantID != nil && a.TenantID != *opts.TenantID {
			continue
		}
		if opts.Role != nil && a.Role != *opts.Role {
			continue
		}
		if opts.Status != nil && a.Status != *opts.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (r *memoryRepo) FindByUsername(_ context.Context, username string) ([]Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Account
	for _, a := range r.accounts {
		if a.Username == username {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryRepo) Create(_ context.Context, a Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = a
	return a, nil
}

func (r *memoryRepo) Update(_ context.Context, a Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[a.ID]; !ok {
		return Account{}, ErrNotFound
	}
	r.updates++
	r.accounts[a.ID] = a
	return a, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, id)
	return nil
}

func ptr[T any](v T) *T { return &v }

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	return New(repo, PlaintextPasswords{}, zaptest.NewLogger(t))
}

func TestServiceCreateValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newMemoryRepo())

	testCases := []struct {
		name  string
		input CreateInput
		field string
	}{
		{name: "missing username", input: CreateInput{Password: "x", Role: platformauth.RoleAdmin}, field: "username"},
		{name: "missing password", input: CreateInput{Username: "a", Role: platformauth.RoleAdmin}, field: "password"},
		{name: "unknown role", input: CreateInput{Username: "a", Password: "x", Role: "coach"}, field: "role"},
		{name: "staff without tenant", input: CreateInput{Username: "a", Password: "x", Role: platformauth.RoleTenantStaff}, field: "clientId"},
		{name: "admin with tenant", input: CreateInput{Username: "a", Password: "x", Role: platformauth.RoleAdmin, TenantID: "t1"}, field: "clientId"},
		{name: "bad status", input: CreateInput{Username: "a", Password: "x", Role: platformauth.RoleAdmin, Status: ptr("gone")}, field: "status"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			require.Contains(t, validationErr.Fields, tc.field)
		})
	}
}

func TestServiceCreateRejectsDuplicateUsername(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newMemoryRepo())
	_, err := svc.Create(context.Background(), CreateInput{Username: "coach", Password: "x", Role: platformauth.RoleTenantStaff, TenantID: "t1"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Username: "coach", Password: "y", Role: platformauth.RolePlayer, TenantID: "t2"})
	require.ErrorIs(t, err, ErrConflict)

	// Case differs, so it is a different username.
	_, err = svc.Create(context.Background(), CreateInput{Username: "Coach", Password: "y", Role: platformauth.RolePlayer, TenantID: "t2"})
	require.NoError(t, err)
}

func TestServiceVerifyCredentials(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newMemoryRepo())
	created, err := svc.Create(context.Background(), CreateInput{Username: "ana", Password: "pw", Role: platformauth.RolePlayer, TenantID: "t1", Status: ptr(tenant.StatusInactive)})
	require.NoError(t, err)

	got, err := svc.VerifyCredentials(context.Background(), "ana", "pw")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	// Status is the caller's concern.
	require.False(t, got.Active())

	for _, tc := range []struct{ username, password string }{
		{"ana", "PW"},
		{"Ana", "pw"},
		{"ana", ""},
		{"", "pw"},
		{"ghost", "pw"},
	} {
		_, err := svc.VerifyCredentials(context.Background(), tc.username, tc.password)
		require.ErrorIs(t, err, ErrInvalidCredentials, tc)
	}
}

func TestServiceUpdate(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := newTestService(t, repo)
	created, err := svc.Create(context.Background(), CreateInput{Username: "coach", Password: "old", Role: platformauth.RoleTenantStaff, TenantID: "t1"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{Username: "taken", Password: "x", Role: platformauth.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.ID, UpdateInput{})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))

	_, err = svc.Update(context.Background(), created.ID, UpdateInput{Username: ptr("taken")})
	require.ErrorIs(t, err, ErrConflict)

	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{Password: ptr("new"), Status: ptr(tenant.StatusInactive)})
	require.NoError(t, err)
	require.Equal(t, tenant.StatusInactive, updated.Status)
	require.Equal(t, "t1", updated.TenantID)

	_, err = svc.VerifyCredentials(context.Background(), "coach", "new")
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "missing", UpdateInput{Status: ptr(tenant.StatusActive)})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceTenantCascadeSupport(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{Username: "a", Password: "x", Role: platformauth.RoleTenantStaff, TenantID: "t1"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Username: "b", Password: "x", Role: platformauth.RolePlayer, TenantID: "t1", Status: ptr(tenant.StatusInactive)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Username: "c", Password: "x", Role: platformauth.RolePlayer, TenantID: "t2"})
	require.NoError(t, err)

	all, err := svc.IDsByTenant(ctx, "t1", false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	active, err := svc.IDsByTenant(ctx, "t1", true)
	require.NoError(t, err)
	require.Equal(t, []string{a.ID}, active)

	require.NoError(t, svc.Deactivate(ctx, a.ID))
	require.NoError(t, svc.Deactivate(ctx, a.ID))
	require.Equal(t, 1, repo.updates)

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, got.Active())
}

func TestServiceEnsureAdminIsIdempotent(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newMemoryRepo())

	first, created, err := svc.EnsureAdmin(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, platformauth.RoleAdmin, first.Role)

	second, created, err := svc.EnsureAdmin(context.Background(), "admin", "other")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
}

func TestPasswordHashers(t *testing.T) {
	t.Parallel()

	plain, err := NewPasswordHasher("")
	require.NoError(t, err)
	stored, err := plain.Hash("s3cret")
	require.NoError(t, err)
	require.Equal(t, "s3cret", stored)
	require.True(t, plain.Verify(stored, "s3cret"))
	require.False(t, plain.Verify(stored, "s3cre"))

	hashed := BcryptPasswords{Cost: 4}
	stored, err = hashed.Hash("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", stored)
	require.True(t, hashed.Verify(stored, "s3cret"))
	require.False(t, hashed.Verify(stored, "wrong"))
	require.False(t, hashed.Verify("s3cret", "s3cret"))

	_, err = NewPasswordHasher("md5")
	require.Error(t, err)
}
