package tenantcmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/clubportal/apps/cli/backend"
	"github.com/zenGate-Global/clubportal/domains/tenants/be/service"
	users "github.com/zenGate-Global/clubportal/domains/users/be/service"
	platformauth "github.com/zenGate-Global/clubportal/platform/go/auth"
	"github.com/zenGate-Global/clubportal/platform/go/docstore"
	"github.com/zenGate-Global/clubportal/platform/go/tenant"
)

func memoryOpener(t *testing.T) (backend.Opener, *backend.Backend) {
	t.Helper()
	b, err := backend.New(docstore.NewMemoryStore(), backend.Flags{PasswordMode: "plaintext", CascadeMaxAttempts: 1}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return func(context.Context) (*backend.Backend, error) { return b, nil }, b
}

func run(t *testing.T, open backend.Opener, args ...string) (string, error) {
	t.Helper()
	cmd := Command(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func onlyTenant(t *testing.T, b *backend.Backend) service.Tenant {
	t.Helper()
	list, err := b.Tenants.List(context.Background(), service.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func TestCreateAppliesDefaultModules(t *testing.T) {
	t.Parallel()

	open, b := memoryOpener(t)
	out, err := run(t, open, "create", "--name", "Riverside FC")
	require.NoError(t, err)
	require.Contains(t, out, "Tenant created: Riverside FC")

	created := onlyTenant(t, b)
	require.Equal(t, "Riverside FC", created.DisplayName)
	require.NotEmpty(t, created.EnabledModuleIDs)
	require.Equal(t, tenant.StatusActive, created.Status)
}

func TestCreateWithExplicitEmptyModules(t *testing.T) {
	t.Parallel()

	open, b := memoryOpener(t)
	_, err := run(t, open, "create", "--name", "Lakeside", "--modules=")
	require.NoError(t, err)

	created := onlyTenant(t, b)
	require.NotNil(t, created.EnabledModuleIDs)
	require.Empty(t, created.EnabledModuleIDs)
}

func TestDeactivateCascadesToUsers(t *testing.T) {
	t.Parallel()

	open, b := memoryOpener(t)
	ctx := context.Background()
	club, err := b.Tenants.Create(ctx, service.CreateInput{Name: "CAP"})
	require.NoError(t, err)
	coach, err := b.Users.Create(ctx, users.CreateInput{Username: "coach", Password: "pw", Role: platformauth.RoleTenantStaff, TenantID: club.ID})
	require.NoError(t, err)

	out, err := run(t, open, "deactivate", club.ID)
	require.NoError(t, err)
	require.Contains(t, out, "is inactive")

	reloaded, err := b.Users.Get(ctx, coach.ID)
	require.NoError(t, err)
	require.Equal(t, tenant.StatusInactive, reloaded.Status)

	out, err = run(t, open, "list", "--status", "inactive")
	require.NoError(t, err)
	require.Contains(t, out, club.ID)

	_, err = run(t, open, "activate", club.ID)
	require.NoError(t, err)
	reloaded, err = b.Users.Get(ctx, coach.ID)
	require.NoError(t, err)
	require.Equal(t, tenant.StatusInactive, reloaded.Status)
}

func TestDeleteRemovesTenantAndUsers(t *testing.T) {
	t.Parallel()

	open, b := memoryOpener(t)
	ctx := context.Background()
	club, err := b.Tenants.Create(ctx, service.CreateInput{Name: "CAP"})
	require.NoError(t, err)
	_, err = b.Users.Create(ctx, users.CreateInput{Username: "coach", Password: "pw", Role: platformauth.RoleTenantStaff, TenantID: club.ID})
	require.NoError(t, err)

	_, err = run(t, open, "delete", club.ID)
	require.NoError(t, err)

	_, err = b.Tenants.Get(ctx, club.ID)
	require.ErrorIs(t, err, service.ErrNotFound)
	ids, err := b.Users.IDsByTenant(ctx, club.ID, false)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestStatusCommandRequiresID(t *testing.T) {
	t.Parallel()

	open, _ := memoryOpener(t)
	_, err := run(t, open, "deactivate")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "accepts 1 arg"))
}
