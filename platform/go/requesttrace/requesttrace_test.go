package requesttrace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/clubportal/platform/go/auth"
)

func TestIntoContextAndFromContext(t *testing.T) {
	t.Parallel()

	audit := AuditInfo{ActorKind: ActorKindUser, UserID: ptr("user-123"), RequestID: "req-abc"}
	got, ok := FromContext(IntoContext(context.Background(), audit))
	require.True(t, ok)
	require.Equal(t, audit, got)

	_, ok = FromContext(context.Background())
	require.False(t, ok)
}

func TestFromContextOrSystem(t *testing.T) {
	t.Parallel()

	require.Equal(t, ActorKindSystem, FromContextOrSystem(context.Background()).ActorKind)
}

func TestFromCredentials(t *testing.T) {
	t.Parallel()

	creds := &platformauth.UserCredentials{ID: "user-456", Role: platformauth.RoleTenantStaff, TenantID: ptr("client-1")}

	audit, err := FromCredentials(creds, "req-xyz")
	require.NoError(t, err)
	require.Equal(t, ActorKindUser, audit.ActorKind)
	require.Equal(t, "user-456", *audit.UserID)
	require.Equal(t, platformauth.RoleTenantStaff, audit.Role)
	require.Equal(t, "client-1", *audit.TenantID)
	require.Len(t, audit.Fields(), 4)

	_, err = FromCredentials(&platformauth.UserCredentials{}, "req-1")
	require.Error(t, err)
	_, err = FromCredentials(nil, "req-1")
	require.Error(t, err)
}

func TestAnonymousFields(t *testing.T) {
	t.Parallel()

	audit := Anonymous("req-anon")
	require.Nil(t, audit.UserID)
	require.Len(t, audit.Fields(), 1)
}

func ptr[T any](v T) *T { return &v }
