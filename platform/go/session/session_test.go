package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var defaultTheme = json.RawMessage(`{"key":"default"}`)

// builtinThemes knows the keys a session may store on their own under KeyClubTheme.
type builtinThemes map[string]string

func (b builtinThemes) PredefinedJSON(key string) (json.RawMessage, bool) {
	doc, ok := b[key]
	return json.RawMessage(doc), ok
}

var clubThemes = builtinThemes{
	"default": `{"key":"default","source":"predefined"}`,
	"penarol": `{"key":"penarol","source":"predefined"}`,
}

// unreachableStore fails every read, as a Redis outage would.
type unreachableStore struct{ *MemoryStore }

func (unreachableStore) Get(context.Context, string, string) ([]byte, error) {
	return nil, errors.New("redis: connection refused")
}

func TestSessionThemeFallsBackToDefault(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	sess := NewManager(store, defaultTheme).For("profile-a")

	require.JSONEq(t, `{"key":"default"}`, string(sess.Theme(ctx)))

	require.NoError(t, store.Set(ctx, "profile-a", KeyCurrentClientTheme, []byte("{not json")))
	require.JSONEq(t, `{"key":"default"}`, string(sess.Theme(ctx)))

	require.NoError(t, store.Set(ctx, "profile-a", KeyClubTheme, []byte(`{"key":"nacional"}`)))
	require.JSONEq(t, `{"key":"nacional"}`, string(sess.Theme(ctx)))

	require.NoError(t, store.Set(ctx, "profile-a", KeyClubTheme, []byte("unknown-club")))
	require.JSONEq(t, `{"key":"default"}`, string(sess.Theme(ctx)))
}

func TestSessionThemeReadsBareClubThemeKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	sess := NewManager(store, defaultTheme, WithThemeKeys(clubThemes)).For("profile-a")

	require.NoError(t, store.Set(ctx, "profile-a", KeyClubTheme, []byte("penarol")))
	require.JSONEq(t, clubThemes["penarol"], string(sess.Theme(ctx)))

	require.NoError(t, store.Set(ctx, "profile-a", KeyClubTheme, []byte(`"penarol"`)))
	require.JSONEq(t, clubThemes["penarol"], string(sess.Theme(ctx)))

	// The full document wins over the key-only entry.
	require.NoError(t, store.Set(ctx, "profile-a", KeyCurrentClientTheme, []byte(`{"key":"lake-theme","source":"custom"}`)))
	require.JSONEq(t, `{"key":"lake-theme","source":"custom"}`, string(sess.Theme(ctx)))
}

func TestSessionThemeSurvivesStoreOutage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewManager(unreachableStore{NewMemoryStore()}, defaultTheme, WithThemeKeys(clubThemes), WithLogger(zaptest.NewLogger(t)))
	sess := m.For("profile-a")

	require.JSONEq(t, string(defaultTheme), string(sess.Theme(ctx)))

	_, err := sess.View(ctx)
	require.Error(t, err)
}

func TestSessionSetThemeStoresBuiltinKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	sess := NewManager(store, defaultTheme, WithThemeKeys(clubThemes)).For("profile-a")

	require.NoError(t, sess.SetTheme(ctx, json.RawMessage(`{"key":"penarol","source":"predefined","displayName":"Riverside FC"}`)))
	club, err := store.Get(ctx, "profile-a", KeyClubTheme)
	require.NoError(t, err)
	require.Equal(t, "penarol", string(club))
	require.JSONEq(t, `{"key":"penarol","source":"predefined","displayName":"Riverside FC"}`, string(sess.Theme(ctx)))

	// A custom theme has no key-only form; the stale key is removed.
	require.NoError(t, sess.SetTheme(ctx, json.RawMessage(`{"key":"lake-theme","source":"custom"}`)))
	_, err = store.Get(ctx, "profile-a", KeyClubTheme)
	require.ErrorIs(t, err, ErrNotFound)

	require.Error(t, sess.SetTheme(ctx, json.RawMessage(`null`)))
}

func TestSessionSetUserAndTheme(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	sess := NewManager(store, defaultTheme).For("profile-a")

	created := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, sess.SetUser(ctx, User{ID: "u1", Username: "coach", Role: "tenant_staff", ClientID: "c1", Status: "active", CreatedAt: created, UpdatedAt: created}))
	require.NoError(t, sess.SetTheme(ctx, json.RawMessage(`{"key":"custom"}`)))

	view, err := sess.View(ctx)
	require.NoError(t, err)
	require.NotNil(t, view.User)
	require.Equal(t, "coach", view.User.Username)
	require.True(t, created.Equal(view.User.CreatedAt))
	require.JSONEq(t, `{"key":"custom"}`, string(view.Theme))

	role, err := store.Get(ctx, "profile-a", KeyUserRole)
	require.NoError(t, err)
	require.Equal(t, "tenant_staff", string(role))

	_, err = store.Get(ctx, "profile-a", KeyClubTheme)
	require.ErrorIs(t, err, ErrNotFound)

	require.Error(t, sess.SetTheme(ctx, json.RawMessage(`{`)))
}

func TestSessionClearRemovesEveryKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	sess := NewManager(store, defaultTheme).For("profile-a")
	require.NoError(t, sess.SetUser(ctx, User{ID: "u1", Role: "player"}))
	require.NoError(t, sess.SetTheme(ctx, json.RawMessage(`{"key":"nacional"}`)))

	require.NoError(t, sess.Clear(ctx))

	for _, key := range AllKeys {
		_, err := store.Get(ctx, "profile-a", key)
		require.ErrorIs(t, err, ErrNotFound, key)
	}
	view, err := sess.View(ctx)
	require.NoError(t, err)
	require.Nil(t, view.User)
	require.JSONEq(t, string(defaultTheme), string(view.Theme))
}

func TestProfilesAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewManager(NewMemoryStore(), defaultTheme)
	require.NoError(t, m.For("a").SetTheme(ctx, json.RawMessage(`{"key":"penarol"}`)))

	require.JSONEq(t, string(defaultTheme), string(m.For("b").Theme(ctx)))
}

func TestViewEqual(t *testing.T) {
	t.Parallel()

	a := View{User: &User{ID: "u1"}, Theme: json.RawMessage(`{"key":"x"}`)}
	b := View{User: &User{ID: "u1"}, Theme: json.RawMessage(`{"key":"x"}`)}
	require.True(t, a.Equal(b))

	b.Theme = json.RawMessage(`{"key":"y"}`)
	require.False(t, a.Equal(b))
}
