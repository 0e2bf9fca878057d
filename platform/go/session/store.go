package session

import (
	"context"
	"errors"
)

// Keys persisted per browser profile.
const (
	KeyCurrentUser        = "currentUser"
	KeyCurrentClientTheme = "currentClientTheme"
	// KeyClubTheme holds only the key of a built-in theme ("penarol") for UI contexts that still read it.
	KeyClubTheme = "clubTheme"
	KeyUserID    = "userId"
	KeyUserRole  = "userRole"
)

// AllKeys is every key Logout removes.
var AllKeys = []string{KeyCurrentUser, KeyCurrentClientTheme, KeyClubTheme, KeyUserID, KeyUserRole}

// ErrNotFound is returned by Store.Get for an absent key.
var ErrNotFound = errors.New("session key not found")

// Store is shared key-value state partitioned by browser profile. Writes are last-writer-wins.
type Store interface {
	Get(ctx context.Context, profile, key string) ([]byte, error)
	Set(ctx context.Context, profile, key string, value []byte) error
	Delete(ctx context.Context, profile string, keys ...string) error
	// Subscribe delivers a signal after every write to profile. The channel is closed once ctx is done.
	// Signals may be coalesced; receivers re-read state rather than trusting a payload.
	Subscribe(ctx context.Context, profile string) (<-chan struct{}, error)
}
