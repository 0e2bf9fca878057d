package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/zenGate-Global/clubportal/platform/go/docstore"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
)

// Source tells which branch of resolution produced a Snapshot.
type Source string

const (
	SourcePredefined Source = "predefined"
	SourceCustom     Source = "custom"
	SourceDefault    Source = "default"
)

// Snapshot is the single normalized theme consumed downstream of the resolver.
// Field order is fixed so equal snapshots marshal to identical bytes.
type Snapshot struct {
	Key         string  `json:"key"`
	Source      Source  `json:"source"`
	DisplayName string  `json:"displayName"`
	LogoURL     string  `json:"logoUrl,omitempty"`
	Colors      Palette `json:"colors"`
	Classes     Classes `json:"classes"`
}

// Subject is the slice of a tenant the resolver reads.
type Subject struct {
	Name        string
	DisplayName string
	ThemeRef    string
	LogoURL     string
}

// Lookup fetches custom themes by id.
type Lookup interface {
	Get(ctx context.Context, id string) (CustomTheme, error)
}

// Resolver turns a tenant's theme reference into a Snapshot. It never fails.
type Resolver struct {
	lookup Lookup
	logger *zap.Logger

	mu       sync.RWMutex
	lastGood map[string]CustomTheme
}

func NewResolver(lookup Lookup, logger *zap.Logger) *Resolver {
	if lookup == nil {
		panic("theme lookup is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Resolver{lookup: lookup, logger: logger, lastGood: make(map[string]CustomTheme)}
}

// Default is the theme shown to anonymous callers and administrators.
func (r *Resolver) Default() Snapshot {
	return DefaultSnapshot()
}

// DefaultSnapshot is Default without a Resolver.
func DefaultSnapshot() Snapshot {
	p, _ := LookupPredefined(KeyDefault)
	return Snapshot{
		Key:         KeyDefault,
		Source:      SourceDefault,
		DisplayName: p.ClubName,
		LogoURL:     p.LogoURL,
		Colors:      p.Colors,
		Classes:     p.Classes,
	}
}

// Resolve applies, in order: predefined key, custom theme id, default.
// The tenant's display name and logo always win over the theme's own.
// When the catalog is unreachable the last copy read for that id is used.
func (r *Resolver) Resolve(ctx context.Context, subject Subject) Snapshot {
	ref := strings.TrimSpace(subject.ThemeRef)

	if p, ok := LookupPredefined(ref); ok {
		snap := Snapshot{
			Key:         p.Key,
			Source:      SourcePredefined,
			DisplayName: p.ClubName,
			LogoURL:     p.LogoURL,
			Colors:      p.Colors,
			Classes:     p.Classes,
		}
		return withTenantIdentity(snap, subject)
	}

	if ref != "" {
		if custom, ok := r.customTheme(ctx, ref); ok {
			return withTenantIdentity(fromCustom(custom), subject)
		}
	}

	return withTenantIdentity(DefaultSnapshot(), subject)
}

// PredefinedJSON renders a built-in theme by key, without any tenant identity applied.
func (r *Resolver) PredefinedJSON(key string) (json.RawMessage, bool) {
	if !IsPredefined(key) {
		return nil, false
	}
	raw, err := json.Marshal(r.Resolve(context.Background(), Subject{ThemeRef: key}))
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (r *Resolver) customTheme(ctx context.Context, id string) (CustomTheme, bool) {
	logger := platformlogging.FromContext(ctx, r.logger).With(zap.String("theme_ref", id))

	theme, err := r.lookup.Get(ctx, id)
	switch {
	case err == nil:
		r.mu.Lock()
		r.lastGood[id] = theme
		r.mu.Unlock()
		return theme, true
	case errors.Is(err, ErrNotFound):
		r.mu.Lock()
		delete(r.lastGood, id)
		r.mu.Unlock()
		logger.Info("theme reference not found, using default theme")
		return CustomTheme{}, false
	default:
		r.mu.RLock()
		cached, ok := r.lastGood[id]
		r.mu.RUnlock()
		if ok {
			logger.Warn("theme lookup failed, using last known copy", zap.Error(err), zap.Bool("store_unavailable", errors.Is(err, docstore.ErrUnavailable)))
			return cached, true
		}
		logger.Warn("theme lookup failed, using default theme", zap.Error(err))
		return CustomTheme{}, false
	}
}

// fromCustom adapts a color map into the predefined shape. Classes use arbitrary-value utilities
// so the UI applies both kinds of theme the same way.
func fromCustom(t CustomTheme) Snapshot {
	c := t.Colors
	return Snapshot{
		Key:         t.ID,
		Source:      SourceCustom,
		DisplayName: t.Name,
		Colors:      c,
		Classes: Classes{
			Background: "bg-[" + c.Background + "]",
			Text:       "text-[" + c.Text + "]",
			Primary:    "bg-[" + c.Primary + "]",
			Secondary:  "bg-[" + c.Secondary + "]",
			Accent:     "bg-[" + c.Accent + "]",
			Border:     "border-[" + c.Border + "]",
			Card:       "bg-[" + c.Background + "]",
		},
	}
}

func withTenantIdentity(snap Snapshot, subject Subject) Snapshot {
	switch {
	case strings.TrimSpace(subject.DisplayName) != "":
		snap.DisplayName = strings.TrimSpace(subject.DisplayName)
	case strings.TrimSpace(subject.Name) != "":
		snap.DisplayName = strings.TrimSpace(subject.Name)
	}
	if logo := strings.TrimSpace(subject.LogoURL); logo != "" {
		snap.LogoURL = logo
	}
	return snap
}
