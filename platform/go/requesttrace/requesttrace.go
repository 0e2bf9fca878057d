package requesttrace

import (
	"context"
	"errors"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/clubportal/platform/go/auth"
)

type contextKey string

const ctxAuditInfo contextKey = "CLUBPORTAL_REQUEST_TRACE"

// ActorKind represents who initiated an operation.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo is the request-scoped actor used when logging mutations such as tenant cascades.
type AuditInfo struct {
	ActorKind ActorKind
	UserID    *string
	Role      string
	TenantID  *string
	RequestID string
}

func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	audit, ok := ctx.Value(ctxAuditInfo).(AuditInfo)
	return audit, ok
}

// FromContextOrSystem returns the stored AuditInfo or a system actor. Work started outside HTTP
// (the CLI, background cascades) has no request and is attributed to the system.
func FromContextOrSystem(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return System("")
}

// FromCredentials builds a user actor. creds must carry an id.
func FromCredentials(creds *platformauth.UserCredentials, requestID string) (AuditInfo, error) {
	if creds == nil {
		return AuditInfo{}, errors.New("credentials are required to build audit info")
	}
	if creds.ID == "" {
		return AuditInfo{}, errors.New("user id is required to build audit info")
	}

	id := creds.ID
	return AuditInfo{
		ActorKind: ActorKindUser,
		UserID:    &id,
		Role:      creds.Role,
		TenantID:  creds.TenantID,
		RequestID: requestID,
	}, nil
}

func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}

// Fields renders the actor as log fields.
func (a AuditInfo) Fields() []zap.Field {
	fields := []zap.Field{zap.String("actor_kind", string(a.ActorKind))}
	if a.UserID != nil && *a.UserID != "" {
		fields = append(fields, zap.String("actor_id", *a.UserID))
	}
	if a.Role != "" {
		fields = append(fields, zap.String("actor_role", a.Role))
	}
	if a.TenantID != nil && *a.TenantID != "" {
		fields = append(fields, zap.String("actor_client_id", *a.TenantID))
	}
	return fields
}
