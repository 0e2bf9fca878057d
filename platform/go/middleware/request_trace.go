package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	platformauth "github.com/zenGate-Global/clubportal/platform/go/auth"
	platformlogging "github.com/zenGate-Global/clubportal/platform/go/logging"
	"github.com/zenGate-Global/clubportal/platform/go/problem"
	"github.com/zenGate-Global/clubportal/platform/go/requesttrace"
)

// RequestTrace stores the acting principal on the context and enriches the request logger with it.
// It runs after the JWT middleware.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())

		audit := requesttrace.Anonymous(requestID)
		if creds, ok := platformauth.UserFromContext(r.Context()); ok {
			var err error
			audit, err = requesttrace.FromCredentials(creds, requestID)
			if err != nil {
				problem.Unauthorized(w, "session token does not identify a user")
				return
			}
		}

		logger := platformlogging.FromContext(r.Context(), nil).With(audit.Fields()...)
		ctx := platformlogging.WithLogger(requesttrace.IntoContext(r.Context(), audit), logger)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
