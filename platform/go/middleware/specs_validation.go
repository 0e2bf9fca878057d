package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	nethttpmiddleware "github.com/oapi-codegen/nethttp-middleware"

	platformauth "github.com/zenGate-Global/clubportal/platform/go/auth"
	"github.com/zenGate-Global/clubportal/platform/go/problem"
)

// ValidateAuthenticationViaSwagger satisfies operations that declare bearerAuth. The JWT middleware has
// already verified the token, so this only checks that a caller is present on the request context.
// Operations with `security: []` never reach it.
func ValidateAuthenticationViaSwagger(_ context.Context, input *openapi3filter.AuthenticationInput) error {
	if input == nil || input.SecuritySchemeName != "bearerAuth" {
		return nil
	}
	r := input.RequestValidationInput.Request
	if r == nil {
		return errors.New("no request in validation input")
	}
	if _, ok := platformauth.UserFromContext(r.Context()); !ok {
		return errors.New("missing or invalid session token")
	}
	return nil
}

// OpenAPIValidator validates requests against the OpenAPI document and writes problem details on failure.
// Mount it only on routers whose every route is declared in the document.
func OpenAPIValidator(spec *openapi3.T) func(http.Handler) http.Handler {
	return nethttpmiddleware.OapiRequestValidatorWithOptions(spec, &nethttpmiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: ValidateAuthenticationViaSwagger,
		},
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			typ, title := problem.TypeValidation, "Invalid request"
			switch statusCode {
			case http.StatusUnauthorized:
				typ, title = problem.TypeUnauthorized, "Unauthorized"
			case http.StatusForbidden:
				typ, title = problem.TypeForbidden, "Forbidden"
			case http.StatusNotFound:
				typ, title = problem.TypeNotFound, "Resource not found"
			}
			problem.Write(w, problem.New(statusCode, title, message, typ, nil))
		},
	})
}
