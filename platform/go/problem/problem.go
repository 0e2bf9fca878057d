package problem

import (
	"encoding/json"
	"net/http"
)

const ContentType = "application/problem+json"

// Problem type URIs shared by every handler.
const (
	TypeValidation   = "https://clubportal.dev/problems/validation-error"
	TypeNotFound     = "https://clubportal.dev/problems/not-found"
	TypeConflict     = "https://clubportal.dev/problems/conflict"
	TypeUnauthorized = "https://clubportal.dev/problems/unauthorized"
	TypeForbidden    = "https://clubportal.dev/problems/forbidden"
	TypeRateLimited  = "https://clubportal.dev/problems/rate-limited"
	TypeUnavailable  = "https://clubportal.dev/problems/dependency-unavailable"
	TypeCascade      = "https://clubportal.dev/problems/cascade-incomplete"
	TypeInternal     = "https://clubportal.dev/problems/internal-error"
)

// Details is an RFC 7807 body.
type Details struct {
	Type   string              `json:"type,omitempty"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
	// Extensions are merged into the top-level JSON object.
	Extensions map[string]any `json:"-"`
}

// New builds a Details value, copying fieldErrors.
func New(status int, title, detail, problemType string, fieldErrors map[string][]string) Details {
	p := Details{Type: problemType, Title: title, Status: status, Detail: detail}
	if len(fieldErrors) > 0 {
		p.Errors = make(map[string][]string, len(fieldErrors))
		for field, messages := range fieldErrors {
			p.Errors[field] = append([]string(nil), messages...)
		}
	}
	return p
}

func (p Details) MarshalJSON() ([]byte, error) {
	type plain Details
	if len(p.Extensions) == 0 {
		return json.Marshal(plain(p))
	}
	base, err := json.Marshal(plain(p))
	if err != nil {
		return nil, err
	}
	merged := make(map[string]any, len(p.Extensions)+5)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extensions {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// Write sends p with the problem content type.
func Write(w http.ResponseWriter, p Details) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteJSON sends a plain JSON success body.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// Shortcuts used by middleware that has no domain error to classify.

func Unauthorized(w http.ResponseWriter, detail string) {
	Write(w, New(http.StatusUnauthorized, "Unauthorized", detail, TypeUnauthorized, nil))
}

func Forbidden(w http.ResponseWriter, detail string) {
	Write(w, New(http.StatusForbidden, "Forbidden", detail, TypeForbidden, nil))
}

func BadRequest(w http.ResponseWriter, detail string) {
	Write(w, New(http.StatusBadRequest, "Invalid request", detail, TypeValidation, nil))
}
