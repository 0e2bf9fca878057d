package session

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	ProfileCookie = "profile_id"
	ProfileHeader = "X-Session-Profile"
)

var profilePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

type ctxKey string

const profileKey ctxKey = "CLUBPORTAL_SESSION_PROFILE"

func WithProfile(ctx context.Context, profile string) context.Context {
	return context.WithValue(ctx, profileKey, profile)
}

func ProfileFromContext(ctx context.Context) (string, bool) {
	profile, ok := ctx.Value(profileKey).(string)
	return profile, ok && profile != ""
}

// ProfileMiddleware identifies the browser profile from the header or cookie, issuing a new
// cookie when neither carries a well-formed id.
func ProfileMiddleware(secureCookie bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile := r.Header.Get(ProfileHeader)
			if !profilePattern.MatchString(profile) {
				profile = ""
				if c, err := r.Cookie(ProfileCookie); err == nil && profilePattern.MatchString(c.Value) {
					profile = c.Value
				}
			}
			if profile == "" {
				profile = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     ProfileCookie,
					Value:    profile,
					Path:     "/",
					HttpOnly: true,
					Secure:   secureCookie,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int((365 * 24 * 60 * 60)),
				})
			}
			next.ServeHTTP(w, r.WithContext(WithProfile(r.Context(), profile)))
		})
	}
}
