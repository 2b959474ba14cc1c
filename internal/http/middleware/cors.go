package middleware

import (
	"net/http"
	"strings"
)

const (
	corsAllowedHeaders = "Content-Type, X-Request-ID"
	corsAllowedMethods = "GET, POST"
	corsMaxAge         = "600"
)

// originPolicy decides which cross-origin callers may use the JSON API.
// Listed origins may send the visitor's session cookie; a "*" entry admits
// any other origin without credentials.
type originPolicy struct {
	trusted  map[string]struct{}
	allowAny bool
}

func newOriginPolicy(allowedOrigins []string) originPolicy {
	p := originPolicy{trusted: map[string]struct{}{}}
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch origin {
		case "":
		case "*":
			p.allowAny = true
		default:
			p.trusted[origin] = struct{}{}
		}
	}
	return p
}

// match reports whether origin is admitted and whether it may send cookies.
func (p originPolicy) match(origin string) (allowed, credentials bool) {
	if origin == "" {
		return false, false
	}
	if _, ok := p.trusted[origin]; ok {
		return true, true
	}
	return p.allowAny, false
}

func corsMethodAllowed(method string) bool {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case http.MethodGet, http.MethodPost:
		return true
	}
	return false
}

// CORS lets script clients on other origins call the JSON API with the
// shared visitor session. Preflights from unknown origins or for methods
// the API does not serve are refused with 403.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := newOriginPolicy(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := strings.TrimSpace(r.Header.Get("Origin"))
			requestedMethod := r.Header.Get("Access-Control-Request-Method")
			preflight := r.Method == http.MethodOptions && origin != "" && requestedMethod != ""

			allowed, credentials := policy.match(origin)
			if !allowed {
				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", origin)
			if credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if !preflight {
				next.ServeHTTP(w, r)
				return
			}

			h.Add("Vary", "Access-Control-Request-Method")
			if !corsMethodAllowed(requestedMethod) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			h.Set("Access-Control-Max-Age", corsMaxAge)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
