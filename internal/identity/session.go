// Package identity tracks each visitor's sign-in state and runs the
// delegated login flow against the external identity provider.
package identity

import (
	"time"

	"github.com/wolfman30/homecare-booking/internal/backend"
)

// State is a visitor's position in the login flow.
type State string

const (
	StateAnonymous     State = "anonymous"
	StatePending       State = "pending"
	StateAuthenticated State = "authenticated"
)

// Session is the per-visitor identity record, addressed by the session cookie.
// Principal and Token are set only while authenticated. Version is owned by
// the Store and changes on every successful save.
type Session struct {
	ID           string            `json:"id"`
	State        State             `json:"state"`
	Principal    backend.Principal `json:"principal,omitempty"`
	Token        string            `json:"token,omitempty"`
	LoginNonce   string            `json:"loginNonce,omitempty"`
	LoginStarted time.Time         `json:"loginStarted,omitempty"`
	ReturnTo     string            `json:"returnTo,omitempty"`
	Draft        map[string]string `json:"draft,omitempty"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	Version      int64             `json:"version"`
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, State: StateAnonymous, UpdatedAt: now}
}

func (s *Session) resetToAnonymous() {
	s.State = StateAnonymous
	s.Principal = ""
	s.Token = ""
	s.LoginNonce = ""
	s.LoginStarted = time.Time{}
}

func copyDraft(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
