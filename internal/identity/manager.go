package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/homecare-booking/internal/backend"
	"github.com/wolfman30/homecare-booking/pkg/logging"
)

// DefaultLoginWindow bounds how long a started login may wait for the provider.
const DefaultLoginWindow = 10 * time.Minute

var (
	ErrNoPendingLogin = errors.New("identity: no login in progress")
	ErrLoginCancelled = errors.New("identity: login cancelled by provider")
	ErrStateMismatch  = errors.New("identity: login state mismatch")
)

// Config holds the identity provider and session cookie settings.
type Config struct {
	ProviderURL   string
	ClientID      string
	PublicBaseURL string
	CookieName    string
	CookieTTL     time.Duration
	SecureCookie  bool
	LoginWindow   time.Duration
}

// Manager owns every visitor's identity session. It is constructed once at
// startup and shared by all handlers.
type Manager struct {
	cfg      Config
	store    Store
	verifier Verifier
	logger   *logging.Logger
	now      func() time.Time
}

func NewManager(cfg Config, store Store, verifier Verifier, logger *logging.Logger) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "hc_session"
	}
	if cfg.LoginWindow <= 0 {
		cfg.LoginWindow = DefaultLoginWindow
	}
	cfg.ProviderURL = strings.TrimRight(cfg.ProviderURL, "/")
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	if store == nil {
		store = NewMemoryStore(cfg.CookieTTL)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{cfg: cfg, store: store, verifier: verifier, logger: logger, now: time.Now}
}

// StateOf reports the session's effective state. A pending login older than
// the login window reads as anonymous.
func (m *Manager) StateOf(sess *Session) State {
	if sess == nil {
		return StateAnonymous
	}
	if sess.State == StatePending && m.now().Sub(sess.LoginStarted) > m.cfg.LoginWindow {
		return StateAnonymous
	}
	return sess.State
}

// CurrentIdentity returns the principal when the session is authenticated.
func (m *Manager) CurrentIdentity(sess *Session) (backend.Principal, bool) {
	if m.StateOf(sess) != StateAuthenticated || sess.Principal == "" {
		return "", false
	}
	return sess.Principal, true
}

func (m *Manager) IsAuthenticated(sess *Session) bool {
	_, ok := m.CurrentIdentity(sess)
	return ok
}

// Caller returns the identity to attach to backend writes, or nil when anonymous.
func (m *Manager) Caller(sess *Session) *backend.Caller {
	principal, ok := m.CurrentIdentity(sess)
	if !ok {
		return nil
	}
	return &backend.Caller{Principal: principal, Token: sess.Token}
}

// BeginLogin moves the session to pending and returns the provider URL the
// visitor must be sent to. An authenticated session gets returnTo back.
func (m *Manager) BeginLogin(ctx context.Context, sess *Session, returnTo string) (string, error) {
	returnTo = SafeReturnPath(returnTo)
	if m.IsAuthenticated(sess) {
		return returnTo, nil
	}
	if m.cfg.ProviderURL == "" {
		return "", errors.New("identity: provider url not configured")
	}

	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", fmt.Errorf("identity: generate login state: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)
	started := m.now()

	err := m.update(ctx, sess, func(s *Session) {
		s.resetToAnonymous()
		s.State = StatePending
		s.LoginNonce = nonce
		s.LoginStarted = started
		s.ReturnTo = returnTo
	})
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("client_id", m.cfg.ClientID)
	q.Set("redirect_uri", m.cfg.PublicBaseURL+"/auth/callback")
	q.Set("state", nonce)
	return m.cfg.ProviderURL + "/authorize?" + q.Encode(), nil
}

// CompleteLogin resolves a pending login from the provider's callback
// parameters. On any failure the session falls back to anonymous; the
// returned error is for logging. The path to continue at is always returned.
func (m *Manager) CompleteLogin(ctx context.Context, sess *Session, params url.Values) (string, error) {
	returnTo := SafeReturnPath(sess.ReturnTo)
	nonce := sess.LoginNonce

	// abandon drops this login attempt unless a newer one replaced it.
	abandon := func(s *Session) {
		if s.State == StatePending && s.LoginNonce == nonce {
			s.resetToAnonymous()
			s.ReturnTo = ""
		}
	}

	if m.StateOf(sess) != StatePending {
		if sess.State == StatePending {
			if err := m.update(ctx, sess, abandon); err != nil {
				return returnTo, err
			}
		}
		if sess.State == StateAuthenticated {
			return returnTo, nil
		}
		return returnTo, ErrNoPendingLogin
	}

	fail := func(cause error) (string, error) {
		if err := m.update(ctx, sess, abandon); err != nil {
			return returnTo, errors.Join(cause, err)
		}
		return returnTo, cause
	}

	if providerErr := params.Get("error"); providerErr != "" {
		return fail(fmt.Errorf("%w: %s", ErrLoginCancelled, providerErr))
	}
	if params.Get("state") == "" || params.Get("state") != nonce {
		return fail(ErrStateMismatch)
	}
	if m.verifier == nil {
		return fail(fmt.Errorf("%w: no verifier configured", ErrInvalidToken))
	}
	token := params.Get("token")
	principal, err := m.verifier.Verify(ctx, token)
	if err != nil {
		return fail(err)
	}

	err = m.update(ctx, sess, func(s *Session) {
		s.resetToAnonymous()
		s.State = StateAuthenticated
		s.Principal = principal
		s.Token = token
		s.ReturnTo = ""
	})
	if err != nil {
		return returnTo, err
	}
	m.logger.Info("visitor signed in", "principal", principal)
	return returnTo, nil
}

// Logout returns the session to anonymous and forgets any saved draft.
func (m *Manager) Logout(ctx context.Context, sess *Session) error {
	return m.update(ctx, sess, func(s *Session) {
		s.resetToAnonymous()
		s.ReturnTo = ""
		s.Draft = nil
	})
}

// SaveDraft remembers form values across the login redirect.
func (m *Manager) SaveDraft(ctx context.Context, sess *Session, draft map[string]string) error {
	saved := copyDraft(draft)
	return m.update(ctx, sess, func(s *Session) {
		s.Draft = saved
	})
}

// TakeDraft returns and clears the saved draft.
func (m *Manager) TakeDraft(ctx context.Context, sess *Session) (map[string]string, error) {
	if len(sess.Draft) == 0 {
		return nil, nil
	}
	var taken map[string]string
	err := m.update(ctx, sess, func(s *Session) {
		taken = s.Draft
		s.Draft = nil
	})
	return taken, err
}

const maxSaveAttempts = 3

// update applies mutate to sess and saves it. When another request saved the
// session in between, the stored copy is reloaded and mutate applied again,
// so concurrent requests keep each other's changes.
func (m *Manager) update(ctx context.Context, sess *Session, mutate func(*Session)) error {
	for attempt := 1; ; attempt++ {
		if mutate != nil {
			mutate(sess)
		}
		sess.UpdatedAt = m.now()
		err := m.store.Save(ctx, sess)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrSessionConflict) || attempt == maxSaveAttempts {
			return fmt.Errorf("identity: save session: %w", err)
		}
		fresh, err := m.store.Load(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("identity: reload session: %w", err)
		}
		*sess = *fresh
	}
}

type contextKey string

const sessionKey contextKey = "identitySession"

// Middleware loads the visitor's session from the cookie, creating one when
// absent, and makes it available through FromContext.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.load(r)
		if sess == nil {
			sess = newSession(uuid.NewString(), m.now())
			if err := m.update(r.Context(), sess, nil); err != nil {
				m.logger.Warn("session create failed", "error", err)
			}
			http.SetCookie(w, &http.Cookie{
				Name:     m.cfg.CookieName,
				Value:    sess.ID,
				Path:     "/",
				MaxAge:   int(m.cfg.CookieTTL.Seconds()),
				HttpOnly: true,
				Secure:   m.cfg.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
	})
}

func (m *Manager) load(r *http.Request) *Session {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, err := m.store.Load(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			m.logger.Warn("session load failed", "error", err)
		}
		return nil
	}
	return sess
}

// NewContext returns a copy of ctx carrying sess.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// FromContext returns the session attached by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*Session)
	return sess, ok && sess != nil
}

// SafeReturnPath keeps only local absolute paths; anything else becomes "/".
func SafeReturnPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	u, err := url.Parse(p)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return p
}
