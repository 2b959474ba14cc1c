package demo

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/homecare-booking/pkg/logging"
)

// DefaultTokenSecret signs development tokens when no secret is configured.
const DefaultTokenSecret = "homecare-dev-identity-secret"

const DefaultIssuer = "homecare-dev-idp"

// IdentityProvider is a development stand-in for the delegated login
// provider. It lets a developer sign in as any principal.
type IdentityProvider struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
	logger   *logging.Logger
	now      func() time.Time
}

func NewIdentityProvider(secret string, logger *logging.Logger) *IdentityProvider {
	if secret == "" {
		secret = DefaultTokenSecret
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IdentityProvider{
		secret:   []byte(secret),
		issuer:   DefaultIssuer,
		tokenTTL: time.Hour,
		logger:   logger,
		now:      time.Now,
	}
}

func (p *IdentityProvider) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/authorize", p.HandleAuthorizePage)
	r.Post("/authorize", p.HandleAuthorizeDecision)
	return r
}

// IssueToken signs a token for principal, audience-bound to clientID.
func (p *IdentityProvider) IssueToken(principal, clientID string) (string, error) {
	now := p.now()
	claims := jwt.RegisteredClaims{
		Subject:   principal,
		Issuer:    p.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.tokenTTL)),
	}
	if clientID != "" {
		claims.Audience = jwt.ClaimStrings{clientID}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

type authorizePage struct {
	ClientID    string
	RedirectURI string
	State       string
}

func (p *IdentityProvider) HandleAuthorizePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := authorizePage{
		ClientID:    q.Get("client_id"),
		RedirectURI: q.Get("redirect_uri"),
		State:       q.Get("state"),
	}
	if !validRedirect(page.RedirectURI) || page.State == "" {
		http.Error(w, "invalid authorization request", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := authorizeTmpl.Execute(w, page); err != nil {
		p.logger.Error("render authorize page", "error", err)
	}
}

func (p *IdentityProvider) HandleAuthorizeDecision(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	redirectURI := r.PostForm.Get("redirect_uri")
	state := r.PostForm.Get("state")
	if !validRedirect(redirectURI) || state == "" {
		http.Error(w, "invalid authorization request", http.StatusBadRequest)
		return
	}

	params := url.Values{}
	params.Set("state", state)
	if r.PostForm.Get("action") != "continue" {
		params.Set("error", "access_denied")
		http.Redirect(w, r, withQuery(redirectURI, params), http.StatusFound)
		return
	}

	principal := strings.TrimSpace(r.PostForm.Get("principal"))
	if principal == "" {
		http.Error(w, "principal is required", http.StatusBadRequest)
		return
	}
	token, err := p.IssueToken(principal, r.PostForm.Get("client_id"))
	if err != nil {
		p.logger.Error("issue dev token", "error", err)
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	p.logger.Info("dev identity issued", "principal", principal)
	params.Set("token", token)
	http.Redirect(w, r, withQuery(redirectURI, params), http.StatusFound)
}

func validRedirect(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func withQuery(raw string, params url.Values) string {
	u, _ := url.Parse(raw)
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

var authorizeTmpl = template.Must(template.New("authorize").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Sign in (development)</title>
  <style>
    body { font-family: system-ui, sans-serif; background: #f9fafb; color: #1f2937; display: flex; justify-content: center; padding: 4rem 1rem; }
    .card { background: #fff; border: 1px solid #e5e7eb; border-radius: 12px; padding: 2rem; max-width: 380px; width: 100%; }
    label { display: block; font-weight: 600; margin-bottom: .5rem; }
    input[type=text] { width: 100%; padding: .6rem; border: 1px solid #e5e7eb; border-radius: 8px; margin-bottom: 1rem; box-sizing: border-box; }
    button { padding: .6rem 1rem; border-radius: 8px; border: 1px solid #0f766e; cursor: pointer; }
    .primary { background: #0f766e; color: #fff; }
    .secondary { background: #fff; color: #0f766e; }
  </style>
</head>
<body>
  <form class="card" method="post" action="authorize">
    <h1>Development sign-in</h1>
    <p>Signing in to <strong>{{.ClientID}}</strong>. Choose any principal name.</p>
    <input type="hidden" name="client_id" value="{{.ClientID}}">
    <input type="hidden" name="redirect_uri" value="{{.RedirectURI}}">
    <input type="hidden" name="state" value="{{.State}}">
    <label for="principal">Principal</label>
    <input type="text" id="principal" name="principal" value="dev-user">
    <button class="primary" type="submit" name="action" value="continue">Continue</button>
    <button class="secondary" type="submit" name="action" value="cancel">Cancel</button>
  </form>
</body>
</html>
`))
