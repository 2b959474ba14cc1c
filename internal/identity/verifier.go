package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/homecare-booking/internal/backend"
)

// ErrInvalidToken is returned when a provider token fails verification.
var ErrInvalidToken = errors.New("identity: invalid token")

// Verifier checks a token returned by the identity provider and yields the
// principal it was issued to.
type Verifier interface {
	Verify(ctx context.Context, token string) (backend.Principal, error)
}

// HMACVerifier validates HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewHMACVerifier(secret, issuer, audience string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

func (v *HMACVerifier) Verify(_ context.Context, tokenString string) (backend.Principal, error) {
	if len(v.secret) == 0 {
		return "", fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, parserOptions(v.issuer, v.audience)...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return principalFrom(claims)
}

// JWKSVerifier validates RS256 tokens against keys published at a JWKS URL.
// Keys are cached for an hour and refetched when a token names an unknown kid.
type JWKSVerifier struct {
	jwksURL    string
	issuer     string
	audience   string
	httpClient *http.Client

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

func NewJWKSVerifier(jwksURL, issuer, audience string) *JWKSVerifier {
	return &JWKSVerifier{
		jwksURL:    jwksURL,
		issuer:     issuer,
		audience:   audience,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *JWKSVerifier) Verify(ctx context.Context, tokenString string) (backend.Principal, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &jwt.RegisteredClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: malformed token", ErrInvalidToken)
	}
	kid, ok := token.Header["kid"].(string)
	if !ok || kid == "" {
		return "", fmt.Errorf("%w: missing key id", ErrInvalidToken)
	}

	pubKey, err := v.publicKey(ctx, kid)
	if err != nil {
		return "", err
	}

	claims := &jwt.RegisteredClaims{}
	opts := append(parserOptions(v.issuer, v.audience), jwt.WithValidMethods([]string{"RS256"}))
	_, err = jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return pubKey, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return principalFrom(claims)
}

func (v *JWKSVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	if time.Now().Before(v.expires) {
		if key, ok := v.keys[kid]; ok {
			v.mu.RUnlock()
			return key, nil
		}
	}
	v.mu.RUnlock()

	keys, err := v.fetch(ctx)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.keys = keys
	v.expires = time.Now().Add(time.Hour)
	v.mu.Unlock()

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: key %s not found in JWKS", ErrInvalidToken, kid)
	}
	return key, nil
}

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (v *JWKSVerifier) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	if strings.TrimSpace(v.jwksURL) == "" {
		return nil, errors.New("identity: jwks url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("identity: build jwks request: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity: jwks request failed with status %d", resp.StatusCode)
	}

	var jwks jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("identity: decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" {
			continue
		}
		pubKey, err := parseRSAPublicKey(key.N, key.E)
		if err != nil {
			continue
		}
		keys[key.Kid] = pubKey
	}
	if len(keys) == 0 {
		return nil, errors.New("identity: no valid RSA keys found in JWKS")
	}
	return keys, nil
}

// parseRSAPublicKey parses RSA public key components from base64url-encoded strings.
func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}
	return &rsa.PublicKey{N: n, E: e}, nil
}

func parserOptions(issuer, audience string) []jwt.ParserOption {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return opts
}

func principalFrom(claims *jwt.RegisteredClaims) (backend.Principal, error) {
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}
	return backend.Principal(subject), nil
}
