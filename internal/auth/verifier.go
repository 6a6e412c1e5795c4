package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/dfwgrid/parcelsearch/api/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier-level errors
var (
	ErrTokenInvalid = errors.New("invalid or expired token")
	ErrKeyNotFound  = errors.New("token signing key not found")
)

// Verifier validates a bearer token and resolves the owning user ID.
type Verifier interface {
	// Verify returns the user ID (subject claim) of a valid token.
	// Any verification failure is reported as an error; callers decide
	// whether that means guest access or rejection.
	Verify(ctx context.Context, token string) (string, error)
}

// CognitoVerifier verifies RS256 tokens issued by an AWS Cognito user pool.
// Signing keys come from the pool's JWKS document and are cached with a
// bounded TTL. Invalidate drops the cache so a key rotation is picked up
// without waiting for expiry.
type CognitoVerifier struct {
	issuer   string
	clientID string
	jwksURL  string
	ttl      time.Duration
	client   *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewCognitoVerifier creates a verifier for the configured user pool.
func NewCognitoVerifier(cfg config.AuthConfig) *CognitoVerifier {
	return newVerifier(cfg.Issuer(), cfg.ClientID, cfg.JWKSURL(),
		time.Duration(cfg.JWKSCacheTTLMin)*time.Minute)
}

// newVerifier wires a verifier against explicit endpoints. Split out so tests
// can point it at a local JWKS server.
func newVerifier(issuer, clientID, jwksURL string, ttl time.Duration) *CognitoVerifier {
	return &CognitoVerifier{
		issuer:   issuer,
		clientID: clientID,
		jwksURL:  jwksURL,
		ttl:      ttl,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify parses and validates the token, checking signature, signing method,
// issuer, audience, and expiry. Returns the subject claim on success.
func (v *CognitoVerifier) Verify(ctx context.Context, raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(raw, claims, v.keyFunc(ctx),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}

// Invalidate drops the cached signing keys. The next verification refetches
// the JWKS document.
func (v *CognitoVerifier) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys = nil
	v.fetchedAt = time.Time{}
}

// keyFunc returns a jwt.Keyfunc that resolves the signing key by the token's
// key ID, refreshing the JWKS cache when stale or when the key is unknown.
func (v *CognitoVerifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: token has no key ID", ErrKeyNotFound)
		}
		return v.key(ctx, kid)
	}
}

// key returns the cached public key for kid, refreshing the cache if the TTL
// has elapsed or the kid is not present (covers key rotation).
func (v *CognitoVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := time.Since(v.fetchedAt) < v.ttl
	v.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}

	if err := v.refresh(ctx); err != nil {
		// A stale key is still better than failing outright when the
		// JWKS endpoint is briefly unreachable.
		if ok {
			return key, nil
		}
		return nil, err
	}

	v.mu.RLock()
	key, ok = v.keys[kid]
	v.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	}
	return key, nil
}

// refresh fetches and parses the JWKS document, replacing the key cache.
func (v *CognitoVerifier) refresh(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if v.keys != nil && time.Since(v.fetchedAt) < v.ttl {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build JWKS request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch JWKS: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read JWKS response: %w", err)
	}

	keys, err := parseJWKS(body)
	if err != nil {
		return fmt.Errorf("failed to parse JWKS: %w", err)
	}

	v.keys = keys
	v.fetchedAt = time.Now()
	return nil
}

// jwksDocument is the shape of a JWKS endpoint response.
type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

// jwksKey is a single JSON Web Key. Only RSA keys are usable here.
type jwksKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// parseJWKS converts a JWKS document into RSA public keys indexed by kid.
// Non-RSA entries are skipped.
func parseJWKS(data []byte) (map[string]*rsa.PublicKey, error) {
	var doc jwksDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}

		nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, fmt.Errorf("invalid modulus for kid %q: %w", k.Kid, err)
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, fmt.Errorf("invalid exponent for kid %q: %w", k.Kid, err)
		}

		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: int(new(big.Int).SetBytes(eBytes).Int64()),
		}
	}

	if len(keys) == 0 {
		return nil, errors.New("JWKS document contains no usable RSA keys")
	}
	return keys, nil
}
