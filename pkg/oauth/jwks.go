package oauth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/config"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/identity"
)

// jwksVerifier validates an id token locally against the provider's
// published signing keys. Apple exposes no token-info endpoint, so its
// tokens must be checked this way.
type jwksVerifier struct {
	provider string
	clientID string
	issuer   string
	jwksURL  string
	client   *http.Client

	mu   sync.Mutex
	keys map[string]*rsa.PublicKey
}

// NewJWKSVerifier creates a verifier that fetches the provider's JWKS and
// validates id-token signature, issuer and audience.
func NewJWKSVerifier(provider, issuer string, cfg *config.OAuthProviderConfig) Verifier {
	return &jwksVerifier{
		provider: provider,
		clientID: cfg.ClientID,
		issuer:   issuer,
		jwksURL:  cfg.JWKSURL,
		client:   &http.Client{Timeout: cfg.Timeout},
		keys:     make(map[string]*rsa.PublicKey),
	}
}

func (v *jwksVerifier) Verify(ctx context.Context, idToken string) (*identity.OAuthClaim, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	}
	if v.clientID != "" {
		opts = append(opts, jwt.WithAudience(v.clientID))
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(idToken, claims, v.keyFor(ctx), opts...); err != nil {
		return nil, fmt.Errorf("%s rejected the id token: %w", v.provider, err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("id token missing subject")
	}
	email, _ := claims["email"].(string)

	// Apple sends email_verified as the string "true", Google as a bool.
	verified := false
	switch ev := claims["email_verified"].(type) {
	case bool:
		verified = ev
	case string:
		verified = ev == "true"
	}

	return &identity.OAuthClaim{
		Provider:      v.provider,
		Subject:       sub,
		Email:         email,
		EmailVerified: verified,
	}, nil
}

// keyFor resolves the token's kid to a cached signing key, refreshing the
// key set once when the kid is unknown to pick up provider key rotation.
func (v *jwksVerifier) keyFor(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("id token missing kid header")
		}

		v.mu.Lock()
		key, ok := v.keys[kid]
		v.mu.Unlock()
		if ok {
			return key, nil
		}

		if err := v.refresh(ctx); err != nil {
			return nil, err
		}

		v.mu.Lock()
		key, ok = v.keys[kid]
		v.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("no %s signing key with id %q", v.provider, kid)
		}
		return key, nil
	}
}

func (v *jwksVerifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create jwks request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks request returned status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []struct {
			Kty string `json:"kty"`
			Kid string `json:"kid"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode jwks response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := rsaKeyFromJWK(k.N, k.E)
		if err != nil {
			return fmt.Errorf("bad jwks key %q: %w", k.Kid, err)
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("jwks response carried no RSA keys")
	}

	v.mu.Lock()
	v.keys = keys
	v.mu.Unlock()
	return nil
}

func rsaKeyFromJWK(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}
