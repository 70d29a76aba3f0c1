package oauth

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/account"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/auth"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/config"
	"github.com/CETANGZHI/crypto-monitor-backend/pkg/identity"
)

func TestTokenInfoVerifier(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id_token") {
		case "good-token":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"aud":            "client-123",
				"sub":            "sub-42",
				"email":          "alice@x.com",
				"email_verified": "true",
			})
		case "bool-verified":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"aud":            "client-123",
				"sub":            "sub-43",
				"email":          "bob@x.com",
				"email_verified": true,
			})
		case "wrong-audience":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"aud": "someone-else",
				"sub": "sub-44",
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer upstream.Close()

	v := NewTokenInfoVerifier("google", &config.OAuthProviderConfig{
		ClientID:     "client-123",
		TokenInfoURL: upstream.URL,
		Timeout:      5 * time.Second,
	})
	ctx := context.Background()

	claim, err := v.Verify(ctx, "good-token")
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if claim.Provider != "google" || claim.Subject != "sub-42" {
		t.Fatalf("unexpected claim: %+v", claim)
	}
	if !claim.EmailVerified {
		t.Fatalf("expected string email_verified to parse as true")
	}

	claim, err = v.Verify(ctx, "bool-verified")
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if !claim.EmailVerified {
		t.Fatalf("expected bool email_verified to parse as true")
	}

	if _, err := v.Verify(ctx, "wrong-audience"); err == nil {
		t.Fatalf("expected audience mismatch to fail")
	}
	if _, err := v.Verify(ctx, "rejected-token"); err == nil {
		t.Fatalf("expected provider rejection to fail")
	}
}

func serveJWKS(t *testing.T, kid string, pub *rsa.PublicKey) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": kid,
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	}))
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestJWKSVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	upstream := serveJWKS(t, "key-1", &key.PublicKey)
	defer upstream.Close()

	const issuer = "https://appleid.example"
	v := NewJWKSVerifier("apple", issuer, &config.OAuthProviderConfig{
		ClientID: "client-123",
		JWKSURL:  upstream.URL,
		Timeout:  5 * time.Second,
	})
	ctx := context.Background()

	good := jwt.MapClaims{
		"iss":            issuer,
		"aud":            "client-123",
		"sub":            "apple-sub-1",
		"email":          "carol@x.com",
		"email_verified": "true",
		"iat":            time.Now().Add(-time.Minute).Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
	claim, err := v.Verify(ctx, signIDToken(t, key, "key-1", good))
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if claim.Provider != "apple" || claim.Subject != "apple-sub-1" || claim.Email != "carol@x.com" {
		t.Fatalf("unexpected claim: %+v", claim)
	}
	if !claim.EmailVerified {
		t.Fatalf("expected string email_verified to parse as true")
	}

	wrongAud := jwt.MapClaims{}
	for k, val := range good {
		wrongAud[k] = val
	}
	wrongAud["aud"] = "someone-else"
	if _, err := v.Verify(ctx, signIDToken(t, key, "key-1", wrongAud)); err == nil {
		t.Fatalf("expected audience mismatch to fail")
	}

	expired := jwt.MapClaims{}
	for k, val := range good {
		expired[k] = val
	}
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	if _, err := v.Verify(ctx, signIDToken(t, key, "key-1", expired)); err == nil {
		t.Fatalf("expected expired token to fail")
	}

	if _, err := v.Verify(ctx, signIDToken(t, key, "unknown-kid", good)); err == nil {
		t.Fatalf("expected unknown kid to fail")
	}

	// a token signed by a different key must not pass even with the right kid
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	if _, err := v.Verify(ctx, signIDToken(t, otherKey, "key-1", good)); err == nil {
		t.Fatalf("expected foreign signature to fail")
	}

	// symmetric algorithms are never accepted
	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, good)
	hs.Header["kid"] = "key-1"
	forged, err := hs.SignedString([]byte("guessable"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	if _, err := v.Verify(ctx, forged); err == nil {
		t.Fatalf("expected HS256 token to fail")
	}
}

func testAuthResult() *identity.AuthResult {
	return &identity.AuthResult{
		Account: &account.Account{
			ID:       1,
			Username: "user_oauth001",
			Tier:     account.TierTrial,
			Status:   account.StatusActive,
		},
		Tokens: &auth.TokenPair{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			TokenType:    "bearer",
			ExpiresIn:    1800,
		},
		IsNewAccount: true,
	}
}

// staticVerifier resolves a fixed token to a fixed claim.
type staticVerifier struct {
	claim *identity.OAuthClaim
}

func (s *staticVerifier) Verify(_ context.Context, idToken string) (*identity.OAuthClaim, error) {
	if idToken != "valid-token" {
		return nil, errors.New("provider rejected the token")
	}
	return s.claim, nil
}

// fakeIdentity records the claim it resolved.
type fakeIdentity struct {
	identity.Service
	resolved *identity.OAuthClaim
	result   *identity.AuthResult
}

func (f *fakeIdentity) ResolveOAuth(_ context.Context, claim *identity.OAuthClaim) (*identity.AuthResult, error) {
	f.resolved = claim
	return f.result, nil
}

func TestHTTP_Login(t *testing.T) {
	fake := &fakeIdentity{result: testAuthResult()}
	verifiers := map[string]Verifier{
		"google": &staticVerifier{claim: &identity.OAuthClaim{Provider: "google", Subject: "sub-1", Email: "a@x.com"}},
		"apple":  &staticVerifier{claim: &identity.OAuthClaim{Provider: "apple", Subject: "sub-2"}},
	}

	r := chi.NewRouter()
	RegisterRoutes(r, fake, verifiers, zap.NewNop())

	body, _ := json.Marshal(map[string]string{"id_token": "valid-token"})
	req := httptest.NewRequest(http.MethodPost, "/oauth/google/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	if fake.resolved == nil || fake.resolved.Provider != "google" {
		t.Fatalf("expected google claim to be resolved, got %+v", fake.resolved)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["is_new_user"] != true {
		t.Fatalf("is_new_user = %v, want true", resp["is_new_user"])
	}

	// provider rejection surfaces as 500
	body, _ = json.Marshal(map[string]string{"id_token": "bad-token"})
	req = httptest.NewRequest(http.MethodPost, "/oauth/apple/login", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("rejected token status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	// missing id_token is a validation error
	req = httptest.NewRequest(http.MethodPost, "/oauth/google/login", bytes.NewReader([]byte(`{}`)))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing id_token status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
