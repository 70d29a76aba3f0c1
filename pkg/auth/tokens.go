package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/CETANGZHI/crypto-monitor-backend/pkg/config"
)

// Token purposes. Access tokens authenticate API calls, refresh tokens may
// only be exchanged for a new pair; the purpose claim keeps the two from
// being used interchangeably.
const (
	PurposeAccess  = "access"
	PurposeRefresh = "refresh"
)

// ErrInvalidToken is returned when a token fails signature, expiry or
// purpose validation.
var ErrInvalidToken = errors.New("invalid token")

// TokenPair is the envelope returned by every login and refresh operation.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims are the registered claims carried by both token purposes plus the
// purpose discriminator.
type Claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256-signed access and refresh tokens.
type TokenCodec struct {
	secret          []byte
	issuer          string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// NewTokenCodec creates a token codec from the auth configuration.
func NewTokenCodec(cfg *config.AuthConfig) *TokenCodec {
	return &TokenCodec{
		secret:          []byte(cfg.Secret),
		issuer:          cfg.Issuer,
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
	}
}

// IssuePair issues a fresh access+refresh pair for the given account id.
func (c *TokenCodec) IssuePair(accountID int64, now time.Time) (*TokenPair, error) {
	access, err := c.issue(accountID, PurposeAccess, now, c.accessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := c.issue(accountID, PurposeRefresh, now, c.refreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(c.accessTokenTTL.Seconds()),
	}, nil
}

func (c *TokenCodec) issue(accountID int64, purpose string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", purpose, err)
	}
	return signed, nil
}

// Verify parses the token, checks the signature, expiry, issuer and purpose,
// and returns the account id it was issued for.
func (c *TokenCodec) Verify(tokenString, purpose string) (int64, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithIssuer(c.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return 0, fmt.Errorf("%w: wrong token purpose %q", ErrInvalidToken, claims.Purpose)
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}
	return accountID, nil
}
