package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors for token handling.
var (
	ErrTokenMalformed = errors.New("identity: token malformed")
	ErrTokenExpired   = errors.New("identity: token expired")
	ErrNoPrincipal    = errors.New("identity: token carries no principal")
)

// TokenConfig configures the JWT user provider.
type TokenConfig struct {
	// TokenFn supplies the current bearer token from the host page.
	// Returning "" means no user is signed in.
	TokenFn func(ctx context.Context) string

	// PrincipalClaim is the claim holding the user identifier.
	// Default: "sub"
	PrincipalClaim string

	// Key is an optional HMAC key. When set, tokens are verified and
	// rejected on bad signatures. When nil, claims are extracted without
	// verification: the state layer is not a trust boundary, the server
	// re-authorizes every request by its own validation of the same token.
	Key []byte
}

// TokenUserProvider extracts the authenticated user ID from a JWT supplied
// by the host page. An absent, expired or unusable token yields no user.
type TokenUserProvider struct {
	config TokenConfig
	parser *jwt.Parser
}

// NewTokenUserProvider creates a JWT user provider.
func NewTokenUserProvider(config TokenConfig) *TokenUserProvider {
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}

	return &TokenUserProvider{
		config: config,
		parser: jwt.NewParser(jwt.WithExpirationRequired()),
	}
}

// UserID returns the principal claim of the current token, or "" when no
// usable token is present.
func (p *TokenUserProvider) UserID(ctx context.Context) (string, error) {
	if p.config.TokenFn == nil {
		return "", nil
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(p.config.TokenFn(ctx), "Bearer "))
	if tokenString == "" {
		return "", nil
	}

	claims := jwt.MapClaims{}
	if p.config.Key != nil {
		_, err := p.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrTokenMalformed
			}
			return p.config.Key, nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return "", ErrTokenExpired
			}
			return "", ErrTokenMalformed
		}
	} else {
		if _, _, err := p.parser.ParseUnverified(tokenString, claims); err != nil {
			return "", ErrTokenMalformed
		}
		if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
			return "", ErrTokenMalformed
		} else if exp.Before(nowFunc()) {
			return "", ErrTokenExpired
		}
	}

	principal, ok := claims[p.config.PrincipalClaim].(string)
	if !ok || principal == "" {
		return "", ErrNoPrincipal
	}
	return principal, nil
}

// nowFunc is swapped in tests.
var nowFunc = time.Now

// Ensure TokenUserProvider implements UserProvider
var _ UserProvider = (*TokenUserProvider)(nil)
