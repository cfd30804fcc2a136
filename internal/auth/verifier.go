package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ptts/sonuby-api/internal/errors"
)

// Identity is the result of successful token verification. It is never
// constructed from unverified input.
type Identity struct {
	Subject   string
	Audience  string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Claims    map[string]interface{}
}

// Verifier validates Firebase ID tokens against the cached key set.
type Verifier struct {
	projectID string
	keys      *KeySetCache
}

// NewVerifier creates a verifier for the given Firebase project.
func NewVerifier(projectID string, keys *KeySetCache) *Verifier {
	return &Verifier{projectID: projectID, keys: keys}
}

// Verify validates the bearer token from an Authorization header value and
// returns the verified identity. Verification failures surface as a uniform
// "Invalid auth token" error wrapping the original cause; the cause is for
// server-side logging only.
func (v *Verifier) Verify(ctx context.Context, authorizationHeader string) (*Identity, error) {
	tokenString := stripBearer(authorizationHeader)
	if tokenString == "" {
		return nil, errors.Unauthorized("Authorization header or token is missing")
	}

	ks, err := v.keys.Get(ctx)
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		key, ok := ks.Key(kid)
		if !ok {
			return nil, fmt.Errorf("signing key %q not found in key set", kid)
		}
		return key.RSAPublicKey()
	},
		// Firebase signs ID tokens with RS256 only. Tokens carrying any
		// other algorithm are rejected outright.
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
	)
	if err != nil {
		return nil, errors.InvalidToken(err)
	}
	if !token.Valid {
		return nil, errors.InvalidToken(nil)
	}

	// The subject is the authenticated user ID. It must be present and
	// non-empty; downstream code never falls back to a default.
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, errors.InvalidToken(fmt.Errorf(`token payload "sub" is missing or invalid`))
	}

	identity := &Identity{
		Subject:  subject,
		Audience: v.projectID,
		Issuer:   "https://securetoken.google.com/" + v.projectID,
		Claims:   claims,
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		identity.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}

	return identity, nil
}

// stripBearer removes a case-insensitive "Bearer" scheme prefix and returns
// the bare token, or "" when no token is present.
func stripBearer(header string) string {
	header = strings.TrimSpace(header)
	if header == "" || strings.EqualFold(header, "bearer") {
		return ""
	}
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
