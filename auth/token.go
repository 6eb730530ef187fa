// Package auth adapts externally issued identity tokens into user
// identifiers. The core never creates or validates identities beyond
// checking the token signature; issuance lives in the external auth
// layer.
package auth

import (
	"time"

	"chat-core/domain"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

type TokenResolver struct {
	secret []byte
	issuer string
}

func NewTokenResolver(secret []byte, issuer string) *TokenResolver {
	return &TokenResolver{secret: secret, issuer: issuer}
}

// GenerateToken creates a signed JWT for a specific user. Used by
// tests and tooling; production tokens come from the auth layer.
func (r *TokenResolver) GenerateToken(userID domain.UserID, roles []string,
	tokenDuration time.Duration) (string, error) {
	claims := &CustomClaims{
		UserID: string(userID),
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    r.issuer,
		},
	}

	// HS256 (HMAC with SHA256), signed with the shared secret.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.secret)
}

// ResolveUserID parses and validates the signature and expiration of a
// JWT string and returns the user identifier claim.
func (r *TokenResolver) ResolveUserID(tokenString string) (domain.UserID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return r.secret, nil
	})
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return domain.UserID(claims.UserID), nil
	}
	return "", jwt.ErrSignatureInvalid
}
