package auth

import (
	"crypto/ecdsa"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the token payload fields this service consumes. The
// identity provider places profile attributes under user_metadata; the
// subject is the provider's user ID and doubles as the local primary key.
type Claims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// Typed verification failures, kept distinct so the HTTP layer can map
// expiry to its own error code.
var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// Verifier validates ES256-signed bearer tokens against a single public key.
type Verifier struct {
	key *ecdsa.PublicKey
}

// NewVerifier builds a Verifier from a JWK document (see ParseECPublicKeyJWK).
func NewVerifier(jwkJSON string) (*Verifier, error) {
	key, err := ParseECPublicKeyJWK(jwkJSON)
	if err != nil {
		return nil, err
	}
	return &Verifier{key: key}, nil
}

// Verify parses and validates a compact JWT. It enforces the ES256
// signature and standard time claims; audience is deliberately not checked
// (the provider issues multi-audience tokens). On success it returns the
// decoded claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
