// Package auth verifies externally issued identity tokens. The identity
// provider signs access tokens with ES256 and publishes the corresponding
// public key as a JSON Web Key; this package parses that key and validates
// bearer tokens against it.
package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// jwk is the subset of RFC 7517 fields needed for an EC public key.
type jwk struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// ErrInvalidJWK is returned when the configured key material cannot be
// parsed into a P-256 public key.
var ErrInvalidJWK = errors.New("auth: invalid JWK public key")

// ParseECPublicKeyJWK parses a JSON Web Key document into an ECDSA public
// key. Only EC keys on the P-256 curve are accepted, matching the ES256
// algorithm the identity provider signs with.
func ParseECPublicKeyJWK(raw string) (*ecdsa.PublicKey, error) {
	var k jwk
	if err := json.Unmarshal([]byte(raw), &k); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
	}
	if k.Kty != "EC" || k.Crv != "P-256" {
		return nil, fmt.Errorf("%w: unsupported kty=%q crv=%q", ErrInvalidJWK, k.Kty, k.Crv)
	}

	xb, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, fmt.Errorf("%w: bad x coordinate: %v", ErrInvalidJWK, err)
	}
	yb, err := base64.RawURLEncoding.DecodeString(k.Y)
	if err != nil {
		return nil, fmt.Errorf("%w: bad y coordinate: %v", ErrInvalidJWK, err)
	}

	pub := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xb),
		Y:     new(big.Int).SetBytes(yb),
	}
	if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
		return nil, fmt.Errorf("%w: point not on curve", ErrInvalidJWK)
	}
	return pub, nil
}
