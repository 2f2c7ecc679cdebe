package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	enc := base64.RawURLEncoding
	// P-256 coordinates are 32 bytes; FillBytes keeps leading zeros.
	xb := make([]byte, 32)
	yb := make([]byte, 32)
	priv.PublicKey.X.FillBytes(xb)
	priv.PublicKey.Y.FillBytes(yb)
	jwkJSON := fmt.Sprintf(`{"kty":"EC","crv":"P-256","x":%q,"y":%q}`,
		enc.EncodeToString(xb), enc.EncodeToString(yb))
	return priv, jwkJSON
}

func signToken(t *testing.T, priv *ecdsa.PrivateKey, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestParseECPublicKeyJWK_Invalid(t *testing.T) {
	cases := []string{
		`not json`,
		`{"kty":"RSA","crv":"P-256","x":"AA","y":"AA"}`,
		`{"kty":"EC","crv":"P-384","x":"AA","y":"AA"}`,
		`{"kty":"EC","crv":"P-256","x":"!!!","y":"AA"}`,
		`{"kty":"EC","crv":"P-256","x":"AA","y":"AA"}`, // not on curve
	}
	for _, raw := range cases {
		if _, err := ParseECPublicKeyJWK(raw); !errors.Is(err, ErrInvalidJWK) {
			t.Fatalf("ParseECPublicKeyJWK(%q): expected ErrInvalidJWK, got %v", raw, err)
		}
	}
}

func TestVerify_ValidToken(t *testing.T) {
	priv, jwkJSON := newTestKey(t)
	v, err := NewVerifier(jwkJSON)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	tok := signToken(t, priv, Claims{
		Email:        "ada@example.com",
		UserMetadata: map[string]any{"full_name": "Ada Lovelace"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "3f1e9c1a-5be0-4a3e-9f1d-000000000001",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})

	claims, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "3f1e9c1a-5be0-4a3e-9f1d-000000000001" {
		t.Fatalf("unexpected subject: %q", claims.Subject)
	}
	if claims.Email != "ada@example.com" {
		t.Fatalf("unexpected email: %q", claims.Email)
	}
	if claims.UserMetadata["full_name"] != "Ada Lovelace" {
		t.Fatalf("unexpected metadata: %v", claims.UserMetadata)
	}
}

func TestVerify_Expired(t *testing.T) {
	priv, jwkJSON := newTestKey(t)
	v, err := NewVerifier(jwkJSON)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	tok := signToken(t, priv, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	if _, err := v.Verify(tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerify_WrongKeyAndAlg(t *testing.T) {
	priv, _ := newTestKey(t)
	_, otherJWK := newTestKey(t)
	v, err := NewVerifier(otherJWK)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	// Signed with a key the verifier does not trust.
	tok := signToken(t, priv, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if _, err := v.Verify(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	// HS256 token must be rejected even with a "valid" signature.
	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign hs256: %v", err)
	}
	if _, err := v.Verify(hs); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for HS256, got %v", err)
	}

	if _, err := v.Verify("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}
