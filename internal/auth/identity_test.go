package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/joestump/streakcraft/internal/auth"
)

func TestNewIdentity_JWTExpiry(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("not-our-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	id := auth.NewIdentity(signed, nil)
	if !id.Expiry().Equal(exp) {
		t.Errorf("Expiry = %v, want %v", id.Expiry(), exp)
	}
	tok := id.Token()
	if tok.AccessToken != signed || tok.TokenType != "Bearer" {
		t.Errorf("Token = %+v, want bearer %q", tok, signed)
	}
}

func TestNewIdentity_OpaqueCredential(t *testing.T) {
	id := auth.NewIdentity("abc", map[string]any{"name": "Ann"})
	if !id.Expiry().IsZero() {
		t.Errorf("Expiry = %v, want zero for opaque credential", id.Expiry())
	}
	if !id.Token().Valid() {
		t.Error("opaque credential without expiry should count as valid")
	}
}

func TestIdentity_ProfileIsCopied(t *testing.T) {
	profile := map[string]any{"name": "Ann"}
	id := auth.NewIdentity("abc", profile)

	profile["name"] = "Mallory"
	if id.Name() != "Ann" {
		t.Errorf("Name = %q after caller mutation, want Ann", id.Name())
	}

	got := id.Profile()
	got["name"] = "Mallory"
	if id.Name() != "Ann" {
		t.Errorf("Name = %q after Profile() mutation, want Ann", id.Name())
	}
}

func TestIdentity_MissingFields(t *testing.T) {
	id := auth.NewIdentity("abc", map[string]any{"name": 42})
	if id.Name() != "" || id.Picture() != "" || id.ID() != "" {
		t.Error("non-string or missing profile fields should read as empty")
	}
}

func TestIdentity_Equal(t *testing.T) {
	a := auth.NewIdentity("abc", map[string]any{"name": "Ann"})
	b := auth.NewIdentity("abc", map[string]any{"name": "Ann"})
	c := auth.NewIdentity("xyz", map[string]any{"name": "Ann"})
	var none *auth.Identity

	if !a.Equal(b) {
		t.Error("identical identities should be equal")
	}
	if a.Equal(c) {
		t.Error("different credentials should not be equal")
	}
	if a.Equal(none) || !none.Equal(nil) {
		t.Error("nil handling is wrong")
	}
}
