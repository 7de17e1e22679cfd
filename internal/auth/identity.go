package auth

import (
	"maps"
	"reflect"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Identity is the signed-in principal as reported by the auth backend: an
// access credential plus whatever profile fields the backend sent.
type Identity struct {
	token   oauth2.Token
	profile map[string]any
}

// NewIdentity builds an Identity from an access credential and profile fields.
// When the credential is a JWT with an exp claim, the token expiry is set from
// it; the signature is not checked (the backend owns validation).
func NewIdentity(accessToken string, profile map[string]any) *Identity {
	id := &Identity{
		token: oauth2.Token{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			Expiry:      expiryOf(accessToken),
		},
		profile: make(map[string]any, len(profile)),
	}
	maps.Copy(id.profile, profile)
	return id
}

func expiryOf(accessToken string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// AccessToken returns the raw access credential.
func (i *Identity) AccessToken() string { return i.token.AccessToken }

// Token returns a copy of the credential as an OAuth2 bearer token.
func (i *Identity) Token() *oauth2.Token {
	t := i.token
	return &t
}

// Expiry is the credential's expiry, or the zero time when unknown.
func (i *Identity) Expiry() time.Time { return i.token.Expiry }

// ID returns the profile "id" field.
func (i *Identity) ID() string { return i.str("id") }

// Name returns the profile "name" field.
func (i *Identity) Name() string { return i.str("name") }

// Email returns the profile "email" field.
func (i *Identity) Email() string { return i.str("email") }

// Picture returns the profile "picture" field.
func (i *Identity) Picture() string { return i.str("picture") }

// Profile returns a copy of all profile fields.
func (i *Identity) Profile() map[string]any {
	return maps.Clone(i.profile)
}

func (i *Identity) str(key string) string {
	s, _ := i.profile[key].(string)
	return s
}

// Equal reports whether two identities carry the same credential and profile.
func (i *Identity) Equal(o *Identity) bool {
	if i == nil || o == nil {
		return i == o
	}
	return i.token.AccessToken == o.token.AccessToken && reflect.DeepEqual(i.profile, o.profile)
}
