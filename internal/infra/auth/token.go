package auth

import "time"

const (
	// Audience is the fixed aud claim the App Store Connect API expects.
	Audience = "appstoreconnect-v1"
	// TokenLifetime is the distance between iat and exp on every credential.
	TokenLifetime = 900 * time.Second
)

// Credential is a signed bearer token minted for a single run.
type Credential struct {
	Token     string
	KeyID     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthorizationHeader returns the value for the Authorization header.
func (c Credential) AuthorizationHeader() string {
	return "Bearer " + c.Token
}

// Remaining reports how long the credential stays valid after now.
func (c Credential) Remaining(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}
