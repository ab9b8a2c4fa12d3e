package auth

import (
	"crypto/ecdsa"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	app_errors "github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/errors"
)

// IssuerConfig is the key material the TokenIssuer signs with.
type IssuerConfig struct {
	IssuerID      string
	KeyID         string
	PrivateKeyPEM string
	Now           func() time.Time
}

// TokenIssuer mints ES256 credentials for the App Store Connect API.
type TokenIssuer struct {
	issuerID   string
	keyID      string
	privateKey *ecdsa.PrivateKey
	now        func() time.Time
}

// NewTokenIssuer parses a PEM-encoded EC private key (PKCS#8 or SEC1).
func NewTokenIssuer(cfg IssuerConfig) (*TokenIssuer, error) {
	issuerID := strings.TrimSpace(cfg.IssuerID)
	keyID := strings.TrimSpace(cfg.KeyID)
	if issuerID == "" || keyID == "" {
		return nil, &app_errors.SigningError{KeyID: keyID, Err: errors.New("issuer id and key id are required")}
	}

	privateKey, err := jwt.ParseECPrivateKeyFromPEM([]byte(NormalizePEM(cfg.PrivateKeyPEM)))
	if err != nil {
		return nil, &app_errors.SigningError{KeyID: keyID, Err: err}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenIssuer{
		issuerID:   issuerID,
		keyID:      keyID,
		privateKey: privateKey,
		now:        now,
	}, nil
}

// Issue signs a fresh credential valid for exactly TokenLifetime. The kid is
// set both in the header and the claims.
func (ti *TokenIssuer) Issue() (Credential, error) {
	issuedAt := ti.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(TokenLifetime)

	claims := jwt.MapClaims{
		"iss": ti.issuerID,
		"iat": issuedAt.Unix(),
		"exp": expiresAt.Unix(),
		"aud": Audience,
		"kid": ti.keyID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = ti.keyID

	signed, err := token.SignedString(ti.privateKey)
	if err != nil {
		return Credential{}, &app_errors.SigningError{KeyID: ti.keyID, Err: err}
	}

	return Credential{
		Token:     signed,
		KeyID:     ti.keyID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// NormalizePEM trims every line and drops blank ones, so keys pasted into
// YAML or environment variables with indentation still decode.
func NormalizePEM(raw string) string {
	lines := strings.Split(strings.ReplaceAll(raw, `\n`, "\n"), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}
