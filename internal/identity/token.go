package identity

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for ID tokens that fail verification.
var ErrInvalidToken = errors.New("identity: invalid id token")

// Claims is the slice of the ID token the dashboard reads.
type Claims struct {
	UserID    string
	Email     string
	Admin     bool
	ExpiresAt time.Time
}

// Verifier checks ID token signatures and extracts Claims.
type Verifier struct {
	key        any
	methods    []string
	issuer     string
	audience   string
	adminClaim string
}

// NewHMACVerifier verifies HS256 tokens signed with secret.
func NewHMACVerifier(secret, issuer, audience, adminClaim string) *Verifier {
	return &Verifier{
		key:        []byte(secret),
		methods:    []string{jwt.SigningMethodHS256.Alg()},
		issuer:     issuer,
		audience:   audience,
		adminClaim: adminClaim,
	}
}

// NewRSAVerifier verifies RS256 tokens against the PEM encoded public key.
func NewRSAVerifier(publicKeyPEM, issuer, audience, adminClaim string) (*Verifier, error) {
	key, err := ParseRSAPublicKey(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	return &Verifier{
		key:        key,
		methods:    []string{jwt.SigningMethodRS256.Alg()},
		issuer:     issuer,
		audience:   audience,
		adminClaim: adminClaim,
	}, nil
}

// ParseRSAPublicKey decodes a PEM public key.
func ParseRSAPublicKey(pemValue string) (*rsa.PublicKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemValue))
	if err != nil {
		return nil, fmt.Errorf("identity: parse public key: %w", err)
	}
	return key, nil
}

// Verify parses tokenString and returns its claims. The admin flag is true
// only when the configured claim is a boolean true.
func (v *Verifier) Verify(tokenString string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	mapClaims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, mapClaims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	sub, _ := mapClaims.GetSubject()
	exp, _ := mapClaims.GetExpirationTime()
	email, _ := mapClaims["email"].(string)
	admin, _ := mapClaims[v.adminClaim].(bool)

	claims := Claims{UserID: sub, Email: email, Admin: admin}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}
