// Package identity turns caller tokens into stable user ids.
package identity

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken wraps every verification failure.
var ErrInvalidToken = errors.New("invalid token")

// Verifier resolves an opaque token to a user id.
type Verifier interface {
	Verify(token string) (string, error)
}

// Claims is the token payload; the subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Signing algorithms admitted per key family.
var (
	hmacMethods  = []string{"HS256", "HS384", "HS512"}
	rsaMethods   = []string{"RS256", "RS384", "RS512"}
	ecdsaMethods = []string{"ES256", "ES384", "ES512"}
)

// JWTVerifier checks tokens against one key. A plain secret admits HS*
// tokens only; a PEM public key admits only the RS* or ES* family of that key.
type JWTVerifier struct {
	key    interface{}
	parser *jwt.Parser
}

// NewJWTVerifier returns a verifier for the given secret or PEM public key.
// The key family is fixed here, never taken from a token header.
func NewJWTVerifier(keyMaterial string) (*JWTVerifier, error) {
	if keyMaterial == "" {
		return nil, errors.New("empty verification key")
	}

	var key interface{} = []byte(keyMaterial)
	methods := hmacMethods
	if block, _ := pem.Decode([]byte(keyMaterial)); block != nil {
		pub, err := ParsePublicKey(keyMaterial)
		if err != nil {
			return nil, err
		}
		key = pub
		switch pub.(type) {
		case *rsa.PublicKey:
			methods = rsaMethods
		case *ecdsa.PublicKey:
			methods = ecdsaMethods
		}
	}

	return &JWTVerifier{
		key: key,
		parser: jwt.NewParser(
			jwt.WithValidMethods(methods),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(5*time.Second),
		),
	}, nil
}

// Verify returns the token's subject.
func (v *JWTVerifier) Verify(token string) (string, error) {
	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(token, claims, v.keyFor); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (v *JWTVerifier) keyFor(token *jwt.Token) (interface{}, error) {
	var ok bool
	switch v.key.(type) {
	case []byte:
		_, ok = token.Method.(*jwt.SigningMethodHMAC)
	case *rsa.PublicKey:
		_, ok = token.Method.(*jwt.SigningMethodRSA)
	case *ecdsa.PublicKey:
		_, ok = token.Method.(*jwt.SigningMethodECDSA)
	}
	if !ok {
		return nil, fmt.Errorf("signing method %v does not match the configured key", token.Header["alg"])
	}
	return v.key, nil
}

// ParsePublicKey decodes a PEM "PUBLIC KEY" block holding an RSA or ECDSA key.
func ParsePublicKey(pemKey string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, errors.New("no PEM block in key material")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", block.Type, err)
	}
	switch pub.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey:
		return pub, nil
	default:
		return nil, fmt.Errorf("unsupported public key type %T", pub)
	}
}

// IssueHS256 signs a token for userID valid for ttl. Used by tests and the
// admin CLI; production tokens come from the identity provider.
func IssueHS256(secret, userID string, ttl time.Duration) (string, error) {
	if block, _ := pem.Decode([]byte(secret)); block != nil {
		return "", errors.New("sign token: key is a PEM public key, not an HMAC secret")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
