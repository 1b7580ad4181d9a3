package identity

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// JWKS is a JSON Web Key Set as served by an identity provider.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK holds the public parts of an EC or RSA key.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
	Alg string `json:"alg,omitempty"`
	Use string `json:"use,omitempty"`
}

// DecodeJWKS reads a key set and rejects an empty one.
func DecodeJWKS(r io.Reader) (*JWKS, error) {
	var jwks JWKS
	if err := json.NewDecoder(r).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("parse JWKS: %w", err)
	}
	if len(jwks.Keys) == 0 {
		return nil, errors.New("no keys found in JWKS")
	}
	return &jwks, nil
}

// SigningKey returns the key with kid, or the first signing key when kid is empty.
func (s *JWKS) SigningKey(kid string) (JWK, error) {
	for _, k := range s.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		if kid == "" || k.Kid == kid {
			return k, nil
		}
	}
	return JWK{}, fmt.Errorf("no signing key %q in JWKS", kid)
}

// PEM encodes the key as a PKIX public key block, the format JWTVerifier
// accepts for RS* and ES* tokens.
func (k JWK) PEM() (string, error) {
	pub, err := k.publicKey()
	if err != nil {
		return "", err
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

func (k JWK) publicKey() (interface{}, error) {
	switch k.Kty {
	case "EC":
		var curve elliptic.Curve
		switch k.Crv {
		case "P-256":
			curve = elliptic.P256()
		case "P-384":
			curve = elliptic.P384()
		case "P-521":
			curve = elliptic.P521()
		default:
			return nil, fmt.Errorf("unsupported curve %q", k.Crv)
		}
		x, err := decodeCoordinate(k.X, "x")
		if err != nil {
			return nil, err
		}
		y, err := decodeCoordinate(k.Y, "y")
		if err != nil {
			return nil, err
		}
		return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil

	case "RSA":
		n, err := decodeCoordinate(k.N, "n")
		if err != nil {
			return nil, err
		}
		e, err := decodeCoordinate(k.E, "e")
		if err != nil {
			return nil, err
		}
		if !e.IsInt64() || e.Int64() > int64(^uint32(0)>>1) {
			return nil, errors.New("RSA exponent out of range")
		}
		return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil

	default:
		return nil, fmt.Errorf("unsupported key type %q", k.Kty)
	}
}

func decodeCoordinate(v, name string) (*big.Int, error) {
	if v == "" {
		return nil, fmt.Errorf("missing %s", name)
	}
	b, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return new(big.Int).SetBytes(b), nil
}
