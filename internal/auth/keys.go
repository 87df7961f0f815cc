package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

// SigningKey is the process-wide RSA key used to sign access tokens.
type SigningKey struct {
	Private *rsa.PrivateKey
	KeyID   string
}

// LoadSigningKey reads a PEM encoded RSA private key from inline PEM or a file path.
// Inline PEM wins when both are set. The key id falls back to the RFC 7638 thumbprint.
func LoadSigningKey(path, inlinePEM, keyID string) (*SigningKey, error) {
	var raw []byte
	switch {
	case strings.TrimSpace(inlinePEM) != "":
		raw = []byte(strings.ReplaceAll(inlinePEM, `\n`, "\n"))
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		raw = data
	default:
		return nil, errors.New("no private key configured")
	}

	priv, err := jwt.ParseRSAPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return NewSigningKey(priv, keyID), nil
}

// GenerateSigningKey creates an ephemeral key, meant for local development only.
func GenerateSigningKey(bits int) (*SigningKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return NewSigningKey(priv, ""), nil
}

// NewSigningKey wraps priv, deriving the key id when empty.
func NewSigningKey(priv *rsa.PrivateKey, keyID string) *SigningKey {
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		keyID = Thumbprint(&priv.PublicKey)
	}
	return &SigningKey{Private: priv, KeyID: keyID}
}

// PublicJWK returns the verification half of the key as a JWK.
func (k *SigningKey) PublicJWK() JWK {
	return NewRSAJWK(k.KeyID, &k.Private.PublicKey)
}

// JWK is a single RSA public key entry of a key set document.
type JWK struct {
	KeyType   string `json:"kty"`
	Use       string `json:"use,omitempty"`
	Algorithm string `json:"alg,omitempty"`
	KeyID     string `json:"kid"`
	Modulus   string `json:"n"`
	Exponent  string `json:"e"`
}

// JWKSet is the document served at the key set endpoint.
type JWKSet struct {
	Keys []JWK `json:"keys"`
}

// NewRSAJWK encodes pub as a signature-use RS256 JWK.
func NewRSAJWK(keyID string, pub *rsa.PublicKey) JWK {
	return JWK{
		KeyType:   "RSA",
		Use:       "sig",
		Algorithm: jwt.SigningMethodRS256.Alg(),
		KeyID:     keyID,
		Modulus:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		Exponent:  base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// RSAPublicKey decodes the JWK. Entries meant for other algorithms or uses are rejected.
func (j JWK) RSAPublicKey() (*rsa.PublicKey, error) {
	if j.KeyType != "RSA" {
		return nil, fmt.Errorf("unsupported key type %q", j.KeyType)
	}
	if j.Use != "" && j.Use != "sig" {
		return nil, fmt.Errorf("unsupported key use %q", j.Use)
	}
	if j.Algorithm != "" && j.Algorithm != jwt.SigningMethodRS256.Alg() {
		return nil, fmt.Errorf("unsupported key algorithm %q", j.Algorithm)
	}
	n, err := base64.RawURLEncoding.DecodeString(j.Modulus)
	if err != nil || len(n) == 0 {
		return nil, errors.New("invalid modulus")
	}
	e, err := base64.RawURLEncoding.DecodeString(j.Exponent)
	if err != nil || len(e) == 0 || len(e) > 4 {
		return nil, errors.New("invalid exponent")
	}
	exponent := int(new(big.Int).SetBytes(e).Int64())
	if exponent < 3 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: exponent}, nil
}

// Thumbprint computes the RFC 7638 SHA-256 thumbprint of an RSA public key.
func Thumbprint(pub *rsa.PublicKey) string {
	// Members must be in lexicographic order with no whitespace.
	canonical, _ := json.Marshal(struct {
		E   string `json:"e"`
		Kty string `json:"kty"`
		N   string `json:"n"`
	}{
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		Kty: "RSA",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
	})
	sum := sha256.Sum256(canonical)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
