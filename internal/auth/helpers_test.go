package auth

import (
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	keyOnce    sync.Once
	sharedKeys [2]*rsa.PrivateKey
	keyErr     error
)

// testKeys returns two RSA keys generated once per test binary.
func testKeys(t *testing.T) (*SigningKey, *SigningKey) {
	t.Helper()
	keyOnce.Do(func() {
		for i := range sharedKeys {
			k, err := GenerateSigningKey(2048)
			if err != nil {
				keyErr = err
				return
			}
			sharedKeys[i] = k.Private
		}
	})
	require.NoError(t, keyErr)
	return NewSigningKey(sharedKeys[0], "key-1"), NewSigningKey(sharedKeys[1], "key-2")
}

var testRefreshSecret = []byte("0123456789abcdef0123456789abcdef")

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newTestIssuer(key *SigningKey, now func() time.Time) *TokenIssuer {
	return NewTokenIssuer(IssuerConfig{
		Issuer:        "auth-service",
		SigningKey:    key,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     time.Hour,
		RefreshTTL:    365 * 24 * time.Hour,
		Now:           now,
	})
}

func newTestVerifier(keys KeySource, now func() time.Time) *TokenVerifier {
	return NewTokenVerifier(VerifierConfig{
		Keys:          keys,
		Issuer:        "auth-service",
		RefreshSecret: testRefreshSecret,
		Now:           now,
	})
}
