package pkce

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func sequentialBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestGenerateVerifierAndChallenge(t *testing.T) {
	t.Run("verifier length and alphabet", func(t *testing.T) {
		g := NewGenerator()
		for range 200 {
			pair, err := g.GenerateVerifierAndChallenge()
			require.NoError(t, err)
			assert.Len(t, pair.Verifier, VerifierLength)
			assert.Regexp(t, "^[A-Za-z0-9]+$", pair.Verifier)
		}
	})

	t.Run("fixed entropy maps bytes modulo alphabet", func(t *testing.T) {
		g := NewGenerator(WithEntropy(bytes.NewReader(sequentialBytes(VerifierLength))))

		pair, err := g.GenerateVerifierAndChallenge()
		require.NoError(t, err)

		want := Alphabet + Alphabet[:2]
		assert.Equal(t, want, pair.Verifier)
		assert.Equal(t, Challenge(want), pair.Challenge)
	})

	t.Run("high bytes wrap around", func(t *testing.T) {
		raw := bytes.Repeat([]byte{255}, VerifierLength)
		g := NewGenerator(WithEntropy(bytes.NewReader(raw)))

		pair, err := g.GenerateVerifierAndChallenge()
		require.NoError(t, err)

		// 255 % 62 == 7
		assert.Equal(t, strings.Repeat("H", VerifierLength), pair.Verifier)
	})

	t.Run("consecutive calls differ", func(t *testing.T) {
		g := NewGenerator()
		seen := make(map[string]struct{})
		for range 1000 {
			pair, err := g.GenerateVerifierAndChallenge()
			require.NoError(t, err)
			_, dup := seen[pair.Verifier]
			require.False(t, dup, "verifier repeated: %s", pair.Verifier)
			seen[pair.Verifier] = struct{}{}
		}
	})

	t.Run("entropy failure", func(t *testing.T) {
		g := NewGenerator(WithEntropy(failingReader{}))

		pair, err := g.GenerateVerifierAndChallenge()
		assert.ErrorIs(t, err, ErrEntropyUnavailable)
		assert.Empty(t, pair.Verifier)
		assert.Empty(t, pair.Challenge)
	})

	t.Run("short entropy read", func(t *testing.T) {
		g := NewGenerator(WithEntropy(bytes.NewReader(sequentialBytes(10))))

		_, err := g.GenerateVerifierAndChallenge()
		assert.ErrorIs(t, err, ErrEntropyUnavailable)
	})

	t.Run("custom hasher", func(t *testing.T) {
		var calls int
		g := NewGenerator(WithHasher(HasherFunc(func(b []byte) [32]byte {
			calls++
			return sha256.Sum256(b)
		})))

		pair, err := g.GenerateVerifierAndChallenge()
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, Challenge(pair.Verifier), pair.Challenge)
	})
}

func TestChallenge(t *testing.T) {
	t.Run("RFC 7636 appendix B vector", func(t *testing.T) {
		got := Challenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk")
		assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", got)
	})

	t.Run("base64url without padding", func(t *testing.T) {
		g := NewGenerator()
		for range 100 {
			pair, err := g.GenerateVerifierAndChallenge()
			require.NoError(t, err)

			assert.NotContains(t, pair.Challenge, "=")
			assert.NotContains(t, pair.Challenge, "+")
			assert.NotContains(t, pair.Challenge, "/")
			assert.Len(t, pair.Challenge, 43)

			sum := sha256.Sum256([]byte(pair.Verifier))
			std := base64.StdEncoding.EncodeToString(sum[:])
			std = strings.NewReplacer("=", "", "+", "-", "/", "_").Replace(std)
			assert.Equal(t, std, pair.Challenge)
		}
	})

	t.Run("deterministic and matches oauth2", func(t *testing.T) {
		v := "fixed-verifier-value"
		assert.Equal(t, Challenge(v), Challenge(v))
		assert.Equal(t, oauth2.S256ChallengeFromVerifier(v), Challenge(v))
	})
}
