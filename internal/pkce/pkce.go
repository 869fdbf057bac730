// Package pkce generates Proof Key for Code Exchange (RFC 7636) verifier/challenge pairs.
//
// A verifier is 64 characters from [A-Za-z0-9], built by mapping 64 random bytes
// modulo the alphabet size. The mapping is slightly biased towards the first
// 8 symbols (256 is not a multiple of 62); authorization servers only require
// the verifier to be high entropy, so the bias is accepted rather than corrected.
//
// The challenge is the unpadded base64url encoding of SHA-256(verifier), i.e. the
// S256 method.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/desertthunder/spotauth/internal/shared"
)

const (
	// VerifierLength is the number of characters in a generated verifier.
	VerifierLength = 64
	// Alphabet is the set of characters a verifier is drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// MethodS256 is the code_challenge_method for SHA-256 challenges.
	MethodS256 = "S256"
)

// ErrEntropyUnavailable is returned when the random source cannot supply enough bytes.
var ErrEntropyUnavailable = shared.ErrEntropyUnavailable

// Hasher computes a SHA-256 digest.
type Hasher interface {
	Sum256(data []byte) [32]byte
}

// HasherFunc adapts a function to [Hasher].
type HasherFunc func(data []byte) [32]byte

func (f HasherFunc) Sum256(data []byte) [32]byte { return f(data) }

// Pair is one login attempt's verifier and its derived challenge.
type Pair struct {
	Verifier  string
	Challenge string
}

// Generator produces [Pair] values from an entropy source and a hasher.
type Generator struct {
	entropy io.Reader
	hasher  Hasher
}

// Option configures a [Generator].
type Option func(*Generator)

// WithEntropy replaces the random source (crypto/rand by default).
func WithEntropy(r io.Reader) Option {
	return func(g *Generator) { g.entropy = r }
}

// WithHasher replaces the SHA-256 implementation.
func WithHasher(h Hasher) Option {
	return func(g *Generator) { g.hasher = h }
}

// NewGenerator creates a [Generator] backed by crypto/rand and crypto/sha256 unless overridden.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		entropy: rand.Reader,
		hasher:  HasherFunc(sha256.Sum256),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateVerifierAndChallenge draws fresh entropy and returns a new verifier with its S256 challenge.
func (g *Generator) GenerateVerifierAndChallenge() (Pair, error) {
	buf := make([]byte, VerifierLength)
	if _, err := io.ReadFull(g.entropy, buf); err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}

	verifier := make([]byte, VerifierLength)
	for i, b := range buf {
		verifier[i] = Alphabet[int(b)%len(Alphabet)]
	}

	v := string(verifier)
	return Pair{Verifier: v, Challenge: g.Challenge(v)}, nil
}

// Challenge derives the S256 challenge for verifier with the generator's hasher.
func (g *Generator) Challenge(verifier string) string {
	sum := g.hasher.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Challenge derives the S256 challenge for verifier using crypto/sha256.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
