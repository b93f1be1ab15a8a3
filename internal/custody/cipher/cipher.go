// Package cipher is the only place the plaintext case identifier exists.
//
// Encrypt seals the case id under a key delivered per call. The key material
// is stretched with HKDF-SHA256 and a random salt into an AES-256-GCM key, so
// callers may supply any key of at least MinKeyLength bytes. Keys are never
// stored on the Boundary.
//
// Ciphertext layout: version(1) | salt(16) | nonce(12) | sealed payload.
package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	dErrors "chainguard/pkg/domain-errors"
)

const (
	// MinKeyLength is the shortest accepted delivered key.
	MinKeyLength = 16

	formatV1  byte = 1
	saltSize       = 16
	nonceSize      = 12
	aesKeyLen      = 32
)

var hkdfInfo = []byte("chainguard case-id aes-256-gcm v1")

// Boundary encrypts, decrypts and fingerprints case identifiers.
type Boundary struct {
	pepper []byte
	rand   io.Reader
}

type Option func(*Boundary)

// WithPepper keys the fingerprint with HMAC-SHA256. All records compared by
// fingerprint must share the same pepper.
func WithPepper(pepper []byte) Option {
	return func(b *Boundary) {
		b.pepper = append([]byte(nil), pepper...)
	}
}

// WithRandom overrides the entropy source for salts and nonces.
func WithRandom(r io.Reader) Option {
	return func(b *Boundary) {
		b.rand = r
	}
}

func New(opts ...Option) *Boundary {
	b := &Boundary{rand: rand.Reader}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Fingerprint is the deterministic one-way digest of a case id, lowercase hex.
func (b *Boundary) Fingerprint(caseID string) string {
	if len(b.pepper) == 0 {
		sum := sha256.Sum256([]byte(caseID))
		return hex.EncodeToString(sum[:])
	}
	mac := hmac.New(sha256.New, b.pepper)
	mac.Write([]byte(caseID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Encrypt seals caseID under key.
func (b *Boundary) Encrypt(caseID string, key []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	out := make([]byte, 1+saltSize+nonceSize, 1+saltSize+nonceSize+len(caseID)+16)
	out[0] = formatV1
	salt := out[1 : 1+saltSize]
	nonce := out[1+saltSize:]
	if _, err := io.ReadFull(b.rand, salt); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate salt")
	}
	if _, err := io.ReadFull(b.rand, nonce); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate nonce")
	}

	aead, err := newAEAD(key, salt)
	if err != nil {
		return nil, err
	}
	return aead.Seal(out, nonce, []byte(caseID), out[:1]), nil
}

// Decrypt opens ciphertext with key. Any mismatch between key and ciphertext,
// including tampering, fails with CodeDecryptionFailed.
func (b *Boundary) Decrypt(ciphertext, key []byte) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	if len(ciphertext) < 1+saltSize+nonceSize || ciphertext[0] != formatV1 {
		return "", dErrors.New(dErrors.CodeDecryptionFailed, "unrecognized ciphertext format")
	}
	salt := ciphertext[1 : 1+saltSize]
	nonce := ciphertext[1+saltSize : 1+saltSize+nonceSize]
	sealed := ciphertext[1+saltSize+nonceSize:]

	aead, err := newAEAD(key, salt)
	if err != nil {
		return "", err
	}
	plain, err := aead.Open(nil, nonce, sealed, ciphertext[:1])
	if err != nil {
		return "", dErrors.New(dErrors.CodeDecryptionFailed, "case key does not match ciphertext")
	}
	return string(plain), nil
}

func checkKey(key []byte) error {
	if len(key) == 0 {
		return dErrors.New(dErrors.CodeKeyUnavailable, "case key not supplied")
	}
	if len(key) < MinKeyLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("case key must be at least %d bytes", MinKeyLength))
	}
	return nil
}

func newAEAD(key, salt []byte) (gocipher.AEAD, error) {
	derived := make([]byte, aesKeyLen)
	defer clear(derived)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, salt, hkdfInfo), derived); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive case key")
	}
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to init cipher")
	}
	aead, err := gocipher.NewGCM(block)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to init gcm")
	}
	return aead, nil
}
