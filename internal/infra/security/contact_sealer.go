package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var ErrSealedTooShort = errors.New("sealed value too short")

// ContactSealer encrypts privileged counterparty fields at rest with AES-GCM.
// Output format: base64(nonce || ciphertext). The associated data (the match
// id) binds a sealed value to its row, so a value copied onto another match
// fails to open.
type ContactSealer struct {
	gcm cipher.AEAD
}

// NewContactSealer needs a 16, 24 or 32 byte key (AES-128/192/256).
func NewContactSealer(key string) (*ContactSealer, error) {
	k := []byte(key)
	if n := len(k); n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("contact key must be 16, 24, or 32 bytes; got %d", n)
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &ContactSealer{gcm: gcm}, nil
}

func (s *ContactSealer) Seal(plaintext, aad []byte) (string, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(s.gcm.Seal(nonce, nonce, plaintext, aad)), nil
}

func (s *ContactSealer) Open(sealed string, aad []byte) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	ns := s.gcm.NonceSize()
	if len(data) < ns {
		return nil, ErrSealedTooShort
	}
	pt, err := s.gcm.Open(nil, data[:ns], data[ns:], aad)
	if err != nil {
		return nil, fmt.Errorf("gcm open: %w", err)
	}
	return pt, nil
}
