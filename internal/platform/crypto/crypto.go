package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// ErrTampered is returned when a sealed value fails authentication: wrong key,
// wrong passphrase, wrong associated data or modified ciphertext.
var ErrTampered = errors.New("sealed value failed authentication")

type Service interface {
	Seal(plaintext, associatedData string) (string, error)
	Open(sealed, associatedData string) (string, error)
}

// NoopService passes values through without encryption (dev/test mode).
type NoopService struct{}

func (NoopService) Seal(plaintext, _ string) (string, error) { return plaintext, nil }
func (NoopService) Open(sealed, _ string) (string, error)    { return sealed, nil }

type AesGcmService struct {
	gcm cipher.AEAD
}

func NewAesGcmService(hexKey string) (*AesGcmService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AesGcmService{gcm: gcm}, nil
}

func (c *AesGcmService) Seal(plaintext, associatedData string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// nonce || ciphertext || tag
	sealed := c.gcm.Seal(nonce, nonce, []byte(plaintext), []byte(associatedData))
	return hex.EncodeToString(sealed), nil
}

func (c *AesGcmService) Open(sealed, associatedData string) (string, error) {
	buffer, err := hex.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}

	nonceSize := c.gcm.NonceSize()
	if len(buffer) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, cipherBytes := buffer[:nonceSize], buffer[nonceSize:]
	plain, err := c.gcm.Open(nil, nonce, cipherBytes, []byte(associatedData))
	if err != nil {
		return "", ErrTampered
	}
	return string(plain), nil
}

// ScryptParams are the key-derivation cost parameters of PassphraseService.
type ScryptParams struct {
	N, R, P int
}

// DefaultScryptParams follows the interactive-login recommendation.
var DefaultScryptParams = ScryptParams{N: 1 << 15, R: 8, P: 1}

const (
	passphraseFormatVersion = 1
	saltSize                = 16
)

type PassphraseService struct {
	passphrase []byte
	params     ScryptParams
}

func NewPassphraseService(passphrase string, params ScryptParams) (*PassphraseService, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase must not be empty")
	}
	return &PassphraseService{passphrase: []byte(passphrase), params: params}, nil
}

func (s *PassphraseService) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(s.passphrase, salt, s.params.N, s.params.R, s.params.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return chacha20poly1305.New(key)
}

// Seal layout: version(1) || salt(16) || nonce(12) || ciphertext || tag, hex encoded.
func (s *PassphraseService) Seal(plaintext, associatedData string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	aead, err := s.aead(salt)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, 1+saltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, passphraseFormatVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, []byte(plaintext), []byte(associatedData))
	return hex.EncodeToString(out), nil
}

func (s *PassphraseService) Open(sealed, associatedData string) (string, error) {
	buffer, err := hex.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}
	if len(buffer) < 1+saltSize+chacha20poly1305.NonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}
	if buffer[0] != passphraseFormatVersion {
		return "", fmt.Errorf("unsupported sealed format version %d", buffer[0])
	}

	salt := buffer[1 : 1+saltSize]
	nonce := buffer[1+saltSize : 1+saltSize+chacha20poly1305.NonceSize]
	cipherBytes := buffer[1+saltSize+chacha20poly1305.NonceSize:]

	aead, err := s.aead(salt)
	if err != nil {
		return "", err
	}
	plain, err := aead.Open(nil, nonce, cipherBytes, []byte(associatedData))
	if err != nil {
		return "", ErrTampered
	}
	return string(plain), nil
}
