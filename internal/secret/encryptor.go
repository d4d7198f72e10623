package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// Codec decrypts stored data-source credentials before their configs reach
// the adapter layer, which only ever sees plaintext secrets.
type Codec interface {
	Encrypt(plain string) (string, error)
	Decrypt(cipherText string) (string, error)
}

// AesGcmCodec seals secrets with AES-256-GCM. The stored form is
// base64(nonce || ciphertext); the AEAD is built once at construction since
// the key never changes for the codec's lifetime.
type AesGcmCodec struct {
	aead cipher.AEAD
}

func NewAesGcmCodec(key []byte) (*AesGcmCodec, error) {
	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AesGcmCodec{aead: aead}, nil
}

func (c *AesGcmCodec) Encrypt(plain string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AesGcmCodec) Decrypt(cipherText string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return "", err
	}
	n := c.aead.NonceSize()
	if len(raw) < n {
		return "", errors.New("ciphertext too short")
	}
	plain, err := c.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Noop passes secrets through unchanged, for deployments where the store
// already holds plaintext or decryption happens upstream.
type Noop struct{}

func (Noop) Encrypt(plain string) (string, error)      { return plain, nil }
func (Noop) Decrypt(cipherText string) (string, error) { return cipherText, nil }
