package keys

import (
	"crypto/cipher"
	"crypto/rand"

	"go-mvindex/pkg/customerrors"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// Encryption is a symmetric codec applied to serialized keys before they
// are written into a page.
type Encryption interface {
	Encrypt(plain []byte) ([]byte, error)
	Decrypt(sealed []byte) ([]byte, error)
}

// ChaCha20Encryption seals keys with ChaCha20-Poly1305. Every output
// starts with its own random nonce.
type ChaCha20Encryption struct {
	aead cipher.AEAD
}

func NewChaCha20Encryption(key []byte) (*ChaCha20Encryption, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init key encryption")
	}
	return &ChaCha20Encryption{aead: aead}, nil
}

func (e *ChaCha20Encryption) Encrypt(plain []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	out := make([]byte, nonceSize, nonceSize+len(plain)+e.aead.Overhead())

	if _, err := rand.Read(out); err != nil {
		return nil, errors.Wrap(err, "failed to generate nonce")
	}
	return e.aead.Seal(out, out[:nonceSize], plain, nil), nil
}

func (e *ChaCha20Encryption) Decrypt(sealed []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(sealed) < nonceSize+e.aead.Overhead() {
		return nil, errors.Wrapf(customerrors.ErrDecrypt, "sealed key of %d bytes is too short", len(sealed))
	}

	plain, err := e.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, errors.Wrap(customerrors.ErrDecrypt, err.Error())
	}
	return plain, nil
}
