package keys

import (
	"go-mvindex/pkg/customerrors"

	"github.com/pkg/errors"
)

// Codec turns keys into the form stored in index pages and back. Without
// encryption the stored form is the serializer output, with encryption it
// is [int32 length][encrypted serializer output].
type Codec[K any] struct {
	serializer Serializer[K]
	comparator Comparator[K]
	encryption Encryption
}

// NewCodec creates codec, encryption may be nil.
func NewCodec[K any](s Serializer[K], c Comparator[K], e Encryption) *Codec[K] {
	return &Codec[K]{
		serializer: s,
		comparator: c,
		encryption: e,
	}
}

func (c *Codec[K]) Encrypted() bool {
	return c.encryption != nil
}

func (c *Codec[K]) Compare(a, b K) int {
	return c.comparator(a, b)
}

// Encode returns stored form of key.
func (c *Codec[K]) Encode(key K) ([]byte, error) {
	serialized := c.serializer.Serialize(key)
	if c.encryption == nil {
		return serialized, nil
	}

	encrypted, err := c.encryption.Encrypt(serialized)
	if err != nil {
		return nil, err
	}

	stored := make([]byte, lengthSize+len(encrypted))
	bin.PutUint32(stored[0:lengthSize], uint32(len(encrypted)))
	copy(stored[lengthSize:], encrypted)
	return stored, nil
}

// Decode reads key from buf holding its stored form at the start.
func (c *Codec[K]) Decode(buf []byte) (K, error) {
	if c.encryption == nil {
		return c.serializer.Deserialize(buf)
	}

	var zero K
	sealed, err := readPrefixed(buf)
	if err != nil {
		return zero, errors.Wrap(customerrors.ErrDecrypt, err.Error())
	}

	serialized, err := c.encryption.Decrypt(sealed)
	if err != nil {
		return zero, err
	}
	return c.serializer.Deserialize(serialized)
}

// StoredSize returns the size of stored key at the start of buf.
func (c *Codec[K]) StoredSize(buf []byte) int {
	if c.encryption == nil {
		return c.serializer.SizeInBuffer(buf)
	}
	return lengthSize + int(bin.Uint32(buf[0:lengthSize]))
}
