// Package keys holds the pluggable parts of index key handling: how keys
// are serialized into page bytes, how they are ordered and how they are
// optionally encrypted at rest.
package keys

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var bin = binary.LittleEndian

const lengthSize = 4

// Serializer converts keys to bytes. Deserialize and SizeInBuffer receive
// a buffer that starts at the serialized key and may continue past it.
type Serializer[K any] interface {
	Serialize(key K) []byte
	Deserialize(buf []byte) (K, error)
	SizeInBuffer(buf []byte) int
}

// StringSerializer stores strings as [int32 length][utf-8 bytes].
type StringSerializer struct{}

func (StringSerializer) Serialize(key string) []byte {
	buf := make([]byte, lengthSize+len(key))
	bin.PutUint32(buf[0:lengthSize], uint32(len(key)))
	copy(buf[lengthSize:], key)
	return buf
}

func (s StringSerializer) Deserialize(buf []byte) (string, error) {
	b, err := readPrefixed(buf)
	return string(b), err
}

func (StringSerializer) SizeInBuffer(buf []byte) int {
	return lengthSize + int(bin.Uint32(buf[0:lengthSize]))
}

// BytesSerializer stores raw byte keys as [int32 length][bytes].
type BytesSerializer struct{}

func (BytesSerializer) Serialize(key []byte) []byte {
	buf := make([]byte, lengthSize+len(key))
	bin.PutUint32(buf[0:lengthSize], uint32(len(key)))
	copy(buf[lengthSize:], key)
	return buf
}

func (BytesSerializer) Deserialize(buf []byte) ([]byte, error) {
	b, err := readPrefixed(buf)
	if err != nil {
		return nil, err
	}
	key := make([]byte, len(b))
	copy(key, b)
	return key, nil
}

func (BytesSerializer) SizeInBuffer(buf []byte) int {
	return lengthSize + int(bin.Uint32(buf[0:lengthSize]))
}

// Int64Serializer stores integers as fixed 8 bytes.
type Int64Serializer struct{}

func (Int64Serializer) Serialize(key int64) []byte {
	buf := make([]byte, 8)
	bin.PutUint64(buf, uint64(key))
	return buf
}

func (Int64Serializer) Deserialize(buf []byte) (int64, error) {
	if len(buf) < 8 {
		return 0, errors.Errorf("in-sufficient data for int64 key, %d bytes", len(buf))
	}
	return int64(bin.Uint64(buf[0:8])), nil
}

func (Int64Serializer) SizeInBuffer([]byte) int {
	return 8
}

func readPrefixed(buf []byte) ([]byte, error) {
	if len(buf) < lengthSize {
		return nil, errors.Errorf("in-sufficient data for key length, %d bytes", len(buf))
	}

	n := int(bin.Uint32(buf[0:lengthSize]))
	if len(buf) < lengthSize+n {
		return nil, errors.Errorf("key length %d exceeds buffer of %d bytes", n, len(buf)-lengthSize)
	}
	return buf[lengthSize : lengthSize+n], nil
}
