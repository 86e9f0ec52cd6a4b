// Package serialization turns checkpoint payloads into bytes and back.
// A Serializer runs three stages: codec, compression, and optional
// AES-GCM sealing. Deserialize runs them in reverse.
package serialization

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrUnknownCodec       = errors.New("unknown codec")
	ErrUnknownCompression = errors.New("unknown compression")
	ErrInvalidKey         = errors.New("encryption key must be 16, 24 or 32 bytes")
	ErrShortCiphertext    = errors.New("ciphertext shorter than nonce")
)

// Codec encodes values to bytes
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
	Name() string
}

// CompressionType represents compression algorithms
type CompressionType string

const (
	CompressionNone CompressionType = "none"
	CompressionGzip CompressionType = "gzip"
	CompressionZstd CompressionType = "zstd"
)

// SerializationConfig holds serialization settings
type SerializationConfig struct {
	Codec       Codec
	Compression CompressionType
	EncryptKey  []byte // AES key; empty disables encryption
}

// Serializer is safe for concurrent use.
type Serializer struct {
	config SerializationConfig
}

// NewSerializer creates a serializer. A nil codec falls back to msgpack.
func NewSerializer(config SerializationConfig) *Serializer {
	if config.Codec == nil {
		config.Codec = NewMsgPackCodec()
	}
	if config.Compression == "" {
		config.Compression = CompressionNone
	}
	return &Serializer{config: config}
}

// New builds a serializer from names as they appear in configuration.
func New(codec string, compression string, key []byte) (*Serializer, error) {
	c, err := CodecByName(codec)
	if err != nil {
		return nil, err
	}
	ct := CompressionType(compression)
	switch ct {
	case "", CompressionNone, CompressionGzip, CompressionZstd:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, compression)
	}
	if n := len(key); n != 0 && n != 16 && n != 24 && n != 32 {
		return nil, ErrInvalidKey
	}
	return NewSerializer(SerializationConfig{Codec: c, Compression: ct, EncryptKey: key}), nil
}

// DefaultSerializer uses msgpack with zstd compression
func DefaultSerializer() *Serializer {
	return NewSerializer(SerializationConfig{
		Codec:       NewMsgPackCodec(),
		Compression: CompressionZstd,
	})
}

// Serialize encodes, compresses, and encrypts v
func (s *Serializer) Serialize(v interface{}) ([]byte, error) {
	data, err := s.config.Codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("%s encode: %w", s.config.Codec.Name(), err)
	}
	if data, err = compress(s.config.Compression, data); err != nil {
		return nil, fmt.Errorf("%s compress: %w", s.config.Compression, err)
	}
	if len(s.config.EncryptKey) == 0 {
		return data, nil
	}
	if data, err = seal(s.config.EncryptKey, data); err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return data, nil
}

// Deserialize decrypts, decompresses, and decodes data into v
func (s *Serializer) Deserialize(data []byte, v interface{}) error {
	var err error
	if len(s.config.EncryptKey) > 0 {
		if data, err = open(s.config.EncryptKey, data); err != nil {
			return fmt.Errorf("decrypt: %w", err)
		}
	}
	if data, err = decompress(s.config.Compression, data); err != nil {
		return fmt.Errorf("%s decompress: %w", s.config.Compression, err)
	}
	if err = s.config.Codec.Decode(data, v); err != nil {
		return fmt.Errorf("%s decode: %w", s.config.Codec.Name(), err)
	}
	return nil
}

// Name describes the pipeline, e.g. "msgpack+zstd".
func (s *Serializer) Name() string {
	name := s.config.Codec.Name() + "+" + string(s.config.Compression)
	if len(s.config.EncryptKey) > 0 {
		name += "+aes"
	}
	return name
}

func compress(ct CompressionType, data []byte) ([]byte, error) {
	switch ct {
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return data, nil
	}
}

func decompress(ct CompressionType, data []byte) ([]byte, error) {
	switch ct {
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	default:
		return data, nil
	}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal prefixes the ciphertext with a random nonce
func seal(key, data []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

func open(key, data []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	n := gcm.NonceSize()
	if len(data) < n {
		return nil, ErrShortCiphertext
	}
	return gcm.Open(nil, data[:n], data[n:], nil)
}

// JSONCodec implements JSON serialization
type JSONCodec struct{}

func (c *JSONCodec) Encode(v interface{}) ([]byte, error)    { return json.Marshal(v) }
func (c *JSONCodec) Decode(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (c *JSONCodec) Name() string                            { return "json" }

// MsgPackCodec implements MessagePack serialization
type MsgPackCodec struct{}

func (c *MsgPackCodec) Encode(v interface{}) ([]byte, error)    { return msgpack.Marshal(v) }
func (c *MsgPackCodec) Decode(data []byte, v interface{}) error { return msgpack.Unmarshal(data, v) }
func (c *MsgPackCodec) Name() string                            { return "msgpack" }

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() Codec { return &JSONCodec{} }

// NewMsgPackCodec creates a new MessagePack codec
func NewMsgPackCodec() Codec { return &MsgPackCodec{} }

// CodecByName resolves "json" or "msgpack"; empty means msgpack.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "msgpack":
		return NewMsgPackCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}
