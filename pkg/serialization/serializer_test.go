package serialization

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Task     string   `json:"task" msgpack:"task"`
	Content  []string `json:"content" msgpack:"content"`
	Revision int      `json:"revision" msgpack:"revision"`
}

func sample() snapshot {
	return snapshot{
		Task:     "what is the refund policy of the product apple 16 phone",
		Content:  []string{strings.Repeat("refund within 14 days. ", 20), "restocking fee may apply"},
		Revision: 2,
	}
}

func newKey(t *testing.T, n int) []byte {
	t.Helper()
	key := make([]byte, n)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestSerializer_Pipelines(t *testing.T) {
	tests := []struct {
		name        string
		codec       Codec
		compression CompressionType
		encrypt     bool
	}{
		{"json plain", NewJSONCodec(), CompressionNone, false},
		{"json gzip", NewJSONCodec(), CompressionGzip, false},
		{"msgpack zstd", NewMsgPackCodec(), CompressionZstd, false},
		{"msgpack gzip aes", NewMsgPackCodec(), CompressionGzip, true},
		{"json zstd aes", NewJSONCodec(), CompressionZstd, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := SerializationConfig{Codec: tt.codec, Compression: tt.compression}
			if tt.encrypt {
				cfg.EncryptKey = newKey(t, 32)
			}
			s := NewSerializer(cfg)

			data, err := s.Serialize(sample())
			require.NoError(t, err)
			require.NotEmpty(t, data)

			var got snapshot
			require.NoError(t, s.Deserialize(data, &got))
			assert.Equal(t, sample(), got)
		})
	}
}

func TestSerializer_EncryptionHidesPlaintext(t *testing.T) {
	s := NewSerializer(SerializationConfig{Codec: NewJSONCodec(), EncryptKey: newKey(t, 16)})
	data, err := s.Serialize(sample())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "refund")
	assert.Equal(t, "json+none+aes", s.Name())
}

func TestSerializer_WrongKeyFails(t *testing.T) {
	a := NewSerializer(SerializationConfig{Codec: NewJSONCodec(), EncryptKey: newKey(t, 32)})
	b := NewSerializer(SerializationConfig{Codec: NewJSONCodec(), EncryptKey: newKey(t, 32)})

	data, err := a.Serialize(sample())
	require.NoError(t, err)

	var got snapshot
	assert.Error(t, b.Deserialize(data, &got))
	assert.ErrorIs(t, b.Deserialize([]byte("x"), &got), ErrShortCiphertext)
}

func TestNew(t *testing.T) {
	s, err := New("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "msgpack+none", s.Name())

	s, err = New("json", "zstd", nil)
	require.NoError(t, err)
	assert.Equal(t, "json+zstd", s.Name())

	_, err = New("xml", "none", nil)
	assert.ErrorIs(t, err, ErrUnknownCodec)

	_, err = New("json", "brotli", nil)
	assert.ErrorIs(t, err, ErrUnknownCompression)

	_, err = New("json", "none", []byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDefaultSerializer(t *testing.T) {
	s := DefaultSerializer()
	assert.Equal(t, "msgpack+zstd", s.Name())

	state := map[string]interface{}{"task": "refund", "revision_number": 1}
	data, err := s.Serialize(state)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, s.Deserialize(data, &got))
	assert.Equal(t, "refund", got["task"])
	assert.EqualValues(t, 1, got["revision_number"])
}
