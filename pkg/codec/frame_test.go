package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte("a node image, pretend")
	encoded := Encode(payload)

	f, err := ReadFrom(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Equal(t, payload, f.Payload)
}

func TestWriteToReadFromRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{1, 2, 3, 4, 5}
	n, err := WriteTo(&buf, payload)
	require.NoError(t, err)
	require.Equal(t, EncodedSize(len(payload)), n)

	f, err := ReadFrom(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, f.Payload)
}

func TestCorruptionDetected(t *testing.T) {
	encoded := Encode([]byte("hello"))
	encoded[len(encoded)-1] ^= 0xFF // flip a payload bit

	_, err := ReadFrom(bytes.NewReader(encoded))
	require.Error(t, err)
}
