package streamcipher

import (
	"crypto/rc4"
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/cryptoengine/limits"
)

func TestKnownVectors(t *testing.T) {
	tests := []struct {
		key, plain, want string
	}{
		{"Key", "Plaintext", "bbf316e8d940af0ad3"},
		{"Wiki", "pedia", "1021bf0420"},
		{"Secret", "Attack at dawn", "45a01f645fc35b383552544b9bf5"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			s, err := RC4Key([]byte(tt.key))
			require.NoError(t, err)
			out := make([]byte, len(tt.plain))
			require.NoError(t, RC4(s, out, []byte(tt.plain)))
			assert.Equal(t, tt.want, hex.EncodeToString(out))
		})
	}
}

func TestMatchesStandardLibrary(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, keyLen := range []int{1, 5, 16, 40, 256} {
		key := make([]byte, keyLen)
		rng.Read(key)
		ours, err := RC4Key(key)
		require.NoError(t, err)
		theirs, err := rc4.NewCipher(key)
		require.NoError(t, err)

		src := make([]byte, 4096)
		rng.Read(src)
		want := make([]byte, len(src))
		got := make([]byte, len(src))
		theirs.XORKeyStream(want, src)
		ours.XORKeyStream(got, src)
		assert.Equal(t, want, got, "key length %d", keyLen)
	}
}

func TestChunkedEqualsOneShot(t *testing.T) {
	key := []byte("stream key")
	msg := make([]byte, 1000)
	for i := range msg {
		msg[i] = byte(i * 7)
	}

	a, err := RC4Key(key)
	require.NoError(t, err)
	oneShot := make([]byte, len(msg))
	require.NoError(t, RC4(a, oneShot, msg))

	b, err := RC4Key(key)
	require.NoError(t, err)
	chunked := make([]byte, len(msg))
	for off, n := 0, 1; off < len(msg); n = n%13 + 1 {
		end := off + n
		if end > len(msg) {
			end = len(msg)
		}
		require.NoError(t, RC4(b, chunked[off:end], msg[off:end]))
		off = end
	}
	assert.Equal(t, oneShot, chunked)
	assert.Equal(t, *a, *b, "both states must end at the same position")
}

func TestInPlaceRoundTrip(t *testing.T) {
	key := []byte("in place")
	buf := []byte("the quick brown fox")
	orig := append([]byte{}, buf...)

	s, err := RC4Key(key)
	require.NoError(t, err)
	require.NoError(t, RC4(s, buf, buf))
	assert.NotEqual(t, orig, buf)

	s, err = RC4Key(key)
	require.NoError(t, err)
	require.NoError(t, RC4(s, buf, buf))
	assert.Equal(t, orig, buf)
}

func TestErrors(t *testing.T) {
	_, err := RC4Key(nil)
	assert.ErrorIs(t, err, limits.ErrInvalidKeySize)
	_, err = RC4Key(make([]byte, 257))
	assert.ErrorIs(t, err, limits.ErrInvalidInput)

	s, err := RC4Key([]byte{1})
	require.NoError(t, err)
	assert.ErrorIs(t, RC4(s, make([]byte, 2), make([]byte, 3)), limits.ErrInvalidWindow)
	assert.ErrorIs(t, RC4(nil, nil, nil), limits.ErrInvalidInput)
	assert.Panics(t, func() { s.XORKeyStream(make([]byte, 1), make([]byte, 2)) })

	s.Reset()
	assert.Equal(t, State{}, *s)
}
