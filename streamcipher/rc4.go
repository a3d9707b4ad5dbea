// Package streamcipher implements the RC4 keystream generator.
//
// The state is a fixed 258-byte record: the 256-byte permutation followed by
// the two indices, so it can be copied, compared and wiped as a value.
package streamcipher

import (
	"crypto/cipher"
	"fmt"

	"github.com/opd-ai/cryptoengine/limits"
)

// State is an RC4 keystream position.
type State [258]byte

var _ cipher.Stream = (*State)(nil)

// RC4Key runs the key-scheduling algorithm. Keys of 1 to 256 bytes are accepted.
func RC4Key(key []byte) (*State, error) {
	if len(key) == 0 || len(key) > 256 {
		return nil, fmt.Errorf("%w: rc4 key of %d bytes", limits.ErrInvalidKeySize, len(key))
	}
	var s State
	for i := 0; i < 256; i++ {
		s[i] = byte(i)
	}
	var j byte
	for i := 0; i < 256; i++ {
		j += s[i] + key[i%len(key)]
		s[i], s[j] = s[j], s[i]
	}
	return &s, nil
}

// RC4 XORs src with the keystream into dst, advancing s. dst must be at least
// as long as src; the two may alias exactly.
func RC4(s *State, dst, src []byte) error {
	if s == nil {
		return fmt.Errorf("%w: nil rc4 state", limits.ErrInvalidInput)
	}
	if len(dst) < len(src) {
		return fmt.Errorf("%w: output %d bytes, input %d bytes", limits.ErrInvalidWindow, len(dst), len(src))
	}
	i, j := s[256], s[257]
	for k, b := range src {
		i++
		j += s[i]
		s[i], s[j] = s[j], s[i]
		dst[k] = b ^ s[s[i]+s[j]]
	}
	s[256], s[257] = i, j
	return nil
}

// XORKeyStream implements cipher.Stream. It panics if dst is shorter than src.
func (s *State) XORKeyStream(dst, src []byte) {
	if err := RC4(s, dst, src); err != nil {
		panic("streamcipher: " + err.Error())
	}
}

// Reset wipes the state.
func (s *State) Reset() {
	for i := range s {
		s[i] = 0
	}
}
