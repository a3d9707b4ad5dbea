// Package blockcipher implements DES and two/three-key Triple-DES (EDE) from
// the FIPS 46-3 tables, with in-place CBC chaining over a caller-held IV.
package blockcipher

import (
	"crypto/subtle"
	"fmt"
	"strconv"

	"github.com/opd-ai/cryptoengine/bitio"
	"github.com/opd-ai/cryptoengine/limits"
)

// BlockSize is the DES block size in bytes.
const BlockSize = limits.DESBlockSize

// KeySizeError reports a DES key that is not 8, 16 or 24 bytes long.
type KeySizeError int

func (k KeySizeError) Error() string {
	return "blockcipher: invalid key size " + strconv.Itoa(int(k))
}

// Unwrap lets errors.Is match limits.ErrInvalidKeySize and limits.ErrInvalidInput.
func (k KeySizeError) Unwrap() error {
	return limits.ErrInvalidKeySize
}

type stage struct {
	subkeys [16]uint64
	decrypt bool
}

// Schedule is an expanded DES or Triple-DES key bound to one direction.
// A single-DES schedule has one stage; Triple-DES has three, applied
// encrypt-decrypt-encrypt (or the reverse when decrypting).
type Schedule struct {
	stages  []stage
	encrypt bool
}

// Encrypting reports the direction the schedule was built for.
func (s *Schedule) Encrypting() bool { return s.encrypt }

// Triple reports whether the schedule is Triple-DES.
func (s *Schedule) Triple() bool { return len(s.stages) == 3 }

// Wipe clears the subkeys.
func (s *Schedule) Wipe() {
	for i := range s.stages {
		for j := range s.stages[i].subkeys {
			s.stages[i].subkeys[j] = 0
		}
	}
}

// DESKey expands an 8-byte DES key, a 16-byte two-key Triple-DES key
// (K3 = K1) or a 24-byte three-key Triple-DES key into a schedule for the
// given direction. Parity bits are ignored.
func DESKey(encrypt bool, key []byte) (*Schedule, error) {
	var k1, k2, k3 []byte
	switch len(key) {
	case 8:
		s := &Schedule{encrypt: encrypt, stages: []stage{{subkeys: expandKey(key), decrypt: !encrypt}}}
		return s, nil
	case 16:
		k1, k2, k3 = key[:8], key[8:16], key[:8]
	case 24:
		k1, k2, k3 = key[:8], key[8:16], key[16:24]
	default:
		return nil, KeySizeError(len(key))
	}

	s := &Schedule{encrypt: encrypt}
	if encrypt {
		s.stages = []stage{
			{subkeys: expandKey(k1)},
			{subkeys: expandKey(k2), decrypt: true},
			{subkeys: expandKey(k3)},
		}
	} else {
		s.stages = []stage{
			{subkeys: expandKey(k3), decrypt: true},
			{subkeys: expandKey(k2)},
			{subkeys: expandKey(k1), decrypt: true},
		}
	}
	return s, nil
}

// Crypt processes src into dst in CBC mode using the schedule's direction.
// iv is updated in place so that consecutive calls continue one chain; a nil
// iv selects ECB. len(src) must be a multiple of BlockSize and dst must be at
// least as long as src. dst and src may overlap exactly.
func Crypt(s *Schedule, iv *[BlockSize]byte, dst, src []byte) error {
	if s == nil || len(s.stages) == 0 {
		return fmt.Errorf("%w: nil key schedule", limits.ErrInvalidInput)
	}
	if err := limits.ValidateBlockAligned(len(src), BlockSize); err != nil {
		return err
	}
	if len(dst) < len(src) {
		return fmt.Errorf("%w: output %d bytes, input %d bytes", limits.ErrInvalidWindow, len(dst), len(src))
	}

	var buf, saved [BlockSize]byte
	for off := 0; off < len(src); off += BlockSize {
		copy(buf[:], src[off:off+BlockSize])
		switch {
		case iv == nil:
			s.block(buf[:], buf[:])
		case s.encrypt:
			subtle.XORBytes(buf[:], buf[:], iv[:])
			s.block(buf[:], buf[:])
			*iv = buf
		default:
			saved = buf
			s.block(buf[:], buf[:])
			subtle.XORBytes(buf[:], buf[:], iv[:])
			*iv = saved
		}
		copy(dst[off:], buf[:])
	}
	return nil
}

func (s *Schedule) block(dst, src []byte) {
	v := bitio.MSBF64(src, 0)
	for i := range s.stages {
		v = cryptBlock(&s.stages[i].subkeys, v, s.stages[i].decrypt)
	}
	bitio.PutMSBF64(dst, 0, v)
}

// permute gathers bits of the n-bit value v in the order listed by table.
func permute(v uint64, n uint, table []byte) uint64 {
	var out uint64
	for _, p := range table {
		out = out<<1 | (v>>(n-uint(p)))&1
	}
	return out
}

func expandKey(key []byte) [16]uint64 {
	var subkeys [16]uint64
	k56 := permute(bitio.MSBF64(key, 0), 64, permutedChoice1[:])
	c := uint32(k56>>28) & 0x0fffffff
	d := uint32(k56) & 0x0fffffff
	for i, r := range keyRotations {
		c = (c<<r | c>>(28-r)) & 0x0fffffff
		d = (d<<r | d>>(28-r)) & 0x0fffffff
		subkeys[i] = permute(uint64(c)<<28|uint64(d), 56, permutedChoice2[:])
	}
	return subkeys
}

func feistel(r uint32, k uint64) uint32 {
	x := permute(uint64(r), 32, expansion[:]) ^ k
	var out uint32
	for i := 0; i < 8; i++ {
		out |= spBoxes[i][(x>>(42-6*uint(i)))&0x3f]
	}
	return out
}

func cryptBlock(subkeys *[16]uint64, v uint64, decrypt bool) uint64 {
	v = permute(v, 64, initialPermutation[:])
	l, r := uint32(v>>32), uint32(v)
	for i := 0; i < 16; i++ {
		k := subkeys[i]
		if decrypt {
			k = subkeys[15-i]
		}
		l, r = r, l^feistel(r, k)
	}
	return permute(uint64(r)<<32|uint64(l), 64, finalPermutation[:])
}
