package padding

import (
	"crypto/subtle"
	"fmt"
	"math/big"

	"github.com/opd-ai/cryptoengine/limits"
)

// ISO/IEC 9796-1 nibble permutation and its inverse.
var (
	isoShadow  = [16]byte{0xe, 0x3, 0x5, 0x8, 0x9, 0x4, 0x2, 0xf, 0x0, 0xd, 0xb, 0x6, 0x7, 0xa, 0xc, 0x1}
	isoInverse [16]byte
)

func init() {
	for i, v := range isoShadow {
		isoInverse[v] = byte(i)
	}
}

// minISO9796Bits keeps the boundary byte clear of the forced top bits.
const minISO9796Bits = 32

func shadow(b byte) byte {
	return isoShadow[b>>4]<<4 | isoShadow[b&0xf]
}

// isoLayout returns the representative bit length, its byte length and the
// number of message bytes the redundancy area holds.
func isoLayout(nbits int) (l, kk, t int) {
	l = nbits - 1
	kk = (l + 7) / 8
	t = (l + 13) / 16
	if t > kk/2 {
		t = kk / 2
	}
	return l, kk, t
}

// MaxISO9796Message returns the longest message PadISO9796 accepts for an
// nbits modulus.
func MaxISO9796Message(nbits int) int {
	l, _, t := isoLayout(nbits)
	if m := (l + 4) / 16; m < t {
		return m
	}
	return t
}

// PadISO9796 builds the message-recovery representative of msg for a modulus
// of nbits bits. The message is repeated to fill the redundancy area, every
// byte is preceded by its shadow, the message boundary is marked by flipping
// one bit, the low nibble is forced to 6 and the top bit of the
// (nbits-1)-bit representative is set.
func PadISO9796(msg []byte, nbits int) ([]byte, error) {
	if nbits < minISO9796Bits {
		return nil, fmt.Errorf("%w: %d bit modulus", limits.ErrInvalidInput, nbits)
	}
	l, kk, t := isoLayout(nbits)
	z := len(msg)
	if z == 0 {
		return nil, fmt.Errorf("%w: empty message", limits.ErrInvalidInput)
	}
	if z > t || z*16 > l+4 {
		return nil, fmt.Errorf("%w: %d bytes for a %d bit modulus", limits.ErrMessageTooLong, z, nbits)
	}

	blk := make([]byte, kk)
	for i := 0; i < t; i += z {
		if i > t-z {
			n := t - i
			copy(blk[kk-t:kk-t+n], msg[z-n:])
		} else {
			copy(blk[kk-(i+z):kk-i], msg)
		}
	}

	part := make([]byte, t)
	copy(part, blk[kk-t:])
	base := kk - 2*t
	for j, b := range part {
		blk[base+2*j] = shadow(b)
		blk[base+2*j+1] = b
	}
	blk[kk-2*z] ^= 1
	blk[kk-1] = blk[kk-1]<<4 | 6

	sh := uint((l - 1) % 8)
	blk[0] &= byte(1<<(sh+1) - 1)
	blk[0] |= 1 << sh
	return blk, nil
}

// UnpadISO9796 recovers the message from a representative produced by
// PadISO9796. block may carry leading zero bytes or have them stripped. The
// recovered message is padded again and must reproduce block exactly, so
// every repeated copy and its shadow are checked.
func UnpadISO9796(block []byte, nbits int) ([]byte, error) {
	if nbits < minISO9796Bits {
		return nil, fmt.Errorf("%w: %d bit modulus", limits.ErrInvalidInput, nbits)
	}
	l, kk, t := isoLayout(nbits)
	v := new(big.Int).SetBytes(block)
	if v.BitLen() != l {
		return nil, ErrBadPadding
	}
	orig := v.FillBytes(make([]byte, kk))
	b := append([]byte(nil), orig...)
	if b[kk-1]&0xf != 6 {
		return nil, ErrBadPadding
	}
	b[kk-1] = b[kk-1]>>4 | isoInverse[b[kk-2]>>4]<<4

	start := kk - 2*t
	if start == 0 {
		b[0] = shadow(b[1])
	}

	boundary, r := -1, byte(0)
	for i := kk - 1; i > start; i -= 2 {
		d := b[i-1] ^ shadow(b[i])
		if d == 0 {
			continue
		}
		if boundary >= 0 {
			return nil, ErrBadPadding
		}
		boundary, r = i-1, d
	}
	if boundary < 0 {
		if start != 0 {
			return nil, ErrBadPadding
		}
		boundary, r = 0, 1
	}
	if r != 1 {
		return nil, ErrBadPadding
	}

	out := make([]byte, 0, (kk-boundary)/2)
	for i := boundary + 1; i < kk; i += 2 {
		out = append(out, b[i])
	}
	repad, err := PadISO9796(out, nbits)
	if err != nil || subtle.ConstantTimeCompare(repad, orig) != 1 {
		return nil, ErrBadPadding
	}
	return out, nil
}
