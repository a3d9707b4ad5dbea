package padding

import (
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/opd-ai/cryptoengine/limits"
)

// Block types of PKCS#1 v1.5.
const (
	BlockTypeSignature  byte = 1
	BlockTypeEncryption byte = 2
)

// MinPKCS1PadLen is the minimum number of padding-string bytes.
const MinPKCS1PadLen = 8

// PadPKCS1 builds the k-byte block 00 || bt || PS || 00 || data. For block
// type 1 PS is all 0xFF; for type 2 it is drawn from rand and contains no zero
// byte.
func PadPKCS1(bt byte, data []byte, k int, rand io.Reader) ([]byte, error) {
	if bt != BlockTypeSignature && bt != BlockTypeEncryption {
		return nil, fmt.Errorf("%w: pkcs1 block type %d", limits.ErrInvalidInput, bt)
	}
	if len(data) > k-3-MinPKCS1PadLen {
		return nil, fmt.Errorf("%w: %d bytes into a %d byte block", limits.ErrMessageTooLong, len(data), k)
	}

	block := make([]byte, k)
	block[1] = bt
	ps := block[2 : k-len(data)-1]
	if bt == BlockTypeSignature {
		for i := range ps {
			ps[i] = 0xff
		}
	} else if err := nonZeroRandom(rand, ps); err != nil {
		return nil, err
	}
	copy(block[k-len(data):], data)
	return block, nil
}

func nonZeroRandom(rand io.Reader, b []byte) error {
	if rand == nil {
		return fmt.Errorf("%w: nil random source", limits.ErrInvalidInput)
	}
	if _, err := io.ReadFull(rand, b); err != nil {
		return fmt.Errorf("padding: reading random bytes: %w", err)
	}
	var one [1]byte
	for i := range b {
		for b[i] == 0 {
			if _, err := io.ReadFull(rand, one[:]); err != nil {
				return fmt.Errorf("padding: reading random bytes: %w", err)
			}
			b[i] = one[0]
		}
	}
	return nil
}

// UnpadPKCS1 checks the block type and padding string of block and returns
// the trailing data. A leading zero byte may already have been stripped by a
// big-integer conversion; both forms are accepted. The returned slice aliases
// block. Empty data is rejected.
func UnpadPKCS1(bt byte, block []byte) ([]byte, error) {
	if len(block) > 0 && block[0] != 0 {
		block = append([]byte{0}, block...)
	}
	if len(block) < 3+MinPKCS1PadLen+1 {
		return nil, ErrBadPadding
	}

	good := subtle.ConstantTimeByteEq(block[0], 0)
	good &= subtle.ConstantTimeByteEq(block[1], bt)

	// sepIndex is the first zero byte after the header; found flips once.
	found, sepIndex := 0, 0
	for i := 2; i < len(block); i++ {
		isZero := subtle.ConstantTimeByteEq(block[i], 0)
		sepIndex = subtle.ConstantTimeSelect((found^1)&isZero, i, sepIndex)
		if bt == BlockTypeSignature {
			good &= found | isZero | subtle.ConstantTimeByteEq(block[i], 0xff)
		}
		found |= isZero
	}
	good &= found
	good &= subtle.ConstantTimeLessOrEq(2+MinPKCS1PadLen, sepIndex)
	good &= subtle.ConstantTimeLessOrEq(sepIndex+2, len(block))

	if good != 1 {
		return nil, ErrBadPadding
	}
	return block[sepIndex+1:], nil
}
