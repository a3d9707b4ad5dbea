// Package padding implements the block formats used around the ciphers and
// RSA: PKCS#5 for 8-byte blocks, PKCS#1 v1.5 block types 1 and 2, and the
// ISO/IEC 9796-1 message-recovery layout.
//
// Decoders that see attacker-controlled input examine every byte and report
// a single ErrBadPadding on any mismatch.
package padding

import (
	"crypto/subtle"

	"github.com/opd-ai/cryptoengine/limits"
)

// PKCS5BlockSize is the block size PadPKCS5 pads to.
const PKCS5BlockSize = limits.DESBlockSize

// PadPKCS5 returns a copy of data followed by 1 to 8 bytes, each holding the
// pad length.
func PadPKCS5(data []byte) []byte {
	n := PKCS5BlockSize - len(data)%PKCS5BlockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// UnpadPKCS5 strips PKCS#5 padding. The returned slice aliases data.
func UnpadPKCS5(data []byte) ([]byte, error) {
	n := len(data)
	if n == 0 || n%PKCS5BlockSize != 0 {
		return nil, ErrBadPadding
	}
	p := int(data[n-1])
	good := subtle.ConstantTimeLessOrEq(1, p) & subtle.ConstantTimeLessOrEq(p, PKCS5BlockSize)
	for i := 0; i < PKCS5BlockSize; i++ {
		inPad := subtle.ConstantTimeLessOrEq(i+1, p)
		match := subtle.ConstantTimeByteEq(data[n-1-i], byte(p))
		good &= (inPad ^ 1) | match
	}
	if good != 1 {
		return nil, ErrBadPadding
	}
	return data[:n-p], nil
}
