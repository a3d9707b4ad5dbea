package asym

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/opd-ai/cryptoengine/limits"
	"github.com/opd-ai/cryptoengine/padding"
)

// PadType selects the block format applied around an RSA exponentiation.
type PadType int

const (
	// PadNone exponentiates the data as is; results carry no leading zeros.
	PadNone PadType = iota
	// PadPKCS1Type1 is the PKCS#1 v1.5 signature block (0xFF padding).
	PadPKCS1Type1
	// PadPKCS1Type2 is the PKCS#1 v1.5 encryption block (random padding).
	PadPKCS1Type2
	// PadISO9796 is the ISO/IEC 9796-1 message-recovery layout.
	PadISO9796
)

func (t PadType) String() string {
	switch t {
	case PadNone:
		return "none"
	case PadPKCS1Type1:
		return "pkcs1-type1"
	case PadPKCS1Type2:
		return "pkcs1-type2"
	case PadISO9796:
		return "iso9796"
	default:
		return fmt.Sprintf("PadType(%d)", int(t))
	}
}

// RSA runs one RSA exponentiation with key. When padData is set the data is
// padded first and the result is a full modulus-length block (pad type 0
// returns the minimal encoding instead). Otherwise data is exponentiated and
// the padding of the result is checked and removed; a failed check returns
// ErrVerification. rng is only read for PadPKCS1Type2.
func RSA(rng io.Reader, padData bool, padType PadType, key KeyMaterial, data []byte) ([]byte, error) {
	if padType < PadNone || padType > PadISO9796 {
		return nil, fmt.Errorf("%w: rsa pad type %d", limits.ErrInvalidInput, int(padType))
	}
	k, err := parseRSA(key)
	if err != nil {
		return nil, err
	}
	defer k.wipe()

	nbits := k.n.BitLen()
	size := (nbits + 7) / 8

	if padData {
		block, err := pad(rng, padType, data, size, nbits)
		if err != nil {
			return nil, err
		}
		m := new(big.Int).SetBytes(block)
		if padType != PadNone {
			ZeroBytes(block)
		}
		if m.Cmp(k.n) >= 0 {
			return nil, fmt.Errorf("%w: input not below the modulus", limits.ErrMessageTooLong)
		}
		c := k.exp(m)
		wipeInt(m)
		if padType == PadNone {
			return c.Bytes(), nil
		}
		return c.FillBytes(make([]byte, size)), nil
	}

	c := new(big.Int).SetBytes(data)
	if c.Cmp(k.n) >= 0 {
		return nil, fmt.Errorf("%w: input not below the modulus", limits.ErrMessageTooLong)
	}
	m := k.exp(c)
	defer wipeInt(m)

	switch padType {
	case PadPKCS1Type1, PadPKCS1Type2:
		block := m.FillBytes(make([]byte, size))
		out, err := padding.UnpadPKCS1(pkcs1BlockType(padType), block)
		if err != nil {
			ZeroBytes(block)
			return nil, fmt.Errorf("%w: %s", ErrVerification, padType)
		}
		return append([]byte{}, out...), nil
	case PadISO9796:
		if m.Bit(0) != 0 || m.Bit(1) != 1 || m.Bit(2) != 1 || m.Bit(3) != 0 {
			m.Sub(k.n, m)
		}
		out, err := padding.UnpadISO9796(m.Bytes(), nbits)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrVerification, padType)
		}
		return out, nil
	default:
		return m.Bytes(), nil
	}
}

func pkcs1BlockType(t PadType) byte {
	if t == PadPKCS1Type1 {
		return padding.BlockTypeSignature
	}
	return padding.BlockTypeEncryption
}

func pad(rng io.Reader, padType PadType, data []byte, size, nbits int) ([]byte, error) {
	switch padType {
	case PadPKCS1Type1, PadPKCS1Type2:
		return padding.PadPKCS1(pkcs1BlockType(padType), data, size, rng)
	case PadISO9796:
		return padding.PadISO9796(data, nbits)
	default:
		return data, nil
	}
}

// SignISO9796 produces an ISO/IEC 9796-1 signature with message recovery.
func SignISO9796(key KeyMaterial, data []byte) ([]byte, error) {
	return RSA(nil, true, PadISO9796, key, data)
}

// VerifyISO9796 recovers the message from sig with the public key and
// compares it with data in constant time. A signature that does not decode
// reports false without an error.
func VerifyISO9796(key KeyMaterial, data, sig []byte) (bool, error) {
	recovered, err := RSA(nil, false, PadISO9796, key, sig)
	switch {
	case err == nil:
	case errors.Is(err, ErrVerification), errors.Is(err, limits.ErrMessageTooLong):
		return false, nil
	default:
		return false, err
	}
	return subtle.ConstantTimeCompare(recovered, data) == 1, nil
}
