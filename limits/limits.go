package limits

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DESBlockSize is the DES and 3DES block size in bytes
	DESBlockSize = 8

	// MinRSABits is the smallest RSA modulus accepted for key generation
	MinRSABits = 512

	// MaxRSABits is the largest RSA modulus accepted for key generation
	MaxRSABits = 8192

	// DSASubgroupBits is the required bit length of the DSA q parameter
	DSASubgroupBits = 160

	// MinDSAPrimeBits is the smallest DSA p accepted for parameter generation
	MinDSAPrimeBits = 512

	// MaxDSAPrimeBits is the largest DSA p accepted for parameter generation
	MaxDSAPrimeBits = 1024

	// MaxProcessingBuffer is the absolute maximum for any operation (1MB)
	MaxProcessingBuffer = 1024 * 1024
)

var (
	// ErrInvalidInput is the root of every precondition violation
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidWindow indicates an offset/length pair outside its buffer
	ErrInvalidWindow = fmt.Errorf("%w: buffer window out of range", ErrInvalidInput)

	// ErrNotBlockAligned indicates a length that is not a multiple of the block size
	ErrNotBlockAligned = fmt.Errorf("%w: length not block aligned", ErrInvalidInput)

	// ErrInvalidKeySize indicates raw key material of an unsupported length
	ErrInvalidKeySize = fmt.Errorf("%w: invalid key size", ErrInvalidInput)

	// ErrInvalidKeyShape indicates key material with the wrong number or kind of elements
	ErrInvalidKeyShape = fmt.Errorf("%w: malformed key material", ErrInvalidInput)

	// ErrMessageTooLong indicates a message that does not fit the modulus
	ErrMessageTooLong = fmt.Errorf("%w: message too long for modulus", ErrInvalidInput)

	// ErrMessageTooLarge indicates data above MaxProcessingBuffer
	ErrMessageTooLarge = fmt.Errorf("%w: message too large", ErrInvalidInput)
)

// Window returns buf[off:off+n] after checking that the window lies inside buf.
// The addition is overflow checked.
//
// CWE-190: Integer Overflow or Wraparound
func Window(buf []byte, off, n int) ([]byte, error) {
	if off < 0 || n < 0 {
		return nil, fmt.Errorf("%w: offset %d length %d", ErrInvalidWindow, off, n)
	}
	if off > math.MaxInt-n {
		return nil, fmt.Errorf("%w: offset %d + length %d overflows", ErrInvalidWindow, off, n)
	}
	if off+n > len(buf) {
		return nil, fmt.Errorf("%w: window [%d:%d] exceeds buffer of %d bytes", ErrInvalidWindow, off, off+n, len(buf))
	}
	return buf[off : off+n], nil
}

// ValidateBlockAligned reports an error unless n is a multiple of blockSize.
func ValidateBlockAligned(n, blockSize int) error {
	if blockSize <= 0 || n%blockSize != 0 {
		return fmt.Errorf("%w: length %d, block size %d", ErrNotBlockAligned, n, blockSize)
	}
	return nil
}

// ValidateProcessingBuffer validates data against the absolute maximum (MaxProcessingBuffer).
// Empty data is allowed; the engine pads or passes it through.
func ValidateProcessingBuffer(data []byte) error {
	if len(data) > MaxProcessingBuffer {
		return fmt.Errorf("%w: buffer size %d exceeds limit %d", ErrMessageTooLarge, len(data), MaxProcessingBuffer)
	}
	return nil
}

// ValidateRSABits validates a requested RSA modulus size.
func ValidateRSABits(bits int) error {
	if bits < MinRSABits || bits > MaxRSABits {
		return fmt.Errorf("%w: rsa modulus of %d bits outside [%d, %d]", ErrInvalidKeySize, bits, MinRSABits, MaxRSABits)
	}
	return nil
}

// ValidateDSABits validates a requested DSA prime size. The size must be a
// multiple of 64 per FIPS 186-2.
func ValidateDSABits(bits int) error {
	if bits < MinDSAPrimeBits || bits > MaxDSAPrimeBits || bits%64 != 0 {
		return fmt.Errorf("%w: dsa prime of %d bits", ErrInvalidKeySize, bits)
	}
	return nil
}
