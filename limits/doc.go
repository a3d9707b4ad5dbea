// Package limits centralizes the precondition checks shared by every
// cryptoengine package: buffer windows, block alignment, key sizes and
// processing-buffer bounds.
//
// # Error Taxonomy
//
// Every sentinel in this package wraps [ErrInvalidInput], so callers that only
// care about "the caller passed something malformed" can test a single value:
//
//	if errors.Is(err, limits.ErrInvalidInput) {
//	    // programmer error: fix the call site
//	}
//
// The more specific sentinels ([ErrInvalidWindow], [ErrNotBlockAligned],
// [ErrInvalidKeySize], [ErrInvalidKeyShape], [ErrMessageTooLong],
// [ErrMessageTooLarge]) carry the category; the wrapped message carries the
// offending values.
//
// Verification failures (bad padding, signature mismatch) are NOT
// precondition violations and never wrap ErrInvalidInput.
//
// # Windows
//
// The engine accepts (buffer, offset, length) triples at its outer surface.
// [Window] validates such a triple without integer overflow and returns the
// addressed sub-slice:
//
//	msg, err := limits.Window(data, off, n)
//
// # Size Hierarchy
//
//   - DESBlockSize (8 bytes): DES/3DES block size and PKCS#5 pad bound.
//   - MinRSABits / MaxRSABits: accepted RSA modulus sizes for key generation.
//   - DSASubgroupBits (160): required bit length of the DSA q parameter.
//   - MaxProcessingBuffer (1MB): absolute bound for any single operation.
package limits
