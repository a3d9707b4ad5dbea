// Package digest implements the SHA-1, MD5 and MD2 message digests from
// scratch.
//
// Each digest is available as a one-shot function and as a streaming type
// implementing [hash.Hash]:
//
//	sum := digest.SumSHA1(message)
//
//	h := digest.NewMD5()
//	h.Write(part1)
//	h.Write(part2)
//	tag := h.Sum(nil)
//
// # Running State
//
// SHA-1 and MD5 expose their chaining state so a caller can precompute the
// inner and outer pads of an HMAC-style construction once and resume from
// them:
//
//	inner := digest.NewSHA1()
//	inner.Write(ipadBlock)
//	h, n, _ := inner.State()
//	resumed, _ := digest.NewSHA1WithState(h, n) // n counts the bytes already absorbed
//
// Both types also implement encoding.BinaryMarshaler and
// encoding.BinaryUnmarshaler, matching the state format conventions of the
// standard library hashes.
//
// These are reference implementations. SHA-1, MD5 and MD2 are not collision
// resistant; use them only where a legacy protocol requires them.
package digest
