// Package cryptoengine implements a self-contained cryptographic primitives
// engine: message digests, DES and Triple-DES, RC4, RSA and DSA, the padding
// schemes around them, a jitter-based entropy collector feeding a
// pseudo-random stream, and a bounded cache of public-key results.
//
// # Getting Started
//
// Create an engine with default options and encrypt a buffer:
//
//	engine, err := cryptoengine.New(cryptoengine.NewOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	key, err := engine.Generate3DESKey()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ct, err := engine.Encrypt(cryptoengine.Alg3DESECB, []byte("AUDIT-TEST"), key)
//	pt, err := engine.Decrypt(cryptoengine.Alg3DESECB, ct, key)
//
// # Core Types
//
//   - [Engine]: the context object owning the PRNG, caches and metrics
//   - [Options]: configuration, loadable from TOML with [LoadOptions]
//   - [Provider]: the symmetric cipher and digest backend
//
// # Backends
//
// Two providers implement the symmetric primitives. [LibraryProvider], the
// default, delegates to crypto/des, crypto/rc4, crypto/sha1 and crypto/md5.
// [ReferenceProvider] uses the from-scratch code in the blockcipher,
// streamcipher and digest packages. Select one with Options.Backend; both
// produce identical output.
//
// Public-key operations always use the asym package.
//
// # Public-Key Operations
//
// Key material is an ordered list of big-endian integers ([asym.KeyMaterial]).
// RSA keys are {n, x} or the 8-element CRT form; DSA keys are {p, q, g, x|y}
// or {p, q, g, y, x}:
//
//	pair, err := engine.RSAKey(1024, true, true)
//	sig, err := engine.SignISO9796(pair.Private, msg, 0, len(msg))
//	ok, err := engine.VerifyISO9796(pair.Public, msg, 0, len(msg), sig)
//
// Results of RSA and ISO 9796 operations are cached by the exact value of
// their inputs. Randomized PKCS#1 type 2 encryptions and DSA are not cached.
// Verification failures are reported as false for boolean operations and as
// [asym.ErrVerification] or [ErrDecryptionFailed] otherwise.
//
// # Randomness
//
// [Engine.Random] and [Engine.Read] serve bytes from an [entropy.PRNG] seeded
// by an [entropy.Collector]. For deterministic tests supply Options.Clock or
// Options.Entropy.
//
// # Thread Safety
//
// Engine methods are safe for concurrent use. The PRNG and each cache are
// guarded by their own mutex.
package cryptoengine
