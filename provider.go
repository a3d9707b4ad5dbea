package cryptoengine

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha1"
	"fmt"
	"hash"
	"strings"

	"github.com/opd-ai/cryptoengine/blockcipher"
	"github.com/opd-ai/cryptoengine/digest"
	"github.com/opd-ai/cryptoengine/limits"
	"github.com/opd-ai/cryptoengine/streamcipher"
)

// Digest algorithm identifiers accepted by Engine.Digest and Engine.MAC.
const (
	DigestSHA1 = "SHA1"
	DigestMD5  = "MD5"
	DigestMD2  = "MD2"
)

// Provider supplies the symmetric primitives and digests. The engine's
// public-key arithmetic is the same for every provider.
type Provider interface {
	Name() string
	// BlockMode returns a DES or Triple-DES mode for key; a nil iv selects
	// ECB, otherwise CBC starting from iv.
	BlockMode(key, iv []byte, encrypt bool) (cipher.BlockMode, error)
	Stream(key []byte) (cipher.Stream, error)
	Hash(alg string) (hash.Hash, error)
}

// NormalizeDigest maps spellings such as "sha-1" to the canonical identifier.
func NormalizeDigest(alg string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(alg)), "-", "")
}

func providerFor(b Backend) (Provider, error) {
	switch b {
	case BackendLibrary:
		return LibraryProvider{}, nil
	case BackendReference:
		return ReferenceProvider{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, b)
	}
}

func checkIV(iv []byte) error {
	if iv != nil && len(iv) != blockcipher.BlockSize {
		return fmt.Errorf("%w: iv of %d bytes", limits.ErrInvalidInput, len(iv))
	}
	return nil
}

// ReferenceProvider uses the from-scratch DES, RC4 and digest code.
type ReferenceProvider struct{}

func (ReferenceProvider) Name() string { return string(BackendReference) }

func (ReferenceProvider) BlockMode(key, iv []byte, encrypt bool) (cipher.BlockMode, error) {
	if err := checkIV(iv); err != nil {
		return nil, err
	}
	if iv == nil {
		c, err := blockcipher.NewCipher(key)
		if err != nil {
			return nil, err
		}
		if encrypt {
			return newECBEncrypter(c), nil
		}
		return newECBDecrypter(c), nil
	}
	s, err := blockcipher.DESKey(encrypt, key)
	if err != nil {
		return nil, err
	}
	m := &scheduleMode{s: s, iv: new([blockcipher.BlockSize]byte)}
	copy(m.iv[:], iv)
	return m, nil
}

func (ReferenceProvider) Stream(key []byte) (cipher.Stream, error) {
	s, err := streamcipher.RC4Key(key)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (ReferenceProvider) Hash(alg string) (hash.Hash, error) {
	switch NormalizeDigest(alg) {
	case DigestSHA1:
		return digest.NewSHA1(), nil
	case DigestMD5:
		return digest.NewMD5(), nil
	case DigestMD2:
		return digest.NewMD2(), nil
	default:
		return nil, fmt.Errorf("%w: digest %q", ErrUnknownAlgorithm, alg)
	}
}

// LibraryProvider delegates to crypto/des, crypto/rc4, crypto/sha1 and
// crypto/md5. The standard library has no MD2, so that digest comes from the
// reference code.
type LibraryProvider struct{}

func (LibraryProvider) Name() string { return string(BackendLibrary) }

func (LibraryProvider) BlockMode(key, iv []byte, encrypt bool) (cipher.BlockMode, error) {
	if err := checkIV(iv); err != nil {
		return nil, err
	}
	var (
		b   cipher.Block
		err error
	)
	switch len(key) {
	case 8:
		b, err = des.NewCipher(key)
	case 16:
		full := make([]byte, 24)
		copy(full, key)
		copy(full[16:], key[:8])
		b, err = des.NewTripleDESCipher(full)
	case 24:
		b, err = des.NewTripleDESCipher(key)
	default:
		return nil, blockcipher.KeySizeError(len(key))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", limits.ErrInvalidKeySize, err)
	}
	switch {
	case iv == nil && encrypt:
		return newECBEncrypter(b), nil
	case iv == nil:
		return newECBDecrypter(b), nil
	case encrypt:
		return cipher.NewCBCEncrypter(b, iv), nil
	default:
		return cipher.NewCBCDecrypter(b, iv), nil
	}
}

func (LibraryProvider) Stream(key []byte) (cipher.Stream, error) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", limits.ErrInvalidKeySize, err)
	}
	return c, nil
}

func (LibraryProvider) Hash(alg string) (hash.Hash, error) {
	switch NormalizeDigest(alg) {
	case DigestSHA1:
		return sha1.New(), nil
	case DigestMD5:
		return md5.New(), nil
	case DigestMD2:
		return digest.NewMD2(), nil
	default:
		return nil, fmt.Errorf("%w: digest %q", ErrUnknownAlgorithm, alg)
	}
}
