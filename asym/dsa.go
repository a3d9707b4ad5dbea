package asym

import (
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/opd-ai/cryptoengine/digest"
	"github.com/opd-ai/cryptoengine/limits"
)

// DSAMode selects the DSA operation.
type DSAMode int

const (
	// DSASign writes a fixed-width r||s signature.
	DSASign DSAMode = iota
	// DSAVerify checks a fixed-width r||s signature.
	DSAVerify
	// DSAVerifyDER checks a DER SEQUENCE { INTEGER r, INTEGER s }.
	DSAVerifyDER
)

const (
	// DSAScalarSize is the byte length of r, s and q.
	DSAScalarSize = limits.DSASubgroupBits / 8
	// DSASignatureSize is the byte length of a fixed-width signature.
	DSASignatureSize = 2 * DSAScalarSize

	// signAttempts bounds the retries on a zero r or s.
	signAttempts = 64
)

type dsaKey struct {
	p, q, g, y, x *big.Int
}

// parseDSA reads {p, q, g, v} where v is x when signing and y otherwise, or
// {p, q, g, y, x}.
func parseDSA(key KeyMaterial, signing bool) (*dsaKey, error) {
	if len(key) != 4 && len(key) != 5 {
		return nil, fmt.Errorf("%w: dsa key with %d elements", limits.ErrInvalidKeyShape, len(key))
	}
	k := &dsaKey{p: intOf(key[0]), q: intOf(key[1]), g: intOf(key[2])}
	if len(key) == 5 {
		k.y, k.x = intOf(key[3]), intOf(key[4])
	} else if signing {
		k.x = intOf(key[3])
	} else {
		k.y = intOf(key[3])
	}
	if k.p == nil || k.q == nil || k.g == nil {
		return nil, fmt.Errorf("%w: dsa domain parameters missing", limits.ErrInvalidKeyShape)
	}
	if signing && (k.x == nil || k.x.Sign() == 0) {
		return nil, fmt.Errorf("%w: dsa private value missing", limits.ErrInvalidKeyShape)
	}
	if !signing && (k.y == nil || k.y.Sign() == 0) {
		return nil, fmt.Errorf("%w: dsa public value missing", limits.ErrInvalidKeyShape)
	}
	return k, nil
}

func dsaHash(data []byte) *big.Int {
	h := digest.SumSHA1(data)
	return new(big.Int).SetBytes(h[:])
}

// SignDSA signs the SHA-1 digest of data and returns r||s, each left-padded
// to 20 bytes. k is drawn from rng for every signature. A q that is not 160
// bits is reported as limits.ErrInvalidKeyShape.
func SignDSA(rng io.Reader, key KeyMaterial, data []byte) ([]byte, error) {
	k, err := parseDSA(key, true)
	if err != nil {
		return nil, err
	}
	if k.q.BitLen() != limits.DSASubgroupBits {
		return nil, fmt.Errorf("%w: q has %d bits", limits.ErrInvalidKeyShape, k.q.BitLen())
	}
	z := dsaHash(data)

	for attempt := 0; attempt < signAttempts; attempt++ {
		nonce, err := randomBelow(rng, k.q)
		if err != nil {
			return nil, err
		}
		r := new(big.Int).Exp(k.g, nonce, k.p)
		r.Mod(r, k.q)
		if r.Sign() == 0 {
			continue
		}
		kInv := nonce.ModInverse(nonce, k.q)
		if kInv == nil {
			return nil, fmt.Errorf("%w: q is not prime", limits.ErrInvalidKeyShape)
		}
		s := new(big.Int).Mul(k.x, r)
		s.Add(s, z)
		s.Mul(s, kInv)
		s.Mod(s, k.q)
		wipeInt(kInv)
		if s.Sign() == 0 {
			continue
		}
		sig := make([]byte, DSASignatureSize)
		r.FillBytes(sig[:DSAScalarSize])
		s.FillBytes(sig[DSAScalarSize:])
		return sig, nil
	}
	return nil, fmt.Errorf("%w: dsa signing", ErrGenerationFailed)
}

// VerifyDSA checks a fixed-width r||s signature over the SHA-1 digest of
// data. Malformed signatures and a q that is not 160 bits report false.
func VerifyDSA(key KeyMaterial, data, sig []byte) (bool, error) {
	k, err := parseDSA(key, false)
	if err != nil {
		return false, err
	}
	if len(sig) != DSASignatureSize {
		return false, nil
	}
	r := new(big.Int).SetBytes(sig[:DSAScalarSize])
	s := new(big.Int).SetBytes(sig[DSAScalarSize:])
	return k.verify(data, r, s), nil
}

// VerifyDSADER checks a DER-encoded signature.
func VerifyDSADER(key KeyMaterial, data, der []byte) (bool, error) {
	k, err := parseDSA(key, false)
	if err != nil {
		return false, err
	}
	r, s, ok := parseDSASignatureDER(der)
	if !ok {
		return false, nil
	}
	return k.verify(data, r, s), nil
}

func (k *dsaKey) verify(data []byte, r, s *big.Int) bool {
	if k.q.BitLen() != limits.DSASubgroupBits {
		return false
	}
	if r.Sign() <= 0 || s.Sign() <= 0 || r.Cmp(k.q) >= 0 || s.Cmp(k.q) >= 0 {
		return false
	}
	w := new(big.Int).ModInverse(s, k.q)
	if w == nil {
		return false
	}
	u1 := dsaHash(data)
	u1.Mul(u1, w).Mod(u1, k.q)
	u2 := w.Mul(r, w)
	u2.Mod(u2, k.q)

	v := new(big.Int).Exp(k.g, u1, k.p)
	u2.Exp(k.y, u2, k.p)
	v.Mul(v, u2).Mod(v, k.p).Mod(v, k.q)
	return v.Cmp(r) == 0
}

// EncodeDSASignatureDER converts a fixed-width r||s signature to DER.
func EncodeDSASignatureDER(sig []byte) ([]byte, error) {
	if len(sig) != DSASignatureSize {
		return nil, fmt.Errorf("%w: dsa signature of %d bytes", limits.ErrInvalidInput, len(sig))
	}
	r := new(big.Int).SetBytes(sig[:DSAScalarSize])
	s := new(big.Int).SetBytes(sig[DSAScalarSize:])

	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})
	return b.Bytes()
}

// DecodeDSASignatureDER converts a DER signature to fixed-width r||s.
func DecodeDSASignatureDER(der []byte) ([]byte, error) {
	r, s, ok := parseDSASignatureDER(der)
	if !ok || r.BitLen() > limits.DSASubgroupBits || s.BitLen() > limits.DSASubgroupBits {
		return nil, fmt.Errorf("%w: malformed der signature", limits.ErrInvalidInput)
	}
	sig := make([]byte, DSASignatureSize)
	r.FillBytes(sig[:DSAScalarSize])
	s.FillBytes(sig[DSAScalarSize:])
	return sig, nil
}

func parseDSASignatureDER(der []byte) (r, s *big.Int, ok bool) {
	var inner cryptobyte.String
	input := cryptobyte.String(der)
	r, s = new(big.Int), new(big.Int)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() ||
		!inner.ReadASN1Integer(r) || !inner.ReadASN1Integer(s) || !inner.Empty() {
		return nil, nil, false
	}
	return r, s, true
}
