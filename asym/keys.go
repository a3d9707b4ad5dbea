// Package asym implements RSA and DSA over math/big: raw and padded RSA with
// an optional CRT fast path, DSA signing and verification over SHA-1 with
// fixed-width or DER signatures, and key generation with bounded search.
//
// Keys travel as KeyMaterial, an ordered list of big-endian unsigned
// integers. Caller buffers are never modified.
package asym

import (
	"fmt"
	"math/big"

	"github.com/opd-ai/cryptoengine/limits"
)

// KeyMaterial is an ordered list of big-endian integers.
//
// RSA: {n, exponent} or the CRT form {n, d, e, p, q, dP, dQ, qInv}, where
// any CRT element may be empty and is derived on use.
// DSA: {p, q, g, x|y} (x when signing, y when verifying) or {p, q, g, y, x}.
type KeyMaterial [][]byte

// Indices into the CRT form of an RSA key.
const (
	RSAModulus = iota
	RSAPrivateExponent
	RSAPublicExponent
	RSAPrimeP
	RSAPrimeQ
	RSAExponentP
	RSAExponentQ
	RSACoefficient
	rsaCRTElements
)

// Clone returns a deep copy of k.
func (k KeyMaterial) Clone() KeyMaterial {
	if k == nil {
		return nil
	}
	out := make(KeyMaterial, len(k))
	for i, el := range k {
		if el != nil {
			out[i] = append([]byte{}, el...)
		}
	}
	return out
}

type rsaKey struct {
	n, x               *big.Int
	p, q, dP, dQ, qInv *big.Int
	crt                bool
}

func (k *rsaKey) exp(v *big.Int) *big.Int {
	if k.crt {
		return crtExp(v, k.p, k.q, k.dP, k.dQ, k.qInv)
	}
	return new(big.Int).Exp(v, k.x, k.n)
}

func (k *rsaKey) wipe() {
	if !k.crt {
		return
	}
	for _, v := range []*big.Int{k.x, k.p, k.q, k.dP, k.dQ, k.qInv} {
		wipeInt(v)
	}
}

func parseRSA(key KeyMaterial) (*rsaKey, error) {
	switch len(key) {
	case 2:
		n, x := intOf(key[0]), intOf(key[1])
		if n == nil || x == nil || n.Cmp(bigOne) <= 0 || x.Sign() == 0 {
			return nil, fmt.Errorf("%w: rsa key needs a modulus and an exponent", limits.ErrInvalidKeyShape)
		}
		return &rsaKey{n: n, x: x}, nil
	case rsaCRTElements:
		full, err := completeRSA(key)
		if err != nil {
			return nil, err
		}
		return &rsaKey{
			n: full[RSAModulus], x: full[RSAPrivateExponent],
			p: full[RSAPrimeP], q: full[RSAPrimeQ],
			dP: full[RSAExponentP], dQ: full[RSAExponentQ], qInv: full[RSACoefficient],
			crt: true,
		}, nil
	default:
		return nil, fmt.Errorf("%w: rsa key with %d elements", limits.ErrInvalidKeyShape, len(key))
	}
}

// CompleteRSAKey fills in the missing elements of a CRT-form key: n = pq,
// d from e or e from d, dP = d mod (p-1), dQ = d mod (q-1), qInv = q^-1 mod p.
// If p < q the primes and their exponents are swapped so that p > q. The
// primes and at least one of d, e or the pair dP, dQ must be present.
func CompleteRSAKey(key KeyMaterial) (KeyMaterial, error) {
	full, err := completeRSA(key)
	if err != nil {
		return nil, err
	}
	out := make(KeyMaterial, rsaCRTElements)
	for i, v := range full {
		if v != nil {
			out[i] = v.Bytes()
		}
	}
	return out, nil
}

func completeRSA(key KeyMaterial) ([]*big.Int, error) {
	if len(key) != rsaCRTElements {
		return nil, fmt.Errorf("%w: crt key with %d elements", limits.ErrInvalidKeyShape, len(key))
	}
	v := make([]*big.Int, rsaCRTElements)
	for i, el := range key {
		v[i] = intOf(el)
	}
	p, q := v[RSAPrimeP], v[RSAPrimeQ]
	if p == nil || q == nil || p.Cmp(bigOne) <= 0 || q.Cmp(bigOne) <= 0 || p.Cmp(q) == 0 {
		return nil, fmt.Errorf("%w: crt key needs distinct primes", limits.ErrInvalidKeyShape)
	}
	if p.Cmp(q) < 0 {
		v[RSAPrimeP], v[RSAPrimeQ] = q, p
		v[RSAExponentP], v[RSAExponentQ] = v[RSAExponentQ], v[RSAExponentP]
		v[RSACoefficient] = nil
		p, q = q, p
	}

	n := new(big.Int).Mul(p, q)
	if v[RSAModulus] != nil && v[RSAModulus].Cmp(n) != 0 {
		return nil, fmt.Errorf("%w: modulus is not p*q", limits.ErrInvalidKeyShape)
	}
	v[RSAModulus] = n

	pm1 := new(big.Int).Sub(p, bigOne)
	qm1 := new(big.Int).Sub(q, bigOne)
	phi := new(big.Int).Mul(pm1, qm1)
	d, e := v[RSAPrivateExponent], v[RSAPublicExponent]
	switch {
	case d == nil && e != nil:
		d = new(big.Int).ModInverse(e, phi)
		if d == nil {
			return nil, fmt.Errorf("%w: public exponent not invertible", limits.ErrInvalidKeyShape)
		}
	case e == nil && d != nil:
		e = new(big.Int).ModInverse(d, phi)
	}
	v[RSAPrivateExponent], v[RSAPublicExponent] = d, e

	if v[RSAExponentP] == nil || v[RSAExponentQ] == nil {
		if d == nil {
			return nil, fmt.Errorf("%w: crt key needs d, e or both crt exponents", limits.ErrInvalidKeyShape)
		}
		if v[RSAExponentP] == nil {
			v[RSAExponentP] = new(big.Int).Mod(d, pm1)
		}
		if v[RSAExponentQ] == nil {
			v[RSAExponentQ] = new(big.Int).Mod(d, qm1)
		}
	}
	if v[RSACoefficient] == nil {
		v[RSACoefficient] = new(big.Int).ModInverse(q, p)
		if v[RSACoefficient] == nil {
			return nil, fmt.Errorf("%w: primes are not coprime", limits.ErrInvalidKeyShape)
		}
	}
	return v, nil
}

// ModulusBits returns the bit length of the first element of an RSA key.
func ModulusBits(key KeyMaterial) int {
	if len(key) == 0 {
		return 0
	}
	if len(key) == rsaCRTElements && len(key[RSAModulus]) == 0 {
		p, q := intOf(key[RSAPrimeP]), intOf(key[RSAPrimeQ])
		if p == nil || q == nil {
			return 0
		}
		return new(big.Int).Mul(p, q).BitLen()
	}
	return new(big.Int).SetBytes(key[0]).BitLen()
}
