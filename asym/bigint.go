package asym

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/opd-ai/cryptoengine/limits"
)

// primeRounds is the Miller-Rabin round count passed to ProbablyPrime; Go
// additionally runs a Baillie-PSW test.
const primeRounds = 20

var (
	bigOne = big.NewInt(1)
	bigF4  = big.NewInt(65537)
	bigE3  = big.NewInt(3)
)

// intOf returns b as a non-negative integer, or nil when b is empty.
func intOf(b []byte) *big.Int {
	if len(b) == 0 {
		return nil
	}
	return new(big.Int).SetBytes(b)
}

// crtExp computes c^d mod pq from the CRT components:
// m1 = c^dP mod p, m2 = c^dQ mod q, h = qInv(m1-m2) mod p, m = m2 + hq.
func crtExp(c, p, q, dP, dQ, qInv *big.Int) *big.Int {
	m1 := new(big.Int).Exp(c, dP, p)
	m2 := new(big.Int).Exp(c, dQ, q)
	h := m1.Sub(m1, m2)
	h.Mul(h, qInv)
	h.Mod(h, p)
	h.Mul(h, q)
	return h.Add(h, m2)
}

// randomBelow returns a uniform integer in [1, max).
func randomBelow(rng io.Reader, max *big.Int) (*big.Int, error) {
	if max.Cmp(bigOne) <= 0 {
		return nil, fmt.Errorf("%w: empty range", limits.ErrInvalidInput)
	}
	upper := new(big.Int).Sub(max, bigOne)
	v, err := rand.Int(rng, upper)
	if err != nil {
		return nil, fmt.Errorf("asym: reading random bytes: %w", err)
	}
	return v.Add(v, bigOne), nil
}

// randomPrime searches for a prime of exactly bits bits with its top two
// bits set, so the product of two such primes has exactly twice the bits.
// accept may reject otherwise valid primes. At most maxAttempts candidates
// are drawn.
func randomPrime(rng io.Reader, bits, maxAttempts int, accept func(*big.Int) bool) (*big.Int, error) {
	if bits < 3 {
		return nil, fmt.Errorf("%w: prime of %d bits", limits.ErrInvalidInput, bits)
	}
	buf := make([]byte, (bits+7)/8)
	defer ZeroBytes(buf)
	excess := uint(len(buf)*8 - bits)

	p := new(big.Int)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := io.ReadFull(rng, buf); err != nil {
			return nil, fmt.Errorf("asym: reading random bytes: %w", err)
		}
		buf[0] &= 0xff >> excess
		p.SetBytes(buf)
		p.SetBit(p, bits-1, 1)
		p.SetBit(p, bits-2, 1)
		p.SetBit(p, 0, 1)
		if !p.ProbablyPrime(primeRounds) {
			continue
		}
		if accept != nil && !accept(p) {
			continue
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: no %d bit prime in %d candidates", ErrGenerationFailed, bits, maxAttempts)
}
