package asym

import (
	"fmt"
	"io"
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cryptoengine/limits"
	"github.com/opd-ai/cryptoengine/logging"
)

// DefaultMaxAttempts bounds the candidates drawn per prime.
const DefaultMaxAttempts = 10000

// RSAKeyPair holds a generated key. Public is {n, e}; Private is the full CRT
// form or {n, d}.
type RSAKeyPair struct {
	Public  KeyMaterial
	Private KeyMaterial
}

// GenerateRSAKey creates an RSA key with a modulus of exactly bits bits and
// public exponent 65537 (useF4) or 3. At most maxAttempts candidates are
// tried per prime. Progress is logged to l, or the standard logger when l is
// nil.
func GenerateRSAKey(rng io.Reader, bits int, crt, useF4 bool, maxAttempts int, l *logrus.Logger) (*RSAKeyPair, error) {
	if err := limits.ValidateRSABits(bits); err != nil {
		return nil, err
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	e := bigE3
	if useF4 {
		e = bigF4
	}
	logger := logging.NewLogger("asym", "GenerateRSAKey").
		WithLogger(l).
		WithField("bits", bits).
		WithField("e", e.Int64())

	coprime := func(p *big.Int) bool {
		pm1 := new(big.Int).Sub(p, bigOne)
		return new(big.Int).GCD(nil, nil, e, pm1).Cmp(bigOne) == 0
	}
	pBits := (bits + 1) / 2
	p, err := randomPrime(rng, pBits, maxAttempts, coprime)
	if err != nil {
		logger.WithError(err, "GenerationError", "prime_p").Warn("RSA key generation failed")
		return nil, err
	}
	q, err := randomPrime(rng, bits-pBits, maxAttempts, func(c *big.Int) bool {
		return c.Cmp(p) != 0 && coprime(c)
	})
	if err != nil {
		logger.WithError(err, "GenerationError", "prime_q").Warn("RSA key generation failed")
		return nil, err
	}
	if p.Cmp(q) < 0 {
		p, q = q, p
	}

	n := new(big.Int).Mul(p, q)
	if n.BitLen() != bits {
		return nil, fmt.Errorf("%w: modulus came out at %d bits", ErrGenerationFailed, n.BitLen())
	}
	phi := new(big.Int).Mul(new(big.Int).Sub(p, bigOne), new(big.Int).Sub(q, bigOne))
	d := new(big.Int).ModInverse(e, phi)
	if d == nil {
		return nil, fmt.Errorf("%w: exponent not invertible", ErrGenerationFailed)
	}

	pair := &RSAKeyPair{Public: KeyMaterial{n.Bytes(), e.Bytes()}}
	if crt {
		full, err := CompleteRSAKey(KeyMaterial{n.Bytes(), d.Bytes(), e.Bytes(), p.Bytes(), q.Bytes(), nil, nil, nil})
		if err != nil {
			return nil, err
		}
		pair.Private = full
	} else {
		pair.Private = KeyMaterial{n.Bytes(), d.Bytes()}
	}
	for _, v := range []*big.Int{p, q, d, phi} {
		wipeInt(v)
	}
	logger.Debug("Generated RSA key")
	return pair, nil
}

// DSAKeyPair holds DSA domain parameters and a key.
type DSAKeyPair struct {
	P, Q, G *big.Int
	Y, X    *big.Int
}

// Private returns {p, q, g, x}.
func (k *DSAKeyPair) Private() KeyMaterial {
	return KeyMaterial{k.P.Bytes(), k.Q.Bytes(), k.G.Bytes(), k.X.Bytes()}
}

// Public returns {p, q, g, y}.
func (k *DSAKeyPair) Public() KeyMaterial {
	return KeyMaterial{k.P.Bytes(), k.Q.Bytes(), k.G.Bytes(), k.Y.Bytes()}
}

// Full returns {p, q, g, y, x}.
func (k *DSAKeyPair) Full() KeyMaterial {
	return KeyMaterial{k.P.Bytes(), k.Q.Bytes(), k.G.Bytes(), k.Y.Bytes(), k.X.Bytes()}
}

// GenerateDSAKey creates domain parameters with a 160-bit q and a pbits-bit
// p, then a key pair. p is searched as the prime of the form 2mq+1 nearest
// below a random pbits-bit value; at most maxAttempts candidates are tried
// for each of q and p. l receives progress logs as in GenerateRSAKey.
func GenerateDSAKey(rng io.Reader, pbits, maxAttempts int, l *logrus.Logger) (*DSAKeyPair, error) {
	if err := limits.ValidateDSABits(pbits); err != nil {
		return nil, err
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	logger := logging.NewLogger("asym", "GenerateDSAKey").WithLogger(l).WithField("pbits", pbits)

	q, err := randomPrime(rng, limits.DSASubgroupBits, maxAttempts, nil)
	if err != nil {
		logger.WithError(err, "GenerationError", "prime_q").Warn("DSA parameter generation failed")
		return nil, err
	}

	twoQ := new(big.Int).Lsh(q, 1)
	buf := make([]byte, pbits/8)
	p := new(big.Int)
	found := false
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := io.ReadFull(rng, buf); err != nil {
			return nil, fmt.Errorf("asym: reading random bytes: %w", err)
		}
		buf[0] |= 0x80
		p.SetBytes(buf)
		c := new(big.Int).Mod(p, twoQ)
		p.Sub(p, c).Add(p, bigOne)
		if p.BitLen() == pbits && p.ProbablyPrime(primeRounds) {
			found = true
			logger.WithField("attempts", attempt+1).Debug("Found DSA prime")
			break
		}
	}
	if !found {
		err := fmt.Errorf("%w: no %d bit dsa prime in %d candidates", ErrGenerationFailed, pbits, maxAttempts)
		logger.WithError(err, "GenerationError", "prime_p").Warn("DSA parameter generation failed")
		return nil, err
	}

	exp := new(big.Int).Sub(p, bigOne)
	exp.Div(exp, q)
	g := new(big.Int)
	for h := int64(2); ; h++ {
		g.Exp(big.NewInt(h), exp, p)
		if g.Cmp(bigOne) != 0 {
			break
		}
	}

	x, err := randomBelow(rng, q)
	if err != nil {
		return nil, err
	}
	y := new(big.Int).Exp(g, x, p)
	return &DSAKeyPair{P: p, Q: q, G: g, Y: y, X: x}, nil
}
