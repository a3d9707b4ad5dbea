package cryptoengine

import (
	"fmt"
	"time"

	"github.com/opd-ai/cryptoengine/asym"
	"github.com/opd-ai/cryptoengine/limits"
	"github.com/opd-ai/cryptoengine/logging"
	"github.com/opd-ai/cryptoengine/opcache"
)

// rsaFlags packs the RSA call shape into the cache key.
func rsaFlags(padData bool, padType asym.PadType) uint32 {
	f := uint32(padType) << 1
	if padData {
		f |= 1
	}
	return f
}

// RSA runs asym.RSA over data[off:off+n] using the engine's PRNG for
// PKCS#1 type 2 padding. Results are cached by the exact value of key,
// window and flags; randomized encryptions are never cached.
func (e *Engine) RSA(padData bool, padType asym.PadType, key asym.KeyMaterial, data []byte, off, n int) ([]byte, error) {
	window, err := limits.Window(data, off, n)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	cacheable := !(padData && padType == asym.PadPKCS1Type2)

	var ck *opcache.Key
	if cacheable {
		ck = &opcache.Key{
			Op:       opcache.OpRSA,
			Flags:    rsaFlags(padData, padType),
			Material: key,
			Data:     window,
			Off:      off,
			N:        n,
		}
		if r, ok := e.rsaCache.Get(ck); ok {
			e.monitor.Record("rsa", time.Since(start), n, true, nil)
			return r.Bytes, nil
		}
	}

	out, err := asym.RSA(e, padData, padType, key, window)
	e.monitor.Record("rsa", time.Since(start), n, false, err)
	if err != nil {
		e.log("RSA").
			WithField("pad_type", padType.String()).
			WithField("pad_data", padData).
			WithError(err, "RSAError", "rsa").
			Debug("RSA operation failed")
		return nil, err
	}
	if cacheable {
		e.rsaCache.Put(ck, opcache.Result{Bytes: out})
	}
	return out, nil
}

// SignISO9796 signs data[off:off+n] with ISO/IEC 9796-1 message recovery.
// The scheme is deterministic, so signatures are cached.
func (e *Engine) SignISO9796(key asym.KeyMaterial, data []byte, off, n int) ([]byte, error) {
	window, err := limits.Window(data, off, n)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	ck := &opcache.Key{Op: opcache.OpSignISO9796, Material: key, Data: window, Off: off, N: n}
	if r, ok := e.isoCache.Get(ck); ok {
		e.monitor.Record("sign_iso9796", time.Since(start), n, true, nil)
		return r.Bytes, nil
	}

	sig, err := asym.SignISO9796(key, window)
	e.monitor.Record("sign_iso9796", time.Since(start), n, false, err)
	if err != nil {
		return nil, err
	}
	e.isoCache.Put(ck, opcache.Result{Bytes: sig})
	return sig, nil
}

// VerifyISO9796 checks sig against data[off:off+n]. Both verdicts are
// cached; errors are not.
func (e *Engine) VerifyISO9796(key asym.KeyMaterial, data []byte, off, n int, sig []byte) (bool, error) {
	window, err := limits.Window(data, off, n)
	if err != nil {
		return false, err
	}
	start := time.Now()
	ck := &opcache.Key{Op: opcache.OpVerifyISO9796, Material: key, Data: window, Off: off, N: n, Aux: sig}
	if r, ok := e.isoCache.Get(ck); ok {
		e.monitor.Record("verify_iso9796", time.Since(start), n, true, nil)
		return r.OK, nil
	}

	ok, err := asym.VerifyISO9796(key, window, sig)
	e.monitor.Record("verify_iso9796", time.Since(start), n, false, err)
	if err != nil {
		return false, err
	}
	if !ok {
		e.log("VerifyISO9796").
			WithFields(logging.SecureFieldHash(sig, "signature")).
			WithFields(logging.SizeField(window, "data")).
			Debug("Signature rejected")
	}
	e.isoCache.Put(ck, opcache.Result{OK: ok})
	return ok, nil
}

// DSA signs or verifies data[off:off+n]. DSASign writes a 40-byte r||s at
// sig[pos:] and returns true. DSAVerify reads a fixed-width signature at
// sig[pos:]; DSAVerifyDER reads a DER signature spanning sig[pos:].
func (e *Engine) DSA(mode asym.DSAMode, key asym.KeyMaterial, data []byte, off, n int, sig []byte, pos int) (bool, error) {
	window, err := limits.Window(data, off, n)
	if err != nil {
		return false, err
	}
	if pos < 0 || pos > len(sig) {
		return false, fmt.Errorf("%w: signature position %d of %d", limits.ErrInvalidWindow, pos, len(sig))
	}
	start := time.Now()

	var ok bool
	switch mode {
	case asym.DSASign:
		if len(sig)-pos < asym.DSASignatureSize {
			return false, fmt.Errorf("%w: %d bytes for a %d-byte signature",
				limits.ErrInvalidWindow, len(sig)-pos, asym.DSASignatureSize)
		}
		var out []byte
		out, err = asym.SignDSA(e, key, window)
		if err == nil {
			copy(sig[pos:], out)
			ok = true
		}
		e.monitor.Record("dsa_sign", time.Since(start), n, false, err)
	case asym.DSAVerify:
		end := pos + asym.DSASignatureSize
		if end > len(sig) {
			end = len(sig)
		}
		ok, err = asym.VerifyDSA(key, window, sig[pos:end])
		e.monitor.Record("dsa_verify", time.Since(start), n, false, err)
	case asym.DSAVerifyDER:
		ok, err = asym.VerifyDSADER(key, window, sig[pos:])
		e.monitor.Record("dsa_verify", time.Since(start), n, false, err)
	default:
		return false, fmt.Errorf("%w: dsa mode %d", limits.ErrInvalidInput, int(mode))
	}
	if err != nil {
		e.log("DSA").WithError(err, "DSAError", "dsa").Debug("DSA operation failed")
		return false, err
	}
	return ok, nil
}

// RSAKey generates an RSA key with a bits-bit modulus. crt selects the
// 8-element private form; useF4 selects e = 65537 over e = 3.
func (e *Engine) RSAKey(bits int, crt, useF4 bool) (*asym.RSAKeyPair, error) {
	start := time.Now()
	pair, err := asym.GenerateRSAKey(e, bits, crt, useF4, e.opts.MaxKeygenAttempts, e.logger)
	e.monitor.Record("rsa_keygen", time.Since(start), 0, false, err)
	if err != nil {
		e.log("RSAKey").WithField("bits", bits).WithError(err, "KeygenError", "rsa_keygen").Warn("RSA key generation failed")
		return nil, err
	}
	return pair, nil
}

// DSAKey generates DSA domain parameters with a pbits-bit p and a key pair.
func (e *Engine) DSAKey(pbits int) (*asym.DSAKeyPair, error) {
	start := time.Now()
	pair, err := asym.GenerateDSAKey(e, pbits, e.opts.MaxKeygenAttempts, e.logger)
	e.monitor.Record("dsa_keygen", time.Since(start), 0, false, err)
	if err != nil {
		e.log("DSAKey").WithField("pbits", pbits).WithError(err, "KeygenError", "dsa_keygen").Warn("DSA key generation failed")
		return nil, err
	}
	return pair, nil
}
