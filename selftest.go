package cryptoengine

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/opd-ai/cryptoengine/asym"
	"github.com/opd-ai/cryptoengine/logging"
)

// selfTestCheck is one known-answer or consistency check.
type selfTestCheck struct {
	name string
	run  func(e *Engine, f asym.Fixtures) error
}

var selfTestChecks = []selfTestCheck{
	{"digest", checkDigests},
	{"des", checkDES},
	{"rsa_crt", checkRSACRT},
	{"rsa_small_e", checkRSASmallE},
	{"iso9796", checkISO9796},
	{"dsa", checkDSA},
}

var digestVectors = []struct{ alg, in, out string }{
	{DigestSHA1, "abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
	{DigestMD5, "abc", "900150983cd24fb0d6963f7d28e17f72"},
	{DigestMD2, "abc", "da853b0d3f88d99b30283a69e6ded6bb"},
}

// SelfTest runs known-answer and round-trip checks against the demonstration
// keys and both providers. It bypasses the operation caches. The first
// failing check is returned wrapped in ErrSelfTestFailed.
func (e *Engine) SelfTest() error {
	logger := e.log("SelfTest")
	logger.Entry("running known-answer checks")
	defer logger.Exit()
	f := asym.DemoFixtures()
	defer func() {
		asym.WipeKey(f.RSA)
		asym.WipeKey(f.RSASmallE)
		asym.WipeKey(f.DSA)
	}()

	for _, c := range selfTestChecks {
		if err := c.run(e, f); err != nil {
			logger.WithFields(logging.OperationFields("self_test", "failed")).
				WithField("check", c.name).
				WithError(err, "SelfTestError", c.name).
				WithCaller().
				Error("Self-test failed")
			return fmt.Errorf("%w: %s: %w", ErrSelfTestFailed, c.name, err)
		}
	}
	logger.WithFields(logging.OperationFields("self_test", "passed")).Info("Self-test passed")
	return nil
}

func checkDigests(_ *Engine, _ asym.Fixtures) error {
	for _, p := range []Provider{ReferenceProvider{}, LibraryProvider{}} {
		for _, v := range digestVectors {
			h, err := p.Hash(v.alg)
			if err != nil {
				return err
			}
			_, _ = h.Write([]byte(v.in))
			if got := hex.EncodeToString(h.Sum(nil)); got != v.out {
				return fmt.Errorf("%s %s: got %s", p.Name(), v.alg, got)
			}
		}
	}
	return nil
}

func checkDES(_ *Engine, _ asym.Fixtures) error {
	key, _ := hex.DecodeString("133457799bbcdff1")
	plain, _ := hex.DecodeString("0123456789abcdef")
	want, _ := hex.DecodeString("85e813540f0ab405")

	triple, _ := hex.DecodeString("0123456789abcdeffedcba987654321089abcdef01234567")
	msg := bytes.Repeat([]byte("selftest"), 5)

	var tripleOut [][]byte
	for _, p := range []Provider{ReferenceProvider{}, LibraryProvider{}} {
		m, err := p.BlockMode(key, nil, true)
		if err != nil {
			return err
		}
		out := make([]byte, len(plain))
		m.CryptBlocks(out, plain)
		if !bytes.Equal(out, want) {
			return fmt.Errorf("%s single des: got %x", p.Name(), out)
		}

		iv := make([]byte, 8)
		enc, err := p.BlockMode(triple, iv, true)
		if err != nil {
			return err
		}
		ct := make([]byte, len(msg))
		enc.CryptBlocks(ct, msg)
		dec, err := p.BlockMode(triple, iv, false)
		if err != nil {
			return err
		}
		pt := make([]byte, len(ct))
		dec.CryptBlocks(pt, ct)
		if !bytes.Equal(pt, msg) {
			return fmt.Errorf("%s triple des cbc round trip", p.Name())
		}
		tripleOut = append(tripleOut, ct)
	}
	if !bytes.Equal(tripleOut[0], tripleOut[1]) {
		return fmt.Errorf("providers disagree on triple des")
	}
	return nil
}

func checkRSACRT(e *Engine, f asym.Fixtures) error {
	msg := []byte("cryptoengine self-test")
	ct, err := asym.RSA(e, true, asym.PadPKCS1Type2, f.RSA, msg)
	if err != nil {
		return err
	}
	pt, err := asym.RSA(nil, false, asym.PadPKCS1Type2, f.RSA, ct)
	if err != nil {
		return err
	}
	if !bytes.Equal(pt, msg) {
		return fmt.Errorf("type 2 round trip mismatch")
	}

	// The same exponentiation without the CRT parameters.
	plain := asym.KeyMaterial{f.RSA[asym.RSAModulus], f.RSA[asym.RSAPrivateExponent]}
	viaCRT, err := asym.RSA(nil, true, asym.PadPKCS1Type1, f.RSA, msg)
	if err != nil {
		return err
	}
	viaExp, err := asym.RSA(nil, true, asym.PadPKCS1Type1, plain, msg)
	if err != nil {
		return err
	}
	if !bytes.Equal(viaCRT, viaExp) {
		return fmt.Errorf("crt and plain exponentiation disagree")
	}
	return nil
}

func checkRSASmallE(_ *Engine, f asym.Fixtures) error {
	pub := asym.KeyMaterial{f.RSASmallE[asym.RSAModulus], f.RSASmallE[asym.RSAPublicExponent]}
	ct, err := asym.RSA(nil, true, asym.PadNone, pub, []byte("A"))
	if err != nil {
		return err
	}
	if !bytes.Equal(ct, []byte{0x04, 0x30, 0xc1}) {
		return fmt.Errorf("e=3 encryption of \"A\": got %x", ct)
	}
	pt, err := asym.RSA(nil, false, asym.PadNone, f.RSASmallE, ct)
	if err != nil {
		return err
	}
	if !bytes.Equal(pt, []byte("A")) {
		return fmt.Errorf("e=3 decryption: got %x", pt)
	}
	return nil
}

func checkISO9796(_ *Engine, f asym.Fixtures) error {
	msg := []byte("iso 9796")
	pub := asym.KeyMaterial{f.RSA[asym.RSAModulus], f.RSA[asym.RSAPublicExponent]}
	sig, err := asym.SignISO9796(f.RSA, msg)
	if err != nil {
		return err
	}
	ok, err := asym.VerifyISO9796(pub, msg, sig)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("signature rejected")
	}
	sig[len(sig)-1] ^= 0x01
	if ok, _ := asym.VerifyISO9796(pub, msg, sig); ok {
		return fmt.Errorf("corrupted signature accepted")
	}
	return nil
}

func checkDSA(e *Engine, f asym.Fixtures) error {
	msg := []byte("dsa self-test")
	sig, err := asym.SignDSA(e, f.DSA, msg)
	if err != nil {
		return err
	}
	ok, err := asym.VerifyDSA(f.DSA, msg, sig)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("signature rejected")
	}
	der, err := asym.EncodeDSASignatureDER(sig)
	if err != nil {
		return err
	}
	if ok, err := asym.VerifyDSADER(f.DSA, msg, der); err != nil || !ok {
		return fmt.Errorf("der signature rejected")
	}
	return nil
}
