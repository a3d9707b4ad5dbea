package cryptoengine

import (
	"bytes"
	"crypto/rc4"
	"encoding/hex"
	"encoding/json"
	"errors"
	mrand "math/rand"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/cryptoengine/asym"
	"github.com/opd-ai/cryptoengine/blockcipher"
	"github.com/opd-ai/cryptoengine/limits"
)

var backends = []Backend{BackendLibrary, BackendReference}

func newTestEngine(t testing.TB, backend Backend) *Engine {
	t.Helper()
	opts := NewOptions()
	opts.Backend = backend
	opts.Entropy = mrand.New(mrand.NewSource(42))
	opts.LogLevel = "error"
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func fill(n int, b byte) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func TestNewDefaults(t *testing.T) {
	e, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, string(BackendLibrary), e.Backend())
	assert.Equal(t, 2000, e.rsaCache.Capacity())
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	opts := NewOptions()
	opts.Backend = "hardware"
	_, err := New(opts)
	assert.ErrorIs(t, err, ErrUnknownBackend)
	assert.ErrorIs(t, err, limits.ErrInvalidInput)
}

func TestEncryptAuditEnvelope(t *testing.T) {
	key := fill(24, 0x01)
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			e := newTestEngine(t, b)
			ct, err := e.Encrypt(DefaultAlgorithm, []byte("AUDIT-TEST"), key)
			require.NoError(t, err)
			assert.Len(t, ct, 16)

			pt, err := e.Decrypt("", ct, key)
			require.NoError(t, err)
			assert.Equal(t, []byte("AUDIT-TEST"), pt)
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	keys := map[string][]byte{
		"single":    []byte("8bytekey"),
		"two-key":   []byte("0123456789abcdef"),
		"three-key": []byte("0123456789abcdefFEDCBA98"),
	}
	messages := [][]byte{{}, []byte("x"), []byte("exactly8"), bytes.Repeat([]byte("audit "), 50)}

	for _, b := range backends {
		for name, key := range keys {
			for _, alg := range []string{Alg3DESECB, Alg3DESCBC} {
				t.Run(string(b)+"/"+name+"/"+alg, func(t *testing.T) {
					e := newTestEngine(t, b)
					for _, msg := range messages {
						ct, err := e.Encrypt(alg, msg, key)
						require.NoError(t, err)
						assert.Zero(t, len(ct)%blockcipher.BlockSize)

						pt, err := e.Decrypt(alg, ct, key)
						require.NoError(t, err)
						assert.Equal(t, msg, pt)
					}
				})
			}
		}
	}
}

func TestBackendsAgreeOnECB(t *testing.T) {
	msg := []byte("the same bytes through both providers")
	for _, key := range [][]byte{fill(8, 0x13), []byte("0123456789abcdef"), []byte("0123456789abcdefFEDCBA98")} {
		lib, err := newTestEngine(t, BackendLibrary).Encrypt(Alg3DESECB, msg, key)
		require.NoError(t, err)
		ref, err := newTestEngine(t, BackendReference).Encrypt(Alg3DESECB, msg, key)
		require.NoError(t, err)
		assert.Equal(t, lib, ref, "key length %d", len(key))
	}
}

func TestTwoKeyMatchesThreeKeyWithRepeatedFirstKey(t *testing.T) {
	two := []byte("0123456789abcdef")
	three := append(append([]byte{}, two...), two[:8]...)
	for _, b := range backends {
		e := newTestEngine(t, b)
		a, err := e.Encrypt(Alg3DESECB, []byte("keying option 2"), two)
		require.NoError(t, err)
		c, err := e.Encrypt(Alg3DESECB, []byte("keying option 2"), three)
		require.NoError(t, err)
		assert.Equal(t, a, c, string(b))
	}
}

func TestCBCUsesFreshIV(t *testing.T) {
	e := newTestEngine(t, BackendReference)
	key := []byte("0123456789abcdefFEDCBA98")
	msg := []byte("identical plaintext")

	a, err := e.Encrypt(Alg3DESCBC, msg, key)
	require.NoError(t, err)
	b, err := e.Encrypt(Alg3DESCBC, msg, key)
	require.NoError(t, err)
	assert.Len(t, a, 8+24)
	assert.NotEqual(t, a[:8], b[:8])
	assert.NotEqual(t, a, b)

	_, err = e.Decrypt(Alg3DESCBC, a[:8], key)
	assert.ErrorIs(t, err, limits.ErrInvalidInput)
}

func TestRC4Envelope(t *testing.T) {
	key := []byte("Secret")
	msg := []byte("Attack at dawn")
	want := make([]byte, len(msg))
	c, err := rc4.NewCipher(key)
	require.NoError(t, err)
	c.XORKeyStream(want, msg)

	for _, b := range backends {
		e := newTestEngine(t, b)
		ct, err := e.Encrypt("rc4", msg, key)
		require.NoError(t, err)
		assert.Equal(t, want, ct, string(b))
		assert.Equal(t, "45a01f645fc35b383552544b9bf5", hex.EncodeToString(ct))

		pt, err := e.Decrypt(AlgRC4, ct, key)
		require.NoError(t, err)
		assert.Equal(t, msg, pt)
	}
}

func TestDecryptBadPadding(t *testing.T) {
	key := []byte("0123456789abcdefFEDCBA98")
	// A zero block has a pad byte of 0, which is never valid.
	mode, err := LibraryProvider{}.BlockMode(key, nil, true)
	require.NoError(t, err)
	ct := make([]byte, 16)
	mode.CryptBlocks(ct, ct)

	for _, b := range backends {
		_, err := newTestEngine(t, b).Decrypt(Alg3DESECB, ct, key)
		assert.ErrorIs(t, err, ErrDecryptionFailed, string(b))
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	e := newTestEngine(t, BackendLibrary)
	msg := []byte("confidential audit record")
	ct, err := e.Encrypt(Alg3DESECB, msg, fill(24, 0x01))
	require.NoError(t, err)

	pt, err := e.Decrypt(Alg3DESECB, ct, fill(24, 0x02))
	if err != nil {
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	} else {
		assert.NotEqual(t, msg, pt)
	}
}

func TestEncryptPreconditions(t *testing.T) {
	e := newTestEngine(t, BackendLibrary)
	tests := []struct {
		name    string
		alg     string
		encrypt bool
		data    []byte
		key     []byte
		want    error
	}{
		{"unknown algorithm", "AES/GCM", true, []byte("x"), fill(24, 1), ErrUnknownAlgorithm},
		{"short des key", Alg3DESECB, true, []byte("x"), fill(7, 1), limits.ErrInvalidKeySize},
		{"odd des key", Alg3DESECB, true, []byte("x"), fill(20, 1), limits.ErrInvalidKeySize},
		{"empty rc4 key", AlgRC4, true, []byte("x"), nil, limits.ErrInvalidKeySize},
		{"oversized input", Alg3DESECB, true, make([]byte, limits.MaxProcessingBuffer+1), fill(24, 1), limits.ErrMessageTooLarge},
		{"unaligned ciphertext", Alg3DESECB, false, make([]byte, 12), fill(24, 1), limits.ErrNotBlockAligned},
		{"empty ciphertext", Alg3DESECB, false, nil, fill(24, 1), limits.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.encrypt {
				_, err = e.Encrypt(tt.alg, tt.data, tt.key)
			} else {
				_, err = e.Decrypt(tt.alg, tt.data, tt.key)
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, limits.ErrInvalidInput)
		})
	}
}

func TestGenerate3DESKey(t *testing.T) {
	e := newTestEngine(t, BackendReference)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		key, err := e.Generate3DESKey()
		require.NoError(t, err)
		require.Len(t, key, 24)
		assert.True(t, blockcipher.HasOddParity(key))
		assert.NotEqual(t, key[:8], key[8:16])
		assert.NotEqual(t, key[8:16], key[16:])
		assert.False(t, seen[string(key)])
		seen[string(key)] = true

		ct, err := e.Encrypt(Alg3DESECB, []byte("generated"), key)
		require.NoError(t, err)
		pt, err := e.Decrypt(Alg3DESECB, ct, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("generated"), pt)
	}
}

func TestKeyCheckValue(t *testing.T) {
	for _, b := range backends {
		e := newTestEngine(t, b)
		for _, n := range []int{8, 16, 24} {
			kcv, err := e.KeyCheckValue(make([]byte, n))
			require.NoError(t, err)
			assert.Equal(t, "8ca64d", hex.EncodeToString(kcv), "%s/%d", b, n)
		}
	}
}

func TestDigest(t *testing.T) {
	for _, b := range backends {
		e := newTestEngine(t, b)
		for _, v := range digestVectors {
			sum, err := e.Digest(v.alg, []byte(v.in))
			require.NoError(t, err)
			assert.Equal(t, v.out, hex.EncodeToString(sum), "%s/%s", b, v.alg)
		}
		sum, err := e.Digest("sha-1", nil)
		require.NoError(t, err)
		assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", hex.EncodeToString(sum))

		_, err = e.Digest("SHA256", nil)
		assert.ErrorIs(t, err, ErrUnknownAlgorithm)
	}
}

func TestMAC(t *testing.T) {
	tests := []struct {
		alg  string
		key  []byte
		want string
	}{
		{DigestSHA1, fill(20, 0x0b), "b617318655057264e28bc0b6fb378c8ef146be00"},
		{DigestMD5, fill(16, 0x0b), "9294727a3638bb1c13f48ef8158bfc9d"},
	}
	for _, b := range backends {
		e := newTestEngine(t, b)
		for _, tt := range tests {
			t.Run(string(b)+"/"+tt.alg, func(t *testing.T) {
				mac, err := e.MAC(tt.alg, tt.key, []byte("Hi There"))
				require.NoError(t, err)
				assert.Equal(t, tt.want, hex.EncodeToString(mac))

				ok, err := e.VerifyMAC(tt.alg, tt.key, []byte("Hi There"), mac)
				require.NoError(t, err)
				assert.True(t, ok)

				mac[0] ^= 1
				ok, err = e.VerifyMAC(tt.alg, tt.key, []byte("Hi There"), mac)
				require.NoError(t, err)
				assert.False(t, ok)
			})
		}
	}
}

func TestRandomWindow(t *testing.T) {
	e := newTestEngine(t, BackendLibrary)
	buf := make([]byte, 32)
	require.NoError(t, e.Random(buf, 8, 16))
	assert.Equal(t, make([]byte, 8), buf[:8])
	assert.Equal(t, make([]byte, 8), buf[24:])
	assert.NotEqual(t, make([]byte, 16), buf[8:24])

	assert.ErrorIs(t, e.Random(buf, 20, 16), limits.ErrInvalidWindow)
	assert.ErrorIs(t, e.Random(buf, -1, 4), limits.ErrInvalidWindow)
	assert.EqualValues(t, 16, e.Stats().PRNG.BytesOut)
}

func TestRandomIsDeterministicForFixedEntropy(t *testing.T) {
	a, b := make([]byte, 300), make([]byte, 300)
	_, err := newTestEngine(t, BackendLibrary).Read(a)
	require.NoError(t, err)
	_, err = newTestEngine(t, BackendReference).Read(b)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRSACaching(t *testing.T) {
	e := newTestEngine(t, BackendLibrary)
	key := asym.DemoFixtures().RSA
	msg := []byte("cached signature")

	first, err := e.RSA(true, asym.PadPKCS1Type1, key, msg, 0, len(msg))
	require.NoError(t, err)
	second, err := e.RSA(true, asym.PadPKCS1Type1, key, msg, 0, len(msg))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stats := e.Stats().RSACache
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.Equal(t, 1, stats.Size)

	// The returned slice is a copy.
	second[0] ^= 0xff
	third, err := e.RSA(true, asym.PadPKCS1Type1, key, msg, 0, len(msg))
	require.NoError(t, err)
	assert.Equal(t, first, third)

	pub := asym.KeyMaterial{key[asym.RSAModulus], key[asym.RSAPublicExponent]}
	recovered, err := e.RSA(false, asym.PadPKCS1Type1, pub, first, 0, len(first))
	require.NoError(t, err)
	assert.Equal(t, msg, recovered)

	op := e.Stats().Operations["rsa"]
	assert.EqualValues(t, 4, op.Count)
	assert.EqualValues(t, 2, op.CacheHits)
}

func TestRSAEncryptionIsNotCached(t *testing.T) {
	e := newTestEngine(t, BackendLibrary)
	key := asym.DemoFixtures().RSA
	pub := asym.KeyMaterial{key[asym.RSAModulus], key[asym.RSAPublicExponent]}
	msg := []byte("session key")

	a, err := e.RSA(true, asym.PadPKCS1Type2, pub, msg, 0, len(msg))
	require.NoError(t, err)
	b, err := e.RSA(true, asym.PadPKCS1Type2, pub, msg, 0, len(msg))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 0, e.Stats().RSACache.Size)

	for _, ct := range [][]byte{a, b} {
		pt, err := e.RSA(false, asym.PadPKCS1Type2, key, ct, 0, len(ct))
		require.NoError(t, err)
		assert.Equal(t, msg, pt)
	}
}

func TestRSAWindow(t *testing.T) {
	e := newTestEngine(t, BackendLibrary)
	key := asym.DemoFixtures().RSA
	buf := []byte("xxpayloadyy")

	windowed, err := e.RSA(true, asym.PadPKCS1Type1, key, buf, 2, 7)
	require.NoError(t, err)
	direct, err := e.RSA(true, asym.PadPKCS1Type1, key, []byte("payload"), 0, 7)
	require.NoError(t, err)
	assert.Equal(t, direct, windowed)
	assert.Equal(t, 2, e.Stats().RSACache.Size, "offset is part of the key")

	_, err = e.RSA(true, asym.PadPKCS1Type1, key, buf, 5, 10)
	assert.ErrorIs(t, err, limits.ErrInvalidWindow)
}

func TestRSAFailuresAreNotCached(t *testing.T) {
	e := newTestEngine(t, BackendLibrary)
	key := asym.DemoFixtures().RSA
	garbage := fill(64, 0x5a)

	for i := 0; i < 2; i++ {
		_, err := e.RSA(false, asym.PadPKCS1Type1, key, garbage, 0, len(garbage))
		assert.ErrorIs(t, err, asym.ErrVerification)
	}
	stats := e.Stats()
	assert.Equal(t, 0, stats.RSACache.Size)
	assert.EqualValues(t, 2, stats.Operations["rsa"].Failures)
}

func TestISO9796Caching(t *testing.T) {
	e := newTestEngine(t, BackendReference)
	key := asym.DemoFixtures().RSA
	pub := asym.KeyMaterial{key[asym.RSAModulus], key[asym.RSAPublicExponent]}
	msg := []byte("recoverable")

	sig, err := e.SignISO9796(key, msg, 0, len(msg))
	require.NoError(t, err)
	again, err := e.SignISO9796(key, msg, 0, len(msg))
	require.NoError(t, err)
	assert.Equal(t, sig, again)

	for i := 0; i < 2; i++ {
		ok, err := e.VerifyISO9796(pub, msg, 0, len(msg), sig)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	bad := append([]byte{}, sig...)
	bad[len(bad)/2] ^= 0x10
	for i := 0; i < 2; i++ {
		ok, err := e.VerifyISO9796(pub, msg, 0, len(msg), bad)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	stats := e.Stats().ISOCache
	assert.EqualValues(t, 3, stats.Hits)
	assert.Equal(t, 3, stats.Size)
}

func TestDSAThroughEngine(t *testing.T) {
	e := newTestEngine(t, BackendLibrary)
	key := asym.DemoFixtures().DSA
	msg := []byte("..signed message..")

	sig := make([]byte, 4+asym.DSASignatureSize)
	ok, err := e.DSA(asym.DSASign, key, msg, 2, 15, sig, 4)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, make([]byte, 4), sig[:4])

	ok, err = e.DSA(asym.DSAVerify, key, msg, 2, 15, sig, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.DSA(asym.DSAVerify, key, msg, 0, 15, sig, 4)
	require.NoError(t, err)
	assert.False(t, ok, "different window")

	der, err := asym.EncodeDSASignatureDER(sig[4:])
	require.NoError(t, err)
	ok, err = e.DSA(asym.DSAVerifyDER, key, msg, 2, 15, der, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.DSA(asym.DSAVerify, key, msg, 2, 15, sig[:20], 0)
	require.NoError(t, err)
	assert.False(t, ok, "truncated signature")

	_, err = e.DSA(asym.DSASign, key, msg, 0, len(msg), make([]byte, 39), 0)
	assert.ErrorIs(t, err, limits.ErrInvalidWindow)
	_, err = e.DSA(asym.DSAVerify, key, msg, 0, len(msg), sig, len(sig)+1)
	assert.ErrorIs(t, err, limits.ErrInvalidWindow)
	_, err = e.DSA(asym.DSAMode(7), key, msg, 0, len(msg), sig, 0)
	assert.ErrorIs(t, err, limits.ErrInvalidInput)
}

func TestRSAKeyThroughEngine(t *testing.T) {
	e := newTestEngine(t, BackendLibrary)
	pair, err := e.RSAKey(512, true, true)
	require.NoError(t, err)
	assert.Equal(t, 512, asym.ModulusBits(pair.Public))

	msg := []byte("fresh key")
	sig, err := e.SignISO9796(pair.Private, msg, 0, len(msg))
	require.NoError(t, err)
	ok, err := e.VerifyISO9796(pair.Public, msg, 0, len(msg), sig)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = e.RSAKey(100, true, true)
	assert.ErrorIs(t, err, limits.ErrInvalidInput)
}

func TestDSAKeyThroughEngine(t *testing.T) {
	if testing.Short() {
		t.Skip("dsa parameter generation is slow")
	}
	e := newTestEngine(t, BackendLibrary)
	pair, err := e.DSAKey(512)
	require.NoError(t, err)

	msg := []byte("fresh parameters")
	sig := make([]byte, asym.DSASignatureSize)
	_, err = e.DSA(asym.DSASign, pair.Private(), msg, 0, len(msg), sig, 0)
	require.NoError(t, err)
	ok, err := e.DSA(asym.DSAVerify, pair.Public(), msg, 0, len(msg), sig, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSelfTest(t *testing.T) {
	for _, b := range backends {
		e := newTestEngine(t, b)
		require.NoError(t, e.SelfTest())
		assert.Equal(t, 0, e.Stats().RSACache.Size, "self-test bypasses the cache")
	}
}

func TestSelfTestOnSeed(t *testing.T) {
	opts := NewOptions()
	opts.Entropy = mrand.New(mrand.NewSource(7))
	opts.SelfTestOnSeed = true
	opts.LogLevel = "error"
	e, err := New(opts)
	require.NoError(t, err)

	assert.False(t, e.selfTestStarted.Load())
	buf := make([]byte, 16)
	require.NoError(t, e.Random(buf, 0, len(buf)))
	assert.True(t, e.selfTestStarted.Load())
	assert.NoError(t, e.SelfTestResult())
}

func TestSelfTestFailureIsReported(t *testing.T) {
	e := newTestEngine(t, BackendLibrary)
	saved := selfTestChecks
	defer func() { selfTestChecks = saved }()
	selfTestChecks = []selfTestCheck{{"broken", func(*Engine, asym.Fixtures) error {
		return errors.New("mismatch")
	}}}

	var buf bytes.Buffer
	e.logger = logrus.New()
	e.logger.SetOutput(&buf)
	e.logger.SetLevel(logrus.DebugLevel)

	err := e.SelfTest()
	assert.ErrorIs(t, err, ErrSelfTestFailed)
	assert.Contains(t, err.Error(), "broken")

	logs := buf.String()
	assert.Contains(t, logs, "Function entry: running known-answer checks")
	assert.Contains(t, logs, "Function exit: SelfTest")
	assert.Contains(t, logs, "caller=")
	assert.Contains(t, logs, "selftest.go")
}

func TestClearCaches(t *testing.T) {
	e := newTestEngine(t, BackendLibrary)
	key := asym.DemoFixtures().RSA
	msg := []byte("m")
	_, err := e.SignISO9796(key, msg, 0, 1)
	require.NoError(t, err)
	_, err = e.RSA(true, asym.PadPKCS1Type1, key, msg, 0, 1)
	require.NoError(t, err)

	e.ClearCaches()
	assert.Equal(t, 0, e.Stats().RSACache.Size)
	assert.Equal(t, 0, e.Stats().ISOCache.Size)
}

func TestCacheCapacityFromOptions(t *testing.T) {
	opts := NewOptions()
	opts.CacheCapacity = 5
	opts.EvictionPolicy = "lru"
	opts.Entropy = mrand.New(mrand.NewSource(1))
	opts.Logger = logrus.New()
	opts.Logger.SetLevel(logrus.ErrorLevel)
	e, err := New(opts)
	require.NoError(t, err)

	key := asym.DemoFixtures().RSASmallE
	for i := 0; i < 20; i++ {
		msg := []byte{byte(i + 1)}
		_, err := e.RSA(true, asym.PadNone, key, msg, 0, 1)
		require.NoError(t, err)
		assert.LessOrEqual(t, e.Stats().RSACache.Size, 5)
	}
	assert.Positive(t, e.Stats().RSACache.Evictions)
}

func TestSubpackageLogsReachEngineLogger(t *testing.T) {
	var buf bytes.Buffer
	opts := NewOptions()
	opts.Clock = &stepClock{state: 0x2545f4914f6cdd1d}
	opts.CacheCapacity = 2
	opts.Logger = logrus.New()
	opts.Logger.SetOutput(&buf)
	opts.Logger.SetLevel(logrus.DebugLevel)
	e, err := New(opts)
	require.NoError(t, err)

	out := make([]byte, 16)
	require.NoError(t, e.Random(out, 0, len(out)))
	key := asym.DemoFixtures().RSASmallE
	for i := 0; i < 4; i++ {
		_, err := e.RSA(true, asym.PadNone, key, []byte{byte(i + 1)}, 0, 1)
		require.NoError(t, err)
	}

	logs := buf.String()
	assert.Contains(t, logs, "PRNG reseeded")
	assert.Contains(t, logs, "Harvested entropy")
	assert.Contains(t, logs, "Cache sweep")
}

// stepClock advances by an xorshift-driven step on every reading.
type stepClock struct {
	mu    sync.Mutex
	now   int64
	state uint64
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state ^= c.state << 13
	c.state ^= c.state >> 7
	c.state ^= c.state << 17
	c.now += 40 + int64(c.state%61)
	return time.Unix(0, c.now)
}

func TestEngineWithInjectedClock(t *testing.T) {
	run := func() ([]byte, EngineStats) {
		opts := NewOptions()
		opts.Clock = &stepClock{state: 0x9e3779b97f4a7c15}
		opts.LogLevel = "error"
		e, err := New(opts)
		require.NoError(t, err)
		out := make([]byte, 64)
		require.NoError(t, e.Random(out, 0, len(out)))
		return out, e.Stats()
	}
	a, stats := run()
	b, _ := run()
	assert.Equal(t, a, b, "a deterministic clock gives a deterministic stream")
	assert.Positive(t, stats.EntropySamples)
	assert.EqualValues(t, 1, stats.PRNG.Reseeds)
}

func TestStatsJSON(t *testing.T) {
	e := newTestEngine(t, BackendReference)
	_, err := e.Digest(DigestMD5, []byte("abc"))
	require.NoError(t, err)
	_, err = e.Encrypt(AlgRC4, []byte("abc"), []byte("k"))
	require.NoError(t, err)

	raw, err := json.Marshal(e.Stats())
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "reference", decoded["backend"])
	assert.Contains(t, decoded["operations"], "digest")
	assert.Contains(t, decoded["operations"], "encrypt")
	assert.Equal(t, []string{"digest", "encrypt"}, e.Monitor().Operations())
}

func TestEngineConcurrentUse(t *testing.T) {
	e := newTestEngine(t, BackendLibrary)
	key := asym.DemoFixtures().RSA
	desKey := []byte("0123456789abcdefFEDCBA98")

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				msg := []byte{byte(g), byte(i % 3)}
				if _, err := e.RSA(true, asym.PadPKCS1Type1, key, msg, 0, len(msg)); err != nil {
					errs <- err
					return
				}
				ct, err := e.Encrypt(Alg3DESCBC, msg, desKey)
				if err != nil {
					errs <- err
					return
				}
				pt, err := e.Decrypt(Alg3DESCBC, ct, desKey)
				if err != nil {
					errs <- err
					return
				}
				if !bytes.Equal(pt, msg) {
					errs <- errors.New("round trip mismatch")
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.EqualValues(t, 80, e.Stats().Operations["rsa"].Count)
	assert.Equal(t, 24, e.Stats().RSACache.Size)
}

func BenchmarkEngineEncrypt(b *testing.B) {
	key := []byte("0123456789abcdefFEDCBA98")
	data := make([]byte, 1024)
	for _, backend := range backends {
		b.Run(string(backend), func(b *testing.B) {
			e := newTestEngine(b, backend)
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := e.Encrypt(Alg3DESECB, data, key); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
