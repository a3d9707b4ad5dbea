package cryptoengine

import (
	"bytes"
	"crypto/hmac"
	"crypto/subtle"
	"fmt"
	"hash"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cryptoengine/asym"
	"github.com/opd-ai/cryptoengine/blockcipher"
	"github.com/opd-ai/cryptoengine/entropy"
	"github.com/opd-ai/cryptoengine/limits"
	"github.com/opd-ai/cryptoengine/logging"
	"github.com/opd-ai/cryptoengine/opcache"
	"github.com/opd-ai/cryptoengine/padding"
)

// Symmetric algorithm identifiers accepted by Encrypt and Decrypt.
const (
	Alg3DESECB = "3DES/ECB/PKCS5"
	Alg3DESCBC = "3DES/CBC/PKCS5"
	AlgRC4     = "RC4"

	// DefaultAlgorithm is used when the identifier is empty.
	DefaultAlgorithm = Alg3DESECB
)

// Engine owns the random generator, the operation caches and the metrics of
// one crypto context. All methods are safe for concurrent use.
type Engine struct {
	opts      Options
	provider  Provider
	logger    *logrus.Logger
	collector *entropy.Collector
	prng      *entropy.PRNG
	rsaCache  *opcache.Cache
	isoCache  *opcache.Cache
	monitor   *Monitor

	selfTestStarted atomic.Bool
	selfTestMu      sync.Mutex
	selfTestErr     error
}

// New creates an engine. A nil opts selects NewOptions().
func New(opts *Options) (*Engine, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	provider, err := providerFor(opts.Backend)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		level, _ := logging.ParseLevel(opts.LogLevel)
		logger = logrus.New()
		logger.SetLevel(level)
	}
	policy, _ := opcache.PolicyByName(opts.EvictionPolicy)

	e := &Engine{
		opts:     *opts,
		provider: provider,
		logger:   logger,
		rsaCache: opcache.New(opts.CacheCapacity, opcache.WithPolicy(policy), opcache.WithName("rsa"), opcache.WithLogger(logger)),
		isoCache: opcache.New(opts.CacheCapacity, opcache.WithPolicy(policy), opcache.WithName("iso9796"), opcache.WithLogger(logger)),
		monitor:  NewMonitor(),
	}
	source := opts.Entropy
	if source == nil {
		e.collector = entropy.NewCollector(opts.Clock)
		e.collector.SetLogger(logger)
		source = e.collector
	}
	e.prng = entropy.NewPRNG(source, opts.TRMix)
	e.prng.SetLogger(logger)

	e.log("New").WithFields(logrus.Fields{
		"backend":        provider.Name(),
		"cache_capacity": opts.CacheCapacity,
		"policy":         policy.Name(),
		"tr_mix":         opts.TRMix,
	}).Info("Crypto engine created")
	return e, nil
}

func (e *Engine) log(function string) *logging.LoggerHelper {
	return logging.NewLogger("cryptoengine", function).WithLogger(e.logger)
}

// Backend returns the active provider's name.
func (e *Engine) Backend() string { return e.provider.Name() }

// Read fills p from the engine's PRNG, so the engine can be passed wherever
// an io.Reader randomness source is expected.
func (e *Engine) Read(p []byte) (int, error) {
	if err := e.random(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Random fills out[off:off+n] with pseudo-random bytes.
func (e *Engine) Random(out []byte, off, n int) error {
	window, err := limits.Window(out, off, n)
	if err != nil {
		return err
	}
	start := time.Now()
	err = e.random(window)
	e.monitor.Record("random", time.Since(start), n, false, err)
	return err
}

func (e *Engine) random(p []byte) error {
	if _, err := e.prng.Read(p); err != nil {
		return err
	}
	if e.opts.SelfTestOnSeed && e.selfTestStarted.CompareAndSwap(false, true) {
		err := e.SelfTest()
		e.selfTestMu.Lock()
		e.selfTestErr = err
		e.selfTestMu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// SelfTestResult reports the outcome of the self-test run on first seeding,
// or nil if it has not run.
func (e *Engine) SelfTestResult() error {
	e.selfTestMu.Lock()
	defer e.selfTestMu.Unlock()
	return e.selfTestErr
}

// normalizeAlgorithm maps an identifier to its canonical form.
func normalizeAlgorithm(alg string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", Alg3DESECB, "DESEDE/ECB/PKCS5PADDING", "DES/ECB/PKCS5":
		return Alg3DESECB, nil
	case Alg3DESCBC, "DESEDE/CBC/PKCS5PADDING", "DES/CBC/PKCS5":
		return Alg3DESCBC, nil
	case AlgRC4, "ARCFOUR":
		return AlgRC4, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
}

// Encrypt encrypts data under key. The 3DES algorithms take an 8, 16 or
// 24-byte key and apply PKCS#5 padding; CBC output starts with a random
// 8-byte IV. RC4 takes a 1 to 256-byte key.
func (e *Engine) Encrypt(algorithm string, data, key []byte) ([]byte, error) {
	start := time.Now()
	out, err := e.encrypt(algorithm, data, key)
	e.monitor.Record("encrypt", time.Since(start), len(data), false, err)
	if err != nil {
		e.log("Encrypt").WithError(err, "EncryptError", algorithm).Debug("Encryption rejected")
	}
	return out, err
}

func (e *Engine) encrypt(algorithm string, data, key []byte) ([]byte, error) {
	alg, err := normalizeAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	if err := limits.ValidateProcessingBuffer(data); err != nil {
		return nil, err
	}

	switch alg {
	case AlgRC4:
		s, err := e.provider.Stream(key)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		s.XORKeyStream(out, data)
		return out, nil
	case Alg3DESCBC:
		iv := make([]byte, blockcipher.BlockSize)
		if err := e.random(iv); err != nil {
			return nil, err
		}
		mode, err := e.provider.BlockMode(key, iv, true)
		if err != nil {
			return nil, err
		}
		padded := padding.PadPKCS5(data)
		out := make([]byte, len(iv)+len(padded))
		copy(out, iv)
		mode.CryptBlocks(out[len(iv):], padded)
		asym.ZeroBytes(padded)
		return out, nil
	default:
		mode, err := e.provider.BlockMode(key, nil, true)
		if err != nil {
			return nil, err
		}
		padded := padding.PadPKCS5(data)
		out := make([]byte, len(padded))
		mode.CryptBlocks(out, padded)
		asym.ZeroBytes(padded)
		return out, nil
	}
}

// Decrypt reverses Encrypt. A ciphertext whose padding does not check out
// returns ErrDecryptionFailed.
func (e *Engine) Decrypt(algorithm string, data, key []byte) ([]byte, error) {
	start := time.Now()
	out, err := e.decrypt(algorithm, data, key)
	e.monitor.Record("decrypt", time.Since(start), len(data), false, err)
	if err != nil {
		e.log("Decrypt").WithError(err, "DecryptError", algorithm).Debug("Decryption failed")
	}
	return out, err
}

func (e *Engine) decrypt(algorithm string, data, key []byte) ([]byte, error) {
	alg, err := normalizeAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	if err := limits.ValidateProcessingBuffer(data); err != nil {
		return nil, err
	}

	if alg == AlgRC4 {
		s, err := e.provider.Stream(key)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		s.XORKeyStream(out, data)
		return out, nil
	}

	var iv []byte
	body := data
	if alg == Alg3DESCBC {
		if len(data) < 2*blockcipher.BlockSize {
			return nil, fmt.Errorf("%w: cbc ciphertext of %d bytes", limits.ErrInvalidInput, len(data))
		}
		iv, body = data[:blockcipher.BlockSize], data[blockcipher.BlockSize:]
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty ciphertext", limits.ErrInvalidInput)
	}
	if err := limits.ValidateBlockAligned(len(body), blockcipher.BlockSize); err != nil {
		return nil, err
	}
	mode, err := e.provider.BlockMode(key, iv, false)
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(body))
	mode.CryptBlocks(plain, body)
	out, err := padding.UnpadPKCS5(plain)
	if err != nil {
		asym.ZeroBytes(plain)
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return out, nil
}

// Generate3DESKey returns a fresh 24-byte three-key Triple-DES key with odd
// parity and three distinct component keys.
func (e *Engine) Generate3DESKey() ([]byte, error) {
	key := make([]byte, 24)
	for attempt := 0; attempt < e.opts.MaxKeygenAttempts; attempt++ {
		if err := e.random(key); err != nil {
			return nil, err
		}
		blockcipher.SetOddParity(key)
		if !bytes.Equal(key[:8], key[8:16]) && !bytes.Equal(key[8:16], key[16:]) {
			return key, nil
		}
	}
	return nil, asym.ErrGenerationFailed
}

// KeyCheckValue returns the first three bytes of the encryption of a zero
// block under key, the usual way to compare DES keys without revealing them.
func (e *Engine) KeyCheckValue(key []byte) ([]byte, error) {
	mode, err := e.provider.BlockMode(key, nil, true)
	if err != nil {
		return nil, err
	}
	block := make([]byte, blockcipher.BlockSize)
	mode.CryptBlocks(block, block)
	return block[:3], nil
}

// Digest hashes data with the provider's implementation of alg.
func (e *Engine) Digest(alg string, data []byte) ([]byte, error) {
	start := time.Now()
	h, err := e.provider.Hash(alg)
	if err == nil {
		_, _ = h.Write(data)
	}
	e.monitor.Record("digest", time.Since(start), len(data), false, err)
	if err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// MAC computes HMAC over data with the provider's implementation of alg.
func (e *Engine) MAC(alg string, key, data []byte) ([]byte, error) {
	if _, err := e.provider.Hash(alg); err != nil {
		return nil, err
	}
	start := time.Now()
	m := hmac.New(func() hash.Hash { h, _ := e.provider.Hash(alg); return h }, key)
	_, _ = m.Write(data)
	e.monitor.Record("mac", time.Since(start), len(data), false, nil)
	return m.Sum(nil), nil
}

// VerifyMAC recomputes the MAC of data and compares it in constant time.
func (e *Engine) VerifyMAC(alg string, key, data, mac []byte) (bool, error) {
	want, err := e.MAC(alg, key, data)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(want, mac) == 1, nil
}

// EngineStats is a point-in-time view of an engine's counters.
// EntropySamples stays zero when Options.Entropy replaced the collector.
type EngineStats struct {
	Backend        string                      `json:"backend"`
	Operations     map[string]OperationMetrics `json:"operations"`
	RSACache       opcache.Stats               `json:"rsa_cache"`
	ISOCache       opcache.Stats               `json:"iso9796_cache"`
	PRNG           entropy.PRNGStats           `json:"prng"`
	EntropySamples uint64                      `json:"entropy_samples"`
	Uptime         time.Duration               `json:"uptime_ns"`
}

// Stats returns a snapshot of the operation monitor, caches and PRNG.
func (e *Engine) Stats() EngineStats {
	s := EngineStats{
		Backend:    e.provider.Name(),
		Operations: e.monitor.Snapshot(),
		RSACache:   e.rsaCache.Stats(),
		ISOCache:   e.isoCache.Stats(),
		PRNG:       e.prng.Stats(),
		Uptime:     e.monitor.Uptime(),
	}
	if e.collector != nil {
		s.EntropySamples = e.collector.Samples()
	}
	return s
}

// Monitor returns the engine's operation monitor.
func (e *Engine) Monitor() *Monitor { return e.monitor }

// ClearCaches drops every cached public-key result.
func (e *Engine) ClearCaches() {
	e.rsaCache.Reset()
	e.isoCache.Reset()
	e.log("ClearCaches").Debug("Operation caches cleared")
}
