package cryptoengine

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cryptoengine/asym"
	"github.com/opd-ai/cryptoengine/entropy"
	"github.com/opd-ai/cryptoengine/limits"
	"github.com/opd-ai/cryptoengine/logging"
	"github.com/opd-ai/cryptoengine/opcache"
)

// Backend selects the implementation behind symmetric ciphers and digests.
type Backend string

const (
	// BackendLibrary delegates to the Go standard library. It is the default.
	BackendLibrary Backend = "library"
	// BackendReference uses the from-scratch implementations in this module.
	BackendReference Backend = "reference"
)

// Options configures an Engine. The zero value is not valid; start from
// NewOptions or LoadOptions.
type Options struct {
	Backend           Backend `toml:"backend"`
	CacheCapacity     int     `toml:"cache_capacity"`
	EvictionPolicy    string  `toml:"eviction_policy"`
	TRMix             int     `toml:"tr_mix"`
	MaxKeygenAttempts int     `toml:"max_keygen_attempts"`
	SelfTestOnSeed    bool    `toml:"self_test_on_seed"`
	LogLevel          string  `toml:"log_level"`

	// Clock drives the entropy collector. Nil selects the system clock.
	Clock entropy.Clock `toml:"-"`
	// Entropy replaces the jitter collector as the PRNG's seed source.
	Entropy io.Reader `toml:"-"`
	// Logger receives engine log output. Nil creates a logger at LogLevel.
	Logger *logrus.Logger `toml:"-"`
}

// NewOptions creates a new default Options.
func NewOptions() *Options {
	return &Options{
		Backend:           BackendLibrary,
		CacheCapacity:     opcache.DefaultCapacity,
		EvictionPolicy:    "aging",
		TRMix:             entropy.DefaultTRMix,
		MaxKeygenAttempts: asym.DefaultMaxAttempts,
		SelfTestOnSeed:    false,
		LogLevel:          "info",
	}
}

// LoadOptions reads a TOML file over the defaults and validates the result.
// Unknown keys are rejected.
func LoadOptions(path string) (*Options, error) {
	opts := NewOptions()
	meta, err := toml.DecodeFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: unknown option(s) %s", limits.ErrInvalidInput, strings.Join(keys, ", "))
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options in %s: %w", path, err)
	}
	return opts, nil
}

// SaveOptions writes opts to path as TOML with owner-only permissions.
func SaveOptions(opts *Options, path string) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create options file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(opts); err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	return nil
}

// Validate reports the first invalid field.
func (o *Options) Validate() error {
	switch o.Backend {
	case BackendLibrary, BackendReference:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, o.Backend)
	}
	if o.CacheCapacity <= 0 {
		return fmt.Errorf("%w: cache capacity %d", limits.ErrInvalidInput, o.CacheCapacity)
	}
	if _, ok := opcache.PolicyByName(o.EvictionPolicy); !ok {
		return fmt.Errorf("%w: eviction policy %q", limits.ErrInvalidInput, o.EvictionPolicy)
	}
	if o.TRMix < entropy.MixInterval {
		return fmt.Errorf("%w: tr_mix %d below %d", limits.ErrInvalidInput, o.TRMix, entropy.MixInterval)
	}
	if o.MaxKeygenAttempts <= 0 {
		return fmt.Errorf("%w: max keygen attempts %d", limits.ErrInvalidInput, o.MaxKeygenAttempts)
	}
	if _, err := logging.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", limits.ErrInvalidInput, err)
	}
	return nil
}
