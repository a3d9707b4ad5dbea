package entropy

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cryptoengine/bitio"
	"github.com/opd-ai/cryptoengine/digest"
	"github.com/opd-ai/cryptoengine/logging"
)

const (
	// SeedSize is the size of the PRNG's internal seed.
	SeedSize = 32
	// MixInterval is the number of output bytes served per seed digest.
	MixInterval = 8
	// DefaultTRMix is the default number of output bytes between entropy
	// reseeds.
	DefaultTRMix = 128
)

// PRNGStats reports how often the generator has re-mixed and reseeded.
type PRNGStats struct {
	BytesOut uint64 `json:"bytes_out"`
	Remixes  uint64 `json:"remixes"`
	Reseeds  uint64 `json:"reseeds"`
}

// PRNG expands entropy from a source into an arbitrary-length stream. Every
// MixInterval bytes the seed is digested with SHA-1 together with a counter;
// part of the digest is served and the rest replaces the oldest seed bytes.
// Every trMix output bytes fresh entropy is folded into the seed. All state
// is guarded by one mutex; callers should batch requests.
type PRNG struct {
	mu         sync.Mutex
	source     io.Reader
	trMix      int
	seed       [SeedSize]byte
	pool       [MixInterval]byte
	cursor     int
	mixCounter uint64
	sinceMix   int
	seeded     bool
	stats      PRNGStats
	logger     *logrus.Logger
}

// NewPRNG returns a generator reseeding from source every trMix bytes. A
// trMix of zero or less selects DefaultTRMix; a nil source selects a new
// Collector on the system clock.
func NewPRNG(source io.Reader, trMix int) *PRNG {
	if trMix <= 0 {
		trMix = DefaultTRMix
	}
	if source == nil {
		source = NewCollector(nil)
	}
	return &PRNG{source: source, trMix: trMix, cursor: MixInterval}
}

// SetLogger routes reseed logs to l. A nil l restores the standard logger.
func (r *PRNG) SetLogger(l *logrus.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = l
}

// Read fills p with pseudo-random bytes. It fails only if the entropy source
// does.
func (r *PRNG) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.seeded {
		if err := r.reseed(); err != nil {
			return 0, err
		}
	}
	for i := range p {
		if r.sinceMix >= r.trMix {
			if err := r.reseed(); err != nil {
				return i, err
			}
		}
		if r.cursor == MixInterval {
			r.remix()
		}
		p[i] = r.pool[r.cursor]
		r.pool[r.cursor] = 0
		r.cursor++
		r.sinceMix++
	}
	r.stats.BytesOut += uint64(len(p))
	return len(p), nil
}

// Seeded reports whether the first entropy harvest has happened.
func (r *PRNG) Seeded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seeded
}

// Reseed forces an entropy harvest before the next byte is served.
func (r *PRNG) Reseed() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reseed()
}

// Stats returns a snapshot of the generator's counters.
func (r *PRNG) Stats() PRNGStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *PRNG) remix() {
	var buf [SeedSize + 8]byte
	copy(buf[:], r.seed[:])
	r.mixCounter++
	bitio.PutMSBF64(buf[:], SeedSize, r.mixCounter)
	d := digest.SumSHA1(buf[:])

	copy(r.pool[:], d[:MixInterval])
	keep := len(d) - MixInterval
	copy(r.seed[:], r.seed[keep:])
	copy(r.seed[SeedSize-keep:], d[MixInterval:])
	r.cursor = 0
	r.stats.Remixes++
}

func (r *PRNG) reseed() error {
	var fresh [SeedSize]byte
	if _, err := io.ReadFull(r.source, fresh[:]); err != nil {
		logging.NewLogger("entropy", "PRNG.reseed").
			WithLogger(r.logger).
			WithError(err, "EntropyError", "reseed").
			Error("Entropy source failed")
		return fmt.Errorf("entropy: reseeding: %w", err)
	}

	var buf [1 + 2*SeedSize]byte
	copy(buf[1:], r.seed[:])
	copy(buf[1+SeedSize:], fresh[:])
	lo := digest.SumSHA1(buf[:])
	buf[0] = 1
	hi := digest.SumSHA1(buf[:])
	copy(r.seed[:], lo[:])
	copy(r.seed[len(lo):], hi[:SeedSize-len(lo)])

	for i := range fresh {
		fresh[i] = 0
	}
	r.seeded = true
	r.sinceMix = 0
	r.cursor = MixInterval
	r.stats.Reseeds++

	logging.NewLogger("entropy", "PRNG.reseed").
		WithLogger(r.logger).
		WithField("reseeds", r.stats.Reseeds).
		WithField("bytes_out", r.stats.BytesOut).
		Debug("PRNG reseeded")
	return nil
}
