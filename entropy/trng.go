// Package entropy provides a timing-jitter entropy collector and the
// digest-mixed pseudo-random stream seeded from it.
package entropy

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cryptoengine/logging"
)

// Channels is the number of independent jitter channels.
const Channels = 16

// ETB lists the sample counts a channel folds together before emitting one
// bit. A channel moves up the table while its raw bits look biased and down
// again once they even out.
var ETB = [8]int{1, 2, 4, 8, 16, 32, 64, 128}

const (
	initialThreshold = 3
	// bias is re-evaluated after this many raw samples
	biasWindow = 64
	// sample counters are halved at this size so old behaviour fades
	biasHorizon = 1024
)

type channel struct {
	ones, samples uint32
	threshold     int
	acc           byte
	folded        int
	last          int64
}

// ChannelStats is a snapshot of one channel's bias estimate.
type ChannelStats struct {
	Ones      uint32 `json:"ones"`
	Samples   uint32 `json:"samples"`
	Threshold int    `json:"threshold"`
}

// Collector harvests bits from the low-order timing of a busy loop. Each
// output bit comes from the next channel in turn and is the XOR of ETB[t]
// raw samples, so a read always terminates regardless of how biased the
// clock is. Channel state is kept for the collector's lifetime.
type Collector struct {
	mu       sync.Mutex
	clock    Clock
	channels [Channels]channel
	next     int
	sink     uint64
	total    uint64
	logger   *logrus.Logger
}

// NewCollector returns a collector sampling clock; nil selects SystemClock.
func NewCollector(clock Clock) *Collector {
	if clock == nil {
		clock = SystemClock{}
	}
	c := &Collector{clock: clock}
	for i := range c.channels {
		c.channels[i].threshold = initialThreshold
	}
	return c
}

// SetLogger routes harvest logs to l. A nil l restores the standard logger.
func (c *Collector) SetLogger(l *logrus.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
}

// Read fills p with harvested bytes. It never fails.
func (c *Collector) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range p {
		var b byte
		for bit := 0; bit < 8; bit++ {
			b = b<<1 | c.nextBit()
		}
		p[i] = b
	}
	logging.NewLogger("entropy", "Collector.Read").
		WithLogger(c.logger).
		WithField("bytes", len(p)).
		WithField("samples", c.total).
		Debug("Harvested entropy")
	return len(p), nil
}

func (c *Collector) nextBit() byte {
	idx := c.next
	c.next = (c.next + 1) % Channels
	ch := &c.channels[idx]

	for {
		raw := c.sample(idx, ch)
		ch.acc ^= raw
		ch.folded++
		ch.ones += uint32(raw)
		ch.samples++
		if ch.samples%biasWindow == 0 {
			adapt(ch)
		}
		if ch.folded >= ETB[ch.threshold] {
			out := ch.acc
			ch.acc, ch.folded = 0, 0
			return out
		}
	}
}

// sample times a busy loop whose length depends on the channel and the
// previous measurement, and returns the parity of the low bits of the delta.
func (c *Collector) sample(idx int, ch *channel) byte {
	start := c.clock.Now().UnixNano()
	n := 16 + idx*7 + int(ch.last&0x3f)
	for i := 0; i < n; i++ {
		c.sink = c.sink*6364136223846793005 + uint64(i) + 1442695040888963407
	}
	d := c.clock.Now().UnixNano() - start
	c.total++
	raw := byte(d ^ d>>1 ^ d>>2 ^ d>>3 ^ ch.last)
	ch.last = d
	return raw & 1
}

func adapt(ch *channel) {
	dev := int64(2*ch.ones) - int64(ch.samples)
	if dev < 0 {
		dev = -dev
	}
	s := int64(ch.samples)
	switch {
	case 8*dev > s && ch.threshold < len(ETB)-1:
		ch.threshold++
	case 32*dev < s && ch.threshold > 0:
		ch.threshold--
	}
	if ch.samples >= biasHorizon {
		ch.ones /= 2
		ch.samples /= 2
	}
}

// Stats returns the current bias estimate of every channel.
func (c *Collector) Stats() [Channels]ChannelStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [Channels]ChannelStats
	for i, ch := range c.channels {
		out[i] = ChannelStats{Ones: ch.ones, Samples: ch.samples, Threshold: ch.threshold}
	}
	return out
}

// Samples returns the number of raw timing samples taken so far.
func (c *Collector) Samples() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}
