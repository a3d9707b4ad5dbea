package opcache

import "sort"

// EvictionPolicy chooses which entries to drop when a cache is full. It is
// called with the cache lock held and may adjust entry usage counters.
type EvictionPolicy interface {
	Name() string
	Victims(entries []*Entry, capacity int) []*Entry
}

func sweepSize(n, capacity int) int {
	c := capacity / 5
	if c < 1 {
		c = 1
	}
	if c > n {
		c = n
	}
	return c
}

// AgingPolicy orders entries by (reused, successfulUses), removes a fifth of
// the capacity from whichever end of that order carries less total usage,
// and ages the survivors: every removed entry decrements the use counter of
// four evenly spaced remaining entries. It is an approximation of LRU that
// needs no per-access bookkeeping beyond a counter.
type AgingPolicy struct{}

func (AgingPolicy) Name() string { return "aging" }

func (AgingPolicy) Victims(entries []*Entry, capacity int) []*Entry {
	if len(entries) == 0 {
		return nil
	}
	sorted := append([]*Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.reused != b.reused {
			return !a.reused
		}
		if a.successfulUses != b.successfulUses {
			return a.successfulUses < b.successfulUses
		}
		return a.lastUsed < b.lastUsed
	})

	count := sweepSize(len(sorted), capacity)
	low, high := sorted[:count], sorted[len(sorted)-count:]
	victims, survivors := low, sorted[count:]
	if usage(high) < usage(low) {
		victims, survivors = high, sorted[:len(sorted)-count]
	}

	if n := len(survivors); n > 0 {
		step := n / 4
		if step < 1 {
			step = 1
		}
		for j := range victims {
			for k := 0; k < 4; k++ {
				e := survivors[(j+k*step)%n]
				if e.successfulUses > 0 {
					e.successfulUses--
				}
			}
		}
	}
	return victims
}

func usage(es []*Entry) uint64 {
	var total uint64
	for _, e := range es {
		total += e.successfulUses
	}
	return total
}

// LRUPolicy removes the least recently used fifth of the capacity.
type LRUPolicy struct{}

func (LRUPolicy) Name() string { return "lru" }

func (LRUPolicy) Victims(entries []*Entry, capacity int) []*Entry {
	sorted := append([]*Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].lastUsed < sorted[j].lastUsed })
	return sorted[:sweepSize(len(sorted), capacity)]
}

// PolicyByName returns the policy registered under name, or false.
func PolicyByName(name string) (EvictionPolicy, bool) {
	switch name {
	case "", "aging":
		return AgingPolicy{}, true
	case "lru":
		return LRUPolicy{}, true
	default:
		return nil, false
	}
}
