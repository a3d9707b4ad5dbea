package opcache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyFor(i int) *Key {
	return &Key{
		Op:       OpRSA,
		Flags:    1,
		Material: [][]byte{[]byte("modulus"), []byte("exponent")},
		Data:     []byte(fmt.Sprintf("input-%d", i)),
		Off:      0,
		N:        8,
	}
}

func TestGetPutCountsHits(t *testing.T) {
	c := New(10)
	k := keyFor(1)

	_, ok := c.Get(k)
	assert.False(t, ok)

	c.Put(k, Result{Bytes: []byte("out")})
	for i := 1; i <= 3; i++ {
		r, ok := c.Get(keyFor(1))
		require.True(t, ok)
		assert.Equal(t, []byte("out"), r.Bytes)

		e, ok := c.Peek(k)
		require.True(t, ok)
		assert.Equal(t, uint64(i), e.SuccessfulUses())
		assert.True(t, e.Reused())
	}
	assert.Equal(t, Stats{Hits: 3, Misses: 1, Size: 1}, c.Stats())
}

func TestResultsAreCopies(t *testing.T) {
	c := New(10)
	k := keyFor(1)
	out := []byte("result")
	c.Put(k, Result{Bytes: out})
	out[0] = 'X'
	k.Data[0] = 'X'

	r, ok := c.Get(keyFor(1))
	require.True(t, ok, "mutating the caller's key must not move the entry")
	assert.Equal(t, []byte("result"), r.Bytes)

	r.Bytes[0] = 'Y'
	again, _ := c.Get(keyFor(1))
	assert.Equal(t, []byte("result"), again.Bytes)
}

func TestKeyEquality(t *testing.T) {
	base := keyFor(1)
	variants := map[string]func(k *Key){
		"op":        func(k *Key) { k.Op = OpSignISO9796 },
		"flags":     func(k *Key) { k.Flags = 2 },
		"material":  func(k *Key) { k.Material[1] = []byte("exponenT") },
		"elements":  func(k *Key) { k.Material = k.Material[:1] },
		"data":      func(k *Key) { k.Data = append(k.Data, 0) },
		"offset":    func(k *Key) { k.Off = 1 },
		"length":    func(k *Key) { k.N = 7 },
		"aux":       func(k *Key) { k.Aux = []byte{0} },
		"split mat": func(k *Key) { k.Material = [][]byte{[]byte("modulusexp"), []byte("onent")} },
	}
	assert.True(t, base.Equal(keyFor(1)))
	assert.Equal(t, XXHash(base), XXHash(keyFor(1)))
	for name, mutate := range variants {
		t.Run(name, func(t *testing.T) {
			k := base.Clone()
			mutate(k)
			assert.False(t, base.Equal(k))
			assert.NotEqual(t, XXHash(base), XXHash(k))
		})
	}
}

func TestCollisionsResolvedByEquality(t *testing.T) {
	c := New(100, WithHasher(func(*Key) uint64 { return 7 }))
	for i := 0; i < 50; i++ {
		c.Put(keyFor(i), Result{Bytes: []byte{byte(i)}})
	}
	for i := 0; i < 50; i++ {
		r, ok := c.Get(keyFor(i))
		require.True(t, ok)
		assert.Equal(t, []byte{byte(i)}, r.Bytes)
	}
	_, ok := c.Get(keyFor(50))
	assert.False(t, ok)
	assert.Equal(t, 50, c.Len())
}

func TestCapacityBound(t *testing.T) {
	for _, policy := range []EvictionPolicy{AgingPolicy{}, LRUPolicy{}} {
		t.Run(policy.Name(), func(t *testing.T) {
			const capacity = 50
			c := New(capacity, WithPolicy(policy))
			for i := 0; i < 10*capacity; i++ {
				c.Put(keyFor(i), Result{OK: true})
				require.LessOrEqual(t, c.Len(), capacity)
			}
			st := c.Stats()
			assert.Equal(t, uint64(10*capacity-c.Len()), st.Evictions)
			assert.Equal(t, c.Len(), st.Size)
		})
	}
}

func TestAgingKeepsHotEntries(t *testing.T) {
	const capacity = 20
	c := New(capacity)
	hot := keyFor(-1)
	c.Put(hot, Result{OK: true})
	for i := 0; i < 5*capacity; i++ {
		c.Get(hot)
		c.Put(keyFor(i), Result{})
	}
	_, ok := c.Peek(hot)
	assert.True(t, ok, "a key hit on every round must survive sweeps")
}

func TestAgingDecrementsSurvivors(t *testing.T) {
	entries := make([]*Entry, 10)
	for i := range entries {
		entries[i] = &Entry{key: keyFor(i), successfulUses: uint64(10 + i), reused: true, lastUsed: uint64(i)}
	}
	before := usage(entries)
	victims := AgingPolicy{}.Victims(entries, 10)

	require.Len(t, victims, 2)
	assert.Equal(t, uint64(10), victims[0].successfulUses)
	assert.Equal(t, uint64(11), victims[1].successfulUses)
	// 2 victims x 4 neighbours, each decremented once
	assert.Equal(t, before-8, usage(entries))
}

func TestAgingPrefersUnreused(t *testing.T) {
	entries := []*Entry{
		{key: keyFor(0), reused: true, successfulUses: 0, lastUsed: 1},
		{key: keyFor(1), reused: false, successfulUses: 5, lastUsed: 2},
		{key: keyFor(2), reused: true, successfulUses: 9, lastUsed: 3},
	}
	victims := AgingPolicy{}.Victims(entries, 5)
	require.Len(t, victims, 1)
	assert.Same(t, entries[1], victims[0])
}

func TestLRUPolicy(t *testing.T) {
	c := New(5, WithPolicy(LRUPolicy{}))
	for i := 0; i < 5; i++ {
		c.Put(keyFor(i), Result{})
	}
	c.Get(keyFor(0))
	c.Put(keyFor(5), Result{})

	_, ok := c.Peek(keyFor(1))
	assert.False(t, ok, "least recently used entry goes first")
	_, ok = c.Peek(keyFor(0))
	assert.True(t, ok)
}

func TestPolicyByName(t *testing.T) {
	p, ok := PolicyByName("")
	require.True(t, ok)
	assert.Equal(t, "aging", p.Name())
	p, ok = PolicyByName("lru")
	require.True(t, ok)
	assert.Equal(t, "lru", p.Name())
	_, ok = PolicyByName("fifo")
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultCapacity, c.Capacity())
	c.Put(keyFor(1), Result{})
	c.Get(keyFor(1))
	c.Reset()
	assert.Equal(t, Stats{}, c.Stats())
}

func TestConcurrentAccess(t *testing.T) {
	c := New(64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := keyFor((g*31 + i) % 200)
				if _, ok := c.Get(k); !ok {
					c.Put(k, Result{Bytes: k.Data})
				}
			}
		}(g)
	}
	wg.Wait()
	st := c.Stats()
	assert.LessOrEqual(t, st.Size, 64)
	assert.Equal(t, uint64(8*500), st.Hits+st.Misses)
}

func BenchmarkXXHash(b *testing.B) {
	k := keyFor(1)
	k.Material = [][]byte{make([]byte, 128), {1, 0, 1}}
	for i := 0; i < b.N; i++ {
		_ = XXHash(k)
	}
}
