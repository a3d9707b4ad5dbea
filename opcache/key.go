package opcache

import (
	"bytes"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Op names the cached operation.
type Op uint8

const (
	OpRSA Op = iota + 1
	OpSignISO9796
	OpVerifyISO9796
)

func (o Op) String() string {
	switch o {
	case OpRSA:
		return "rsa"
	case OpSignISO9796:
		return "sign_iso9796"
	case OpVerifyISO9796:
		return "verify_iso9796"
	default:
		return "unknown"
	}
}

// Key identifies an operation by the full value of its inputs. Two keys are
// equal only if every operand buffer and scalar matches.
type Key struct {
	Op       Op
	Flags    uint32
	Material [][]byte
	Data     []byte
	Off, N   int
	Aux      []byte
}

// Equal reports field-wise equality.
func (k *Key) Equal(o *Key) bool {
	if k.Op != o.Op || k.Flags != o.Flags || k.Off != o.Off || k.N != o.N {
		return false
	}
	if len(k.Material) != len(o.Material) {
		return false
	}
	for i := range k.Material {
		if !bytes.Equal(k.Material[i], o.Material[i]) {
			return false
		}
	}
	return bytes.Equal(k.Data, o.Data) && bytes.Equal(k.Aux, o.Aux)
}

// Clone returns a deep copy, so cached keys never alias caller buffers.
func (k *Key) Clone() *Key {
	c := *k
	c.Material = make([][]byte, len(k.Material))
	for i, m := range k.Material {
		c.Material[i] = bytes.Clone(m)
	}
	c.Data = bytes.Clone(k.Data)
	c.Aux = bytes.Clone(k.Aux)
	return &c
}

// Hasher maps a key to its bucket. Collisions are resolved with Equal.
type Hasher func(*Key) uint64

// XXHash combines every field of the key with length prefixes into one
// xxhash digest.
func XXHash(k *Key) uint64 {
	d := xxhash.New()
	var hdr [8]byte
	writeInt := func(v uint64) {
		binary.BigEndian.PutUint64(hdr[:], v)
		_, _ = d.Write(hdr[:])
	}
	writeBytes := func(b []byte) {
		writeInt(uint64(len(b)))
		_, _ = d.Write(b)
	}

	writeInt(uint64(k.Op)<<32 | uint64(k.Flags))
	writeInt(uint64(len(k.Material)))
	for _, m := range k.Material {
		writeBytes(m)
	}
	writeBytes(k.Data)
	writeInt(uint64(k.Off))
	writeInt(uint64(k.N))
	writeBytes(k.Aux)
	return d.Sum64()
}

// Result is a cached outcome: the bytes of a byte-returning operation or the
// verdict of a boolean one.
type Result struct {
	Bytes []byte
	OK    bool
}

func (r Result) clone() Result {
	return Result{Bytes: bytes.Clone(r.Bytes), OK: r.OK}
}
