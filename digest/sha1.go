package digest

import (
	"fmt"
	"math/bits"

	"github.com/opd-ai/cryptoengine/bitio"
)

const (
	// SHA1Size is the size of a SHA-1 checksum in bytes
	SHA1Size = 20
	// SHA1BlockSize is the SHA-1 block size in bytes
	SHA1BlockSize = 64

	sha1Magic         = "sha\x01"
	sha1MarshaledSize = len(sha1Magic) + 5*4 + SHA1BlockSize + 8
)

var sha1IV = [5]uint32{0x67452301, 0xEFCDAB89, 0x98BADCFE, 0x10325476, 0xC3D2E1F0}

// SHA1 is a streaming SHA-1 digest.
type SHA1 struct {
	h   [5]uint32
	x   [SHA1BlockSize]byte
	nx  int
	len uint64
}

// NewSHA1 returns a SHA-1 digest in its initial state.
func NewSHA1() *SHA1 {
	d := new(SHA1)
	d.Reset()
	return d
}

// NewSHA1WithState resumes a SHA-1 chain from chaining value h after length
// bytes have been absorbed. length must be a whole number of blocks; it is
// folded into the final bit-length padding.
func NewSHA1WithState(h [5]uint32, length uint64) (*SHA1, error) {
	if length%SHA1BlockSize != 0 {
		return nil, fmt.Errorf("%w: length %d not a multiple of %d", ErrInvalidState, length, SHA1BlockSize)
	}
	return &SHA1{h: h, len: length}, nil
}

// SumSHA1 returns the SHA-1 checksum of data.
func SumSHA1(data []byte) [SHA1Size]byte {
	d := NewSHA1()
	d.Write(data)
	return d.checkSum()
}

func (d *SHA1) Reset() {
	d.h = sha1IV
	d.nx = 0
	d.len = 0
}

func (d *SHA1) Size() int { return SHA1Size }

func (d *SHA1) BlockSize() int { return SHA1BlockSize }

func (d *SHA1) Write(p []byte) (int, error) {
	n := len(p)
	d.len += uint64(n)
	if d.nx > 0 {
		c := copy(d.x[d.nx:], p)
		d.nx += c
		if d.nx == SHA1BlockSize {
			blockSHA1(&d.h, d.x[:])
			d.nx = 0
		}
		p = p[c:]
	}
	if len(p) >= SHA1BlockSize {
		m := len(p) &^ (SHA1BlockSize - 1)
		blockSHA1(&d.h, p[:m])
		p = p[m:]
	}
	if len(p) > 0 {
		d.nx = copy(d.x[:], p)
	}
	return n, nil
}

// Sum appends the current checksum to in without changing the running state.
func (d *SHA1) Sum(in []byte) []byte {
	d0 := *d
	sum := d0.checkSum()
	return append(in, sum[:]...)
}

// State returns the chaining value and the number of bytes absorbed. ok is
// false while a partial block is buffered.
func (d *SHA1) State() (h [5]uint32, length uint64, ok bool) {
	return d.h, d.len, d.nx == 0
}

func (d *SHA1) checkSum() [SHA1Size]byte {
	length := d.len
	var tmp [SHA1BlockSize + 8]byte
	tmp[0] = 0x80
	var t uint64
	if length%SHA1BlockSize < 56 {
		t = 56 - length%SHA1BlockSize
	} else {
		t = SHA1BlockSize + 56 - length%SHA1BlockSize
	}

	padlen := tmp[:t+8]
	bitio.PutMSBF64(padlen, int(t), length<<3)
	d.Write(padlen)

	var out [SHA1Size]byte
	bitio.PutMSBFWords(out[:], 0, d.h[:])
	return out
}

func (d *SHA1) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, sha1MarshaledSize)
	b = append(b, sha1Magic...)
	var w [4]byte
	for _, v := range d.h {
		bitio.PutMSBF32(w[:], 0, v)
		b = append(b, w[:]...)
	}
	b = append(b, d.x[:d.nx]...)
	b = append(b, make([]byte, SHA1BlockSize-d.nx)...)
	var l [8]byte
	bitio.PutMSBF64(l[:], 0, d.len)
	return append(b, l[:]...), nil
}

func (d *SHA1) UnmarshalBinary(b []byte) error {
	if len(b) < len(sha1Magic) || string(b[:len(sha1Magic)]) != sha1Magic {
		return fmt.Errorf("%w: sha1 magic mismatch", ErrInvalidState)
	}
	if len(b) != sha1MarshaledSize {
		return fmt.Errorf("%w: sha1 state of %d bytes", ErrInvalidState, len(b))
	}
	b = b[len(sha1Magic):]
	for i := range d.h {
		d.h[i] = bitio.MSBF32(b, 4*i)
	}
	b = b[20:]
	copy(d.x[:], b[:SHA1BlockSize])
	d.len = bitio.MSBF64(b, SHA1BlockSize)
	d.nx = int(d.len % SHA1BlockSize)
	return nil
}

func blockSHA1(h *[5]uint32, p []byte) {
	var w [16]uint32
	h0, h1, h2, h3, h4 := h[0], h[1], h[2], h[3], h[4]
	for len(p) >= SHA1BlockSize {
		bitio.MSBFWords(w[:], p, 0)
		a, b, c, d, e := h0, h1, h2, h3, h4

		for i := 0; i < 80; i++ {
			if i >= 16 {
				tmp := w[(i-3)&0xf] ^ w[(i-8)&0xf] ^ w[(i-14)&0xf] ^ w[i&0xf]
				w[i&0xf] = bits.RotateLeft32(tmp, 1)
			}
			var f, k uint32
			switch {
			case i < 20:
				f, k = b&c|^b&d, 0x5A827999
			case i < 40:
				f, k = b^c^d, 0x6ED9EBA1
			case i < 60:
				f, k = ((b|c)&d)|(b&c), 0x8F1BBCDC
			default:
				f, k = b^c^d, 0xCA62C1D6
			}
			t := bits.RotateLeft32(a, 5) + f + e + w[i&0xf] + k
			a, b, c, d, e = t, a, bits.RotateLeft32(b, 30), c, d
		}

		h0 += a
		h1 += b
		h2 += c
		h3 += d
		h4 += e
		p = p[SHA1BlockSize:]
	}
	h[0], h[1], h[2], h[3], h[4] = h0, h1, h2, h3, h4
}
