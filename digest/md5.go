package digest

import (
	"fmt"
	"math/bits"

	"github.com/opd-ai/cryptoengine/bitio"
)

const (
	// MD5Size is the size of an MD5 checksum in bytes
	MD5Size = 16
	// MD5BlockSize is the MD5 block size in bytes
	MD5BlockSize = 64

	md5Magic         = "md5\x01"
	md5MarshaledSize = len(md5Magic) + 4*4 + MD5BlockSize + 8
)

var md5IV = [4]uint32{0x67452301, 0xefcdab89, 0x98badcfe, 0x10325476}

// md5K[i] = floor(|sin(i+1)| * 2^32)
var md5K = [64]uint32{
	0xd76aa478, 0xe8c7b756, 0x242070db, 0xc1bdceee,
	0xf57c0faf, 0x4787c62a, 0xa8304613, 0xfd469501,
	0x698098d8, 0x8b44f7af, 0xffff5bb1, 0x895cd7be,
	0x6b901122, 0xfd987193, 0xa679438e, 0x49b40821,
	0xf61e2562, 0xc040b340, 0x265e5a51, 0xe9b6c7aa,
	0xd62f105d, 0x02441453, 0xd8a1e681, 0xe7d3fbc8,
	0x21e1cde6, 0xc33707d6, 0xf4d50d87, 0x455a14ed,
	0xa9e3e905, 0xfcefa3f8, 0x676f02d9, 0x8d2a4c8a,
	0xfffa3942, 0x8771f681, 0x6d9d6122, 0xfde5380c,
	0xa4beea44, 0x4bdecfa9, 0xf6bb4b60, 0xbebfbc70,
	0x289b7ec6, 0xeaa127fa, 0xd4ef3085, 0x04881d05,
	0xd9d4d039, 0xe6db99e5, 0x1fa27cf8, 0xc4ac5665,
	0xf4292244, 0x432aff97, 0xab9423a7, 0xfc93a039,
	0x655b59c3, 0x8f0ccc92, 0xffeff47d, 0x85845dd1,
	0x6fa87e4f, 0xfe2ce6e0, 0xa3014314, 0x4e0811a1,
	0xf7537e82, 0xbd3af235, 0x2ad7d2bb, 0xeb86d391,
}

var md5Shift = [4][4]int{
	{7, 12, 17, 22},
	{5, 9, 14, 20},
	{4, 11, 16, 23},
	{6, 10, 15, 21},
}

// MD5 is a streaming MD5 digest.
type MD5 struct {
	h   [4]uint32
	x   [MD5BlockSize]byte
	nx  int
	len uint64
}

// NewMD5 returns an MD5 digest in its initial state.
func NewMD5() *MD5 {
	d := new(MD5)
	d.Reset()
	return d
}

// NewMD5WithState resumes an MD5 chain from chaining value h after length
// bytes have been absorbed. length must be a whole number of blocks.
func NewMD5WithState(h [4]uint32, length uint64) (*MD5, error) {
	if length%MD5BlockSize != 0 {
		return nil, fmt.Errorf("%w: length %d not a multiple of %d", ErrInvalidState, length, MD5BlockSize)
	}
	return &MD5{h: h, len: length}, nil
}

// SumMD5 returns the MD5 checksum of data.
func SumMD5(data []byte) [MD5Size]byte {
	d := NewMD5()
	d.Write(data)
	return d.checkSum()
}

func (d *MD5) Reset() {
	d.h = md5IV
	d.nx = 0
	d.len = 0
}

func (d *MD5) Size() int { return MD5Size }

func (d *MD5) BlockSize() int { return MD5BlockSize }

func (d *MD5) Write(p []byte) (int, error) {
	n := len(p)
	d.len += uint64(n)
	if d.nx > 0 {
		c := copy(d.x[d.nx:], p)
		d.nx += c
		if d.nx == MD5BlockSize {
			blockMD5(&d.h, d.x[:])
			d.nx = 0
		}
		p = p[c:]
	}
	if len(p) >= MD5BlockSize {
		m := len(p) &^ (MD5BlockSize - 1)
		blockMD5(&d.h, p[:m])
		p = p[m:]
	}
	if len(p) > 0 {
		d.nx = copy(d.x[:], p)
	}
	return n, nil
}

func (d *MD5) Sum(in []byte) []byte {
	d0 := *d
	sum := d0.checkSum()
	return append(in, sum[:]...)
}

// State returns the chaining value and the number of bytes absorbed. ok is
// false while a partial block is buffered.
func (d *MD5) State() (h [4]uint32, length uint64, ok bool) {
	return d.h, d.len, d.nx == 0
}

func (d *MD5) checkSum() [MD5Size]byte {
	length := d.len
	var tmp [MD5BlockSize + 8]byte
	tmp[0] = 0x80
	var t uint64
	if length%MD5BlockSize < 56 {
		t = 56 - length%MD5BlockSize
	} else {
		t = MD5BlockSize + 56 - length%MD5BlockSize
	}

	padlen := tmp[:t+8]
	bitio.PutLSBF64(padlen, int(t), length<<3)
	d.Write(padlen)

	var out [MD5Size]byte
	bitio.PutLSBFWords(out[:], 0, d.h[:])
	return out
}

func (d *MD5) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, md5MarshaledSize)
	b = append(b, md5Magic...)
	var w [4]byte
	for _, v := range d.h {
		bitio.PutMSBF32(w[:], 0, v)
		b = append(b, w[:]...)
	}
	b = append(b, d.x[:d.nx]...)
	b = append(b, make([]byte, MD5BlockSize-d.nx)...)
	var l [8]byte
	bitio.PutMSBF64(l[:], 0, d.len)
	return append(b, l[:]...), nil
}

func (d *MD5) UnmarshalBinary(b []byte) error {
	if len(b) < len(md5Magic) || string(b[:len(md5Magic)]) != md5Magic {
		return fmt.Errorf("%w: md5 magic mismatch", ErrInvalidState)
	}
	if len(b) != md5MarshaledSize {
		return fmt.Errorf("%w: md5 state of %d bytes", ErrInvalidState, len(b))
	}
	b = b[len(md5Magic):]
	for i := range d.h {
		d.h[i] = bitio.MSBF32(b, 4*i)
	}
	b = b[16:]
	copy(d.x[:], b[:MD5BlockSize])
	d.len = bitio.MSBF64(b, MD5BlockSize)
	d.nx = int(d.len % MD5BlockSize)
	return nil
}

func blockMD5(h *[4]uint32, p []byte) {
	var x [16]uint32
	for len(p) >= MD5BlockSize {
		bitio.LSBFWords(x[:], p, 0)
		a, b, c, d := h[0], h[1], h[2], h[3]

		for i := 0; i < 64; i++ {
			var f uint32
			var g int
			switch {
			case i < 16:
				f, g = (b&c)|(^b&d), i
			case i < 32:
				f, g = (d&b)|(^d&c), (5*i+1)&15
			case i < 48:
				f, g = b^c^d, (3*i+5)&15
			default:
				f, g = c^(b|^d), (7*i)&15
			}
			f += a + md5K[i] + x[g]
			a, d, c = d, c, b
			b += bits.RotateLeft32(f, md5Shift[i>>4][i&3])
		}

		h[0] += a
		h[1] += b
		h[2] += c
		h[3] += d
		p = p[MD5BlockSize:]
	}
}
