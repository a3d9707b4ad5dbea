package digest

const (
	// MD2Size is the size of an MD2 checksum in bytes
	MD2Size = 16
	// MD2BlockSize is the MD2 block size in bytes
	MD2BlockSize = 16
)

// md2S is the RFC 1319 substitution table built from the digits of pi.
var md2S = [256]byte{
	41, 46, 67, 201, 162, 216, 124, 1, 61, 54, 84, 161, 236, 240, 6, 19,
	98, 167, 5, 243, 192, 199, 115, 140, 152, 147, 43, 217, 188, 76, 130, 202,
	30, 155, 87, 60, 253, 212, 224, 22, 103, 66, 111, 24, 138, 23, 229, 18,
	190, 78, 196, 214, 218, 158, 222, 73, 160, 251, 245, 142, 187, 47, 238, 122,
	169, 104, 121, 145, 21, 178, 7, 63, 148, 194, 16, 137, 11, 34, 95, 33,
	128, 127, 93, 154, 90, 144, 50, 39, 53, 62, 204, 231, 191, 247, 151, 3,
	255, 25, 48, 179, 72, 165, 181, 209, 215, 94, 146, 42, 172, 86, 170, 198,
	79, 184, 56, 210, 150, 164, 125, 182, 118, 252, 107, 226, 156, 116, 4, 241,
	69, 157, 112, 89, 100, 113, 135, 32, 134, 91, 207, 101, 230, 45, 168, 2,
	27, 96, 37, 173, 174, 176, 185, 246, 28, 70, 97, 105, 52, 64, 126, 15,
	85, 71, 163, 35, 221, 81, 175, 58, 195, 92, 249, 206, 186, 197, 234, 38,
	44, 83, 13, 110, 133, 40, 132, 9, 211, 223, 205, 244, 65, 129, 77, 82,
	106, 220, 55, 200, 108, 193, 171, 250, 36, 225, 123, 8, 12, 189, 177, 74,
	120, 136, 149, 139, 227, 99, 232, 109, 233, 203, 213, 254, 59, 0, 29, 57,
	242, 239, 183, 14, 102, 88, 208, 228, 166, 119, 114, 248, 235, 117, 75, 10,
	49, 68, 80, 180, 143, 237, 31, 26, 219, 153, 141, 51, 159, 17, 131, 20,
}

// MD2 is a streaming MD2 digest.
type MD2 struct {
	x   [48]byte
	c   [16]byte
	buf [MD2BlockSize]byte
	nx  int
}

// NewMD2 returns an MD2 digest in its initial state.
func NewMD2() *MD2 { return new(MD2) }

// SumMD2 returns the MD2 checksum of data.
func SumMD2(data []byte) [MD2Size]byte {
	d := NewMD2()
	d.Write(data)
	return d.checkSum()
}

func (d *MD2) Reset() { *d = MD2{} }

func (d *MD2) Size() int { return MD2Size }

func (d *MD2) BlockSize() int { return MD2BlockSize }

func (d *MD2) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		c := copy(d.buf[d.nx:], p)
		d.nx += c
		p = p[c:]
		if d.nx == MD2BlockSize {
			d.block(d.buf[:], true)
			d.nx = 0
		}
	}
	return n, nil
}

func (d *MD2) Sum(in []byte) []byte {
	d0 := *d
	sum := d0.checkSum()
	return append(in, sum[:]...)
}

func (d *MD2) checkSum() [MD2Size]byte {
	pad := MD2BlockSize - d.nx
	var tmp [MD2BlockSize]byte
	for i := 0; i < pad; i++ {
		tmp[i] = byte(pad)
	}
	d.Write(tmp[:pad])
	c := d.c
	d.block(c[:], false)

	var out [MD2Size]byte
	copy(out[:], d.x[:MD2Size])
	return out
}

// block mixes one 16-byte block into the state and, unless it is the final
// checksum block, into the running checksum.
func (d *MD2) block(m []byte, checksum bool) {
	for j := 0; j < 16; j++ {
		d.x[16+j] = m[j]
		d.x[32+j] = d.x[16+j] ^ d.x[j]
	}
	var t byte
	for j := 0; j < 18; j++ {
		for k := 0; k < 48; k++ {
			d.x[k] ^= md2S[t]
			t = d.x[k]
		}
		t += byte(j)
	}

	if checksum {
		l := d.c[15]
		for j := 0; j < 16; j++ {
			d.c[j] ^= md2S[m[j]^l]
			l = d.c[j]
		}
	}
}
