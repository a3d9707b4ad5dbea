// Package bitio packs and unpacks fixed-width integers at byte offsets.
//
// The MSBF family reads and writes most-significant-byte-first (big-endian)
// values, the LSBF family least-significant-byte-first (little-endian). All
// functions are pure; they panic like encoding/binary when the buffer is too
// short, which is a programmer error at every call site in this module.
package bitio

import "encoding/binary"

// MSBF16 reads a big-endian uint16 at b[off:].
func MSBF16(b []byte, off int) uint16 { return binary.BigEndian.Uint16(b[off:]) }

// MSBF32 reads a big-endian uint32 at b[off:].
func MSBF32(b []byte, off int) uint32 { return binary.BigEndian.Uint32(b[off:]) }

// MSBF64 reads a big-endian uint64 at b[off:].
func MSBF64(b []byte, off int) uint64 { return binary.BigEndian.Uint64(b[off:]) }

// PutMSBF32 writes v big-endian at b[off:].
func PutMSBF32(b []byte, off int, v uint32) { binary.BigEndian.PutUint32(b[off:], v) }

// PutMSBF64 writes v big-endian at b[off:].
func PutMSBF64(b []byte, off int, v uint64) { binary.BigEndian.PutUint64(b[off:], v) }

// LSBF32 reads a little-endian uint32 at b[off:].
func LSBF32(b []byte, off int) uint32 { return binary.LittleEndian.Uint32(b[off:]) }

// LSBF64 reads a little-endian uint64 at b[off:].
func LSBF64(b []byte, off int) uint64 { return binary.LittleEndian.Uint64(b[off:]) }

// PutLSBF32 writes v little-endian at b[off:].
func PutLSBF32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:], v) }

// PutLSBF64 writes v little-endian at b[off:].
func PutLSBF64(b []byte, off int, v uint64) { binary.LittleEndian.PutUint64(b[off:], v) }

// MSBFWords decodes len(dst) big-endian words from src starting at off.
func MSBFWords(dst []uint32, src []byte, off int) {
	for i := range dst {
		dst[i] = binary.BigEndian.Uint32(src[off+4*i:])
	}
}

// LSBFWords decodes len(dst) little-endian words from src starting at off.
func LSBFWords(dst []uint32, src []byte, off int) {
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(src[off+4*i:])
	}
}

// PutMSBFWords encodes words big-endian into dst starting at off.
func PutMSBFWords(dst []byte, off int, words []uint32) {
	for i, w := range words {
		binary.BigEndian.PutUint32(dst[off+4*i:], w)
	}
}

// PutLSBFWords encodes words little-endian into dst starting at off.
func PutLSBFWords(dst []byte, off int, words []uint32) {
	for i, w := range words {
		binary.LittleEndian.PutUint32(dst[off+4*i:], w)
	}
}

