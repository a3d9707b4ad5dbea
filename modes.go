package cryptoengine

import (
	"crypto/cipher"

	"github.com/opd-ai/cryptoengine/blockcipher"
)

// ecb wraps a cipher.Block to provide ECB mode.
type ecb struct{ b cipher.Block }

type ecbEncrypter ecb

type ecbDecrypter ecb

// newECBEncrypter returns a cipher.BlockMode for ECB encryption.
func newECBEncrypter(b cipher.Block) cipher.BlockMode {
	return (*ecbEncrypter)(&ecb{b: b})
}

func (x *ecbEncrypter) BlockSize() int { return x.b.BlockSize() }

func (x *ecbEncrypter) CryptBlocks(dst, src []byte) {
	bs := x.b.BlockSize()
	if len(src)%bs != 0 {
		panic("cryptoengine: input not full blocks")
	}
	if len(dst) < len(src) {
		panic("cryptoengine: output smaller than input")
	}
	for len(src) > 0 {
		x.b.Encrypt(dst, src[:bs])
		src = src[bs:]
		dst = dst[bs:]
	}
}

// newECBDecrypter returns a cipher.BlockMode for ECB decryption.
func newECBDecrypter(b cipher.Block) cipher.BlockMode {
	return (*ecbDecrypter)(&ecb{b: b})
}

func (x *ecbDecrypter) BlockSize() int { return x.b.BlockSize() }

func (x *ecbDecrypter) CryptBlocks(dst, src []byte) {
	bs := x.b.BlockSize()
	if len(src)%bs != 0 {
		panic("cryptoengine: input not full blocks")
	}
	if len(dst) < len(src) {
		panic("cryptoengine: output smaller than input")
	}
	for len(src) > 0 {
		x.b.Decrypt(dst, src[:bs])
		src = src[bs:]
		dst = dst[bs:]
	}
}

// scheduleMode drives blockcipher.Crypt in CBC mode as a cipher.BlockMode.
// The IV is chained across calls.
type scheduleMode struct {
	s  *blockcipher.Schedule
	iv *[blockcipher.BlockSize]byte
}

func (m *scheduleMode) BlockSize() int { return blockcipher.BlockSize }

func (m *scheduleMode) CryptBlocks(dst, src []byte) {
	if err := blockcipher.Crypt(m.s, m.iv, dst, src); err != nil {
		panic("cryptoengine: " + err.Error())
	}
}
