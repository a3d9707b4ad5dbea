package blockcipher

import "crypto/cipher"

// Cipher adapts a pair of schedules to crypto/cipher.Block so the from-scratch
// DES can be driven by the standard block modes.
type Cipher struct {
	enc, dec *Schedule
}

var _ cipher.Block = (*Cipher)(nil)

// NewCipher returns a DES (8-byte key) or Triple-DES (16 or 24-byte key) block.
func NewCipher(key []byte) (*Cipher, error) {
	enc, err := DESKey(true, key)
	if err != nil {
		return nil, err
	}
	dec, err := DESKey(false, key)
	if err != nil {
		return nil, err
	}
	return &Cipher{enc: enc, dec: dec}, nil
}

func (c *Cipher) BlockSize() int { return BlockSize }

func (c *Cipher) Encrypt(dst, src []byte) {
	if len(src) < BlockSize || len(dst) < BlockSize {
		panic("blockcipher: input not full block")
	}
	c.enc.block(dst[:BlockSize], src[:BlockSize])
}

func (c *Cipher) Decrypt(dst, src []byte) {
	if len(src) < BlockSize || len(dst) < BlockSize {
		panic("blockcipher: input not full block")
	}
	c.dec.block(dst[:BlockSize], src[:BlockSize])
}

// Wipe clears both schedules.
func (c *Cipher) Wipe() {
	c.enc.Wipe()
	c.dec.Wipe()
}

// SetOddParity forces every byte of key to odd parity, in place.
func SetOddParity(key []byte) {
	for i, b := range key {
		b &^= 1
		p := b ^ b>>4
		p ^= p >> 2
		p ^= p >> 1
		key[i] = b | (^p & 1)
	}
}

// HasOddParity reports whether every byte of key has an odd number of set bits.
func HasOddParity(key []byte) bool {
	for _, b := range key {
		p := b ^ b>>4
		p ^= p >> 2
		p ^= p >> 1
		if p&1 == 0 {
			return false
		}
	}
	return true
}
