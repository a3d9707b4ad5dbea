package asym

import (
	"crypto/subtle"
	"errors"
	"math/big"
	"runtime"
)

// SecureWipe overwrites data with zeros. It returns an error if data is nil.
func SecureWipe(data []byte) error {
	if data == nil {
		return errors.New("cannot wipe nil data")
	}
	zeros := make([]byte, len(data))
	subtle.ConstantTimeCompare(data, zeros)
	copy(data, zeros)
	runtime.KeepAlive(data)
	return nil
}

// ZeroBytes is SecureWipe without the nil check error.
func ZeroBytes(data []byte) {
	_ = SecureWipe(data)
}

// WipeKey zeroes every element of key.
func WipeKey(key KeyMaterial) {
	for _, el := range key {
		ZeroBytes(el)
	}
}

// wipeInt clears the words backing v.
func wipeInt(v *big.Int) {
	if v == nil {
		return
	}
	w := v.Bits()
	for i := range w {
		w[i] = 0
	}
	v.SetInt64(0)
}
