package cryptoengine

import (
	"errors"
	"fmt"

	"github.com/opd-ai/cryptoengine/limits"
)

var (
	// ErrDecryptionFailed is returned when a ciphertext does not decrypt to
	// well-formed padding, usually because the key is wrong.
	ErrDecryptionFailed = errors.New("cryptoengine: decryption failed")

	// ErrSelfTestFailed is returned when a known-answer check fails.
	ErrSelfTestFailed = errors.New("cryptoengine: self-test failed")

	// ErrUnknownAlgorithm indicates an unsupported algorithm identifier.
	ErrUnknownAlgorithm = fmt.Errorf("%w: unknown algorithm", limits.ErrInvalidInput)

	// ErrUnknownBackend indicates an unsupported Options.Backend.
	ErrUnknownBackend = fmt.Errorf("%w: unknown backend", limits.ErrInvalidInput)
)
