package asym

import "errors"

var (
	// ErrVerification is returned when a recovered block fails its padding or
	// redundancy check. It is an expected outcome for wrong keys or tampered
	// data and carries no detail about which check failed.
	ErrVerification = errors.New("asym: verification failed")

	// ErrGenerationFailed is returned when key or parameter generation runs
	// out of attempts. Retrying may succeed.
	ErrGenerationFailed = errors.New("asym: key generation exhausted its attempts")
)
