package padding

import "errors"

// ErrBadPadding is returned when a padded block does not decode. It is an
// ordinary outcome for tampered or mis-keyed input and carries no detail about
// which check failed.
var ErrBadPadding = errors.New("padding: invalid padding")
