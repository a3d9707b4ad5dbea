package digest

import (
	"fmt"

	"github.com/opd-ai/cryptoengine/limits"
)

// ErrInvalidState indicates a marshaled or resumed state that cannot be used.
var ErrInvalidState = fmt.Errorf("%w: invalid digest state", limits.ErrInvalidInput)
