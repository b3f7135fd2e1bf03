package host

import "errors"

// ErrClosed is returned by Wait after Close.
var ErrClosed = errors.New("host: wakeup closed")
