package common

import "errors"

// ErrUnknownLogLevel is returned for a log level flag that cannot be parsed.
var ErrUnknownLogLevel = errors.New("unknown log level")
