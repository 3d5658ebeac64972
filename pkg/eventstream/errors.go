package eventstream

import "errors"

// ErrNilPredictionEvent indicates a nil prediction event payload was provided
// to a publisher.
var ErrNilPredictionEvent = errors.New("nil prediction event")
