package storage

import "errors"

// ErrNilPrediction is returned when Put is called with a nil prediction.
var ErrNilPrediction = errors.New("cannot store nil prediction")

// NotFoundError is returned when a prediction doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "prediction not found"
	}

	return "prediction not found: " + e.ID
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
