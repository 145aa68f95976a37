package expreplay

import "errors"

var (
	errFeatureSize = errors.New("invalid feature size")
	errIndex       = errors.New("index out of range")
	errBatchSize   = errors.New("negative batch size")
)

// ExpReplayError records an error that occurred during an operation on
// a replay buffer
type ExpReplayError struct {
	Op  string
	Err error
}

func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

// IsFeatureSizeMismatch returns whether an error was caused by adding a
// transition whose observations do not match the buffer's feature size
func IsFeatureSizeMismatch(err error) bool {
	return errors.Is(err, errFeatureSize)
}

// IsIndexOutOfRange returns whether an error was caused by accessing an
// entry that is not in the buffer
func IsIndexOutOfRange(err error) bool {
	return errors.Is(err, errIndex)
}
