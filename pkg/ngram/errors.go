package ngram

import "errors"

var (
	// ErrInvalidModelType is returned for an order label other than "Bi-gram",
	// "Tri-gram" or "Tetra-gram", or a window size outside 1..3.
	ErrInvalidModelType = errors.New("invalid model type")
	// ErrInsufficientInput is returned when the text yields fewer than two tokens.
	ErrInsufficientInput = errors.New("insufficient input text")
	// ErrKeyNotFound is returned when an explicit start key is not in the model.
	ErrKeyNotFound = errors.New("key not found in model")
	// ErrInvalidSnapshot is returned by FromSnapshot for malformed snapshots.
	ErrInvalidSnapshot = errors.New("invalid model snapshot")

	// ErrDeadEnd is returned when a manual session is stepped after reaching
	// the end of the chain.
	ErrDeadEnd = errors.New("end of chain reached")
	// ErrInvalidChoice is returned when a manual choice is not a current option.
	ErrInvalidChoice = errors.New("choice is not one of the current options")
	// ErrSessionIdle is returned when a manual session is stepped before it
	// has been started or reset.
	ErrSessionIdle = errors.New("session has not been started")
)
