package types

import "errors"

var (
	// ErrConfig is returned for invalid or inconsistent configuration. Nothing is processed.
	ErrConfig = errors.New("invalid configuration")
	// ErrInput is returned for an unusable audio buffer. Nothing is processed.
	ErrInput = errors.New("invalid input")
	// ErrNumericAnomaly marks a frame or a feature that produced NaN or Inf. The item is skipped and counted.
	ErrNumericAnomaly = errors.New("numeric anomaly")
	// ErrInvalidInput is returned by the distance estimator for a negative or non-finite delay.
	ErrInvalidInput = errors.New("invalid distance input")
)
