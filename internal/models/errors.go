package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound = errors.New("resource not found")

	// Verification Errors
	ErrImageDecode        = errors.New("image decode failed")
	ErrImageRead          = errors.New("image read failed")
	ErrBackendUnavailable = errors.New("vision backend unavailable")
	ErrDetectionFailed    = errors.New("subject detection failed")

	// Learner Errors
	ErrInsufficientData = errors.New("insufficient data")

	// General Request Errors
	ErrInvalidInput = errors.New("invalid input data")
)
