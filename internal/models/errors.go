package models

import "errors"

// Custom errors
var (
	ErrInvalidOdds       = errors.New("invalid market odds")
	ErrInvalidPayload    = errors.New("invalid source payload")
	ErrSchemaMismatch    = errors.New("feature schema mismatch")
	ErrInsufficientData  = errors.New("insufficient source data for prediction")
	ErrInferenceFailed   = errors.New("all inference paths unavailable")
	ErrNotFound          = errors.New("record not found")
)
