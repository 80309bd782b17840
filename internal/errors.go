package internal

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores and services when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// ExtractionError means the input could not be parsed into any record at all.
// A document that parses into zero line items is not an ExtractionError.
type ExtractionError struct {
	Source DocumentSource
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Source, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func NewExtractionError(source DocumentSource, reason string, err error) *ExtractionError {
	return &ExtractionError{Source: source, Reason: reason, Err: err}
}

// ValidationError reports a required field missing before a save.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// DuplicateKeyError is returned when an insert would violate barcode or PO number uniqueness.
type DuplicateKeyError struct {
	Entity string
	Key    string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Entity, e.Key)
}

func NewDuplicateKeyError(entity, key string) *DuplicateKeyError {
	return &DuplicateKeyError{Entity: entity, Key: key}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicateKey(err error) bool {
	var dup *DuplicateKeyError
	return errors.As(err, &dup)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsExtraction(err error) bool {
	var e *ExtractionError
	return errors.As(err, &e)
}
