package report

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errMissingUser    = errors.New("user id is required")
	errIncompleteFile = errors.New("file metadata is incomplete")
	errInvalidSize    = errors.New("uploaded file size must be greater than zero")
	errBucketMismatch = errors.New("bucket does not match configured storage")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Validator rejects malformed ingestion requests before any durable state
// exists.
type Validator struct {
	configuredBucket string
}

func NewValidator(configuredBucket string) *Validator {
	return &Validator{configuredBucket: configuredBucket}
}

func (v *Validator) Validate(req AnalyzeRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return ValidationError{reason: errMissingUser}
	}

	if req.Bucket == "" || req.Key == "" || req.OriginalName == "" || req.ContentType == "" {
		return ValidationError{reason: errIncompleteFile}
	}

	if req.Size <= 0 {
		return ValidationError{reason: errInvalidSize}
	}

	if req.Bucket != v.configuredBucket {
		return ValidationError{reason: fmt.Errorf("bucket '%s': %w", req.Bucket, errBucketMismatch)}
	}

	return nil
}
