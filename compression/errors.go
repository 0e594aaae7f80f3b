package compression

import (
	"errors"
	"fmt"
)

// Sentinel errors for compression operations.
var (
	// ErrInvalidConfig indicates invalid compression configuration.
	ErrInvalidConfig = errors.New("invalid compression configuration")

	// ErrNothingToCompress indicates no message is eligible for compression.
	ErrNothingToCompress = errors.New("nothing to compress")

	// ErrCompressionInProgress indicates another compression is running on the same Compressor.
	ErrCompressionInProgress = errors.New("compression already in progress")

	// ErrSummarizationFailed indicates the summarization model call or its output failed.
	ErrSummarizationFailed = errors.New("summarization failed")

	// ErrTokenCountingFailed indicates token counting failed.
	ErrTokenCountingFailed = errors.New("token counting failed")

	// ErrCompressionDisabled indicates a forced compression on a disabled Compressor.
	ErrCompressionDisabled = errors.New("compression is disabled")

	// ErrCompressionVetoed indicates the before-compression callback refused the run.
	ErrCompressionVetoed = errors.New("compression vetoed")
)

// CompressionError provides structured error context for compression operations.
type CompressionError struct {
	// Op is the operation that failed (e.g., "Check", "Summarize", "Commit")
	Op string

	Err error

	// Context holds additional key-value pairs for debugging
	Context map[string]any
}

func (e *CompressionError) Error() string {
	msg := fmt.Sprintf("compression %s failed", e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CompressionError) Unwrap() error {
	return e.Err
}

// NewCompressionError creates a CompressionError for op
func NewCompressionError(op string, err error) *CompressionError {
	return &CompressionError{
		Op:      op,
		Err:     err,
		Context: make(map[string]any),
	}
}

// WithContext adds a key-value pair to the error context and returns the error for chaining.
func (e *CompressionError) WithContext(key string, value any) *CompressionError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
