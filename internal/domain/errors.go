package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound signals a missing knowledge document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidDocument signals document content outside the configured length bounds.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrVectorDimMismatch signals a provider contract breach: wrong vector dimension.
	// Fatal — a malformed vector must never be stored.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProvider signals an embedding provider failure (transient, caller may retry).
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrStore signals a persistence I/O failure.
	ErrStore = errors.New("store error")
)

// ProviderError wraps ErrEmbeddingProvider with provider identity and cause.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider %s: %v", ErrEmbeddingProvider.Error(), e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return ErrEmbeddingProvider }

// NewProviderError creates a provider error.
func NewProviderError(provider string, err error) error {
	return &ProviderError{Provider: provider, Err: err}
}

// DimensionError wraps ErrVectorDimMismatch with observed and expected dimensions.
type DimensionError struct {
	Got  int
	Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: got %d, want %d", ErrVectorDimMismatch.Error(), e.Got, e.Want)
}

func (e *DimensionError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimensionError creates a dimension mismatch error.
func NewDimensionError(got, want int) error {
	return &DimensionError{Got: got, Want: want}
}
