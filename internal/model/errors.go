package model

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// ErrInsufficientHistory is returned by window helpers when the lookback is too short.
// Callers at the series and indicator boundary turn it into Null.
var ErrInsufficientHistory = errors.New("insufficient history")

// ConfigurationError reports an invalid or missing parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Field, e.Reason)
}

// NewConfigurationError builds a ConfigurationError.
func NewConfigurationError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// IllegalStateTransition reports a ledger operation not allowed in the current state.
type IllegalStateTransition struct {
	State  State
	Op     string
	Reason string
}

func (e *IllegalStateTransition) Error() string {
	return fmt.Sprintf("illegal %s in state %s: %s", e.Op, e.State, e.Reason)
}

// CapitalExhaustedError stops a replay once capital is gone.
type CapitalExhaustedError struct {
	Capital float64
	Time    time.Time
}

func (e *CapitalExhaustedError) Error() string {
	return fmt.Sprintf("capital exhausted at %s: %.2f", e.Time.Format(time.RFC3339), e.Capital)
}

// DataIntegrityError reports a malformed candle sequence.
type DataIntegrityError struct {
	Index  int
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: candle %d: %s", e.Index, e.Reason)
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsIllegalStateTransition reports whether err wraps an IllegalStateTransition.
func IsIllegalStateTransition(err error) bool {
	var ie *IllegalStateTransition
	return errors.As(err, &ie)
}

// IsCapitalExhausted reports whether err wraps a CapitalExhaustedError.
func IsCapitalExhausted(err error) bool {
	var ce *CapitalExhaustedError
	return errors.As(err, &ce)
}

// IsDataIntegrityError reports whether err wraps a DataIntegrityError.
func IsDataIntegrityError(err error) bool {
	var de *DataIntegrityError
	return errors.As(err, &de)
}
