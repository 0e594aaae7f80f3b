package tool

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrToolNotFound is returned for calls to unregistered tools
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidInput is returned when a call's input fails schema validation
	ErrInvalidInput = errors.New("invalid tool input")

	// ErrToolInterrupted marks a tool failure that ends the agent's reply
	ErrToolInterrupted = errors.New("tool interrupted the reply")

	// ErrToolDiscarded marks a permanent tool failure reported to the model
	ErrToolDiscarded = errors.New("tool discarded")

	// ErrToolSnoozed marks a transient tool failure retried by the executor
	ErrToolSnoozed = errors.New("tool snoozed")
)

type interruptError struct{ err error }

func (e *interruptError) Error() string {
	if e.err == nil {
		return ErrToolInterrupted.Error()
	}
	return fmt.Sprintf("%s: %v", ErrToolInterrupted, e.err)
}

func (e *interruptError) Is(target error) bool { return target == ErrToolInterrupted }
func (e *interruptError) Unwrap() error        { return e.err }

// Interrupt wraps err so that the agent stops its reply after this call
// instead of handing the error to the model.
//
// Example:
//
//	if !authorized {
//	    return "", tool.Interrupt(errors.New("user revoked access"))
//	}
func Interrupt(err error) error {
	return &interruptError{err: err}
}

type discardError struct{ err error }

func (e *discardError) Error() string {
	if e.err == nil {
		return ErrToolDiscarded.Error()
	}
	return fmt.Sprintf("%s: %v", ErrToolDiscarded, e.err)
}

func (e *discardError) Is(target error) bool { return target == ErrToolDiscarded }
func (e *discardError) Unwrap() error        { return e.err }

// Discard wraps err to mark the call as unsatisfiable. The executor does not
// retry it.
func Discard(err error) error {
	return &discardError{err: err}
}

// SnoozeError asks the executor to retry the call after Duration
type SnoozeError struct {
	Duration time.Duration
	err      error
}

func (e *SnoozeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("tool snoozed for %s", e.Duration)
	}
	return fmt.Sprintf("tool snoozed for %s: %v", e.Duration, e.err)
}

func (e *SnoozeError) Is(target error) bool { return target == ErrToolSnoozed }
func (e *SnoozeError) Unwrap() error        { return e.err }

// Snooze returns an error that makes the executor retry the call after d.
// Snoozes are bounded by the executor's MaxSnoozes.
//
// Example:
//
//	if isRateLimited(err) {
//	    return "", tool.Snooze(2*time.Second, err)
//	}
func Snooze(d time.Duration, err error) error {
	return &SnoozeError{Duration: max(d, 0), err: err}
}

// IsInterrupt reports whether err ends the agent's reply
func IsInterrupt(err error) bool {
	return errors.Is(err, ErrToolInterrupted)
}

// SnoozeDuration extracts the snooze duration from err
func SnoozeDuration(err error) (time.Duration, bool) {
	var snooze *SnoozeError
	if errors.As(err, &snooze) {
		return snooze.Duration, true
	}
	return 0, false
}
