package errorsx

import (
	"errors"
	"fmt"
)

// ReasonedError tags an error with the failure kind it should surface as.
type ReasonedError struct {
	Err    error
	Reason ReasonCode
}

func (e ReasonedError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e ReasonedError) Unwrap() error { return e.Err }

// Wrap tags err with reason unless it already carries one.
func Wrap(err error, reason ReasonCode) error {
	if err == nil || Reason(err) != ReasonUnknown {
		return err
	}
	return ReasonedError{Err: err, Reason: reason}
}

// Force tags err with reason, replacing any reason it already carries.
func Force(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	return ReasonedError{Err: err, Reason: reason}
}

// New builds a reasoned error from a message.
func New(reason ReasonCode, format string, args ...any) error {
	return ReasonedError{Err: fmt.Errorf(format, args...), Reason: reason}
}

// Reason returns the outermost reason in err's chain, or ReasonUnknown.
func Reason(err error) ReasonCode {
	var re ReasonedError
	if err != nil && errors.As(err, &re) {
		return re.Reason
	}
	return ReasonUnknown
}

func HasReason(err error, reason ReasonCode) bool {
	return Reason(err) == reason
}
