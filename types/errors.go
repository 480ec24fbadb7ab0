package types

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// KindCommandFailed is any non-zero exit or unexpected output from adb.
	KindCommandFailed ErrorKind = iota
	// KindToolUnavailable means the adb binary could not be spawned.
	KindToolUnavailable
	// KindDeviceUnavailable means the target device failed the availability check.
	KindDeviceUnavailable
	// KindTimeout means the command exceeded its time limit.
	KindTimeout
	// KindInstallFailed is a KindCommandFailed refined with a curated cause.
	KindInstallFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindToolUnavailable:
		return "tool_unavailable"
	case KindDeviceUnavailable:
		return "device_unavailable"
	case KindTimeout:
		return "timeout"
	case KindInstallFailed:
		return "install_failed"
	default:
		return "command_failed"
	}
}

// Error is the error type surfaced to callers of every adb operation.
type Error struct {
	Kind    ErrorKind
	Cause   string
	Message string
	Err     error
}

func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Cause == "" || t.Cause == e.Cause)
}

func DeviceUnavailable(id string) *Error {
	return &Error{Kind: KindDeviceUnavailable, Message: fmt.Sprintf("device %s is not available", id)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindCommandFailed, false
}

func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// region Severity

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeveritySuccess
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeveritySuccess:
		return "success"
	default:
		return "info"
	}
}

// endregion Severity

// region Outcome

// Outcome is the result of a user initiated operation (install, uninstall, extract).
type Outcome struct {
	Success  bool
	Severity Severity
	Cause    string
	Message  string
	Err      error
}

func Succeeded(message string) Outcome {
	return Outcome{Success: true, Severity: SeveritySuccess, Message: message}
}

// Failed builds an Outcome from err, copying cause and message when err is an *Error.
func Failed(err error) Outcome {
	o := Outcome{Severity: SeverityError, Err: err}
	var e *Error
	if errors.As(err, &e) {
		o.Cause = e.Cause
		o.Message = e.Message
		if e.Kind == KindDeviceUnavailable {
			o.Severity = SeverityWarning
		}
	}
	if o.Message == "" && err != nil {
		o.Message = err.Error()
	}
	return o
}

func (o Outcome) Error() error {
	if o.Success {
		return nil
	}
	if o.Err != nil {
		return o.Err
	}
	return &Error{Kind: KindCommandFailed, Cause: o.Cause, Message: o.Message}
}

// endregion Outcome
