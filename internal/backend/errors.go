package backend

import (
	"errors"
	"fmt"
)

// Code classifies a backend failure. Every code is fatal to the current
// operation and surfaced immediately; nothing is retried internally,
// because a device error under this workload means a configuration
// problem that retrying will not fix.
type Code int

const (
	// DeviceNotFound: no device descriptor matched the platform hint.
	DeviceNotFound Code = iota + 1
	// NoDevicesOfKind: the backend enumerates zero devices of the
	// requested kind.
	NoDevicesOfKind
	// TooManyUnitsRequested: the work size exceeds the reported maximum
	// compute units of a CPU-kind device.
	TooManyUnitsRequested
	// BinaryNotFound: the compiled-binary path does not exist.
	BinaryNotFound
	// BinaryReadError: the binary exists but could not be read in full.
	BinaryReadError
	// BuildFailure: compiling or linking the loaded binary against the
	// selected device failed. The Error carries the build log verbatim.
	BuildFailure
	// NotInitialized: an operation that requires a successful resize ran
	// before one.
	NotInitialized
	// AllocationFailure: a device buffer allocation failed.
	AllocationFailure
	// TransferFailure: a host/device transfer failed.
	TransferFailure
)

func (c Code) String() string {
	switch c {
	case DeviceNotFound:
		return "device not found"
	case NoDevicesOfKind:
		return "no devices of requested kind"
	case TooManyUnitsRequested:
		return "too many compute units requested"
	case BinaryNotFound:
		return "kernel binary not found"
	case BinaryReadError:
		return "kernel binary read error"
	case BuildFailure:
		return "kernel build failure"
	case NotInitialized:
		return "runtime not initialized"
	case AllocationFailure:
		return "allocation failure"
	case TransferFailure:
		return "transfer failure"
	default:
		return "unknown error"
	}
}

// Error is a classified backend failure with enough context to reproduce:
// the failing operation, a detail line (path, requested vs. available
// counts), and for build failures the backend's diagnostic text verbatim.
type Error struct {
	Code   Code
	Op     string
	Detail string
	Log    string // build diagnostics, unmodified
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("backend: %s: %s", e.Op, e.Code)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Log != "" {
		msg += "\nbuild log:\n" + e.Log
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a classified error with a formatted detail line.
func Errorf(code Code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// WrapError classifies an underlying error.
func WrapError(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// BuildError carries a build log verbatim so the caller can report it.
func BuildError(op, log string, err error) *Error {
	return &Error{Code: BuildFailure, Op: op, Log: log, Err: err}
}

// CodeOf extracts the classification from an error chain, or 0 if the
// chain holds no backend error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// BuildLog extracts the verbatim build log from an error chain, or "".
func BuildLog(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Log
	}
	return ""
}
