package module

import (
	"errors"
	"fmt"
)

// Kind classifies lifecycle failures.
type Kind string

const (
	KindDependencyUnresolved Kind = "DependencyUnresolved"
	KindLoadFailed           Kind = "LoadFailed"
	KindStartFailed          Kind = "StartFailed"
	KindStopFailed           Kind = "StopFailed"
	KindUnloadFailed         Kind = "UnloadFailed"
	KindPrivilegeDenied      Kind = "PrivilegeDenied"
	KindPrecondition         Kind = "PreconditionViolation"
	KindNotFound             Kind = "NotFound"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrDependencyUnresolved = errors.New("dependency unresolved")
	ErrLoadFailed           = errors.New("load failed")
	ErrStartFailed          = errors.New("start failed")
	ErrStopFailed           = errors.New("stop failed")
	ErrUnloadFailed         = errors.New("unload failed")
	ErrPrivilegeDenied      = errors.New("privilege denied")
	ErrPrecondition         = errors.New("precondition violation")
	ErrNotFound             = errors.New("module not found")
)

var sentinels = map[Kind]error{
	KindDependencyUnresolved: ErrDependencyUnresolved,
	KindLoadFailed:           ErrLoadFailed,
	KindStartFailed:          ErrStartFailed,
	KindStopFailed:           ErrStopFailed,
	KindUnloadFailed:         ErrUnloadFailed,
	KindPrivilegeDenied:      ErrPrivilegeDenied,
	KindPrecondition:         ErrPrecondition,
	KindNotFound:             ErrNotFound,
}

// Error is a classified lifecycle failure for one module.
//
// ModuleID may be empty when the failure happened before a module could be
// identified, for example an unreadable archive.
type Error struct {
	Kind     Kind
	ModuleID string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ModuleID == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: module %s: %v", e.Kind, e.ModuleID, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, moduleID, format string, args ...any) *Error {
	return &Error{Kind: kind, ModuleID: moduleID, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind carried by err, or "" if err is not classified.
func KindOf(err error) Kind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}

// WithModule fills in the module id on a classified error that lacks one and
// classifies a plain error as kind.
func WithModule(err error, kind Kind, moduleID string) error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) {
		if me.ModuleID == "" {
			cp := *me
			cp.ModuleID = moduleID
			return &cp
		}
		return err
	}
	return &Error{Kind: kind, ModuleID: moduleID, Err: err}
}
