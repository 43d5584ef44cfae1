package project

import (
	"errors"
	"fmt"
)

// ErrorKind classifies project errors.
type ErrorKind string

const (
	// KindUserInput covers soft failures: the edit is refused and logged,
	// the session continues.
	KindUserInput ErrorKind = "user_input"
	// KindIntegrity covers edits that would corrupt the member graph.
	KindIntegrity ErrorKind = "integrity"
	// KindPersistence covers failures to read or write the project document.
	KindPersistence ErrorKind = "persistence"
)

// Class sentinels; errors.Is matches any *Error of the same kind.
var (
	ErrUserInput   = errors.New("user input error")
	ErrIntegrity   = errors.New("integrity error")
	ErrPersistence = errors.New("persistence error")
)

var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrProtected        = errors.New("property is protected")
	ErrSticky           = errors.New("property is sticky")
	ErrMissingCommand   = errors.New("command not defined")
	ErrRuleDenied       = errors.New("denied by rule")
	ErrMemberNotFound   = errors.New("member not found")
	ErrInvalidPath      = errors.New("invalid member path")
	ErrInvalidStepType  = errors.New("invalid step type")
	ErrCycle            = errors.New("inheritance cycle")
	ErrIDCollision      = errors.New("id already in use")
	ErrMalformedMember  = errors.New("malformed member")
	ErrNotLoaded        = errors.New("project not loaded")
)

// Error is the classified error returned by project operations.
type Error struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind implements the classifier interface used by the CLI to pick exit codes.
func (e *Error) ErrorKind() string { return string(e.Kind) }

// Is lets errors.Is(err, ErrIntegrity) and friends match by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUserInput:
		return e.Kind == KindUserInput
	case ErrIntegrity:
		return e.Kind == KindIntegrity
	case ErrPersistence:
		return e.Kind == KindPersistence
	}
	return false
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return ""
}

func userError(op, path string, err error) *Error {
	return &Error{Kind: KindUserInput, Op: op, Path: path, Err: err}
}

func integrityError(op, path string, err error) *Error {
	return &Error{Kind: KindIntegrity, Op: op, Path: path, Err: err}
}

func persistenceError(op, path string, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Path: path, Err: err}
}
