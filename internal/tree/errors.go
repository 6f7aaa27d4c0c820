package tree

import (
	"errors"
	"fmt"

	"github.com/roach88/treestore/internal/treepath"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// CodeInvalidPath indicates a path that cannot be normalized.
	CodeInvalidPath ErrorCode = "INVALID_PATH"

	// CodeNotFound indicates no node exists at the path.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeParentNotFound indicates a save under a missing parent.
	CodeParentNotFound ErrorCode = "PARENT_NOT_FOUND"

	// CodeRootProtected indicates an attempt to delete the root.
	CodeRootProtected ErrorCode = "ROOT_PROTECTED"

	// CodeInvalidPayload indicates a payload rejected by validation.
	CodeInvalidPayload ErrorCode = "INVALID_PAYLOAD"
)

// Sentinels matched with errors.Is. Every *Error unwraps to the sentinel of
// its code.
var (
	ErrInvalidPath    = treepath.ErrInvalidPath
	ErrNotFound       = errors.New("node not found")
	ErrParentNotFound = errors.New("parent node not found")
	ErrRootProtected  = errors.New("root node cannot be deleted")
	ErrInvalidPayload = errors.New("invalid payload")
)

var sentinels = map[ErrorCode]error{
	CodeInvalidPath:    ErrInvalidPath,
	CodeNotFound:       ErrNotFound,
	CodeParentNotFound: ErrParentNotFound,
	CodeRootProtected:  ErrRootProtected,
	CodeInvalidPayload: ErrInvalidPayload,
}

// Error is a store error with a code and the path it concerns.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Path is the (normalized, when possible) path involved.
	Path string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	switch {
	case msg != "" && e.Err != nil:
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	case msg != "":
	case e.Err != nil:
		msg = e.Err.Error()
	default:
		if s, ok := sentinels[e.Code]; ok {
			msg = s.Error()
		}
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, msg, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap exposes both the code's sentinel and the cause.
func (e *Error) Unwrap() []error {
	var errs []error
	if s, ok := sentinels[e.Code]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(code ErrorCode, path string, cause error) *Error {
	return &Error{Code: code, Path: path, Err: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err means the node does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidPath reports whether err is a path normalization failure.
func IsInvalidPath(err error) bool {
	return errors.Is(err, ErrInvalidPath)
}

// IsParentNotFound reports whether err is a save under a missing parent.
func IsParentNotFound(err error) bool {
	return errors.Is(err, ErrParentNotFound)
}

// IsRootProtected reports whether err is a refused root deletion.
func IsRootProtected(err error) bool {
	return errors.Is(err, ErrRootProtected)
}

// IsInvalidPayload reports whether err is a rejected payload.
func IsInvalidPayload(err error) bool {
	return errors.Is(err, ErrInvalidPayload)
}
