package engine

import (
	"errors"
	"fmt"
)

// ConfigError represents a fatal configuration mistake detected during
// stepping or topology changes. Configuration errors are programming
// errors, never retried:
//   - Missing capability: a node projects a numeric time but cannot
//     advance
//   - Bad thunk: an action was registered without a call shape
//   - Attach violations: cycles, duplicate sibling names, attaching a
//     node that already has a parent
//   - Quota exceeded: a simulation ran past its step budget without
//     finishing
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// NodeID identifies the offending node, when one is known.
	NodeID string

	// ActionID identifies the offending broker action, when one is
	// known.
	ActionID string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeMissingCapability indicates a node that must advance this
	// round has no advance operation.
	ErrCodeMissingCapability ConfigErrorCode = "MISSING_CAPABILITY"

	// ErrCodeBadThunk indicates an action registered without any of
	// the supported call shapes.
	ErrCodeBadThunk ConfigErrorCode = "BAD_THUNK"

	// ErrCodeAttachCycle indicates an attach that would make a node
	// its own ancestor.
	ErrCodeAttachCycle ConfigErrorCode = "ATTACH_CYCLE"

	// ErrCodeDuplicateName indicates an attach that would give a
	// parent two children with the same name.
	ErrCodeDuplicateName ConfigErrorCode = "DUPLICATE_NAME"

	// ErrCodeAlreadyAttached indicates an attach of a node that still
	// has a parent.
	ErrCodeAlreadyAttached ConfigErrorCode = "ALREADY_ATTACHED"

	// ErrCodeQuotaExceeded indicates a simulation that exceeded its
	// maximum step count.
	ErrCodeQuotaExceeded ConfigErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	switch {
	case e.NodeID != "":
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.NodeID)
	case e.ActionID != "":
		return fmt.Sprintf("%s: %s (action=%s)", e.Code, e.Message, e.ActionID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsConfigError reports whether err is (or wraps) a ConfigError with
// the given code.
func IsConfigError(err error, code ConfigErrorCode) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// LookupError reports a path or id that does not resolve in the
// directory of a connected component. Unlike configuration errors it
// is recoverable: the caller may simply try another path.
type LookupError struct {
	// Path is the relative path that failed to resolve.
	Path string

	// NodeID is the node the resolution started from.
	NodeID string
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("path %q does not resolve from node %s", e.Path, e.NodeID)
}

// IsLookupError reports whether err is (or wraps) a LookupError.
func IsLookupError(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}
