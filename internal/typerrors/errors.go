// Package typerrors provides the structured error types surfaced by the
// typings resolver and compiler.
package typerrors

import (
	"errors"
	"fmt"
)

// Kind represents the category of a resolver/compiler error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindCircularDependency
	KindMissingDependency
	KindEntryNotFound
	KindEntryResolution
	KindTypingsReadFailure
	KindUnresolvedSpecifier
	KindHTTPStatus
	KindNetworkError
	KindJSONParse
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindCircularDependency:
		return "circular_dependency"
	case KindMissingDependency:
		return "missing_dependency"
	case KindEntryNotFound:
		return "entry_not_found"
	case KindEntryResolution:
		return "entry_resolution"
	case KindTypingsReadFailure:
		return "typings_read_failure"
	case KindUnresolvedSpecifier:
		return "unresolved_specifier"
	case KindHTTPStatus:
		return "http_status"
	case KindNetworkError:
		return "network_error"
	case KindJSONParse:
		return "json_parse"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is the structured error type used throughout the core.
type Error struct {
	// Kind categorizes the error for programmatic handling.
	Kind Kind

	// Op is the operation being performed (e.g. "tree.resolveNpm").
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// E constructs an Error from its arguments: a Kind, an error (Err), and
// either one string (Message) or two strings (Op, then Message).
func E(args ...interface{}) error {
	e := &Error{}
	var strs []string
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			strs = append(strs, a)
		case error:
			e.Err = a
		}
	}
	switch len(strs) {
	case 1:
		e.Message = strs[0]
	case 2:
		e.Op, e.Message = strs[0], strs[1]
	}
	return e
}

// GetKind returns the Kind of err, or KindUnknown if err isn't an *Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func is(err error, k Kind) bool {
	return GetKind(err) == k
}

// IsCircular reports whether err is a CircularDependency error.
func IsCircular(err error) bool { return is(err, KindCircularDependency) }

// IsMissing reports whether err is a MissingDependency error.
func IsMissing(err error) bool { return is(err, KindMissingDependency) }

// IsEntryNotFound reports whether err is an EntryNotFound error.
func IsEntryNotFound(err error) bool { return is(err, KindEntryNotFound) }

// IsEntryResolution reports whether err is an EntryResolution error.
func IsEntryResolution(err error) bool { return is(err, KindEntryResolution) }

// IsTypingsReadFailure reports whether err is a TypingsReadFailure error.
func IsTypingsReadFailure(err error) bool { return is(err, KindTypingsReadFailure) }

// IsUnresolvedSpecifier reports whether err is an UnresolvedSpecifier error.
func IsUnresolvedSpecifier(err error) bool { return is(err, KindUnresolvedSpecifier) }

// IsHTTPStatus reports whether err is an HTTPStatus error.
func IsHTTPStatus(err error) bool { return is(err, KindHTTPStatus) }

// IsNetworkError reports whether err is a NetworkError.
func IsNetworkError(err error) bool { return is(err, KindNetworkError) }

// IsJSONParse reports whether err is a JSONParse error.
func IsJSONParse(err error) bool { return is(err, KindJSONParse) }

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// HTTPStatus constructs an HTTPStatus error for the given URL and code.
func HTTPStatus(url string, code int) error {
	return &Error{Kind: KindHTTPStatus, Message: fmt.Sprintf("unexpected status %d fetching %s", code, url)}
}

// CircularDependency constructs a CircularDependency error carrying the
// offending chain of manifest sources.
func CircularDependency(chain []string) error {
	return &Error{Kind: KindCircularDependency, Message: fmt.Sprintf("circular dependency: %v", chain)}
}

// MissingDependency constructs the canonical "Missing dependency" message
// used when a compile is attempted against a node marked missing.
func MissingDependency(name string) error {
	return &Error{
		Kind:    KindMissingDependency,
		Message: fmt.Sprintf("Missing dependency %q, unable to compile dependency tree", name),
	}
}

// EntryResolution constructs the canonical "Unable to resolve entry" error.
func EntryResolution(name string) error {
	return &Error{
		Kind:    KindEntryResolution,
		Message: fmt.Sprintf("Unable to resolve entry \".d.ts\" file for %q", name),
	}
}

// EntryNotFound constructs an EntryNotFound error for a substituted
// implementation-file path that does not exist.
func EntryNotFound(name string) error {
	return &Error{Kind: KindEntryNotFound, Message: fmt.Sprintf("no .d.ts entry found for %q", name)}
}

// TypingsReadFailure constructs a TypingsReadFailure error for a
// namespaced dependency whose entry file could not be read.
func TypingsReadFailure(namespacedName string, err error) error {
	return &Error{Kind: KindTypingsReadFailure, Op: namespacedName, Message: "failed to read typings", Err: err}
}

// UnresolvedSpecifier constructs an UnresolvedSpecifier error.
func UnresolvedSpecifier(specifier, namespacedName string) error {
	return &Error{
		Kind:    KindUnresolvedSpecifier,
		Op:      namespacedName,
		Message: fmt.Sprintf("unresolved module specifier %q", specifier),
	}
}
