package dynjson

import (
	"errors"
	"fmt"
)

// Sentinel errors for the codec failure taxonomy. Every codec failure is a
// *Error whose Unwrap returns one of these, so callers can classify with
// errors.Is while still getting the offending field path from the message.
var (
	ErrUnknownField   = errors.New("unknown field")
	ErrTypeMismatch   = errors.New("type mismatch")
	ErrInvalidEnum    = errors.New("invalid enum value")
	ErrAmbiguousOneof = errors.New("ambiguous oneof")
	ErrNotAnObject    = errors.New("not an object")
	ErrNotASequence   = errors.New("not a sequence")
)

// Error is a codec failure tied to a dotted field path from the message
// root. Codec failures terminate the current call before anything reaches
// the wire; they are never retried.
type Error struct {
	Kind   error // one of the sentinels above
	Path   string
	Detail string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%v at %q: %s", e.Kind, e.Path, e.Detail)
}

func (e *Error) Unwrap() error { return e.Kind }

func errUnknownField(path, key string) error {
	return &Error{Kind: ErrUnknownField, Path: path, Detail: fmt.Sprintf("no field %q in message", key)}
}

func errTypeMismatch(path, want string, got any) error {
	return &Error{Kind: ErrTypeMismatch, Path: path, Detail: fmt.Sprintf("expected %s, got %s", want, jsonTypeName(got))}
}

func errInvalidEnum(path string, value any, enum string) error {
	return &Error{Kind: ErrInvalidEnum, Path: path, Detail: fmt.Sprintf("%v is not a value of %s", value, enum)}
}

func errAmbiguousOneof(path, group, first, second string) error {
	return &Error{Kind: ErrAmbiguousOneof, Path: path, Detail: fmt.Sprintf("fields %q and %q both belong to oneof %q", first, second, group)}
}

func errNotAnObject(path string, got any) error {
	return &Error{Kind: ErrNotAnObject, Path: path, Detail: fmt.Sprintf("expected object, got %s", jsonTypeName(got))}
}

func errNotASequence(path string, got any) error {
	return &Error{Kind: ErrNotASequence, Path: path, Detail: fmt.Sprintf("expected array, got %s", jsonTypeName(got))}
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return "number"
	}
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}
