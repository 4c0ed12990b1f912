package storage

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// Kind classifies a storage failure.
type Kind int

const (
	// KindOther is any failure that is not one of the conditions below.
	KindOther Kind = iota

	// KindUniqueViolation means a write would duplicate a unique value.
	KindUniqueViolation

	// KindForeignKeyViolation means a write references a missing row, or a
	// delete would orphan rows that reference it.
	KindForeignKeyViolation

	// KindNotFound means the addressed row does not exist.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindUniqueViolation:
		return "unique_violation"
	case KindForeignKeyViolation:
		return "foreign_key_violation"
	case KindNotFound:
		return "not_found"
	default:
		return "other"
	}
}

// Sentinel errors, matched by errors.Is against an *Error of the same kind.
var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record already exists")
	ErrReference = errors.New("record reference violated")
)

// Error is the tagged failure returned by every adapter.
type Error struct {
	Kind Kind

	// Entity names the affected record type ("user", "author", "book").
	Entity string

	// Fields lists the columns involved in a constraint violation.
	Fields []string

	Err error

	stack string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Entity != "" {
		b.WriteString(e.Entity)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Fields, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel corresponding to the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindUniqueViolation
	case ErrReference:
		return e.Kind == KindForeignKeyViolation
	}
	return false
}

// NotFound reports a missing entity.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity}
}

// Unique reports a uniqueness violation on fields.
func Unique(entity string, cause error, fields ...string) *Error {
	return &Error{Kind: KindUniqueViolation, Entity: entity, Fields: fields, Err: cause}
}

// ForeignKey reports a foreign-key violation on fields.
func ForeignKey(entity string, cause error, fields ...string) *Error {
	return &Error{Kind: KindForeignKeyViolation, Entity: entity, Fields: fields, Err: cause}
}

// Other wraps an unclassified failure and records the stack of the store
// call that observed it.
func Other(entity string, err error) *Error {
	return &Error{Kind: KindOther, Entity: entity, Err: err, stack: string(debug.Stack())}
}

// Stack returns the stack recorded by Other, or "" for classified kinds.
func (e *Error) Stack() string { return e.stack }

// KindOf returns the kind of the first *Error in err's chain, and false if
// there is none.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return KindOther, false
}
