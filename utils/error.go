package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrorRecordNotFound = errors.New("record not found")

type ErrorKind string

func (k ErrorKind) String() string {
	return string(k)
}

const (
	KindValidation       ErrorKind = "Validation"
	KindDuplicate        ErrorKind = "Duplicate"
	KindReference        ErrorKind = "Reference"
	KindDependencyExists ErrorKind = "DependencyExists"
	KindNotFound         ErrorKind = "NotFound"
	KindInternal         ErrorKind = "Internal"
)

// DependentReference is one line of a refused delete.
type DependentReference struct {
	Model string `json:"model"`
	Count int64  `json:"count"`
	Field string `json:"field"`
}

// AppError is returned by every model operation for caller mistakes.
// Infrastructure errors are returned unwrapped.
type AppError struct {
	Err error `json:"-"`

	Kind ErrorKind `json:"kind"`

	// Field names the colliding or malformed input field.
	Field string `json:"field,omitempty"`

	// Reference names the reference that failed to resolve.
	Reference string `json:"reference,omitempty"`

	Message string `json:"message"`

	References []DependentReference `json:"references,omitempty"`
}

func (a *AppError) Error() string {
	if a.Message != "" {
		return a.Message
	}
	if a.Err != nil {
		return a.Err.Error()
	}
	return a.Kind.String()
}

func (a *AppError) Unwrap() error {
	return a.Err
}

// Is matches another *AppError of the same kind, so errors.Is(err, &AppError{Kind: KindDuplicate}) works.
func (a *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == a.Kind && (t.Field == "" || t.Field == a.Field) && (t.Reference == "" || t.Reference == a.Reference)
}

func NewValidationError(field string, format string, args ...any) *AppError {
	return &AppError{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NewDuplicateError(field string, value any) *AppError {
	return &AppError{Kind: KindDuplicate, Field: field, Message: fmt.Sprintf("duplicate %s %v", field, value)}
}

func NewReferenceError(reference string, format string, args ...any) *AppError {
	return &AppError{Kind: KindReference, Reference: reference, Message: fmt.Sprintf(format, args...)}
}

// NewParentMismatchError is a reference error raised when a cached parent code drifted from the live parent.
func NewParentMismatchError(reference string, supplied string, live string) *AppError {
	return &AppError{
		Kind:      KindReference,
		Reference: reference,
		Message:   fmt.Sprintf("%s code mismatch: supplied %q, current %q", reference, supplied, live),
	}
}

func NewNotFoundError(resource string, err error) *AppError {
	if err == nil {
		err = ErrorRecordNotFound
	}
	return &AppError{Kind: KindNotFound, Reference: resource, Message: resource + " not found", Err: err}
}

func NewDependencyExistsError(resource string, refs []DependentReference) *AppError {
	parts := make([]string, 0, len(refs))
	for _, r := range refs {
		parts = append(parts, fmt.Sprintf("%s(%d)", r.Model, r.Count))
	}
	return &AppError{
		Kind:       KindDependencyExists,
		Message:    fmt.Sprintf("cannot delete %s, referenced by %s", resource, strings.Join(parts, ", ")),
		References: refs,
	}
}

// KindOf returns the AppError kind of err, or KindInternal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, ErrorRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound
	}
	return KindInternal
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsDuplicateKeyErr recognises unique violations from gorm (TranslateError), MySQL (1062) and sqlite.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "Duplicate entry")
}

// TranslateDuplicate maps a unique violation into a DuplicateError for field, and passes anything else through.
func TranslateDuplicate(err error, field string, value any) error {
	if IsDuplicateKeyErr(err) {
		dup := NewDuplicateError(field, value)
		dup.Err = err
		return dup
	}
	return err
}
