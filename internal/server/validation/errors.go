package validation

import (
	"sort"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// NonFieldErrors collects violations that do not belong to a single field.
const NonFieldErrors = "non_field_errors"

// ValidationError lists every violated rule, keyed by input field.
// It matches common.ErrValidation under errors.Is.
type ValidationError struct {
	Fields map[string][]string
}

// NewFieldError returns a ValidationError with a single message.
func NewFieldError(field, msg string) *ValidationError {
	e := &ValidationError{}
	e.Add(field, msg)
	return e
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// Err returns e, or nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation error: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == common.ErrValidation
}

// EmailTaken is the error reported when the store rejects a duplicate email,
// for example when a concurrent registration won the race.
func EmailTaken() *ValidationError {
	return NewFieldError("email", msgEmailTaken)
}
