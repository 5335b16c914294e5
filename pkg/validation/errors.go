package validation

import "fmt"

// Reason codes carried by Error. They are stable machine strings so callers can
// map them to localized messages.
const (
	ReasonRequired               = "required"
	ReasonMustBePositive         = "must_be_positive"
	ReasonMustBeNonNegative      = "must_be_non_negative"
	ReasonOutOfRange             = "out_of_range"
	ReasonMustNotExceedPrincipal = "must_not_exceed_principal"
	ReasonMustBeFinite           = "must_be_finite"
	ReasonUnsupported            = "unsupported"
	ReasonMustBeInteger          = "must_be_integer"
	ReasonMustDiffer             = "must_differ"
	ReasonBelowAbsoluteZero      = "below_absolute_zero"
)

// Error reports an input field that failed a precondition.
type Error struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// NewError returns a validation error for field.
func NewError(field, reason string) *Error {
	return &Error{Field: field, Reason: reason}
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
