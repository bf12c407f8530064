// Package validator wraps go-playground/validator for request validation.
package validator

import "github.com/go-playground/validator/v10"

// Validator validates request structs via struct tags. Wrapping the
// library keeps handlers testable with an injected instance.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the default rule set. Custom rules can
// be added with RegisterValidation.
func New() *Validator {
	return &Validator{v: validator.New()}
}

// Struct validates a struct based on its validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single value against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}
