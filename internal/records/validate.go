// Package records is the typed boundary over the gateway's untyped rows. Every
// row is decoded into a model struct and validated before the client core sees
// it.
package records

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError is a single invalid field of a row.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports a row that does not match its model.
type ValidationError struct {
	Table  string
	Fields []FieldError
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("records: invalid %s row: %v", e.Table, e.Err)
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return fmt.Sprintf("records: invalid %s row: %s", e.Table, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return e.Err }

func newValidationError(table string, err error) error {
	ve := &ValidationError{Table: table, Err: err}
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range errs {
			ve.Fields = append(ve.Fields, FieldError{Field: fe.Namespace(), Error: fe.Tag()})
		}
	}
	return ve
}

// Validate runs the struct validation rules on v.
// Slices are validated element by element.
func Validate(table string, v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := Validate(fmt.Sprintf("%s[%d]", table, i), rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		if err := validate.Struct(rv.Interface()); err != nil {
			return newValidationError(table, err)
		}
	}
	return nil
}

// decode converts an untyped row (or any JSON-shaped value) into T and validates it.
func decode[T any](table string, raw any) (T, error) {
	var out T
	data, err := json.Marshal(raw)
	if err != nil {
		return out, newValidationError(table, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, newValidationError(table, err)
	}
	if err := Validate(table, out); err != nil {
		return out, err
	}
	return out, nil
}

// toRecord converts a wire struct into a gateway row.
func toRecord(v any) (gateway.Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec gateway.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}
