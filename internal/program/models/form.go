package models

import (
	dErrors "cohort/pkg/domain-errors"
)

// FieldType enumerates the supported registration form field kinds.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldSelect   FieldType = "select"
	FieldFile     FieldType = "file"
	FieldCheckbox FieldType = "checkbox"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldTextarea, FieldNumber, FieldDate, FieldSelect, FieldFile, FieldCheckbox:
		return true
	}
	return false
}

// FormField describes one caller-defined registration form field. The schema
// is an ordered sequence; answers are keyed by label.
type FormField struct {
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required,omitempty"`
	Options  []string  `json:"options,omitempty"`
}

// ValidateSchema rejects malformed field descriptors at program creation.
func ValidateSchema(fields []FormField) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Label == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "form field label is required")
		}
		if !f.Type.Valid() {
			return dErrors.Newf(dErrors.CodeInvalidInput, "unknown form field type %q", f.Type)
		}
		if f.Type == FieldSelect && len(f.Options) == 0 {
			return dErrors.Newf(dErrors.CodeInvalidInput, "select field %q needs options", f.Label)
		}
		if _, dup := seen[f.Label]; dup {
			return dErrors.Newf(dErrors.CodeInvalidInput, "duplicate form field label %q", f.Label)
		}
		seen[f.Label] = struct{}{}
	}
	return nil
}

// ValidateAnswers checks submitted answers against the schema: every required
// field must carry a non-empty answer, and select answers must be one of the
// declared options. Unknown answer keys are tolerated (the data bag is
// free-form by design).
func ValidateAnswers(fields []FormField, answers map[string]any) error {
	for _, f := range fields {
		raw, ok := answers[f.Label]
		if !ok || isEmptyAnswer(raw) {
			if f.Required {
				return dErrors.Newf(dErrors.CodeInvalidInput, "field %q is required", f.Label)
			}
			continue
		}
		if f.Type == FieldSelect {
			s, isString := raw.(string)
			if !isString || !containsOption(f.Options, s) {
				return dErrors.Newf(dErrors.CodeInvalidInput, "field %q must be one of its options", f.Label)
			}
		}
	}
	return nil
}

func isEmptyAnswer(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}

func containsOption(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
