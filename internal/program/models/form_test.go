package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cohort/pkg/domain-errors"
)

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		fields  []FormField
		wantErr string
	}{
		{
			name: "valid mixed schema",
			fields: []FormField{
				{Label: "Motivation", Type: FieldTextarea, Required: true},
				{Label: "Track", Type: FieldSelect, Options: []string{"fintech", "health"}},
				{Label: "CV", Type: FieldFile},
			},
		},
		{
			name:    "missing label",
			fields:  []FormField{{Type: FieldText}},
			wantErr: "label is required",
		},
		{
			name:    "unknown type",
			fields:  []FormField{{Label: "Age", Type: FieldType("range")}},
			wantErr: "unknown form field type",
		},
		{
			name:    "select without options",
			fields:  []FormField{{Label: "Track", Type: FieldSelect}},
			wantErr: "needs options",
		},
		{
			name: "duplicate label",
			fields: []FormField{
				{Label: "Name", Type: FieldText},
				{Label: "Name", Type: FieldTextarea},
			},
			wantErr: "duplicate form field label",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchema(tt.fields)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAnswers(t *testing.T) {
	fields := []FormField{
		{Label: "Motivation", Type: FieldTextarea, Required: true},
		{Label: "Track", Type: FieldSelect, Options: []string{"fintech", "health"}},
		{Label: "Website", Type: FieldText},
	}

	t.Run("required answer missing", func(t *testing.T) {
		err := ValidateAnswers(fields, map[string]any{"Track": "fintech"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"Motivation" is required`)
	})

	t.Run("empty string counts as missing", func(t *testing.T) {
		err := ValidateAnswers(fields, map[string]any{"Motivation": ""})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("select answer outside options", func(t *testing.T) {
		err := ValidateAnswers(fields, map[string]any{
			"Motivation": "build things",
			"Track":      "space",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be one of its options")
	})

	t.Run("select answer must be a string", func(t *testing.T) {
		err := ValidateAnswers(fields, map[string]any{
			"Motivation": "build things",
			"Track":      7,
		})
		require.Error(t, err)
	})

	t.Run("optional fields may be absent and unknown keys pass", func(t *testing.T) {
		err := ValidateAnswers(fields, map[string]any{
			"Motivation": "build things",
			"Nickname":   "ada",
		})
		assert.NoError(t, err)
	})
}
