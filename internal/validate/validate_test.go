package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
)

func TestStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name   string
		in     domain.GenerateInput
		fields []string
	}{
		{"valid", domain.GenerateInput{Subject: "Rust", Category: "Programming", Difficulty: domain.DifficultyBeginner}, nil},
		{"short subject", domain.GenerateInput{Subject: "Go", Category: "Programming", Difficulty: domain.DifficultyBeginner}, []string{"subject"}},
		{"unknown category", domain.GenerateInput{Subject: "Rust", Category: "Cooking", Difficulty: domain.DifficultyBeginner}, []string{"category"}},
		{"missing everything", domain.GenerateInput{}, []string{"subject", "category", "difficulty"}},
		{"bad difficulty", domain.GenerateInput{Subject: "Rust", Category: "Science", Difficulty: "expert"}, []string{"difficulty"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, port.ErrValidation)
			var verr *Error
			require.ErrorAs(t, err, &verr)
			var got []string
			for _, f := range verr.Fields {
				got = append(got, f.Field)
				assert.NotEmpty(t, f.Message)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}

func TestMessages(t *testing.T) {
	v := New()
	err := v.Struct(domain.GenerateInput{Subject: "Go", Category: "Cooking", Difficulty: domain.DifficultyAdvanced})

	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "subject must be at least 3 characters", verr.Message("subject"))
	assert.Equal(t, "category must be one of the listed categories", verr.Message("category"))
	assert.Empty(t, verr.Message("difficulty"))
}

func TestField(t *testing.T) {
	v := New()
	in := domain.GenerateInput{Subject: "Rust"}

	assert.NoError(t, v.Field(in, "Subject"))
	assert.ErrorIs(t, v.Field(in, "Category"), port.ErrValidation)
}
