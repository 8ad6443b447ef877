package validation

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCommand struct {
	PersonID uuid.UUID `json:"person_id" validate:"required"`
	Email    string    `json:"email" validate:"omitempty,email"`
	Kind     string    `json:"kind" validate:"required,oneof=adult youth family"`
	Year     int       `json:"year" validate:"gte=1863,lte=2100"`
	Internal string    `validate:"max=3"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(testCommand{PersonID: uuid.New(), Kind: "adult", Year: 2024})
	assert.NoError(t, err)
}

func TestStruct_CollectsFieldErrors(t *testing.T) {
	err := Struct(testCommand{Email: "nope", Kind: "senior", Year: 1700, Internal: "toolong"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))

	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "This field is required", fields["person_id"])
	assert.Equal(t, "Invalid email format", fields["email"])
	assert.Equal(t, "Must be one of: adult youth family", fields["kind"])
	assert.Equal(t, "Must be greater than or equal to 1863", fields["year"])
	assert.Equal(t, "Must be at most 3 characters", fields["Internal"])
}

func TestStruct_MatchesInvalidInput(t *testing.T) {
	err := Struct(testCommand{})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Contains(t, err.Error(), "validation failed: ")
}

func TestValidatorIsShared(t *testing.T) {
	assert.Same(t, Validator(), Validator())
}
