package csvimport

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(line int, data map[string]string) *Row {
	return &Row{LineNumber: line, Data: data}
}

func TestFieldRuleBuilder(t *testing.T) {
	rule := Field("Foundation_Year").Int().Range(1863, 2100).Required().Unique().Build()

	assert.Equal(t, "foundation_year", rule.Column)
	assert.Equal(t, TypeInt, rule.Type)
	assert.True(t, rule.Required)
	assert.True(t, rule.Unique)
	assert.Equal(t, int64(1863), *rule.MinValue)
	assert.Equal(t, int64(2100), *rule.MaxValue)
}

func TestFieldValidator_ValidateRow(t *testing.T) {
	v := NewFieldValidator(
		Field("navision_id").Required().Int().Unique().Build(),
		Field("name").Required().MaxLength(10).Build(),
		Field("canton").Pattern(`^[A-Z]{2}$`, "a canton code").Build(),
		Field("gender").OneOf("m", "w").Build(),
		Field("birthday").Date().Build(),
		Field("email").Email().Build(),
		Field("terminated").Bool().Build(),
		Field("zip").Custom(func(s string) error {
			if len(s) != 4 {
				return errors.New("must have four digits")
			}
			return nil
		}).Build(),
	)

	t.Run("valid row", func(t *testing.T) {
		errs := v.ValidateRow(row(2, map[string]string{
			"navision_id": "1", "name": "Bern", "canton": "BE", "gender": "W",
			"birthday": "04.03.1980", "email": "a@example.com", "terminated": "Nein", "zip": "3000",
		}))
		assert.Empty(t, errs)
	})

	t.Run("each rule reports one error", func(t *testing.T) {
		errs := v.ValidateRow(row(3, map[string]string{
			"navision_id": "abc", "name": "", "canton": "Bern", "gender": "x",
			"birthday": "1980/03/04", "email": "nope", "terminated": "vielleicht", "zip": "30",
		}))
		codes := map[string]string{}
		for _, e := range errs {
			codes[e.Column] = e.Code
			assert.Equal(t, 3, e.Row)
		}
		assert.Equal(t, map[string]string{
			"navision_id": ErrCodeInvalidType,
			"name":        ErrCodeRequiredField,
			"canton":      ErrCodePatternMismatch,
			"gender":      ErrCodeInvalidChoice,
			"birthday":    ErrCodeInvalidType,
			"email":       ErrCodeInvalidType,
			"terminated":  ErrCodeInvalidType,
			"zip":         ErrCodeValidation,
		}, codes)
	})

	t.Run("duplicate in file", func(t *testing.T) {
		first := v.ValidateRow(row(4, map[string]string{"navision_id": "77", "name": "A"}))
		assert.Empty(t, first)
		second := v.ValidateRow(row(5, map[string]string{"navision_id": "77", "name": "B"}))
		require.Len(t, second, 1)
		assert.Equal(t, ErrCodeDuplicateInFile, second[0].Code)
		assert.Contains(t, second[0].Message, "row 4")
	})

	t.Run("length counts characters", func(t *testing.T) {
		errs := v.ValidateRow(row(6, map[string]string{"navision_id": "8", "name": "Blüemlisal"}))
		assert.Empty(t, errs)
		errs = v.ValidateRow(row(7, map[string]string{"navision_id": "9", "name": "Blüemlisalp"}))
		require.Len(t, errs, 1)
		assert.Equal(t, ErrCodeInvalidLength, errs[0].Code)
	})

	assert.Equal(t, []string{"navision_id", "name"}, v.Columns())
}

func TestFieldValidator_Range(t *testing.T) {
	v := NewFieldValidator(Field("year").Int().Range(1863, 2100).Build())

	errs := v.ValidateRow(row(2, map[string]string{"year": "1700"}))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeInvalidRange, errs[0].Code)
	assert.Equal(t, "value must be between 1863 and 2100", errs[0].Message)
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"04.03.1980", "1980-03-04", "4.3.1980"} {
		d, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, time.Date(1980, time.March, 4, 0, 0, 0, 0, time.UTC), d)
	}
	_, err := ParseDate("31.02.1980")
	assert.Error(t, err)

	none, err := ParseOptionalDate(" ")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestParseBool(t *testing.T) {
	for _, in := range []string{"1", "ja", "X", "true"} {
		b, err := ParseBool(in)
		require.NoError(t, err)
		assert.True(t, b, in)
	}
	for _, in := range []string{"", "0", "Nein", "false"} {
		b, err := ParseBool(in)
		require.NoError(t, err)
		assert.False(t, b, in)
	}
	_, err := ParseBool("maybe")
	assert.Error(t, err)
}
