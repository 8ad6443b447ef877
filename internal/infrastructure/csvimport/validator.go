package csvimport

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// FieldType represents the expected type of a field
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeDate   FieldType = "date"
	TypeEmail  FieldType = "email"
	TypeBool   FieldType = "bool"
)

// DateLayouts are the date formats found in the legacy exports
var DateLayouts = []string{"02.01.2006", "2006-01-02", "2.1.2006"}

// FieldRule defines validation rules for a field
type FieldRule struct {
	Column      string
	Type        FieldType
	Required    bool
	MinLength   int
	MaxLength   int
	MinValue    *int64
	MaxValue    *int64
	Pattern     *regexp.Regexp
	PatternDesc string
	Choices     []string
	Unique      bool
	CustomFunc  func(value string) error
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field creates a new field rule builder
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{
		rule: FieldRule{
			Column: normalizeHeader(column),
			Type:   TypeString,
		},
	}
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Int sets the field type to integer
func (b *FieldRuleBuilder) Int() *FieldRuleBuilder {
	b.rule.Type = TypeInt
	return b
}

// Date sets the field type to date
func (b *FieldRuleBuilder) Date() *FieldRuleBuilder {
	b.rule.Type = TypeDate
	return b
}

// Email sets the field type to email
func (b *FieldRuleBuilder) Email() *FieldRuleBuilder {
	b.rule.Type = TypeEmail
	return b
}

// Bool sets the field type to boolean
func (b *FieldRuleBuilder) Bool() *FieldRuleBuilder {
	b.rule.Type = TypeBool
	return b
}

// MaxLength sets the maximum length in characters
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// Length sets the minimum and maximum length in characters
func (b *FieldRuleBuilder) Length(min, max int) *FieldRuleBuilder {
	b.rule.MinLength = min
	b.rule.MaxLength = max
	return b
}

// Range sets the allowed integer range
func (b *FieldRuleBuilder) Range(min, max int64) *FieldRuleBuilder {
	b.rule.MinValue = &min
	b.rule.MaxValue = &max
	return b
}

// Pattern sets a regex pattern for validation
func (b *FieldRuleBuilder) Pattern(pattern, description string) *FieldRuleBuilder {
	b.rule.Pattern = regexp.MustCompile(pattern)
	b.rule.PatternDesc = description
	return b
}

// OneOf restricts the value to the given choices (case insensitive)
func (b *FieldRuleBuilder) OneOf(choices ...string) *FieldRuleBuilder {
	b.rule.Choices = choices
	return b
}

// Unique marks the field as unique within the file
func (b *FieldRuleBuilder) Unique() *FieldRuleBuilder {
	b.rule.Unique = true
	return b
}

// Custom sets a custom validation function
func (b *FieldRuleBuilder) Custom(fn func(value string) error) *FieldRuleBuilder {
	b.rule.CustomFunc = fn
	return b
}

// Build returns the built field rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator validates rows according to rules. Uniqueness is tracked
// across calls, so one validator serves one file.
type FieldValidator struct {
	rules       []FieldRule
	uniqueCheck map[string]map[string]int // column -> value -> first row number
}

// NewFieldValidator creates a new field validator
func NewFieldValidator(rules ...FieldRule) *FieldValidator {
	return &FieldValidator{
		rules:       rules,
		uniqueCheck: make(map[string]map[string]int),
	}
}

// Columns returns the columns of the required rules
func (v *FieldValidator) Columns() []string {
	var cols []string
	for _, r := range v.rules {
		if r.Required {
			cols = append(cols, r.Column)
		}
	}
	return cols
}

// ValidateRow validates all fields in a row and returns the problems found
func (v *FieldValidator) ValidateRow(row *Row) []RowError {
	var errs []RowError
	for _, rule := range v.rules {
		if err, ok := v.validateField(row, rule); !ok {
			errs = append(errs, err)
		}
	}
	return errs
}

func (v *FieldValidator) validateField(row *Row, rule FieldRule) (RowError, bool) {
	line := row.LineNumber
	value := row.Get(rule.Column)

	if value == "" {
		if rule.Required {
			return NewRowError(line, rule.Column, ErrCodeRequiredField, "is required"), false
		}
		return RowError{}, true
	}

	if err := validateType(value, rule.Type); err != nil {
		return NewRowErrorWithValue(line, rule.Column, ErrCodeInvalidType, fmt.Sprintf("expected %s", rule.Type), value), false
	}

	length := utf8.RuneCountInString(value)
	if (rule.MaxLength > 0 && length > rule.MaxLength) || (rule.MinLength > 0 && length < rule.MinLength) {
		return NewRowErrorWithValue(line, rule.Column, ErrCodeInvalidLength, lengthMessage(rule.MinLength, rule.MaxLength), value), false
	}

	if rule.Type == TypeInt && (rule.MinValue != nil || rule.MaxValue != nil) {
		n, _ := strconv.ParseInt(value, 10, 64)
		if (rule.MinValue != nil && n < *rule.MinValue) || (rule.MaxValue != nil && n > *rule.MaxValue) {
			return NewRowErrorWithValue(line, rule.Column, ErrCodeInvalidRange, rangeMessage(rule.MinValue, rule.MaxValue), value), false
		}
	}

	if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
		return NewRowErrorWithValue(line, rule.Column, ErrCodePatternMismatch, fmt.Sprintf("must be %s", rule.PatternDesc), value), false
	}

	if len(rule.Choices) > 0 && !containsFold(rule.Choices, value) {
		return NewRowErrorWithValue(line, rule.Column, ErrCodeInvalidChoice,
			fmt.Sprintf("must be one of %s", strings.Join(rule.Choices, ", ")), value), false
	}

	if rule.Unique {
		seen := v.uniqueCheck[rule.Column]
		if seen == nil {
			seen = make(map[string]int)
			v.uniqueCheck[rule.Column] = seen
		}
		if first, exists := seen[value]; exists {
			return NewRowErrorWithValue(line, rule.Column, ErrCodeDuplicateInFile,
				fmt.Sprintf("duplicate value (first seen in row %d)", first), value), false
		}
		seen[value] = line
	}

	if rule.CustomFunc != nil {
		if err := rule.CustomFunc(value); err != nil {
			return NewRowErrorWithValue(line, rule.Column, ErrCodeValidation, err.Error(), value), false
		}
	}
	return RowError{}, true
}

func validateType(value string, fieldType FieldType) error {
	switch fieldType {
	case TypeInt:
		_, err := strconv.ParseInt(value, 10, 64)
		return err
	case TypeDate:
		_, err := ParseDate(value)
		return err
	case TypeEmail:
		_, err := mail.ParseAddress(value)
		return err
	case TypeBool:
		_, err := ParseBool(value)
		return err
	}
	return nil
}

func lengthMessage(min, max int) string {
	switch {
	case min > 0 && max > 0:
		return fmt.Sprintf("length must be between %d and %d", min, max)
	case max > 0:
		return fmt.Sprintf("length must be at most %d", max)
	}
	return fmt.Sprintf("length must be at least %d", min)
}

func rangeMessage(min, max *int64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("value must be between %d and %d", *min, *max)
	case max != nil:
		return fmt.Sprintf("value must be at most %d", *max)
	}
	return fmt.Sprintf("value must be at least %d", *min)
}

func containsFold(choices []string, value string) bool {
	for _, c := range choices {
		if strings.EqualFold(c, value) {
			return true
		}
	}
	return false
}

// ParseDate parses a date in one of the legacy layouts as UTC midnight
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

// ParseOptionalDate parses a date; an empty value yields nil
func ParseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseBool parses the boolean spellings found in the legacy exports
func ParseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "ja", "j", "x", "oui", "si":
		return true, nil
	case "", "0", "false", "no", "n", "nein", "non":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", value)
}
