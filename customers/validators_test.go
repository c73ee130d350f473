package customers

import (
	"testing"

	"customer-import/mapping"

	"github.com/stretchr/testify/assert"
)

func TestValidateCandidate_Clean(t *testing.T) {
	result := ValidateCandidate(mapping.Record{
		mapping.FieldFirstName:              "John",
		mapping.FieldLastName:               "Doe",
		mapping.FieldEmail:                  "john@x.com",
		mapping.FieldGender:                 "M",
		mapping.FieldPreferredContactMethod: "SMS",
	}, 1)

	assert.True(t, result.Valid)
	assert.Empty(t, result.ErrorMessages())
	assert.Empty(t, result.WarningMessages())
}

func TestValidateCandidate_FirstNameRequired(t *testing.T) {
	record := mapping.Record{mapping.FieldFirstName: "", mapping.FieldLastName: "Smith"}

	result := ValidateCandidate(record, 2)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"First name is required"}, result.ErrorMessages())

	record[mapping.FieldFirstName] = "x"
	result = ValidateCandidate(record, 2)
	assert.True(t, result.Valid)
	assert.NotContains(t, result.ErrorMessages(), "First name is required")
}

func TestValidateCandidate_NotShortCircuiting(t *testing.T) {
	result := ValidateCandidate(mapping.Record{
		mapping.FieldEmail:                  "not-an-email",
		mapping.FieldGender:                 "unknown",
		mapping.FieldPreferredContactMethod: "pigeon",
	}, 3)

	assert.Equal(t, []string{"First name is required", "Last name is required"}, result.ErrorMessages())
	warnings := result.WarningMessages()
	assert.Len(t, warnings, 3)
	assert.Equal(t, "Email format may be invalid", warnings[0])
	assert.Contains(t, warnings[1], "Gender")
	assert.Contains(t, warnings[2], "Preferred contact method")
}

func TestValidateCandidate_WarningsDoNotBlock(t *testing.T) {
	result := ValidateCandidate(mapping.Record{
		mapping.FieldFirstName: "Ann",
		mapping.FieldLastName:  "Lee",
		mapping.FieldEmail:     "ann.at.example.com",
	}, 4)

	assert.True(t, result.Valid)
	assert.Equal(t, []string{"Email format may be invalid"}, result.WarningMessages())
}

func TestImportable(t *testing.T) {
	assert.True(t, Importable(mapping.Record{mapping.FieldFirstName: "A", mapping.FieldLastName: "B"}))
	assert.False(t, Importable(mapping.Record{mapping.FieldFirstName: " ", mapping.FieldLastName: "B"}))
	assert.False(t, Importable(mapping.Record{mapping.FieldFirstName: "A"}))
}
