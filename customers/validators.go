package customers

import (
	"strings"

	"customer-import/common"
	"customer-import/mapping"
)

var (
	allowedGenders        = []string{"male", "female", "other", "m", "f"}
	allowedContactMethods = []string{"email", "phone", "sms"}
)

// ValidateCandidate runs the preview rules on a candidate record.
// Every rule is evaluated so all diagnostics surface together.
func ValidateCandidate(record mapping.Record, rowNum int) *common.RecordValidationResult {
	result := &common.RecordValidationResult{
		RowNumber: rowNum,
		RecordID:  record.Get(mapping.FieldIdentifier),
		Valid:     true,
	}

	if err := common.ValidateRequired("First name", record.Get(mapping.FieldFirstName)); err != nil {
		result.AddError(string(mapping.FieldFirstName), err.Message)
	}
	if err := common.ValidateRequired("Last name", record.Get(mapping.FieldLastName)); err != nil {
		result.AddError(string(mapping.FieldLastName), err.Message)
	}

	if email := record.Get(mapping.FieldEmail); email != "" && !strings.Contains(email, "@") {
		result.AddWarning(string(mapping.FieldEmail), "Email format may be invalid")
	}

	if gender := record.Get(mapping.FieldGender); gender != "" {
		if err := common.ValidateEnumFold("Gender", gender, allowedGenders); err != nil {
			result.AddWarning(string(mapping.FieldGender), err.Message)
		}
	}

	if method := record.Get(mapping.FieldPreferredContactMethod); method != "" {
		if err := common.ValidateEnumFold("Preferred contact method", method, allowedContactMethods); err != nil {
			result.AddWarning(string(mapping.FieldPreferredContactMethod), err.Message)
		}
	}

	return result
}

// Importable reports whether a record satisfies the hard commit-time requirement
func Importable(record mapping.Record) bool {
	return common.ValidateRequired("First name", record.Get(mapping.FieldFirstName)) == nil &&
		common.ValidateRequired("Last name", record.Get(mapping.FieldLastName)) == nil
}
