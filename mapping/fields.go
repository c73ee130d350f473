package mapping

// CanonicalField is a customer attribute an import column can be mapped to
type CanonicalField string

// DoNotImport marks a column that is left out of the import
const DoNotImport CanonicalField = ""

const (
	FieldIdentifier             CanonicalField = "customer_id"
	FieldTitle                  CanonicalField = "title"
	FieldFirstName              CanonicalField = "first_name"
	FieldLastName               CanonicalField = "last_name"
	FieldEmail                  CanonicalField = "email"
	FieldPhone                  CanonicalField = "phone"
	FieldGender                 CanonicalField = "gender"
	FieldReferralSource         CanonicalField = "referral_source"
	FieldPreferredContactMethod CanonicalField = "preferred_contact_method"
	FieldStreetAddress          CanonicalField = "street_address"
	FieldAddressLine2           CanonicalField = "address_line_2"
	FieldCity                   CanonicalField = "city"
	FieldProvince               CanonicalField = "province"
	FieldPostalCode             CanonicalField = "postal_code"
	FieldCountry                CanonicalField = "country"
)

// Fields lists every canonical field in display order
var Fields = []CanonicalField{
	FieldIdentifier,
	FieldTitle,
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhone,
	FieldGender,
	FieldReferralSource,
	FieldPreferredContactMethod,
	FieldStreetAddress,
	FieldAddressLine2,
	FieldCity,
	FieldProvince,
	FieldPostalCode,
	FieldCountry,
}

// RequiredFields must be mapped before an import can be previewed
var RequiredFields = []CanonicalField{FieldFirstName, FieldLastName}

var labels = map[CanonicalField]string{
	FieldIdentifier:             "Customer ID",
	FieldTitle:                  "Title",
	FieldFirstName:              "First Name",
	FieldLastName:               "Last Name",
	FieldEmail:                  "Email",
	FieldPhone:                  "Phone",
	FieldGender:                 "Gender",
	FieldReferralSource:         "Referral Source",
	FieldPreferredContactMethod: "Preferred Contact Method",
	FieldStreetAddress:          "Street Address",
	FieldAddressLine2:           "Address Line 2",
	FieldCity:                   "City",
	FieldProvince:               "Province",
	FieldPostalCode:             "Postal Code",
	FieldCountry:                "Country",
}

// Label returns the human readable name of the field
func (f CanonicalField) Label() string {
	if f == DoNotImport {
		return "Do not import"
	}
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// Valid reports whether f is DoNotImport or a known canonical field
func (f CanonicalField) Valid() bool {
	if f == DoNotImport {
		return true
	}
	_, ok := labels[f]
	return ok
}

// Required reports whether f must be mapped
func (f CanonicalField) Required() bool {
	for _, r := range RequiredFields {
		if f == r {
			return true
		}
	}
	return false
}

// Record is a candidate customer: canonical field to trimmed value.
// Only mapped fields are present.
type Record map[CanonicalField]string

// Get returns the value of field, "" when absent
func (r Record) Get(field CanonicalField) string {
	return r[field]
}

// Has reports whether field was mapped for this record
func (r Record) Has(field CanonicalField) bool {
	_, ok := r[field]
	return ok
}
