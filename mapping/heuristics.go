package mapping

import (
	"strings"

	"github.com/gosimple/slug"
)

// rule proposes field when match accepts the normalized header
type rule struct {
	match func(h string) bool
	field CanonicalField
}

func contains(subs ...string) func(string) bool {
	return func(h string) bool {
		for _, s := range subs {
			if strings.Contains(h, s) {
				return true
			}
		}
		return false
	}
}

func equals(values ...string) func(string) bool {
	return func(h string) bool {
		for _, v := range values {
			if h == v {
				return true
			}
		}
		return false
	}
}

func prefix(values ...string) func(string) bool {
	return func(h string) bool {
		for _, v := range values {
			if strings.HasPrefix(h, v) {
				return true
			}
		}
		return false
	}
}

func either(preds ...func(string) bool) func(string) bool {
	return func(h string) bool {
		for _, p := range preds {
			if p(h) {
				return true
			}
		}
		return false
	}
}

// rules is evaluated top to bottom, first match wins.
// Contact method sits above email/phone and address line 2 above street
// because their headers usually contain the more general words. Mailing and
// postal addresses sit above email and postal code for the same reason.
var rules = []rule{
	{either(contains("customerid", "customerno", "customernumber", "clientid"), equals("id", "custid", "custno")), FieldIdentifier},
	{either(contains("firstname", "givenname", "forename"), equals("fname", "first")), FieldFirstName},
	{either(contains("lastname", "surname", "familyname"), equals("lname", "last")), FieldLastName},
	{either(contains("contactmethod", "preferredcontact", "contactpreference"), equals("contactvia")), FieldPreferredContactMethod},
	{contains("mailingaddress", "postaladdress"), FieldStreetAddress},
	{contains("email", "mail"), FieldEmail},
	{either(contains("phone", "mobile", "cell"), equals("tel", "telephone", "telefon")), FieldPhone},
	{either(contains("gender"), equals("sex")), FieldGender},
	{contains("referral", "referred", "source", "hearabout", "howdidyou"), FieldReferralSource},
	{contains("address2", "addressline2", "line2", "apartment", "suite"), FieldAddressLine2},
	{either(contains("street", "address"), equals("addr", "addressline1")), FieldStreetAddress},
	{either(equals("city", "town", "suburb", "homecity", "hometown"), prefix("city", "town")), FieldCity},
	{contains("province", "state", "region", "county"), FieldProvince},
	{contains("postal", "zip", "postcode"), FieldPostalCode},
	{contains("country"), FieldCountry},
	{equals("title", "salutation", "prefix", "honorific"), FieldTitle},
}

// NormalizeHeader lower-cases and transliterates a header and strips separators,
// so "E-Mail", "email_address" and "Street Address" become "email", "emailaddress", "streetaddress".
func NormalizeHeader(header string) string {
	normalized := slug.Make(header)
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(normalized)
}

// Guess proposes a canonical field for a single header
func Guess(header string) CanonicalField {
	h := NormalizeHeader(header)
	if h == "" {
		return DoNotImport
	}
	for _, r := range rules {
		if r.match(h) {
			return r.field
		}
	}
	return DoNotImport
}

// Propose builds the initial mapping for the given headers.
// It is advisory only: the operator may override every entry.
func Propose(headers []string) Mapping {
	m := make(Mapping, len(headers))
	for i, header := range headers {
		m[i] = Entry{SourceColumn: header, TargetField: Guess(header)}
	}
	return m
}
