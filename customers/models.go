package customers

import (
	"time"

	"customer-import/mapping"

	"gorm.io/gorm"
)

// Customer is a persisted shop customer
type Customer struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	CustomerID             string    `gorm:"uniqueIndex;not null" json:"customer_id"`
	Title                  string    `json:"title"`
	FirstName              string    `gorm:"not null" json:"first_name"`
	LastName               string    `gorm:"not null" json:"last_name"`
	Email                  string    `gorm:"index" json:"email"`
	Phone                  string    `json:"phone"`
	Gender                 string    `json:"gender"`
	ReferralSource         string    `json:"referral_source"`
	PreferredContactMethod string    `json:"preferred_contact_method"`
	StreetAddress          string    `json:"street_address"`
	AddressLine2           string    `gorm:"column:address_line_2" json:"address_line_2"`
	City                   string    `json:"city"`
	Province               string    `json:"province"`
	PostalCode             string    `json:"postal_code"`
	Country                string    `json:"country"`
	CreatedAt              time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}

// columns maps canonical fields to customer table columns
var columns = map[mapping.CanonicalField]string{
	mapping.FieldIdentifier:             "customer_id",
	mapping.FieldTitle:                  "title",
	mapping.FieldFirstName:              "first_name",
	mapping.FieldLastName:               "last_name",
	mapping.FieldEmail:                  "email",
	mapping.FieldPhone:                  "phone",
	mapping.FieldGender:                 "gender",
	mapping.FieldReferralSource:         "referral_source",
	mapping.FieldPreferredContactMethod: "preferred_contact_method",
	mapping.FieldStreetAddress:          "street_address",
	mapping.FieldAddressLine2:           "address_line_2",
	mapping.FieldCity:                   "city",
	mapping.FieldProvince:               "province",
	mapping.FieldPostalCode:             "postal_code",
	mapping.FieldCountry:                "country",
}

// NewCustomer builds a Customer from a candidate record
func NewCustomer(record mapping.Record) Customer {
	now := time.Now()
	return Customer{
		CustomerID:             record.Get(mapping.FieldIdentifier),
		Title:                  record.Get(mapping.FieldTitle),
		FirstName:              record.Get(mapping.FieldFirstName),
		LastName:               record.Get(mapping.FieldLastName),
		Email:                  record.Get(mapping.FieldEmail),
		Phone:                  record.Get(mapping.FieldPhone),
		Gender:                 record.Get(mapping.FieldGender),
		ReferralSource:         record.Get(mapping.FieldReferralSource),
		PreferredContactMethod: record.Get(mapping.FieldPreferredContactMethod),
		StreetAddress:          record.Get(mapping.FieldStreetAddress),
		AddressLine2:           record.Get(mapping.FieldAddressLine2),
		City:                   record.Get(mapping.FieldCity),
		Province:               record.Get(mapping.FieldProvince),
		PostalCode:             record.Get(mapping.FieldPostalCode),
		Country:                record.Get(mapping.FieldCountry),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// Record returns the customer as a candidate record with every field present
func (c Customer) Record() mapping.Record {
	return mapping.Record{
		mapping.FieldIdentifier:             c.CustomerID,
		mapping.FieldTitle:                  c.Title,
		mapping.FieldFirstName:              c.FirstName,
		mapping.FieldLastName:               c.LastName,
		mapping.FieldEmail:                  c.Email,
		mapping.FieldPhone:                  c.Phone,
		mapping.FieldGender:                 c.Gender,
		mapping.FieldReferralSource:         c.ReferralSource,
		mapping.FieldPreferredContactMethod: c.PreferredContactMethod,
		mapping.FieldStreetAddress:          c.StreetAddress,
		mapping.FieldAddressLine2:           c.AddressLine2,
		mapping.FieldCity:                   c.City,
		mapping.FieldProvince:               c.Province,
		mapping.FieldPostalCode:             c.PostalCode,
		mapping.FieldCountry:                c.Country,
	}
}

// AutoMigrate creates the customers table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Customer{})
}
