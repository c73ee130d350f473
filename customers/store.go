package customers

import (
	"context"
	"errors"
	"strings"
	"time"

	"customer-import/mapping"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// Store is the persistence contract the import pipeline consumes
type Store interface {
	InsertCustomer(ctx context.Context, record mapping.Record) (*Customer, error)
	UpdateCustomer(ctx context.Context, id uint, record mapping.Record) (*Customer, error)
	// FindCustomerByEmail matches case-insensitively; nil, nil when absent
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	// FindCustomerByIdentifier returns nil, nil when absent
	FindCustomerByIdentifier(ctx context.Context, identifier string) (*Customer, error)
	ListAllCustomerIdentifiers(ctx context.Context) ([]string, error)
}

// GormStore implements Store on the customers table
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore on db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// InsertCustomer creates a customer from record
func (s *GormStore) InsertCustomer(ctx context.Context, record mapping.Record) (*Customer, error) {
	customer := NewCustomer(record)
	if customer.CustomerID == "" {
		return nil, eris.New("insert customer: identifier is required")
	}
	if err := s.db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, eris.Wrapf(err, "insert customer %s", customer.CustomerID)
	}
	return &customer, nil
}

// UpdateCustomer overwrites the columns present in record; fields absent from
// record keep their stored values
func (s *GormStore) UpdateCustomer(ctx context.Context, id uint, record mapping.Record) (*Customer, error) {
	updates := make(map[string]interface{}, len(record)+1)
	for field, value := range record {
		col, ok := columns[field]
		if !ok {
			continue
		}
		updates[col] = value
	}
	updates["updated_at"] = time.Now()

	result := s.db.WithContext(ctx).Model(&Customer{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, eris.Wrapf(result.Error, "update customer %d", id)
	}
	if result.RowsAffected == 0 {
		return nil, eris.Errorf("update customer %d: not found", id)
	}

	var customer Customer
	if err := s.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		return nil, eris.Wrapf(err, "reload customer %d", id)
	}
	return &customer, nil
}

// FindCustomerByEmail looks a customer up by email, ignoring case
func (s *GormStore) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	return s.first(ctx, "LOWER(email) = ?", email)
}

// FindCustomerByIdentifier looks a customer up by its customer identifier
func (s *GormStore) FindCustomerByIdentifier(ctx context.Context, identifier string) (*Customer, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}
	return s.first(ctx, "customer_id = ?", identifier)
}

func (s *GormStore) first(ctx context.Context, query string, arg interface{}) (*Customer, error) {
	var customer Customer
	err := s.db.WithContext(ctx).Where(query, arg).Order("id").First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "find customer")
	}
	return &customer, nil
}

// ListAllCustomerIdentifiers returns every stored customer identifier
func (s *GormStore) ListAllCustomerIdentifiers(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&Customer{}).Pluck("customer_id", &ids).Error; err != nil {
		return nil, eris.Wrap(err, "list customer identifiers")
	}
	return ids, nil
}

// ListCustomers returns a page of customers ordered by primary key
func (s *GormStore) ListCustomers(ctx context.Context, offset, limit int) ([]Customer, error) {
	var list []Customer
	err := s.db.WithContext(ctx).Order("id").Limit(limit).Offset(offset).Find(&list).Error
	if err != nil {
		return nil, eris.Wrap(err, "list customers")
	}
	return list, nil
}
