package imports

import (
	"context"
	"strings"

	"customer-import/common"
	"customer-import/customers"
	"customer-import/mapping"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// IdentityKey decides which incoming records refer to an existing customer
type IdentityKey interface {
	// Key returns the normalized identity of a record, "" when it has none
	Key(record mapping.Record) string
	// Lookup finds the persisted customer with that identity, nil when absent
	Lookup(ctx context.Context, store customers.Store, key string) (*customers.Customer, error)
}

// EmailIdentity matches customers on case-insensitive email
type EmailIdentity struct{}

// Key returns the trimmed, lower-cased email
func (EmailIdentity) Key(record mapping.Record) string {
	return NormalizeEmail(record.Get(mapping.FieldEmail))
}

// Lookup finds a customer by email
func (EmailIdentity) Lookup(ctx context.Context, store customers.Store, key string) (*customers.Customer, error) {
	return store.FindCustomerByEmail(ctx, key)
}

// NormalizeEmail trims and lower-cases an email
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Conflict is an incoming record whose identity already exists in the store.
// Email holds the normalized identity key and is unique within a session.
type Conflict struct {
	Email     string             `json:"email"`
	RowNumber int                `json:"row_number"`
	Incoming  mapping.Record     `json:"incoming"`
	Existing  customers.Customer `json:"existing"`
}

// ConflictDetector checks candidate records against the persisted customers
type ConflictDetector struct {
	store    customers.Store
	identity IdentityKey
	logger   *zap.Logger
}

// NewConflictDetector creates a detector using identity to match records
func NewConflictDetector(store customers.Store, identity IdentityKey, logger *zap.Logger) *ConflictDetector {
	return &ConflictDetector{
		store:    store,
		identity: identity,
		logger:   logger.Named("conflict-detector"),
	}
}

// Detect looks up every record with a non-empty identity, one at a time.
// It only reads; the first incoming row wins when several share an existing identity.
func (d *ConflictDetector) Detect(ctx context.Context, records []mapping.Record) ([]Conflict, error) {
	conflicts := []Conflict{}
	seen := make(map[string]bool)

	for i, record := range records {
		key := d.identity.Key(record)
		if key == "" || seen[key] {
			continue
		}

		existing, err := d.identity.Lookup(ctx, d.store, key)
		if err != nil {
			return nil, eris.Wrapf(err, "lookup row %d", i+1)
		}
		if existing == nil {
			continue
		}

		seen[key] = true
		conflicts = append(conflicts, Conflict{
			Email:     key,
			RowNumber: i + 1,
			Incoming:  record,
			Existing:  *existing,
		})
		d.logger.Debug("conflict detected",
			zap.Int("row", i+1),
			zap.String("email", common.RedactEmail(key)),
			zap.String("existing_customer_id", existing.CustomerID))
	}

	d.logger.Info("conflict detection finished",
		zap.Int("records", len(records)),
		zap.Int("conflicts", len(conflicts)))
	return conflicts, nil
}
