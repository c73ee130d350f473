package imports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"customer-import/common"
	"customer-import/customers"
	"customer-import/mapping"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// RowAction is what the commit loop did with one row
type RowAction string

const (
	ActionInserted  RowAction = "inserted"
	ActionMerged    RowAction = "merged"
	ActionSkipped   RowAction = "skipped"
	ActionDuplicate RowAction = "duplicate"
	ActionInvalid   RowAction = "invalid"
	ActionFailed    RowAction = "failed"
)

// RowOutcome is the per-row result of a commit, kept so callers can retry failed rows
type RowOutcome struct {
	RowNumber  int       `json:"row_number"`
	Identifier string    `json:"customer_id,omitempty"`
	Email      string    `json:"email,omitempty"`
	Action     RowAction `json:"action"`
	Error      string    `json:"error,omitempty"`
}

// NotificationKind is the severity of the end-of-batch notification
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
	NotificationError   NotificationKind = "error"
)

// Notification is the single summary shown to the operator after a commit
type Notification struct {
	Kind NotificationKind `json:"kind"`
	Text string           `json:"text"`
}

// Report accumulates the commit counters.
// Duplicate identifiers count both as duplicates and as errors.
type Report struct {
	Total          int          `json:"total"`
	SuccessCount   int          `json:"success_count"`
	DuplicateCount int          `json:"duplicate_count"`
	SkippedCount   int          `json:"skipped_count"`
	ErrorCount     int          `json:"error_count"`
	Outcomes       []RowOutcome `json:"outcomes"`
}

// Notification summarizes the report
func (r *Report) Notification() Notification {
	if r.SuccessCount == 0 {
		text := "No customers were imported"
		if r.ErrorCount > 0 {
			text += fmt.Sprintf(", %d errors", r.ErrorCount)
		}
		return Notification{Kind: NotificationError, Text: text}
	}

	text := fmt.Sprintf("Imported %d customers", r.SuccessCount)
	if r.DuplicateCount > 0 {
		text += fmt.Sprintf(", %d duplicates", r.DuplicateCount)
	}
	if r.SkippedCount > 0 {
		text += fmt.Sprintf(", %d skipped", r.SkippedCount)
	}
	if r.ErrorCount > 0 {
		text += fmt.Sprintf(", %d errors", r.ErrorCount)
	}

	kind := NotificationSuccess
	if r.ErrorCount > 0 {
		kind = NotificationWarning
	}
	return Notification{Kind: kind, Text: text}
}

// Failed returns the outcomes that did not persist anything
func (r *Report) Failed() []RowOutcome {
	var failed []RowOutcome
	for _, o := range r.Outcomes {
		if o.Error != "" {
			failed = append(failed, o)
		}
	}
	return failed
}

func (r *Report) record(o RowOutcome) {
	switch o.Action {
	case ActionInserted, ActionMerged:
		r.SuccessCount++
	case ActionSkipped:
		r.SkippedCount++
	case ActionDuplicate:
		r.DuplicateCount++
		r.ErrorCount++
	default:
		r.ErrorCount++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// ProgressFunc receives commit progress as a percentage
type ProgressFunc func(percent int)

// Executor runs the commit loop. Rows are written one at a time and each write
// is committed on its own; there is no batch transaction to roll back.
type Executor struct {
	store      customers.Store
	identity   IdentityKey
	prefix     string
	rowTimeout time.Duration
	logger     *zap.Logger
}

// NewExecutor creates an Executor. prefix is used for generated identifiers
// when the store holds none yet.
func NewExecutor(store customers.Store, identity IdentityKey, prefix string, rowTimeout time.Duration, logger *zap.Logger) *Executor {
	return &Executor{
		store:      store,
		identity:   identity,
		prefix:     prefix,
		rowTimeout: rowTimeout,
		logger:     logger.Named("executor"),
	}
}

type pendingRow struct {
	number int
	record mapping.Record
}

// Run commits every record. Rows that carry an explicit identifier go first so
// their identifiers are reserved before any are generated. Row failures are
// counted and never stop the loop; only failing to seed the identifier
// generator returns an error, before anything is written.
func (e *Executor) Run(ctx context.Context, records []mapping.Record, conflicts []Conflict, resolutions Resolutions, progress ProgressFunc) (*Report, error) {
	persisted, err := e.store.ListAllCustomerIdentifiers(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "seed identifier generator")
	}
	generator := customers.NewGenerator(e.prefix, persisted)

	existing := make(map[string]customers.Customer, len(conflicts))
	for _, c := range conflicts {
		existing[c.Email] = c.Existing
	}

	var explicit, generated []pendingRow
	for i, record := range records {
		row := pendingRow{number: i + 1, record: record}
		if record.Get(mapping.FieldIdentifier) != "" {
			explicit = append(explicit, row)
		} else {
			generated = append(generated, row)
		}
	}

	report := &Report{Total: len(records), Outcomes: make([]RowOutcome, 0, len(records))}
	lastIssued := ""
	processed := 0

	for _, row := range append(explicit, generated...) {
		outcome := e.commitRow(ctx, row, existing, resolutions, generator, &lastIssued)
		report.record(outcome)

		if outcome.Error != "" {
			e.logger.Warn("row not imported",
				zap.Int("row", outcome.RowNumber),
				zap.String("action", string(outcome.Action)),
				zap.String("error", outcome.Error))
		}

		processed++
		if progress != nil {
			progress(parsingProgress + (100-parsingProgress)*processed/len(records))
		}
	}

	e.logger.Info("commit finished",
		zap.Int("total", report.Total),
		zap.Int("success", report.SuccessCount),
		zap.Int("duplicates", report.DuplicateCount),
		zap.Int("skipped", report.SkippedCount),
		zap.Int("errors", report.ErrorCount))
	return report, nil
}

func (e *Executor) commitRow(ctx context.Context, row pendingRow, existing map[string]customers.Customer, resolutions Resolutions, generator *customers.Generator, lastIssued *string) RowOutcome {
	record := row.record
	identifier := record.Get(mapping.FieldIdentifier)
	key := e.identity.Key(record)
	outcome := RowOutcome{RowNumber: row.number, Identifier: identifier, Email: key}

	if !customers.Importable(record) {
		outcome.Action = ActionInvalid
		outcome.Error = strings.Join(customers.ValidateCandidate(record, row.number).ErrorMessages(), "; ")
		return outcome
	}

	rowCtx, cancel := e.rowContext(ctx)
	defer cancel()

	if identifier != "" {
		found, err := e.store.FindCustomerByIdentifier(rowCtx, identifier)
		if err != nil {
			outcome.Action = ActionFailed
			outcome.Error = err.Error()
			return outcome
		}
		if found != nil {
			outcome.Action = ActionDuplicate
			outcome.Error = fmt.Sprintf("customer %s already exists", identifier)
			return outcome
		}
	}

	if key != "" {
		if resolution, ok := resolutions.Lookup(key); ok {
			switch resolution {
			case ResolutionSkip:
				outcome.Action = ActionSkipped
				return outcome
			case ResolutionMerge:
				return e.merge(rowCtx, outcome, record, existing[key])
			}
		}
	}

	if identifier == "" {
		identifier = generator.Next(*lastIssued)
		*lastIssued = identifier
		record = withIdentifier(record, identifier)
		outcome.Identifier = identifier
	}

	customer, err := e.store.InsertCustomer(rowCtx, record)
	if err != nil {
		outcome.Action = ActionFailed
		outcome.Error = err.Error()
		return outcome
	}
	generator.Reserve(customer.CustomerID)

	outcome.Action = ActionInserted
	e.logger.Debug("customer inserted",
		zap.Int("row", row.number),
		zap.String("customer_id", customer.CustomerID),
		zap.String("email", common.RedactEmail(key)))
	return outcome
}

// merge overwrites the existing customer with the incoming fields; the stored
// identifier is never rewritten
func (e *Executor) merge(ctx context.Context, outcome RowOutcome, record mapping.Record, target customers.Customer) RowOutcome {
	if target.ID == 0 {
		outcome.Action = ActionFailed
		outcome.Error = "no existing customer to merge into"
		return outcome
	}

	updates := make(mapping.Record, len(record))
	for field, value := range record {
		if field == mapping.FieldIdentifier {
			continue
		}
		updates[field] = value
	}

	updated, err := e.store.UpdateCustomer(ctx, target.ID, updates)
	if err != nil {
		outcome.Action = ActionFailed
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Action = ActionMerged
	outcome.Identifier = updated.CustomerID
	return outcome
}

func (e *Executor) rowContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.rowTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.rowTimeout)
}

func withIdentifier(record mapping.Record, identifier string) mapping.Record {
	out := make(mapping.Record, len(record)+1)
	for k, v := range record {
		out[k] = v
	}
	out[mapping.FieldIdentifier] = identifier
	return out
}
