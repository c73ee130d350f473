package imports

import (
	"context"
	"errors"
	"strings"
	"sync"

	"customer-import/common"
	"customer-import/customers"
	"customer-import/mapping"
	"customer-import/parsers"
)

// memoryStore is an in-memory customers.Store that records every call
type memoryStore struct {
	mu        sync.Mutex
	nextID    uint
	customers []*customers.Customer

	inserts []mapping.Record
	updates map[uint]mapping.Record
	lookups int

	failInsert map[string]bool // by first name
	listErr    error
}

func newMemoryStore(existing ...customers.Customer) *memoryStore {
	s := &memoryStore{updates: make(map[uint]mapping.Record), failInsert: make(map[string]bool)}
	for i := range existing {
		c := existing[i]
		s.nextID++
		c.ID = s.nextID
		s.customers = append(s.customers, &c)
	}
	return s
}

func (s *memoryStore) InsertCustomer(_ context.Context, record mapping.Record) (*customers.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inserts = append(s.inserts, record)
	if s.failInsert[record.Get(mapping.FieldFirstName)] {
		return nil, errors.New("insert rejected")
	}
	for _, c := range s.customers {
		if c.CustomerID == record.Get(mapping.FieldIdentifier) {
			return nil, errors.New("UNIQUE constraint failed: customers.customer_id")
		}
	}
	c := customers.NewCustomer(record)
	s.nextID++
	c.ID = s.nextID
	s.customers = append(s.customers, &c)
	return &c, nil
}

func (s *memoryStore) UpdateCustomer(_ context.Context, id uint, record mapping.Record) (*customers.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updates[id] = record
	for _, c := range s.customers {
		if c.ID != id {
			continue
		}
		merged := c.Record()
		for k, v := range record {
			merged[k] = v
		}
		updated := customers.NewCustomer(merged)
		updated.ID = c.ID
		*c = updated
		out := *c
		return &out, nil
	}
	return nil, errors.New("not found")
}

func (s *memoryStore) FindCustomerByEmail(_ context.Context, email string) (*customers.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lookups++
	for _, c := range s.customers {
		if strings.EqualFold(c.Email, strings.TrimSpace(email)) {
			out := *c
			return &out, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) FindCustomerByIdentifier(_ context.Context, identifier string) (*customers.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.customers {
		if c.CustomerID == identifier {
			out := *c
			return &out, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) ListAllCustomerIdentifiers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}
	ids := make([]string, len(s.customers))
	for i, c := range s.customers {
		ids[i] = c.CustomerID
	}
	return ids, nil
}

func (s *memoryStore) byIdentifier(id string) *customers.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.customers {
		if c.CustomerID == id {
			return c
		}
	}
	return nil
}

// memoryJobs records saved import jobs
type memoryJobs struct {
	mu   sync.Mutex
	jobs []common.ImportJob
}

func (j *memoryJobs) SaveJob(_ context.Context, job *common.ImportJob) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jobs = append(j.jobs, *job)
	return nil
}

func (j *memoryJobs) GetJob(_ context.Context, id string) (*common.ImportJob, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.jobs) - 1; i >= 0; i-- {
		if j.jobs[i].ID == id {
			job := j.jobs[i]
			return &job, nil
		}
	}
	return nil, nil
}

func (j *memoryJobs) saved() []common.ImportJob {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]common.ImportJob(nil), j.jobs...)
}

// newWorkbook builds a decoded workbook from headers and rows of cells
func newWorkbook(headers []string, rows ...[]string) *parsers.Workbook {
	wb := &parsers.Workbook{Fingerprint: "test"}
	for i, h := range headers {
		sample := ""
		if len(rows) > 0 && i < len(rows[0]) {
			sample = rows[0][i]
		}
		wb.Columns = append(wb.Columns, parsers.Column{Name: h, SampleValue: sample})
	}
	for _, row := range rows {
		record := make(parsers.Record, len(headers))
		for i, h := range headers {
			if i < len(row) {
				record[h] = row[i]
			}
		}
		wb.Rows = append(wb.Rows, record)
	}
	return wb
}

func rec(pairs ...string) mapping.Record {
	r := make(mapping.Record, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		r[mapping.CanonicalField(pairs[i])] = pairs[i+1]
	}
	return r
}
