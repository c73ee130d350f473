package imports

import (
	"customer-import/customers"
	"customer-import/mapping"
)

// PreviewRow is a candidate record with its diagnostics
type PreviewRow struct {
	RowNumber int            `json:"row_number"`
	Record    mapping.Record `json:"record"`
	Errors    []string       `json:"errors"`
	Warnings  []string       `json:"warnings"`
}

// Preview is the advisory result shown before committing
type Preview struct {
	Rows             []PreviewRow `json:"rows"`
	TotalRows        int          `json:"total_rows"`
	RowsWithErrors   int          `json:"rows_with_errors"`
	RowsWithWarnings int          `json:"rows_with_warnings"`
}

// BuildPreview validates every record and keeps the first limit rows for display.
// Row numbers are 1-based data row positions.
func BuildPreview(records []mapping.Record, limit int) *Preview {
	p := &Preview{TotalRows: len(records), Rows: []PreviewRow{}}

	for i, record := range records {
		result := customers.ValidateCandidate(record, i+1)
		if len(result.Errors) > 0 {
			p.RowsWithErrors++
		}
		if len(result.Warnings) > 0 {
			p.RowsWithWarnings++
		}

		if i < limit {
			p.Rows = append(p.Rows, PreviewRow{
				RowNumber: result.RowNumber,
				Record:    record,
				Errors:    result.ErrorMessages(),
				Warnings:  result.WarningMessages(),
			})
		}
	}
	return p
}
