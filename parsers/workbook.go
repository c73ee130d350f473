package parsers

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/blake2b"
)

// SampleMaxLength bounds the sample value shown next to each column
const SampleMaxLength = 50

var (
	// ErrEmptyWorkbook is returned when the first worksheet has no data rows
	ErrEmptyWorkbook = eris.New("workbook has no data rows")

	// ErrUnsupportedFormat is returned for files that are not xlsx or csv
	ErrUnsupportedFormat = eris.New("file must be .xlsx, .xlsm or .csv")
)

// Record represents a single row as a map of column name to raw cell value
type Record map[string]string

// Column is a header of the uploaded sheet with the first row's value for it
type Column struct {
	Name        string `json:"name"`
	SampleValue string `json:"sample_value"`
}

// Workbook is the decoded content of an uploaded file
type Workbook struct {
	Columns     []Column `json:"columns"`
	Rows        []Record `json:"-"`
	Fingerprint string   `json:"fingerprint"`
}

// Headers returns the column names in sheet order
func (w *Workbook) Headers() []string {
	headers := make([]string, len(w.Columns))
	for i, col := range w.Columns {
		headers[i] = col.Name
	}
	return headers
}

// ParseWorkbook decodes the first worksheet of an xlsx workbook.
// The first row holds the headers, every following non-blank row is a record.
func ParseWorkbook(reader io.Reader) (*Workbook, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, eris.Wrap(err, "read workbook")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, eris.Wrapf(err, "read sheet %q", sheets[0])
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}

	wb, err := buildWorkbook(normalizeHeaders(rows[0]), rows[1:])
	if err != nil {
		return nil, err
	}
	wb.Fingerprint = Fingerprint(data)
	return wb, nil
}

// Fingerprint returns the hex BLAKE2b-256 digest of an uploaded file
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// buildWorkbook maps raw rows onto already normalized headers, drops blank rows
// and collects samples
func buildWorkbook(headers []string, rawRows [][]string) (*Workbook, error) {

	var records []Record
	for _, row := range rawRows {
		if isBlank(row) {
			continue
		}
		record := make(Record, len(headers))
		for i, header := range headers {
			if i < len(row) {
				record[header] = row[i]
			} else {
				record[header] = "" // Missing cell
			}
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, ErrEmptyWorkbook
	}

	columns := make([]Column, len(headers))
	for i, header := range headers {
		columns[i] = Column{
			Name:        header,
			SampleValue: truncate(records[0][header], SampleMaxLength),
		}
	}

	return &Workbook{Columns: columns, Rows: records}, nil
}

// normalizeHeaders trims headers, names empty ones and disambiguates duplicates.
// Every returned name is unique, including against generated "Name (n)" names.
func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	used := make(map[string]bool, len(raw))

	for i, col := range raw {
		name := strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		if used[name] {
			base := name
			for n := 2; used[name]; n++ {
				name = fmt.Sprintf("%s (%d)", base, n)
			}
		}
		used[name] = true
		headers[i] = name
	}
	return headers
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
