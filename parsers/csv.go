package parsers

import (
	"bytes"
	"encoding/csv"
	"io"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// ParseCSV reads the header row and streams the remaining rows via channel.
// Returns the headers and two channels: one for records, one for row errors.
// Caller must consume both channels to avoid goroutine leak
func ParseCSV(reader io.Reader) ([]string, <-chan Record, <-chan error, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1 // Allow variable number of fields
	csvReader.LazyQuotes = true    // Spreadsheet exports are not always strict

	rawHeaders, err := csvReader.Read()
	if err == io.EOF {
		return nil, nil, nil, ErrEmptyWorkbook
	}
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "read csv header")
	}
	headers := normalizeHeaders(rawHeaders)

	records := make(chan Record, 100) // Buffered for better throughput
	errors := make(chan error, 1)

	go func() {
		defer close(records)
		defer close(errors)

		for {
			row, err := csvReader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				errors <- err
				continue // Skip malformed rows, continue processing
			}
			if isBlank(row) {
				continue
			}

			record := make(Record, len(headers))
			for i, header := range headers {
				if i < len(row) {
					record[header] = row[i]
				} else {
					record[header] = "" // Missing column value
				}
			}

			records <- record
		}
	}()

	return headers, records, errors, nil
}

// ParseCSVWorkbook decodes a whole CSV file into a Workbook.
// Malformed rows are skipped; they never abort the upload.
func ParseCSVWorkbook(reader io.Reader) (*Workbook, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, eris.Wrap(err, "read csv")
	}

	text, err := DecodeText(data)
	if err != nil {
		return nil, err
	}

	headers, records, errors, err := ParseCSV(bytes.NewReader(text))
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for records != nil || errors != nil {
		select {
		case record, ok := <-records:
			if !ok {
				records = nil
				continue
			}
			row := make([]string, len(headers))
			for i, header := range headers {
				row[i] = record[header]
			}
			rows = append(rows, row)
		case _, ok := <-errors:
			if !ok {
				errors = nil
			}
		}
	}

	wb, err := buildWorkbook(headers, rows)
	if err != nil {
		return nil, err
	}
	wb.Fingerprint = Fingerprint(data)
	return wb, nil
}

// DecodeText converts CSV bytes to UTF-8. BOM-marked UTF-8/UTF-16 and plain UTF-8 are
// decoded as such; anything else is treated as Windows-1252, the usual spreadsheet export.
func DecodeText(data []byte) ([]byte, error) {
	hasBOM := bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE)

	var decoder transform.Transformer
	if hasBOM || utf8.Valid(data) {
		decoder = unicode.BOMOverride(unicode.UTF8.NewDecoder())
	} else {
		decoder = charmap.Windows1252.NewDecoder()
	}

	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, eris.Wrap(err, "decode csv text")
	}
	return out, nil
}
