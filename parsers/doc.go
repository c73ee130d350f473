// Package parsers decodes uploaded customer files into rows of named cells.
//
// Two formats are supported:
//   - xlsx / xlsm workbooks, read with excelize (first worksheet only)
//   - CSV, streamed through encoding/csv after decoding to UTF-8
//
// In both cases the first row is the header row. Each following non-blank row becomes a
// Record (map of header to raw cell value, missing cells as ""). Columns carry a sample value
// taken from the first data row, truncated to SampleMaxLength characters.
//
// Example usage:
//
//	file, header, _ := c.Request.FormFile("file")
//	defer file.Close()
//	wb, err := parsers.Parse(header.Filename, file)
//	if eris.Is(err, parsers.ErrEmptyWorkbook) {
//	    // nothing to import
//	}
//
//	for _, col := range wb.Columns {
//	    fmt.Println(col.Name, col.SampleValue)
//	}
//
// ParseCSV is the lower-level streaming reader used for CSV files. It returns the header row
// up front plus two channels, one for records and one for malformed-row errors. Callers must
// consume both channels to avoid goroutine leaks.
package parsers
