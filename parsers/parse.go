package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// Parse decodes an uploaded file, choosing the decoder from its extension
func Parse(filename string, reader io.Reader) (*Workbook, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ParseWorkbook(reader)
	case ".csv":
		return ParseCSVWorkbook(reader)
	default:
		return nil, ErrUnsupportedFormat
	}
}
