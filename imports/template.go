package imports

import (
	"customer-import/mapping"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const templateSheet = "Customers"

// Template builds an empty workbook whose header row carries every canonical
// field label, so an upload of it maps without edits
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return nil, eris.Wrap(err, "rename sheet")
	}

	headers := make([]interface{}, len(mapping.Fields))
	for i, field := range mapping.Fields {
		headers[i] = field.Label()
	}
	if err := f.SetSheetRow(templateSheet, "A1", &headers); err != nil {
		return nil, eris.Wrap(err, "write header row")
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, eris.Wrap(err, "create header style")
	}
	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, eris.Wrap(err, "header range")
	}
	if err := f.SetCellStyle(templateSheet, "A1", last+"1", style); err != nil {
		return nil, eris.Wrap(err, "style header row")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, eris.Wrap(err, "write template")
	}
	return buf.Bytes(), nil
}
