package parsers

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func collect(t *testing.T, records <-chan Record, errors <-chan error) ([]Record, []error) {
	t.Helper()
	var allRecords []Record
	var allErrors []error
	for records != nil || errors != nil {
		select {
		case r, ok := <-records:
			if !ok {
				records = nil
				continue
			}
			allRecords = append(allRecords, r)
		case err, ok := <-errors:
			if !ok {
				errors = nil
				continue
			}
			allErrors = append(allErrors, err)
		}
	}
	return allRecords, allErrors
}

func TestParseCSV_ValidData(t *testing.T) {
	csvData := `First Name,Last Name,Email
John,Doe,john@x.com
Jane,Smith,jane@x.com`

	headers, records, errors, err := ParseCSV(strings.NewReader(csvData))
	require.NoError(t, err)

	allRecords, allErrors := collect(t, records, errors)

	assert.Equal(t, []string{"First Name", "Last Name", "Email"}, headers)
	assert.Len(t, allRecords, 2, "Should parse 2 records")
	assert.Len(t, allErrors, 0, "Should have no errors")

	assert.Equal(t, "John", allRecords[0]["First Name"])
	assert.Equal(t, "jane@x.com", allRecords[1]["Email"])
}

func TestParseCSV_EmptyFile(t *testing.T) {
	_, _, _, err := ParseCSV(strings.NewReader(""))
	assert.True(t, eris.Is(err, ErrEmptyWorkbook))
}

func TestParseCSV_MissingValues(t *testing.T) {
	csvData := `id,email,name
C1,test@example.com
C2,test2@example.com,User 2`

	_, records, errors, err := ParseCSV(strings.NewReader(csvData))
	require.NoError(t, err)

	allRecords, _ := collect(t, records, errors)

	assert.Len(t, allRecords, 2)
	assert.Equal(t, "", allRecords[0]["name"], "Missing value should be empty string")
	assert.Equal(t, "User 2", allRecords[1]["name"])
}

func TestParseCSV_WithCommasInValues(t *testing.T) {
	csvData := `id,name,street
1,"Smith, John","12 Main St, Unit 4"`

	_, records, errors, err := ParseCSV(strings.NewReader(csvData))
	require.NoError(t, err)

	allRecords, _ := collect(t, records, errors)

	require.Len(t, allRecords, 1)
	assert.Equal(t, "Smith, John", allRecords[0]["name"])
	assert.Equal(t, "12 Main St, Unit 4", allRecords[0]["street"])
}

func TestParseCSVWorkbook_ColumnsAndSamples(t *testing.T) {
	long := strings.Repeat("x", 80)
	csvData := "first,last,notes\nJohn,Doe," + long + "\nJane,Roe,short\n"

	wb, err := ParseCSVWorkbook(strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Len(t, wb.Rows, 2)
	require.Len(t, wb.Columns, 3)
	assert.Equal(t, Column{Name: "first", SampleValue: "John"}, wb.Columns[0])
	assert.Len(t, wb.Columns[2].SampleValue, SampleMaxLength)
	assert.NotEmpty(t, wb.Fingerprint)
}

func TestParseCSVWorkbook_HeaderOnly(t *testing.T) {
	_, err := ParseCSVWorkbook(strings.NewReader("first,last\n"))
	assert.True(t, eris.Is(err, ErrEmptyWorkbook))
}

func TestParseCSVWorkbook_SkipsBlankRows(t *testing.T) {
	wb, err := ParseCSVWorkbook(strings.NewReader("first,last\nJohn,Doe\n,\nJane,Roe\n"))
	require.NoError(t, err)
	assert.Len(t, wb.Rows, 2)
}

func TestDecodeText(t *testing.T) {
	t.Run("utf8 bom stripped", func(t *testing.T) {
		out, err := DecodeText(append([]byte{0xEF, 0xBB, 0xBF}, []byte("email\n")...))
		require.NoError(t, err)
		assert.Equal(t, "email\n", string(out))
	})

	t.Run("utf16 little endian", func(t *testing.T) {
		in := []byte{0xFF, 0xFE, 'h', 0, 'i', 0}
		out, err := DecodeText(in)
		require.NoError(t, err)
		assert.Equal(t, "hi", string(out))
	})

	t.Run("windows-1252 fallback", func(t *testing.T) {
		// "Ren\xe9" is "René" in Windows-1252 and invalid UTF-8
		out, err := DecodeText([]byte("Ren\xe9"))
		require.NoError(t, err)
		assert.Equal(t, "René", string(out))
	})
}

func buildXLSX(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseWorkbook_RowsAndColumns(t *testing.T) {
	data := buildXLSX(t, [][]interface{}{
		{"First Name", "Last Name", "E-Mail", "Notes"},
		{"John", "Doe", "john@x.com", strings.Repeat("n", 60)},
		{"", "Smith", "", ""},
		{"Ann", "Lee"},
	})

	wb, err := ParseWorkbook(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Len(t, wb.Rows, 3, "rows == data row count")
	assert.Len(t, wb.Columns, 4, "columns == header count")
	for _, col := range wb.Columns {
		assert.LessOrEqual(t, len([]rune(col.SampleValue)), SampleMaxLength)
	}

	assert.Equal(t, "john@x.com", wb.Columns[2].SampleValue)
	assert.Equal(t, "", wb.Rows[1]["First Name"], "empty cell normalized to empty string")
	assert.Equal(t, "", wb.Rows[2]["E-Mail"], "missing trailing cell normalized to empty string")
	assert.Equal(t, []string{"First Name", "Last Name", "E-Mail", "Notes"}, wb.Headers())
	assert.Len(t, wb.Fingerprint, 64)
}

func TestParseWorkbook_HeaderOnly(t *testing.T) {
	data := buildXLSX(t, [][]interface{}{{"First Name", "Last Name"}})

	_, err := ParseWorkbook(bytes.NewReader(data))
	assert.True(t, eris.Is(err, ErrEmptyWorkbook))
}

func TestParseWorkbook_Garbage(t *testing.T) {
	_, err := ParseWorkbook(strings.NewReader("definitely not a zip"))
	assert.Error(t, err)
	assert.False(t, eris.Is(err, ErrEmptyWorkbook))
}

func TestParse_Dispatch(t *testing.T) {
	wb, err := Parse("customers.CSV", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Len(t, wb.Rows, 1)

	_, err = Parse("customers.ndjson", strings.NewReader("{}"))
	assert.True(t, eris.Is(err, ErrUnsupportedFormat))
}

func TestNormalizeHeaders(t *testing.T) {
	got := normalizeHeaders([]string{"\ufeffEmail", " Name ", "", "Name"})
	assert.Equal(t, []string{"Email", "Name", "Column 3", "Name (2)"}, got)
}

func TestNormalizeHeaders_CollidesWithGeneratedName(t *testing.T) {
	got := normalizeHeaders([]string{"A", "A", "A (2)"})
	assert.Equal(t, []string{"A", "A (2)", "A (2) (2)"}, got)

	got = normalizeHeaders([]string{"A (2)", "A", "A"})
	assert.Equal(t, []string{"A (2)", "A", "A (3)"}, got)
}

func TestParseCSVWorkbook_DuplicateHeadersKeepEveryValue(t *testing.T) {
	wb, err := ParseCSVWorkbook(strings.NewReader("A,A,A (2)\n1,2,3\n"))
	require.NoError(t, err)

	assert.Equal(t, []Column{
		{Name: "A", SampleValue: "1"},
		{Name: "A (2)", SampleValue: "2"},
		{Name: "A (2) (2)", SampleValue: "3"},
	}, wb.Columns)
	require.Len(t, wb.Rows, 1)
	assert.Equal(t, Record{"A": "1", "A (2)": "2", "A (2) (2)": "3"}, wb.Rows[0])
}

func TestParseWorkbook_DuplicateHeadersKeepEveryValue(t *testing.T) {
	data := buildXLSX(t, [][]interface{}{
		{"A", "A", "A (2)"},
		{"1", "2", "3"},
	})

	wb, err := ParseWorkbook(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "A (2)", "A (2) (2)"}, wb.Headers())
	assert.Equal(t, Record{"A": "1", "A (2)": "2", "A (2) (2)": "3"}, wb.Rows[0])
}
