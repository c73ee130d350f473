package exports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"time"

	"customer-import/customers"
	"customer-import/mapping"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	// BatchSize is the number of customers fetched in a single query
	BatchSize = 2000

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sheetName       = "Customers"
)

// Lister pages through the stored customers
type Lister interface {
	ListCustomers(ctx context.Context, offset, limit int) ([]customers.Customer, error)
}

// Handler serves customer exports
type Handler struct {
	lister Lister
	logger *zap.Logger
}

// NewHandler creates an export Handler
func NewHandler(lister Lister, logger *zap.Logger) *Handler {
	return &Handler{lister: lister, logger: logger.Named("exports")}
}

// RegisterRoutes mounts the export endpoints on rg
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/exports/customers", h.ExportCustomers)
}

// ExportCustomers godoc
// @Summary Export customers
// @Description Streams every customer as CSV or xlsx, with the same headers as the import template
// @Tags exports
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "Export format (csv or xlsx)" default(csv)
// @Success 200 {file} file "Customer export"
// @Failure 400 {object} map[string]string "Bad request"
// @Router /exports/customers [get]
func (h *Handler) ExportCustomers(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid format, must be: csv or xlsx"})
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("customers_%s.%s", timestamp, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if format == "xlsx" {
		data, total, err := h.workbook(c.Request.Context())
		if err != nil {
			h.logger.Error("xlsx export failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed"})
			return
		}
		c.Set("rows_processed", total)
		c.Data(http.StatusOK, xlsxContentType, data)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)
	total, err := h.writeCSV(c.Request.Context(), c.Writer)
	if err != nil {
		// headers are already sent; the truncated body is all we can do
		h.logger.Error("csv export failed", zap.Int("written", total), zap.Error(err))
		_ = c.Error(err)
	}
	c.Set("rows_processed", total)
}

// header returns the export header row, matching the import template labels
func header() []string {
	out := make([]string, len(mapping.Fields))
	for i, f := range mapping.Fields {
		out[i] = f.Label()
	}
	return out
}

func row(c customers.Customer) []string {
	record := c.Record()
	out := make([]string, len(mapping.Fields))
	for i, f := range mapping.Fields {
		out[i] = record.Get(f)
	}
	return out
}

// each calls fn for every stored customer, BatchSize at a time
func (h *Handler) each(ctx context.Context, fn func(customers.Customer) error) (int, error) {
	total := 0
	for offset := 0; ; offset += BatchSize {
		batch, err := h.lister.ListCustomers(ctx, offset, BatchSize)
		if err != nil {
			return total, err
		}
		for _, c := range batch {
			if err := fn(c); err != nil {
				return total, err
			}
			total++
		}
		if len(batch) < BatchSize {
			return total, nil
		}
	}
}

func (h *Handler) writeCSV(ctx context.Context, w io.Writer) (int, error) {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(header()); err != nil {
		return 0, eris.Wrap(err, "write csv header")
	}

	total, err := h.each(ctx, func(c customers.Customer) error {
		return csvWriter.Write(row(c))
	})
	csvWriter.Flush()
	if err != nil {
		return total, err
	}
	return total, eris.Wrap(csvWriter.Error(), "flush csv")
}

func (h *Handler) workbook(ctx context.Context) ([]byte, int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, 0, eris.Wrap(err, "rename sheet")
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return nil, 0, eris.Wrap(err, "open stream writer")
	}

	cells := func(values []string) []interface{} {
		out := make([]interface{}, len(values))
		for i, v := range values {
			out[i] = v
		}
		return out
	}

	if err := sw.SetRow("A1", cells(header())); err != nil {
		return nil, 0, eris.Wrap(err, "write header row")
	}

	rowNum := 2
	total, err := h.each(ctx, func(c customers.Customer) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		rowNum++
		return sw.SetRow(cell, cells(row(c)))
	})
	if err != nil {
		return nil, total, err
	}

	if err := sw.Flush(); err != nil {
		return nil, total, eris.Wrap(err, "flush sheet")
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, total, eris.Wrap(err, "write workbook")
	}
	return buf.Bytes(), total, nil
}
