/*
Package ingest turns delimited-text sales exports into typed sale records.

PURPOSE:
  The accounting system exports one line per invoice item, with Vietnamese
  column headers, DD/MM/YYYY dates and dot-grouped currency ("1.250.000 đ").
  The Parser maps that layout onto commission.SaleRecord and hands the
  engine clean input.

FILE LAYOUT:
  - First row: headers. A UTF-8 BOM and surrounding spaces are ignored.
  - Data rows, blank lines skipped.
  - Last row: the export's summary line. It is always dropped.

FIELD RULES:
  - Dates: DD/MM/YYYY, anything after the first space is ignored (time part)
  - Amounts and quantities: digits only, every other character is stripped;
    empty means zero
  - Empty payment date: unpaid
  - Empty representative: commission.HouseRepresentative
  - Rows with a zero total or no order date are skipped

ERRORS:
  Any error aborts the whole file. Every error returned by Parse satisfies
  errors.Is(err, generic.ErrMalformedInput).
*/
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/generic"
)

const bom = "\ufeff"

// Columns names the header of each field.
type Columns struct {
	Product        string
	SKU            string
	Customer       string
	Invoice        string
	OrderDate      string
	Quantity       string
	UnitPrice      string
	Total          string
	PaymentDate    string
	Representative string
}

// VietnameseColumns is the header layout of the accounting export.
var VietnameseColumns = Columns{
	Product:        "Sản phẩm",
	SKU:            "SKU",
	Customer:       "Tên khách hàng",
	Invoice:        "Số HĐ",
	OrderDate:      "Ngày",
	Quantity:       "Số lượng",
	UnitPrice:      "Đơn giá",
	Total:          "Tổng",
	PaymentDate:    "Ngày thanh toán",
	Representative: "Nhân viên bán hàng",
}

func (c Columns) all() []string {
	return []string{
		c.Product, c.SKU, c.Customer, c.Invoice, c.OrderDate,
		c.Quantity, c.UnitPrice, c.Total, c.PaymentDate, c.Representative,
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// ParseError reports a cell that could not be converted.
type ParseError struct {
	Row    int // 1-based line in the file
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d, column %q, value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{generic.ErrMalformedInput, e.Err}
}

// MissingColumnsError lists required headers absent from the file.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

func (e *MissingColumnsError) Unwrap() error {
	return generic.ErrMalformedInput
}

var errDateFormat = errors.New("expected DD/MM/YYYY")

// =============================================================================
// PARSER
// =============================================================================

// Parser reads sale records from CSV.
type Parser struct {
	Columns Columns
}

// NewParser returns a parser for the Vietnamese accounting export.
func NewParser() *Parser {
	return &Parser{Columns: VietnameseColumns}
}

type row struct {
	line   int
	fields []string
}

// Parse reads the whole file. A file with a header but no data rows (or
// only the summary row) yields no records and no error.
func (p *Parser) Parse(r io.Reader) ([]commission.SaleRecord, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}
	if len(rows) < 3 {
		return nil, nil
	}

	header := rows[0].fields
	data := rows[1 : len(rows)-1]

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, bom))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var missing []string
	for _, name := range p.Columns.all() {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	sales := make([]commission.SaleRecord, 0, len(data))
	for _, rw := range data {
		cell := func(column string) string {
			i := index[column]
			if i >= len(rw.fields) {
				return ""
			}
			return strings.TrimSpace(rw.fields[i])
		}

		sale, keep, err := p.parseRow(rw.line, cell)
		if err != nil {
			return nil, err
		}
		if keep {
			sales = append(sales, sale)
		}
	}
	return sales, nil
}

func (p *Parser) parseRow(line int, cell func(string) string) (commission.SaleRecord, bool, error) {
	c := p.Columns
	sale := commission.SaleRecord{
		ProductName:    cell(c.Product),
		SKU:            cell(c.SKU),
		CustomerName:   cell(c.Customer),
		InvoiceID:      cell(c.Invoice),
		Representative: cell(c.Representative),
		UnitPrice:      parseAmount(cell(c.UnitPrice)),
		Total:          parseAmount(cell(c.Total)),
	}
	if sale.Representative == "" {
		sale.Representative = commission.HouseRepresentative
	}

	qty, err := parseQuantity(cell(c.Quantity))
	if err != nil {
		return sale, false, &ParseError{Row: line, Column: c.Quantity, Value: cell(c.Quantity), Err: err}
	}
	sale.Quantity = qty

	var hasOrderDate bool
	if v := cell(c.OrderDate); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return sale, false, &ParseError{Row: line, Column: c.OrderDate, Value: v, Err: err}
		}
		sale.OrderDate = d
		hasOrderDate = true
	}

	if v := cell(c.PaymentDate); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return sale, false, &ParseError{Row: line, Column: c.PaymentDate, Value: v, Err: err}
		}
		sale.PaymentDate = &d
	}

	if sale.Total.IsZero() || !hasOrderDate {
		return sale, false, nil
	}
	return sale, true, nil
}

func readRows(r io.Reader) ([]row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []row
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", generic.ErrMalformedInput, err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, row{line: line, fields: fields})
	}
}

// =============================================================================
// FIELD PARSERS
// =============================================================================

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseAmount keeps the digits of a formatted amount: "1.250.000 đ" -> 1250000.
func parseAmount(s string) decimal.Decimal {
	digits := digitsOnly(s)
	if digits == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseQuantity(s string) (int, error) {
	digits := digitsOnly(s)
	if digits == "" {
		return 0, nil
	}
	return strconv.Atoi(digits)
}

// parseDate reads DD/MM/YYYY, ignoring any trailing time part.
func parseDate(s string) (generic.TimePoint, error) {
	datePart := strings.SplitN(strings.TrimSpace(s), " ", 2)[0]
	parts := strings.Split(datePart, "/")
	if len(parts) != 3 {
		return generic.TimePoint{}, errDateFormat
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return generic.TimePoint{}, errDateFormat
		}
		nums[i] = n
	}
	day, month, year := nums[0], time.Month(nums[1]), nums[2]

	tp := generic.NewTimePoint(year, month, day)
	if tp.Day() != day || tp.Month() != month || tp.Year() != year {
		return generic.TimePoint{}, fmt.Errorf("no such date %02d/%02d/%04d", day, int(month), year)
	}
	return tp, nil
}
