// Package export writes representative-month summaries as a spreadsheet-
// friendly CSV file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/commission"
)

// Header is the column row of the exported file.
var Header = []string{
	"Nhân viên Bán hàng",
	"Tháng",
	"Doanh thu Tổng",
	"Doanh thu tính HH",
	"Công nợ",
	"Tỷ lệ HH",
	"Hoa hồng Cơ bản",
	"Thưởng FitME",
	"Thưởng Khách hàng Mới",
	"Tổng Thưởng",
	"Điều chỉnh",
	"Ghi chú",
	"Hoa hồng Cuối cùng",
}

// WriteCSV writes a UTF-8 BOM (so spreadsheet tools detect the encoding),
// the header row and one row per summary. The final column is always
// recomputed as base + bonus + adjustment.
func WriteCSV(w io.Writer, summaries []commission.RepMonthSummary) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, s := range summaries {
		final := s.BaseCommission.Add(s.TotalBonus).Add(s.Adjustment)
		record := []string{
			s.Key.Representative,
			s.Key.Period.String(),
			amount(s.TotalRevenue),
			amount(s.CommissionableRevenue),
			amount(s.TotalDebt),
			s.CommissionRate.String(),
			amount(s.BaseCommission),
			amount(s.UnitBonus),
			amount(s.NewCustomerBonus),
			amount(s.TotalBonus),
			amount(s.Adjustment),
			s.Notes,
			amount(final),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write %s: %w", s.Key, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// amount renders money to the đồng; VND has no minor unit.
func amount(d decimal.Decimal) string {
	return d.Round(0).String()
}
