/*
dto.go - Data Transfer Objects for the HTTP API

PURPOSE:
  Defines the JSON request and response shapes. The engine works in
  decimal.Decimal and generic.TimePoint; the wire uses plain numbers and
  ISO dates so the policy editor and report viewer need no decimal library.

NAMING CONVENTION:
  - Request types: XxxRequest (e.g., AdjustmentRequest)
  - Response types: XxxDTO or XxxResponse (e.g., ReportDTO)
  - JSON keys: snake_case, matching the policy document keys

MONEY:
  Amounts are float64 on the wire. Values are converted at the edge with
  decimal.InexactFloat64; all arithmetic happened before that point.

SEE ALSO:
  - handlers.go: Uses these DTOs
  - factory/policy.go: PolicyJSON, embedded as the policy payload
*/
package api

import (
	"time"

	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/generic"
)

// =============================================================================
// POLICY DTOs
// =============================================================================

// PolicyDTO is the active policy as shown in the policy editor.
type PolicyDTO struct {
	Version   int                `json:"version"`
	IsDefault bool               `json:"is_default"`
	UpdatedAt *time.Time         `json:"updated_at,omitempty"`
	Config    factory.PolicyJSON `json:"config"`
}

// =============================================================================
// UPLOAD DTOs
// =============================================================================

type UploadDTO struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadResponse is returned after a file or sample dataset is stored.
type UploadResponse struct {
	Upload UploadDTO `json:"upload"`
	Report ReportDTO `json:"report"`
}

func toUploadDTO(u generic.Upload) UploadDTO {
	return UploadDTO{
		ID:          string(u.ID),
		Filename:    u.Filename,
		RecordCount: u.RecordCount,
		CreatedAt:   u.CreatedAt,
	}
}

// =============================================================================
// REPORT DTOs
// =============================================================================

type ReportDTO struct {
	UploadID      string        `json:"upload_id"`
	PolicyVersion int           `json:"policy_version"`
	Summary       SummaryDTO    `json:"summary"`
	ByRep         []RepMonthDTO `json:"by_rep"`
}

type SummaryDTO struct {
	TotalRevenue               float64 `json:"total_revenue"`
	TotalCommissionableRevenue float64 `json:"total_commissionable_revenue"`
	TotalCommission            float64 `json:"total_commission"`
	TotalBonus                 float64 `json:"total_bonus"`
	SalesRecordCount           int     `json:"sales_record_count"`
	PaidInvoiceCount           int     `json:"paid_invoice_count"`
	TotalRevenueAllLines       float64 `json:"total_revenue_all_lines"`
	TotalDebt                  float64 `json:"total_debt"`
}

type RepMonthDTO struct {
	Representative        string          `json:"representative"`
	Month                 string          `json:"month"`
	TotalRevenue          float64         `json:"total_revenue"`
	CommissionableRevenue float64         `json:"commissionable_revenue"`
	TotalDebt             float64         `json:"total_debt"`
	CommissionRate        float64         `json:"commission_rate"`
	BaseCommission        float64         `json:"base_commission"`
	UnitBonus             float64         `json:"unit_bonus"`
	NewCustomerBonus      float64         `json:"new_customer_bonus"`
	TotalBonus            float64         `json:"total_bonus"`
	Adjustment            float64         `json:"adjustment"`
	Notes                 string          `json:"notes,omitempty"`
	FinalCommission       float64         `json:"final_commission"`
	Sales                 []SaleDetailDTO `json:"sales"`
}

type SaleDetailDTO struct {
	InvoiceID            string  `json:"invoice_id"`
	ProductName          string  `json:"product_name"`
	SKU                  string  `json:"sku"`
	CustomerName         string  `json:"customer_name"`
	OrderDate            string  `json:"order_date"`
	PaymentDate          *string `json:"payment_date"`
	Quantity             int     `json:"quantity"`
	UnitPrice            float64 `json:"unit_price"`
	Total                float64 `json:"total"`
	Category             string  `json:"category"`
	IsCommissionable     bool    `json:"is_commissionable"`
	CommissionableAmount float64 `json:"commissionable_amount"`
	DebtStatus           string  `json:"debt_status"`
	DebtModifier         float64 `json:"debt_modifier"`
	DebtRuleMatched      bool    `json:"debt_rule_matched"`
	CommissionEarned     float64 `json:"commission_earned"`
	Rule                 string  `json:"rule"`
}

// NewReportDTO converts an engine report to its wire form.
func NewReportDTO(uploadID generic.UploadID, policyVersion int, r commission.Report) ReportDTO {
	s := r.Summary
	dto := ReportDTO{
		UploadID:      string(uploadID),
		PolicyVersion: policyVersion,
		Summary: SummaryDTO{
			TotalRevenue:               s.TotalRevenue.InexactFloat64(),
			TotalCommissionableRevenue: s.TotalCommissionableRevenue.InexactFloat64(),
			TotalCommission:            s.TotalCommission.InexactFloat64(),
			TotalBonus:                 s.TotalBonus.InexactFloat64(),
			SalesRecordCount:           s.SalesRecordCount,
			PaidInvoiceCount:           s.PaidInvoiceCount,
			TotalRevenueAllLines:       s.TotalRevenueAllLines.InexactFloat64(),
			TotalDebt:                  s.TotalDebt.InexactFloat64(),
		},
		ByRep: make([]RepMonthDTO, 0, len(r.ByRep)),
	}

	for _, b := range r.ByRep {
		rm := RepMonthDTO{
			Representative:        b.Key.Representative,
			Month:                 b.Key.Period.String(),
			TotalRevenue:          b.TotalRevenue.InexactFloat64(),
			CommissionableRevenue: b.CommissionableRevenue.InexactFloat64(),
			TotalDebt:             b.TotalDebt.InexactFloat64(),
			CommissionRate:        b.CommissionRate.InexactFloat64(),
			BaseCommission:        b.BaseCommission.InexactFloat64(),
			UnitBonus:             b.UnitBonus.InexactFloat64(),
			NewCustomerBonus:      b.NewCustomerBonus.InexactFloat64(),
			TotalBonus:            b.TotalBonus.InexactFloat64(),
			Adjustment:            b.Adjustment.InexactFloat64(),
			Notes:                 b.Notes,
			FinalCommission:       b.FinalCommission.InexactFloat64(),
			Sales:                 make([]SaleDetailDTO, 0, len(b.Sales)),
		}
		for _, d := range b.Sales {
			rm.Sales = append(rm.Sales, toSaleDetailDTO(d))
		}
		dto.ByRep = append(dto.ByRep, rm)
	}
	return dto
}

func toSaleDetailDTO(d commission.SaleDetail) SaleDetailDTO {
	var paid *string
	if d.PaymentDate != nil {
		p := d.PaymentDate.String()
		paid = &p
	}
	return SaleDetailDTO{
		InvoiceID:            d.InvoiceID,
		ProductName:          d.ProductName,
		SKU:                  d.SKU,
		CustomerName:         d.CustomerName,
		OrderDate:            d.OrderDate.String(),
		PaymentDate:          paid,
		Quantity:             d.Quantity,
		UnitPrice:            d.UnitPrice.InexactFloat64(),
		Total:                d.Total.InexactFloat64(),
		Category:             string(d.Category),
		IsCommissionable:     d.IsCommissionable,
		CommissionableAmount: d.CommissionableAmount.InexactFloat64(),
		DebtStatus:           d.DebtStatus,
		DebtModifier:         d.DebtModifier.InexactFloat64(),
		DebtRuleMatched:      d.DebtRuleMatched,
		CommissionEarned:     d.CommissionEarned.InexactFloat64(),
		Rule:                 d.Rule,
	}
}

// =============================================================================
// ADJUSTMENT DTOs
// =============================================================================

// AdjustmentRequest replaces the manual overlay for the listed buckets.
type AdjustmentRequest struct {
	Adjustments []AdjustmentItem `json:"adjustments" validate:"required,min=1,dive"`
}

type AdjustmentItem struct {
	Representative string  `json:"representative" validate:"required"`
	Month          string  `json:"month" validate:"required,len=7"` // YYYY-MM
	Amount         float64 `json:"amount"`
	Notes          string  `json:"notes" validate:"max=2000"`
}

// =============================================================================
// SAMPLE DTOs
// =============================================================================

type SampleDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadSampleRequest struct {
	SampleID string `json:"sample_id" validate:"required"`
}

// =============================================================================
// COMMON DTOs
// =============================================================================

type ErrorResponse struct {
	Error   string          `json:"error"`
	Details string          `json:"details,omitempty"`
	Fields  []FieldErrorDTO `json:"fields,omitempty"`
}

type FieldErrorDTO struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
