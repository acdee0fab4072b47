// Package pricing turns a base fare and a convenience-fee configuration into per-unit and
// aggregate totals. Arithmetic is decimal. Every figure is rounded to two decimals at the point
// it is derived, and aggregates are always unit figure times quantity, so adding, removing or
// bulk-setting seats produce identical totals for the same quantity.
package pricing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FeeType selects how the convenience fee is derived from the base price.
type FeeType string

const (
	FeePercentage FeeType = "percentage"
	FeeFlat       FeeType = "flat"
)

// GSTRate is applied to the convenience fee once for each of the two GST components.
const GSTRate = 0.09

var gstRate = decimal.NewFromFloat(GSTRate)

// toDecimal reads v as its shortest decimal form. NaN and infinities count as zero.
func toDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// ParseFeeType maps a configuration string to a FeeType. Unknown values are kept as-is and
// yield a zero fee.
func ParseFeeType(s string) FeeType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "percentage", "percent", "%":
		return FeePercentage
	case "flat", "fixed":
		return FeeFlat
	default:
		return FeeType(strings.ToLower(strings.TrimSpace(s)))
	}
}

// Fee describes the convenience fee charged per ticket.
type Fee struct {
	Type      FeeType `json:"type"`
	Magnitude float64 `json:"magnitude"`
}

// Figures is one set of derived amounts.
type Figures struct {
	Base           float64 `json:"base"`
	ConvenienceFee float64 `json:"convenience_fee"`
	CGST           float64 `json:"cgst"`
	SGST           float64 `json:"sgst"`
	TotalTax       float64 `json:"total_tax"`
	Final          float64 `json:"final"`
}

// Breakdown holds per-unit figures and the same figures multiplied by quantity.
type Breakdown struct {
	Quantity int     `json:"quantity"`
	Unit     Figures `json:"unit"`
	Total    Figures `json:"total"`
}

// Round2 rounds half away from zero to two decimals. The input is read as its shortest decimal
// form, so 1.005 rounds to 1.01.
func Round2(v float64) float64 {
	return money(v).InexactFloat64()
}

func money(v float64) decimal.Decimal {
	return toDecimal(v).Round(2)
}

func convenienceFee(base decimal.Decimal, fee Fee) decimal.Decimal {
	switch fee.Type {
	case FeePercentage:
		return base.Mul(toDecimal(fee.Magnitude)).Shift(-2).Round(2)
	case FeeFlat:
		return money(fee.Magnitude)
	default:
		return decimal.Zero
	}
}

// ConvenienceFee returns the per-unit convenience fee for a base price.
func ConvenienceFee(base float64, fee Fee) float64 {
	return convenienceFee(money(base), fee).InexactFloat64()
}

// Unit derives the per-unit figures for one ticket.
func Unit(base float64, fee Fee) Figures {
	b := money(base)
	conv := convenienceFee(b, fee)
	cgst := conv.Mul(gstRate).Round(2)
	sgst := conv.Mul(gstRate).Round(2)
	tax := cgst.Add(sgst)
	return Figures{
		Base:           b.InexactFloat64(),
		ConvenienceFee: conv.InexactFloat64(),
		CGST:           cgst.InexactFloat64(),
		SGST:           sgst.InexactFloat64(),
		TotalTax:       tax.InexactFloat64(),
		Final:          b.Add(conv).Add(tax).InexactFloat64(),
	}
}

// Calculate returns the per-unit and aggregate breakdown for quantity tickets at base price.
// A non-positive quantity yields zero aggregates while keeping the unit figures.
func Calculate(base float64, fee Fee, quantity int) Breakdown {
	unit := Unit(base, fee)
	if quantity < 0 {
		quantity = 0
	}
	return Breakdown{
		Quantity: quantity,
		Unit:     unit,
		Total:    unit.Times(quantity),
	}
}

// Times multiplies every figure by n, rounding each product.
func (f Figures) Times(n int) Figures {
	q := decimal.NewFromInt(int64(n))
	times := func(v float64) float64 {
		return money(v).Mul(q).Round(2).InexactFloat64()
	}
	return Figures{
		Base:           times(f.Base),
		ConvenienceFee: times(f.ConvenienceFee),
		CGST:           times(f.CGST),
		SGST:           times(f.SGST),
		TotalTax:       times(f.TotalTax),
		Final:          times(f.Final),
	}
}
