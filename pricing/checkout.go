// Package pricing holds the money arithmetic shared by checkout handlers and the POS screen.
// All results are rounded half away from zero to cents.
package pricing

import (
	"github.com/shopspring/decimal"
)

const (
	MinQuantity = 1
	MaxQuantity = 10
)

var (
	hundred = decimal.NewFromInt(100)

	// DefaultTaxRate applies when no rate is configured.
	DefaultTaxRate = decimal.RequireFromString("0.10")

	// TipPresets are the percentages offered on the checkout screen.
	TipPresets = []int64{10, 15, 18, 20, 25}
)

// Cents rounds to two decimal places.
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Tax computes the tax owed on a subtotal.
func Tax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return Cents(subtotal.Mul(rate))
}

// TipFromPercent returns round(total × pct / 100, 2).
func TipFromPercent(total, pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	return Cents(total.Mul(pct).Div(hundred))
}

// PercentFromTip returns the percentage implied by a manual tip amount.
func PercentFromTip(total, tip decimal.Decimal) decimal.Decimal {
	if total.IsZero() || tip.IsNegative() {
		return decimal.Zero
	}
	return Cents(tip.Div(total).Mul(hundred))
}

// GrandTotal is what the customer is charged.
func GrandTotal(total, tip decimal.Decimal) decimal.Decimal {
	return Cents(total.Add(tip))
}

// ClampQuantity keeps a selector value inside [MinQuantity, MaxQuantity].
func ClampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

// ValidQuantity reports whether q may be stored on an order line.
func ValidQuantity(q int) bool {
	return q >= MinQuantity && q <= MaxQuantity
}

// Line is anything with a unit price and a quantity.
type Line interface {
	LinePrice() decimal.Decimal
	LineQuantity() int
}

// Totals is the billable summary of a ticket.
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	Tip        decimal.Decimal `json:"tip"`
	TipPercent decimal.Decimal `json:"tip_percent"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// Subtotal sums price × quantity over the lines.
func Subtotal[L Line](lines []L) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LinePrice().Mul(decimal.NewFromInt(int64(l.LineQuantity()))))
	}
	return Cents(sum)
}

// Ticket computes subtotal, tax and total without a tip.
func Ticket(subtotal, rate decimal.Decimal) Totals {
	tax := Tax(subtotal, rate)
	total := Cents(subtotal.Add(tax))
	return Totals{
		Subtotal:   Cents(subtotal),
		Tax:        tax,
		Total:      total,
		Tip:        decimal.Zero,
		TipPercent: decimal.Zero,
		GrandTotal: total,
	}
}

// WithPercent selects a percentage; the tip amount follows.
func (t Totals) WithPercent(pct decimal.Decimal) Totals {
	t.TipPercent = pct
	t.Tip = TipFromPercent(t.Total, pct)
	t.GrandTotal = GrandTotal(t.Total, t.Tip)
	return t
}

// WithAmount types a manual tip; the implied percentage follows.
func (t Totals) WithAmount(tip decimal.Decimal) Totals {
	if tip.IsNegative() {
		tip = decimal.Zero
	}
	t.Tip = Cents(tip)
	t.TipPercent = PercentFromTip(t.Total, t.Tip)
	t.GrandTotal = GrandTotal(t.Total, t.Tip)
	return t
}
