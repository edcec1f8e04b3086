// Package pricing computes cart and order totals. All amounts are rounded to
// two decimal places, line by line, before they are summed.
package pricing

import "github.com/shopspring/decimal"

type DiscountKind string

const (
	Percentage  DiscountKind = "percentage"
	FixedAmount DiscountKind = "fixed_amount"
)

func (k DiscountKind) Valid() bool {
	return k == Percentage || k == FixedAmount
}

var hundred = decimal.NewFromInt(100)

type Line struct {
	UnitPrice decimal.Decimal
	VATRate   decimal.Decimal
	Quantity  int
}

func (l Line) Subtotal() decimal.Decimal {
	return round2(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
}

func (l Line) VAT() decimal.Decimal {
	return LineVAT(l.UnitPrice, l.VATRate, l.Quantity)
}

type Discount struct {
	Kind      DiscountKind
	Value     decimal.Decimal
	MaxAmount *decimal.Decimal
}

type Shipping struct {
	FlatFee decimal.Decimal
	FreeMin decimal.Decimal
}

// Cost is the flat fee for a non-empty cart, waived once subtotal reaches FreeMin.
func (s Shipping) Cost(subtotal decimal.Decimal, items int) decimal.Decimal {
	if items == 0 {
		return decimal.Zero
	}
	if s.FreeMin.IsPositive() && subtotal.GreaterThanOrEqual(s.FreeMin) {
		return decimal.Zero
	}
	return round2(s.FlatFee)
}

type Totals struct {
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

func Compute(lines []Line, d *Discount, s Shipping) Totals {
	subtotal := decimal.Zero
	vat := decimal.Zero
	items := 0
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
		vat = vat.Add(l.VAT())
		items += l.Quantity
	}

	discount := decimal.Zero
	if d != nil {
		discount = DiscountAmount(*d, subtotal)
	}
	shipping := s.Cost(subtotal, items)

	return Totals{
		Subtotal: subtotal,
		VAT:      vat,
		Discount: discount,
		Shipping: shipping,
		Total:    subtotal.Add(vat).Sub(discount).Add(shipping),
	}
}

// DiscountAmount never exceeds subtotal, nor MaxAmount for percentage discounts.
func DiscountAmount(d Discount, subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() || !d.Value.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch d.Kind {
	case Percentage:
		amount = round2(subtotal.Mul(d.Value).Div(hundred))
		if d.MaxAmount != nil && !d.MaxAmount.IsNegative() && amount.GreaterThan(*d.MaxAmount) {
			amount = round2(*d.MaxAmount)
		}
	case FixedAmount:
		amount = round2(d.Value)
	default:
		return decimal.Zero
	}

	return decimal.Min(amount, subtotal)
}

func LineVAT(unitPrice, rate decimal.Decimal, qty int) decimal.Decimal {
	return round2(unitPrice.Mul(decimal.NewFromInt(int64(qty))).Mul(rate))
}

func UnitVAT(unitPrice, rate decimal.Decimal) decimal.Decimal {
	return round2(unitPrice.Mul(rate))
}

func GrossPrice(net, rate decimal.Decimal) decimal.Decimal {
	return round2(net.Mul(decimal.NewFromInt(1).Add(rate)))
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
