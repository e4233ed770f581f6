package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// amounts are kept at the precision of the decimal(20,4) columns so that
// recomputing from stored values gives the same totals
const amountPlaces = 4

var decimalOneHundred = decimal.NewFromInt(100)

// RateComponent is one configured discount or tax line.
type RateComponent struct {
	Type  string          `json:"type"`
	Title string          `json:"title"`
	Rate  decimal.Decimal `json:"rate"`
}

// Breakdown is the computed value of one RateComponent on one line.
type Breakdown struct {
	Type  string          `json:"type"`
	Title string          `json:"title"`
	Rate  decimal.Decimal `json:"rate"`
	Value decimal.Decimal `json:"value"`
}

type LineResult struct {
	Amount             decimal.Decimal
	Discount           decimal.Decimal
	Tax                decimal.Decimal
	NetAmountBeforeTax decimal.Decimal
	NetAmount          decimal.Decimal
	DiscountBreakdown  []Breakdown
	TaxBreakdown       []Breakdown
}

func TaxComponents(setting *TaxRateSetting) []RateComponent {
	if setting == nil {
		return nil
	}
	out := make([]RateComponent, 0, len(setting.Lines))
	for _, l := range setting.Lines {
		out = append(out, RateComponent{Type: string(l.Type), Title: l.Title, Rate: l.Rate})
	}
	return out
}

func DiscountComponents(rate *DiscountRate) []RateComponent {
	if rate == nil {
		return nil
	}
	out := make([]RateComponent, 0, len(rate.Lines))
	for _, l := range rate.Lines {
		out = append(out, RateComponent{Type: string(l.Type), Title: l.Title, Rate: l.Rate})
	}
	return out
}

// DiscountValue: percentage = amount*rate/100, quantity = quantity*rate, flat = rate.
func DiscountValue(discountType string, quantity, amount, rate decimal.Decimal) decimal.Decimal {
	switch DiscountType(strings.ToLower(discountType)) {
	case DiscountTypePercentage:
		return amount.Mul(rate).Div(decimalOneHundred).Round(amountPlaces)
	case DiscountTypeQuantity:
		return quantity.Mul(rate).Round(amountPlaces)
	case DiscountTypeFlat:
		return rate.Round(amountPlaces)
	default:
		return decimal.Zero
	}
}

// TaxValue: quantity = quantity*rate, anything else = amount*rate/100.
func TaxValue(taxType string, quantity, amount, rate decimal.Decimal) decimal.Decimal {
	if TaxType(strings.ToLower(taxType)) == TaxTypeQuantity {
		return quantity.Mul(rate).Round(amountPlaces)
	}
	return amount.Mul(rate).Div(decimalOneHundred).Round(amountPlaces)
}

// LineAmount is the supplied amount, or quantity*rate when none is given.
func LineAmount(quantity, rate, amount decimal.Decimal) decimal.Decimal {
	if amount.IsZero() {
		return quantity.Mul(rate).Round(amountPlaces)
	}
	return amount.Round(amountPlaces)
}

// CalculateLine computes the discount and tax breakdown of one voucher line.
// Components are summed, never compounded, and tax is charged on the gross amount.
// An exempted line carries no tax breakdown at all.
func CalculateLine(quantity, rate, amount decimal.Decimal, discounts []RateComponent, taxes []RateComponent, exempted bool) LineResult {
	res := LineResult{
		Amount:            LineAmount(quantity, rate, amount),
		Discount:          decimal.Zero,
		Tax:               decimal.Zero,
		DiscountBreakdown: []Breakdown{},
		TaxBreakdown:      []Breakdown{},
	}

	for _, d := range discounts {
		v := DiscountValue(d.Type, quantity, res.Amount, d.Rate)
		res.DiscountBreakdown = append(res.DiscountBreakdown, Breakdown{Type: d.Type, Title: d.Title, Rate: d.Rate, Value: v})
		res.Discount = res.Discount.Add(v)
	}

	if !exempted {
		for _, t := range taxes {
			v := TaxValue(t.Type, quantity, res.Amount, t.Rate)
			res.TaxBreakdown = append(res.TaxBreakdown, Breakdown{Type: t.Type, Title: t.Title, Rate: t.Rate, Value: v})
			res.Tax = res.Tax.Add(v)
		}
	}

	res.NetAmountBeforeTax = res.Amount.Sub(res.Discount)
	res.NetAmount = res.NetAmountBeforeTax.Add(res.Tax)
	return res
}
