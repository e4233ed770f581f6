package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountingEntry is one debit or credit row of a sales voucher.
type AccountingEntry struct {
	ID             int              `gorm:"primary_key" json:"id"`
	CompanyId      string           `gorm:"size:64;not null;index" json:"company_id"`
	SalesVoucherId int              `gorm:"not null;index" json:"sales_voucher_id"`
	Kind           EntryAccountKind `gorm:"size:20;not null" json:"kind"`
	Level4Id       *int             `gorm:"index" json:"level4_id"`
	AccountCode    string           `gorm:"size:100" json:"account_code"`
	Narration      string           `gorm:"size:255" json:"narration"`
	Debit          decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"debit"`
	Credit         decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"credit"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// typeTotals keeps insertion order so entries come out in the order types first appear.
type typeTotals struct {
	order  []string
	totals map[string]decimal.Decimal
}

func newTypeTotals() *typeTotals {
	return &typeTotals{totals: make(map[string]decimal.Decimal)}
}

func (t *typeTotals) add(typ string, v decimal.Decimal) {
	cur, ok := t.totals[typ]
	if !ok {
		t.order = append(t.order, typ)
		cur = decimal.Zero
	}
	t.totals[typ] = cur.Add(v)
}

// BuildAccountingEntries derives the journal of a voucher from its items:
// the net amount is debited to the sub-account, each discount type is debited,
// each tax type is credited and each line's gross amount is credited to its account.
// Zero valued discount and tax aggregates produce no row.
func BuildAccountingEntries(v *SalesVoucher) []AccountingEntry {
	subId := v.SubAccountId
	entries := []AccountingEntry{{
		CompanyId:      v.CompanyId,
		SalesVoucherId: v.ID,
		Kind:           EntrySubAccount,
		Level4Id:       &subId,
		AccountCode:    v.SubAccountFullcode,
		Narration:      fmt.Sprintf("Invoice %s", v.InvoiceNumber),
		Debit:          v.NetAmount,
		Credit:         decimal.Zero,
	}}

	discounts := newTypeTotals()
	taxes := newTypeTotals()
	for _, item := range v.Items {
		for _, d := range item.DiscountBreakdown {
			discounts.add(d.Type, d.Value)
		}
		for _, t := range item.TaxBreakdown {
			taxes.add(t.Type, t.Value)
		}
	}

	for _, typ := range discounts.order {
		if total := discounts.totals[typ]; !total.IsZero() {
			entries = append(entries, AccountingEntry{
				CompanyId:      v.CompanyId,
				SalesVoucherId: v.ID,
				Kind:           EntryDiscount,
				AccountCode:    typ,
				Narration:      "Discount " + typ,
				Debit:          total,
				Credit:         decimal.Zero,
			})
		}
	}
	for _, typ := range taxes.order {
		if total := taxes.totals[typ]; !total.IsZero() {
			entries = append(entries, AccountingEntry{
				CompanyId:      v.CompanyId,
				SalesVoucherId: v.ID,
				Kind:           EntryTax,
				AccountCode:    typ,
				Narration:      "Tax " + typ,
				Debit:          decimal.Zero,
				Credit:         total,
			})
		}
	}

	for i := range v.Items {
		item := v.Items[i]
		level4Id := item.Level4Id
		entries = append(entries, AccountingEntry{
			CompanyId:      v.CompanyId,
			SalesVoucherId: v.ID,
			Kind:           EntrySalesIncome,
			Level4Id:       &level4Id,
			AccountCode:    item.Level4Fullcode,
			Narration:      fmt.Sprintf("Sale line %d", i+1),
			Debit:          decimal.Zero,
			Credit:         item.Amount,
		})
	}
	return entries
}

// EntryTotals sums both sides.
func EntryTotals(entries []AccountingEntry) (debit decimal.Decimal, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range entries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	return debit, credit
}

// ValidateEntriesBalanced fails when debits and credits differ.
func ValidateEntriesBalanced(entries []AccountingEntry) error {
	debit, credit := EntryTotals(entries)
	if !debit.Equal(credit) {
		return fmt.Errorf("accounting entries are unbalanced: debit %s, credit %s", debit.String(), credit.String())
	}
	return nil
}
