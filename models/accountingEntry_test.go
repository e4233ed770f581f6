package models_test

import (
	"testing"

	"github.com/mmdatafocus/erp_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAccountingEntriesBalances(t *testing.T) {
	line := func(level4Id int, amount, discount, tax string, discounts, taxes []models.Breakdown) models.SalesVoucherItem {
		item := models.SalesVoucherItem{
			Level4Id:          level4Id,
			Amount:            dec(amount),
			Discount:          dec(discount),
			Tax:               dec(tax),
			DiscountBreakdown: discounts,
			TaxBreakdown:      taxes,
		}
		item.NetAmountBeforeTax = item.Amount.Sub(item.Discount)
		item.NetAmount = item.NetAmountBeforeTax.Add(item.Tax)
		return item
	}
	v := &models.SalesVoucher{
		SubAccountId:       7,
		SubAccountFullcode: "010100100001",
		InvoiceNumber:      "S20250001",
		Items: []models.SalesVoucherItem{
			line(11, "1000", "50", "170",
				[]models.Breakdown{{Type: "percentage", Value: dec("50")}},
				[]models.Breakdown{{Type: "sales tax", Value: dec("170")}}),
			line(12, "200", "10", "34",
				[]models.Breakdown{{Type: "percentage", Value: dec("4")}, {Type: "flat", Value: dec("6")}},
				[]models.Breakdown{{Type: "sales tax", Value: dec("34")}}),
		},
	}
	v.NetAmount = v.Items[0].NetAmount.Add(v.Items[1].NetAmount)

	entries := models.BuildAccountingEntries(v)
	require.NoError(t, models.ValidateEntriesBalanced(entries))

	// sub-account, 2 discount types, 1 tax type, 2 lines
	require.Len(t, entries, 6)
	assert.Equal(t, models.EntrySubAccount, entries[0].Kind)
	assert.True(t, dec("1344").Equal(entries[0].Debit))
	assert.Equal(t, models.EntryDiscount, entries[1].Kind)
	assert.True(t, dec("54").Equal(entries[1].Debit))
	assert.Equal(t, models.EntryTax, entries[3].Kind)
	assert.True(t, dec("204").Equal(entries[3].Credit))
	assert.Equal(t, 12, *entries[5].Level4Id)

	debit, credit := models.EntryTotals(entries)
	assert.True(t, debit.Equal(credit))
}

func TestValidateEntriesBalancedRejectsSkew(t *testing.T) {
	entries := []models.AccountingEntry{
		{Debit: dec("10"), Credit: dec("0")},
		{Debit: dec("0"), Credit: dec("9.99")},
	}
	assert.Error(t, models.ValidateEntriesBalanced(entries))
}
