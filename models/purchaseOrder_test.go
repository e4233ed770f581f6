package models_test

import (
	"context"
	"testing"

	"github.com/mmdatafocus/erp_backend/models"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type supplierChart struct {
	*chart
	supplier *models.AccountLevel4
	creditor *models.DefaultAccount
}

func seedSuppliers(t *testing.T, ctx context.Context) *supplierChart {
	t.Helper()
	c := seedChart(t, ctx)
	creditors, err := models.CreateAccountLevel3(ctx, &models.NewAccountLevel3{Level1Id: c.level1.ID, Level2Id: c.level2.ID, Code: "003", Title: "Trade creditors"})
	require.NoError(t, err)
	supplier, err := models.CreateAccountLevel4(ctx, &models.NewAccountLevel4{
		Level1Id: c.level1.ID,
		Level2Id: c.level2.ID,
		Level3Id: creditors.ID,
		Subcode:  "00001",
		Title:    "Paddy supplier",
	})
	require.NoError(t, err)
	creditor, err := models.CreateDefaultAccount(ctx, &models.NewDefaultAccount{
		Role:     models.RoleCreditorAccount,
		Level1Id: c.level1.ID,
		Level2Id: c.level2.ID,
		Level3Id: creditors.ID,
	})
	require.NoError(t, err)
	return &supplierChart{chart: c, supplier: supplier, creditor: creditor}
}

func (s *supplierChart) order(bags string, weight string) *models.NewPurchaseOrder {
	return &models.NewPurchaseOrder{
		PoDate:            date(2025, 4, 1),
		CreditorAccountId: s.creditor.ID,
		SubAccountId:      s.supplier.ID,
		ItemId:            s.item.ID,
		Rate:              dec("4200"),
		TotalBags:         dec(bags),
		TotalWeight:       dec(weight),
	}
}

func TestCreatePurchaseOrder(t *testing.T) {
	ctx := setupDB(t)
	s := seedSuppliers(t, ctx)

	po, err := models.CreatePurchaseOrder(ctx, s.order("100", "5000"))
	require.NoError(t, err)
	assert.Equal(t, "2025-00001", po.PoNumber)
	assert.Equal(t, "010100300001", po.SubAccountFullcode)
	assert.Equal(t, "003", po.CreditorLevel3Code)
	assert.True(t, dec("100").Equal(po.Bags.Balance))
	assert.True(t, po.Truck.Total.IsZero())

	next, err := models.CreatePurchaseOrder(ctx, s.order("1", "0"))
	require.NoError(t, err)
	assert.Equal(t, "2025-00002", next.PoNumber)

	input := s.order("1", "0")
	input.PoNumber = po.PoNumber
	_, err = models.CreatePurchaseOrder(ctx, input)
	assert.ErrorIs(t, err, &utils.AppError{Kind: utils.KindDuplicate, Field: "poNumber"})
}

func TestCreatePurchaseOrderValidation(t *testing.T) {
	ctx := setupDB(t)
	s := seedSuppliers(t, ctx)

	_, err := models.CreatePurchaseOrder(ctx, s.order("0", "0"))
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	_, err = models.CreatePurchaseOrder(ctx, s.order("-1", "10"))
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	// a debtor is not a creditor
	input := s.order("1", "0")
	input.CreditorAccountId = s.debtor.ID
	_, err = models.CreatePurchaseOrder(ctx, input)
	assert.ErrorIs(t, err, &utils.AppError{Kind: utils.KindReference, Reference: "creditorAccount"})

	// the supplier must sit under the creditor group
	input = s.order("1", "0")
	input.SubAccountId = s.customerA.ID
	_, err = models.CreatePurchaseOrder(ctx, input)
	assert.ErrorIs(t, err, &utils.AppError{Kind: utils.KindReference, Reference: "subAccount"})
}

func TestReceivePurchaseOrder(t *testing.T) {
	ctx := setupDB(t)
	s := seedSuppliers(t, ctx)

	po, err := models.CreatePurchaseOrder(ctx, s.order("100", "5000"))
	require.NoError(t, err)

	po, err = models.ReceivePurchaseOrder(ctx, po.ID, &models.PurchaseOrderReceipt{Bags: dec("40"), Weight: dec("2000")})
	require.NoError(t, err)
	assert.True(t, dec("40").Equal(po.Bags.Received))
	assert.True(t, dec("60").Equal(po.Bags.Balance))
	assert.True(t, dec("3000").Equal(po.Weight.Balance))

	_, err = models.ReceivePurchaseOrder(ctx, po.ID, &models.PurchaseOrderReceipt{Bags: dec("61")})
	assert.ErrorIs(t, err, &utils.AppError{Kind: utils.KindValidation, Field: "bags"})

	_, err = models.ReceivePurchaseOrder(ctx, po.ID, &models.PurchaseOrderReceipt{})
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	stored, err := models.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.True(t, dec("40").Equal(stored.Bags.Received))

	// totals cannot drop below what arrived
	_, err = models.UpdatePurchaseOrder(ctx, po.ID, s.order("30", "5000"))
	assert.ErrorIs(t, err, &utils.AppError{Kind: utils.KindValidation, Field: "totalBags"})

	updated, err := models.UpdatePurchaseOrder(ctx, po.ID, s.order("120", "5000"))
	require.NoError(t, err)
	assert.True(t, dec("80").Equal(updated.Bags.Balance))
}

func TestCancelPurchaseOrderIsTerminal(t *testing.T) {
	ctx := setupDB(t)
	s := seedSuppliers(t, ctx)

	po, err := models.CreatePurchaseOrder(ctx, s.order("10", "0"))
	require.NoError(t, err)

	cancelled, err := models.CancelPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = models.CancelPurchaseOrder(ctx, po.ID)
	assert.ErrorIs(t, err, &utils.AppError{Kind: utils.KindValidation, Field: "isCancelled"})
	_, err = models.ReceivePurchaseOrder(ctx, po.ID, &models.PurchaseOrderReceipt{Bags: dec("1")})
	assert.ErrorIs(t, err, &utils.AppError{Kind: utils.KindValidation, Field: "isCancelled"})

	open := false
	list, err := models.ListPurchaseOrders(ctx, models.PurchaseOrderFilter{IsCancelled: &open})
	require.NoError(t, err)
	assert.Empty(t, list)
}
