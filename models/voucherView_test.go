package models_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mmdatafocus/erp_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTitles struct {
	mu    sync.Mutex
	calls map[models.TitleKind][]int
}

func (f *fakeTitles) Titles(_ context.Context, kind models.TitleKind, ids []int) (map[int]*models.AccountTitle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[models.TitleKind][]int{}
	}
	f.calls[kind] = append(f.calls[kind], ids...)
	out := make(map[int]*models.AccountTitle, len(ids))
	for _, id := range ids {
		out[id] = &models.AccountTitle{ID: id, Title: fmt.Sprintf("%s-%d", kind, id)}
	}
	return out, nil
}

func TestDecorateVoucherBatchesPerKind(t *testing.T) {
	v := &models.SalesVoucher{
		GodownId:        3,
		DebtorAccountId: 4,
		SubAccountId:    5,
		Items: []models.SalesVoucherItem{
			{ProductId: 7, Level4Id: 9},
			{ProductId: 7, Level4Id: 5},
		},
	}
	lookup := &fakeTitles{}
	view, err := models.DecorateVoucher(context.Background(), v, lookup)
	require.NoError(t, err)

	assert.Equal(t, "Godown-3", view.GodownTitle)
	assert.Equal(t, "DefaultAccount-4", view.DebtorAccountTitle)
	assert.Equal(t, "AccountLevel4-5", view.SubAccountTitle)
	assert.Empty(t, view.ParentCenterTitle)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "Item-7", view.Items[0].ProductTitle)
	assert.Equal(t, "AccountLevel4-9", view.Items[0].AccountTitle)

	assert.ElementsMatch(t, []int{5, 9}, lookup.calls[models.TitleAccountLevel4])
	assert.Equal(t, []int{7}, lookup.calls[models.TitleItem])
	_, asked := lookup.calls[models.TitleParentCenter]
	assert.False(t, asked)
}

func TestGetSalesVoucherViewFromStore(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	voucher, err := models.CreateSalesVoucher(ctx, c.voucherInput(c.line("1", "10")))
	require.NoError(t, err)

	view, err := models.GetSalesVoucherView(ctx, voucher.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Main godown", view.GodownTitle)
	assert.Equal(t, "Trade debtors", view.DebtorAccountTitle)
	assert.Equal(t, "Customer A", view.SubAccountTitle)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Rice", view.Items[0].ProductTitle)
	assert.Equal(t, "Rice sales", view.Items[0].AccountTitle)
}
