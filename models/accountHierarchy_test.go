package models_test

import (
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/models"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccountLevel4DerivesCodes(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	assert.Equal(t, "0101001", c.customerA.Code)
	assert.Equal(t, "010100100001", c.customerA.Fullcode)
	assert.Equal(t, "01", c.customerA.ParentLevel1Code)
	assert.Equal(t, "001", c.customerA.ParentLevel3Code)
	assert.Equal(t, "tester", c.customerA.CreatedBy)

	byCode, err := models.GetAccountLevel4ByFullcode(ctx, "010100100002")
	require.NoError(t, err)
	assert.Equal(t, c.customerB.ID, byCode.ID)
}

func TestCreateAccountLevel4RejectsStaleSnapshot(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	_, err := models.CreateAccountLevel4(ctx, &models.NewAccountLevel4{
		Level1Id:         c.level1.ID,
		Level2Id:         c.level2.ID,
		Level3Id:         c.debtors.ID,
		ParentLevel1Code: "09",
		Subcode:          "00003",
		Title:            "Customer C",
	})
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindReference))
	assert.ErrorIs(t, err, &utils.AppError{Kind: utils.KindReference, Reference: "level1"})
}

func TestCreateAccountLevel4RejectsForeignParent(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	other, err := models.CreateAccountLevel2(ctx, &models.NewAccountLevel2{Level1Id: c.level1.ID, Code: "02", Title: "Fixed assets"})
	require.NoError(t, err)

	_, err = models.CreateAccountLevel4(ctx, &models.NewAccountLevel4{
		Level1Id: c.level1.ID,
		Level2Id: other.ID,
		Level3Id: c.debtors.ID,
		Subcode:  "00003",
		Title:    "Customer C",
	})
	assert.True(t, utils.IsKind(err, utils.KindReference))
}

func TestCreateAccountLevel4Duplicate(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	_, err := models.CreateAccountLevel4(ctx, &models.NewAccountLevel4{
		Level1Id: c.level1.ID,
		Level2Id: c.level2.ID,
		Level3Id: c.debtors.ID,
		Subcode:  "00001",
		Title:    "Customer A again",
	})
	assert.True(t, utils.IsKind(err, utils.KindDuplicate))
}

func TestAccountCodesAreTenantScoped(t *testing.T) {
	ctx := setupDB(t)
	seedChart(t, ctx)

	other := tenantCtx("company-2")
	_, err := models.CreateAccountLevel1(other, &models.NewAccountLevel1{Code: "01", Description: "Assets"})
	require.NoError(t, err)

	list, err := models.ListAccountLevel1(other)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateLevel1CodeCascades(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	_, err := models.UpdateAccountLevel1(ctx, c.level1.ID, &models.NewAccountLevel1{Code: "02", Description: "Assets"})
	require.NoError(t, err)

	level2, err := models.GetAccountLevel2(ctx, c.level2.ID)
	require.NoError(t, err)
	assert.Equal(t, "02", level2.ParentCode)

	level3, err := models.GetAccountLevel3(ctx, c.debtors.ID)
	require.NoError(t, err)
	assert.Equal(t, "0201001", level3.FullCode())

	leaf, err := models.GetAccountLevel4(ctx, c.customerA.ID)
	require.NoError(t, err)
	assert.Equal(t, "0201001", leaf.Code)
	assert.Equal(t, "020100100001", leaf.Fullcode)

	debtor, err := models.GetDefaultAccountById(ctx, c.debtor.ID)
	require.NoError(t, err)
	assert.Equal(t, "02", debtor.Level1Code)
}

func TestUpdateLevel2CodeCascades(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	_, err := models.UpdateAccountLevel2(ctx, c.level2.ID, &models.NewAccountLevel2{
		Level1Id: c.level1.ID,
		Code:     "03",
		Title:    "Current assets",
	})
	require.NoError(t, err)

	for _, id := range []int{c.debtors.ID, c.sales.ID} {
		level3, err := models.GetAccountLevel3(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "03", level3.ParentLevel2Code)
	}

	leaf, err := models.GetAccountLevel4(ctx, c.customerB.ID)
	require.NoError(t, err)
	assert.Equal(t, "03", leaf.ParentLevel2Code)
	assert.Equal(t, "0103001", leaf.Code)
	assert.Equal(t, "010300100002", leaf.Fullcode)

	income, err := models.GetAccountLevel4(ctx, c.income.ID)
	require.NoError(t, err)
	assert.Equal(t, "0103002", income.Code)
	assert.Equal(t, "010300200001", income.Fullcode)

	debtor, err := models.GetDefaultAccountById(ctx, c.debtor.ID)
	require.NoError(t, err)
	assert.Equal(t, "03", debtor.Level2Code)
}

func TestCodeCascadeRefreshesCachedLeafTitles(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	config.SetRedis(client)
	t.Cleanup(func() {
		config.SetRedis(nil)
		_ = client.Close()
	})

	lookup := models.NewDBTitleLookup()
	titles, err := lookup.Titles(ctx, models.TitleAccountLevel4, []int{c.customerA.ID})
	require.NoError(t, err)
	require.Contains(t, titles, c.customerA.ID)
	assert.Equal(t, "010100100001", titles[c.customerA.ID].Code)
	require.Len(t, mr.Keys(), 1)

	_, err = models.UpdateAccountLevel1(ctx, c.level1.ID, &models.NewAccountLevel1{Code: "02", Description: "Assets"})
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())

	titles, err = lookup.Titles(ctx, models.TitleAccountLevel4, []int{c.customerA.ID})
	require.NoError(t, err)
	assert.Equal(t, "020100100001", titles[c.customerA.ID].Code)
}

func TestUpdateLevel3CodeCascades(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	_, err := models.UpdateAccountLevel3(ctx, c.debtors.ID, &models.NewAccountLevel3{
		Level1Id: c.level1.ID,
		Level2Id: c.level2.ID,
		Code:     "005",
		Title:    "Trade debtors",
	})
	require.NoError(t, err)

	leaf, err := models.GetAccountLevel4(ctx, c.customerB.ID)
	require.NoError(t, err)
	assert.Equal(t, "010100500002", leaf.Fullcode)

	// siblings under another Level3 are untouched
	income, err := models.GetAccountLevel4(ctx, c.income.ID)
	require.NoError(t, err)
	assert.Equal(t, "010100200001", income.Fullcode)
}

func TestDeleteBlockedByDependents(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	_, err := models.DeleteAccountLevel3(ctx, c.debtors.ID)
	require.Error(t, err)
	var appErr *utils.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, utils.KindDependencyExists, appErr.Kind)

	counts := map[string]int64{}
	for _, r := range appErr.References {
		counts[r.Model] = r.Count
	}
	assert.Equal(t, map[string]int64{"AccountLevel4": 2, "DefaultAccount": 1}, counts)

	_, err = models.DeleteAccountLevel1(ctx, c.level1.ID)
	assert.True(t, utils.IsKind(err, utils.KindDependencyExists))

	// still there
	_, err = models.GetAccountLevel3(ctx, c.debtors.ID)
	assert.NoError(t, err)
}

func TestDeleteLeafWithoutDependents(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	_, err := models.DeleteAccountLevel4(ctx, c.customerB.ID)
	require.NoError(t, err)

	_, err = models.GetAccountLevel4(ctx, c.customerB.ID)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	// the item still points at the income account
	_, err = models.DeleteAccountLevel4(ctx, c.income.ID)
	assert.True(t, utils.IsKind(err, utils.KindDependencyExists))
}

func TestMoveLeafBlockedByDependents(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	_, err := models.CreateSalesVoucher(ctx, c.voucherInput(c.line("1", "10")))
	require.NoError(t, err)

	_, err = models.UpdateAccountLevel4(ctx, c.customerA.ID, &models.NewAccountLevel4{
		Level1Id: c.level1.ID,
		Level2Id: c.level2.ID,
		Level3Id: c.sales.ID,
		Subcode:  "00009",
		Title:    "Customer A",
	})
	assert.ErrorIs(t, err, &utils.AppError{Kind: utils.KindDependencyExists})

	leaf, err := models.GetAccountLevel4(ctx, c.customerA.ID)
	require.NoError(t, err)
	assert.Equal(t, c.debtors.ID, leaf.Level3Id)
	assert.Equal(t, "010100100001", leaf.Fullcode)

	// a leaf nothing points at may move
	_, err = models.UpdateAccountLevel4(ctx, c.customerB.ID, &models.NewAccountLevel4{
		Level1Id: c.level1.ID,
		Level2Id: c.level2.ID,
		Level3Id: c.sales.ID,
		Subcode:  "00002",
		Title:    "Customer B",
	})
	require.NoError(t, err)
	moved, err := models.GetAccountLevel4(ctx, c.customerB.ID)
	require.NoError(t, err)
	assert.Equal(t, c.sales.ID, moved.Level3Id)
	assert.Equal(t, "010100200002", moved.Fullcode)
}
