package models_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/models"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testCompany = "company-1"

// setupDB opens a fresh sqlite file as the global database and returns a tenant context.
func setupDB(t *testing.T) context.Context {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "erp.db") + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), config.InitConfig())
	require.NoError(t, err)
	require.NoError(t, config.InstallPlugins(db))
	require.NoError(t, models.Migrate(db))
	config.SetDB(db)
	config.SetRedis(nil)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return tenantCtx(testCompany)
}

func tenantCtx(companyId string) context.Context {
	ctx := utils.SetCompanyIdInContext(context.Background(), companyId)
	return utils.SetUsernameInContext(ctx, "tester")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int {
	return &v
}

// chart is a small ledger: receivables 01/01/001 with two customers, sales 01/01/002.
type chart struct {
	level1    *models.AccountLevel1
	level2    *models.AccountLevel2
	debtors   *models.AccountLevel3
	sales     *models.AccountLevel3
	customerA *models.AccountLevel4
	customerB *models.AccountLevel4
	income    *models.AccountLevel4
	debtor    *models.DefaultAccount
	godown    *models.Godown
	item      *models.Item
}

func seedChart(t *testing.T, ctx context.Context) *chart {
	t.Helper()
	var c chart
	var err error

	c.level1, err = models.CreateAccountLevel1(ctx, &models.NewAccountLevel1{Code: "01", Description: "Assets"})
	require.NoError(t, err)
	c.level2, err = models.CreateAccountLevel2(ctx, &models.NewAccountLevel2{Level1Id: c.level1.ID, Code: "01", Title: "Current assets"})
	require.NoError(t, err)
	c.debtors, err = models.CreateAccountLevel3(ctx, &models.NewAccountLevel3{Level1Id: c.level1.ID, Level2Id: c.level2.ID, Code: "001", Title: "Trade debtors"})
	require.NoError(t, err)
	c.sales, err = models.CreateAccountLevel3(ctx, &models.NewAccountLevel3{Level1Id: c.level1.ID, Level2Id: c.level2.ID, Code: "002", Title: "Sales"})
	require.NoError(t, err)

	newLeaf := func(level3 *models.AccountLevel3, subcode, title string) *models.AccountLevel4 {
		leaf, err := models.CreateAccountLevel4(ctx, &models.NewAccountLevel4{
			Level1Id: c.level1.ID,
			Level2Id: c.level2.ID,
			Level3Id: level3.ID,
			Subcode:  subcode,
			Title:    title,
		})
		require.NoError(t, err)
		return leaf
	}
	c.customerA = newLeaf(c.debtors, "00001", "Customer A")
	c.customerB = newLeaf(c.debtors, "00002", "Customer B")
	c.income = newLeaf(c.sales, "00001", "Rice sales")

	c.debtor, err = models.CreateDefaultAccount(ctx, &models.NewDefaultAccount{
		Role:     models.RoleDebtorAccount,
		Level1Id: c.level1.ID,
		Level2Id: c.level2.ID,
		Level3Id: c.debtors.ID,
	})
	require.NoError(t, err)

	c.godown, err = models.CreateGodown(ctx, &models.NewGodown{Code: "G1", Title: "Main godown"})
	require.NoError(t, err)
	c.item, err = models.CreateItem(ctx, &models.NewItem{Code: "RICE", Title: "Rice", Unit: "bag", Level4Id: intPtr(c.income.ID)})
	require.NoError(t, err)
	return &c
}

func (c *chart) voucherInput(items ...models.NewSalesVoucherItem) *models.NewSalesVoucher {
	return &models.NewSalesVoucher{
		GodownId:        c.godown.ID,
		InvoiceType:     "sales",
		InvoiceDate:     date(2025, 3, 10),
		DebtorAccountId: c.debtor.ID,
		SubAccountId:    c.customerA.ID,
		Items:           items,
	}
}
