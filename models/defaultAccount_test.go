package models_test

import (
	"testing"

	"github.com/mmdatafocus/erp_backend/models"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaultAccountKeepsOneDefaultPerRole(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	second, err := models.CreateDefaultAccount(ctx, &models.NewDefaultAccount{
		Role:     models.RoleDebtorAccount,
		Level1Id: c.level1.ID,
		Level2Id: c.level2.ID,
		Level3Id: c.debtors.ID,
		Level4Id: intPtr(c.customerA.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, "00001", second.Level4Subcode)

	_, err = models.SetDefaultAccount(ctx, c.debtor.ID)
	require.NoError(t, err)
	_, err = models.SetDefaultAccount(ctx, second.ID)
	require.NoError(t, err)

	def, err := models.GetDefaultAccount(ctx, models.RoleDebtorAccount)
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)

	all, err := models.ListDefaultAccounts(ctx, models.RoleDebtorAccount, false)
	require.NoError(t, err)
	defaults := 0
	for _, a := range all {
		if a.Default() {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestDefaultAccountLeafMustSitUnderGroup(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	_, err := models.CreateDefaultAccount(ctx, &models.NewDefaultAccount{
		Role:     models.RoleFinishedGoods,
		Level1Id: c.level1.ID,
		Level2Id: c.level2.ID,
		Level3Id: c.debtors.ID,
		Level4Id: intPtr(c.income.ID),
	})
	assert.True(t, utils.IsKind(err, utils.KindReference))
}

func TestDefaultAccountDuplicateRoleAndGroup(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	_, err := models.CreateDefaultAccount(ctx, &models.NewDefaultAccount{
		Role:     models.RoleDebtorAccount,
		Level1Id: c.level1.ID,
		Level2Id: c.level2.ID,
		Level3Id: c.debtors.ID,
	})
	assert.True(t, utils.IsKind(err, utils.KindDuplicate))
}

func TestDeactivateDropsDefault(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	_, err := models.SetDefaultAccount(ctx, c.debtor.ID)
	require.NoError(t, err)

	account, err := models.ToggleActiveDefaultAccount(ctx, c.debtor.ID, false)
	require.NoError(t, err)
	assert.False(t, account.Active())
	assert.False(t, account.Default())

	_, err = models.GetDefaultAccount(ctx, models.RoleDebtorAccount)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	_, err = models.SetDefaultAccount(ctx, c.debtor.ID)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}
