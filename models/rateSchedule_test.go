package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/erp_backend/models"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesTax(c *chart, y int, m int, d int, rate string) *models.NewTaxRateSetting {
	return &models.NewTaxRateSetting{
		Level4Id:       c.customerA.ID,
		ItemId:         c.item.ID,
		ApplicableDate: date(y, time.Month(m), d),
		Lines:          []models.NewRateLine{{Type: "sales tax", Title: "GST", Rate: dec(rate)}},
	}
}

func TestEffectiveTaxRateByDate(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	_, err := models.CreateTaxRateSetting(ctx, salesTax(c, 2024, 1, 1, "5"))
	require.NoError(t, err)
	_, err = models.CreateTaxRateSetting(ctx, salesTax(c, 2024, 6, 1, "10"))
	require.NoError(t, err)

	cases := []struct {
		name string
		on   [3]int
		want string
	}{
		{"after latest", [3]int{2024, 7, 15}, "10"},
		{"on boundary", [3]int{2024, 6, 1}, "10"},
		{"between", [3]int{2024, 3, 1}, "5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setting, err := models.GetEffectiveTaxRate(ctx, testCompany, c.customerA.ID, c.item.ID, date(tc.on[0], time.Month(tc.on[1]), tc.on[2]))
			require.NoError(t, err)
			require.Len(t, setting.Lines, 1)
			assert.True(t, dec(tc.want).Equal(setting.Lines[0].Rate))
		})
	}

	_, err = models.GetEffectiveTaxRate(ctx, testCompany, c.customerA.ID, c.item.ID, date(2023, 12, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNoApplicableRate))
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestInactiveScheduleIsIgnored(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	older, err := models.CreateTaxRateSetting(ctx, salesTax(c, 2024, 1, 1, "5"))
	require.NoError(t, err)
	newer, err := models.CreateTaxRateSetting(ctx, salesTax(c, 2024, 6, 1, "10"))
	require.NoError(t, err)

	_, err = models.ToggleActiveTaxRateSetting(ctx, newer.ID, false)
	require.NoError(t, err)

	setting, err := models.GetEffectiveTaxRate(ctx, testCompany, c.customerA.ID, c.item.ID, date(2024, 7, 15))
	require.NoError(t, err)
	assert.Equal(t, older.ID, setting.ID)
}

func TestResolveRatesForWithoutDiscount(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	_, err := models.CreateTaxRateSetting(ctx, salesTax(c, 2024, 1, 1, "17"))
	require.NoError(t, err)

	tax, discount, err := models.ResolveRatesFor(ctx, testCompany, c.customerA.ID, c.item.ID, date(2024, 2, 1))
	require.NotNil(t, tax)
	assert.Nil(t, discount)
	assert.True(t, errors.Is(err, models.ErrNoApplicableRate))
}

func TestCreateScheduleUnknownItem(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	input := salesTax(c, 2024, 1, 1, "5")
	input.ItemId = 9999
	_, err := models.CreateTaxRateSetting(ctx, input)
	assert.True(t, utils.IsKind(err, utils.KindReference))
}

func TestEffectiveProductRate(t *testing.T) {
	ctx := setupDB(t)
	c := seedChart(t, ctx)

	_, err := models.CreateProductRate(ctx, &models.NewProductRate{
		Level4Id:       c.customerA.ID,
		ItemId:         c.item.ID,
		ApplicableDate: date(2025, 1, 1),
		Rate:           dec("250"),
	})
	require.NoError(t, err)

	rate, err := models.GetEffectiveProductRate(ctx, testCompany, c.customerA.ID, c.item.ID, date(2025, 3, 10))
	require.NoError(t, err)
	assert.True(t, dec("250").Equal(rate.Rate))
}
