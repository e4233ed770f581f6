package models_test

import (
	"bytes"
	"testing"

	"github.com/mmdatafocus/erp_backend/models"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func chartWorkbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportChartOfAccounts(t *testing.T) {
	ctx := setupDB(t)

	buf := chartWorkbook(t,
		[]interface{}{"Level1", "Level1_Title", "Level2", "Level3", "Subcode", "Title"},
		[]interface{}{"01", "Assets", "01", "001", "00001", "Customer A"},
		[]interface{}{"01", "", "01", "001", "00002", "Customer B"},
		[]interface{}{"01", "", "01", "001", "00001", "Customer A again"},
		[]interface{}{"01", "", "01", "001", "ABC", "Broken"},
	)

	res, err := models.ImportChartOfAccounts(ctx, buf, "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 5, res.Failed[0].Row)

	level1, err := models.ListAccountLevel1(ctx)
	require.NoError(t, err)
	require.Len(t, level1, 1)
	assert.Equal(t, "Assets", level1[0].Description)

	leaf, err := models.GetAccountLevel4ByFullcode(ctx, "010100100002")
	require.NoError(t, err)
	assert.Equal(t, "Customer B", leaf.Title)
}

func TestImportChartOfAccountsMissingColumn(t *testing.T) {
	ctx := setupDB(t)

	buf := chartWorkbook(t,
		[]interface{}{"level1", "level2", "level3", "subcode"},
		[]interface{}{"01", "01", "001", "00001"},
	)
	_, err := models.ImportChartOfAccounts(ctx, buf, "")
	assert.ErrorIs(t, err, &utils.AppError{Kind: utils.KindValidation, Field: "file"})
}

func TestImportChartOfAccountsBalanceColumn(t *testing.T) {
	ctx := setupDB(t)

	buf := chartWorkbook(t,
		[]interface{}{"level1", "level2", "level3", "subcode", "title", "balance"},
		[]interface{}{"01", "01", "001", "00001", "Customer A", "1250.50"},
		[]interface{}{"01", "01", "001", "00002", "Customer B", "n/a"},
	)
	res, err := models.ImportChartOfAccounts(ctx, buf, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 3, res.Failed[0].Row)

	leaf, err := models.GetAccountLevel4ByFullcode(ctx, "010100100001")
	require.NoError(t, err)
	assert.True(t, leaf.Balance.Equal(dec("1250.5")))
}
