package models

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type ImportFailure struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Created int             `json:"created"`
	Skipped int             `json:"skipped"`
	Failed  []ImportFailure `json:"failed"`
}

type chartRow struct {
	level1, level1Title string
	level2, level2Title string
	level3, level3Title string
	subcode, title      string
	balance             string
}

// header cells are matched by name; the level titles and balance are optional
func parseChartHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, cell := range header {
		index[strings.ToLower(strings.TrimSpace(cell))] = i
	}
	for _, required := range []string{"level1", "level2", "level3", "subcode", "title"} {
		if _, ok := index[required]; !ok {
			return nil, utils.NewValidationError("file", "missing column %s", required)
		}
	}
	return index, nil
}

func readChartRow(index map[string]int, row []string) chartRow {
	cell := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	r := chartRow{
		level1:      cell("level1"),
		level1Title: cell("level1_title"),
		level2:      cell("level2"),
		level2Title: cell("level2_title"),
		level3:      cell("level3"),
		level3Title: cell("level3_title"),
		subcode:     cell("subcode"),
		title:       cell("title"),
		balance:     cell("balance"),
	}
	// parents created on the fly are titled by their code unless the sheet says otherwise
	if r.level1Title == "" {
		r.level1Title = r.level1
	}
	if r.level2Title == "" {
		r.level2Title = r.level2
	}
	if r.level3Title == "" {
		r.level3Title = r.level3
	}
	return r
}

// ImportChartOfAccounts reads a worksheet of Level4 accounts and creates them through the
// same paths the API uses, adding any missing Level1..3 parents. Existing accounts are
// skipped and row errors are collected rather than aborting the import.
func ImportChartOfAccounts(ctx context.Context, r io.Reader, sheet string) (*ImportResult, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, utils.NewValidationError("file", "failed to open Excel file: %v", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, utils.NewValidationError("sheet", "unable to read sheet: %v", err)
	}
	if len(rows) == 0 {
		return nil, utils.NewValidationError("file", "sheet %s is empty", sheet)
	}
	index, err := parseChartHeader(rows[0])
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Failed: []ImportFailure{}}
	for i, row := range rows[1:] {
		rowNo := i + 2
		cr := readChartRow(index, row)
		if cr.level1 == "" && cr.subcode == "" && cr.title == "" {
			continue
		}
		created, err := importChartRow(ctx, companyId, cr)
		switch {
		case err != nil:
			result.Failed = append(result.Failed, ImportFailure{Row: rowNo, Message: err.Error()})
		case created:
			result.Created++
		default:
			result.Skipped++
		}
	}

	config.GetLogger().WithField("company_id", companyId).
		Infof("chart import: %d created, %d skipped, %d failed", result.Created, result.Skipped, len(result.Failed))
	return result, nil
}

// importChartRow returns false when the Level4 account already exists.
func importChartRow(ctx context.Context, companyId string, r chartRow) (bool, error) {
	balance := decimal.Zero
	if r.balance != "" {
		parsed, err := utils.ParseDecimal(r.balance)
		if err != nil {
			return false, utils.NewValidationError("balance", "balance %q is not a number", r.balance)
		}
		balance = parsed
	}
	db := config.GetDB().WithContext(ctx)

	level1, err := findOrCreate(db, "company_id = ? AND code = ?", []interface{}{companyId, r.level1}, func() (*AccountLevel1, error) {
		return CreateAccountLevel1(ctx, &NewAccountLevel1{Code: r.level1, Description: r.level1Title})
	})
	if err != nil {
		return false, err
	}
	level2, err := findOrCreate(db, "company_id = ? AND level1_id = ? AND code = ?", []interface{}{companyId, level1.ID, r.level2}, func() (*AccountLevel2, error) {
		return CreateAccountLevel2(ctx, &NewAccountLevel2{Level1Id: level1.ID, Code: r.level2, Title: r.level2Title})
	})
	if err != nil {
		return false, err
	}
	level3, err := findOrCreate(db, "company_id = ? AND level2_id = ? AND code = ?", []interface{}{companyId, level2.ID, r.level3}, func() (*AccountLevel3, error) {
		return CreateAccountLevel3(ctx, &NewAccountLevel3{Level1Id: level1.ID, Level2Id: level2.ID, Code: r.level3, Title: r.level3Title})
	})
	if err != nil {
		return false, err
	}

	_, err = CreateAccountLevel4(ctx, &NewAccountLevel4{
		Level1Id: level1.ID,
		Level2Id: level2.ID,
		Level3Id: level3.ID,
		Subcode:  r.subcode,
		Title:    r.title,
		Balance:  balance,
	})
	if err != nil {
		if utils.IsKind(err, utils.KindDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func findOrCreate[T any](db *gorm.DB, cond string, args []interface{}, create func() (*T, error)) (*T, error) {
	var row T
	err := db.Where(cond, args...).First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return create()
}
