package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/shopspring/decimal"
)

type AccountLevel3 struct {
	ID               int             `gorm:"primary_key" json:"id"`
	CompanyId        string          `gorm:"size:64;not null;uniqueIndex:idx_account_level3_code,priority:1" json:"company_id"`
	Level1Id         int             `gorm:"not null;index" json:"level1_id"`
	Level2Id         int             `gorm:"not null;index" json:"level2_id"`
	ParentLevel1Code string          `gorm:"size:2;not null;uniqueIndex:idx_account_level3_code,priority:2" json:"parent_level1_code"`
	ParentLevel2Code string          `gorm:"size:2;not null;uniqueIndex:idx_account_level3_code,priority:3" json:"parent_level2_code"`
	Code             string          `gorm:"size:3;not null;uniqueIndex:idx_account_level3_code,priority:4" json:"code"`
	Title            string          `gorm:"size:255;not null" json:"title"`
	Balance          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`
	CreatedBy        string          `gorm:"size:100" json:"created_by"`
	UpdatedBy        string          `gorm:"size:100" json:"updated_by"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// FullCode is parent1+parent2+code; it is never stored.
func (a AccountLevel3) FullCode() string {
	return a.ParentLevel1Code + a.ParentLevel2Code + a.Code
}

type NewAccountLevel3 struct {
	Level1Id         int             `json:"level1_id" binding:"required"`
	Level2Id         int             `json:"level2_id" binding:"required"`
	ParentLevel1Code string          `json:"parent_level1_code"`
	ParentLevel2Code string          `json:"parent_level2_code"`
	Code             string          `json:"code" binding:"required"`
	Title            string          `json:"title" binding:"required"`
	Balance          decimal.Decimal `json:"balance"`
}

func (input *NewAccountLevel3) validate(ctx context.Context, companyId string, id int) (*resolvedChain, error) {
	input.Code = strings.TrimSpace(input.Code)
	if err := ValidateLevel3Code(input.Code); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, utils.NewValidationError("title", "title is required")
	}
	chain, err := accountChain{
		Level1Id:   input.Level1Id,
		Level2Id:   input.Level2Id,
		Level1Code: input.ParentLevel1Code,
		Level2Code: input.ParentLevel2Code,
	}.resolve(config.GetDB().WithContext(ctx), companyId, 2)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[AccountLevel3](ctx, companyId, "code", "code", input.Code, id,
		"parent_level1_code = ? AND parent_level2_code = ?", chain.Level1.Code, chain.Level2.Code); err != nil {
		return nil, err
	}
	return chain, nil
}

func CreateAccountLevel3(ctx context.Context, input *NewAccountLevel3) (*AccountLevel3, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	chain, err := input.validate(ctx, companyId, 0)
	if err != nil {
		return nil, err
	}

	username := usernameFromContext(ctx)
	account := AccountLevel3{
		CompanyId:        companyId,
		Level1Id:         chain.Level1.ID,
		Level2Id:         chain.Level2.ID,
		ParentLevel1Code: chain.Level1.Code,
		ParentLevel2Code: chain.Level2.Code,
		Code:             input.Code,
		Title:            strings.TrimSpace(input.Title),
		Balance:          input.Balance,
		CreatedBy:        username,
		UpdatedBy:        username,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "code", input.Code)
	}
	return &account, nil
}

func UpdateAccountLevel3(ctx context.Context, id int, input *NewAccountLevel3) (*AccountLevel3, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	chain, err := input.validate(ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	tx := beginTx(ctx)
	defer rollback(tx)

	account, err := utils.FetchModelTx[AccountLevel3](tx, companyId, id)
	if err != nil {
		return nil, notFound("AccountLevel3", err)
	}
	if account.Level2Id != chain.Level2.ID {
		if err := guardDelete(tx, companyId, EntityAccountLevel3, id); err != nil {
			return nil, err
		}
	}
	codeChanged := account.Code != input.Code

	if err := tx.Model(account).Updates(map[string]interface{}{
		"Level1Id":         chain.Level1.ID,
		"Level2Id":         chain.Level2.ID,
		"ParentLevel1Code": chain.Level1.Code,
		"ParentLevel2Code": chain.Level2.Code,
		"Code":             input.Code,
		"Title":            strings.TrimSpace(input.Title),
		"Balance":          input.Balance,
		"UpdatedBy":        usernameFromContext(ctx),
	}).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "code", input.Code)
	}
	var leaves []int
	if codeChanged {
		if leaves, err = cascadeLevel3Code(tx, companyId, account.ID, input.Code); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	for _, leafId := range leaves {
		forgetAccountTitle(ctx, companyId, leafId)
	}
	return account, nil
}

func DeleteAccountLevel3(ctx context.Context, id int) (*AccountLevel3, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	tx := beginTx(ctx)
	defer rollback(tx)

	account, err := utils.FetchModelTx[AccountLevel3](tx, companyId, id)
	if err != nil {
		return nil, notFound("AccountLevel3", err)
	}
	if err := guardDelete(tx, companyId, EntityAccountLevel3, id); err != nil {
		return nil, err
	}
	if err := tx.Delete(account).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return account, nil
}

func GetAccountLevel3(ctx context.Context, id int) (*AccountLevel3, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	account, err := utils.FetchModel[AccountLevel3](ctx, companyId, id)
	if err != nil {
		return nil, notFound("AccountLevel3", err)
	}
	return account, nil
}

func ListAccountLevel3(ctx context.Context, level2Id int) ([]*AccountLevel3, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var results []*AccountLevel3
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	if level2Id > 0 {
		dbCtx = dbCtx.Where("level2_id = ?", level2Id)
	}
	err = dbCtx.Order("parent_level1_code").Order("parent_level2_code").Order("code").Find(&results).Error
	return results, err
}
