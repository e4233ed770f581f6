package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
)

type AccountLevel2 struct {
	ID         int       `gorm:"primary_key" json:"id"`
	CompanyId  string    `gorm:"size:64;not null;uniqueIndex:idx_account_level2_code,priority:1" json:"company_id"`
	Level1Id   int       `gorm:"not null;index;uniqueIndex:idx_account_level2_code,priority:2" json:"level1_id"`
	ParentCode string    `gorm:"size:2;not null" json:"parent_code"`
	Code       string    `gorm:"size:2;not null;uniqueIndex:idx_account_level2_code,priority:3" json:"code"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	CreatedBy  string    `gorm:"size:100" json:"created_by"`
	UpdatedBy  string    `gorm:"size:100" json:"updated_by"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAccountLevel2 struct {
	Level1Id   int    `json:"level1_id" binding:"required"`
	ParentCode string `json:"parent_code"`
	Code       string `json:"code" binding:"required"`
	Title      string `json:"title" binding:"required"`
}

func (input *NewAccountLevel2) validate(ctx context.Context, companyId string, id int) (*resolvedChain, error) {
	input.Code = strings.TrimSpace(input.Code)
	if err := ValidateLevel2Code(input.Code); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, utils.NewValidationError("title", "title is required")
	}
	chain, err := accountChain{Level1Id: input.Level1Id, Level1Code: input.ParentCode}.
		resolve(config.GetDB().WithContext(ctx), companyId, 1)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[AccountLevel2](ctx, companyId, "code", "code", input.Code, id, "level1_id = ?", input.Level1Id); err != nil {
		return nil, err
	}
	return chain, nil
}

func CreateAccountLevel2(ctx context.Context, input *NewAccountLevel2) (*AccountLevel2, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	chain, err := input.validate(ctx, companyId, 0)
	if err != nil {
		return nil, err
	}

	username := usernameFromContext(ctx)
	account := AccountLevel2{
		CompanyId:  companyId,
		Level1Id:   chain.Level1.ID,
		ParentCode: chain.Level1.Code,
		Code:       input.Code,
		Title:      strings.TrimSpace(input.Title),
		CreatedBy:  username,
		UpdatedBy:  username,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "code", input.Code)
	}
	return &account, nil
}

func UpdateAccountLevel2(ctx context.Context, id int, input *NewAccountLevel2) (*AccountLevel2, error) {
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

	account, err := utils.FetchModelTx[AccountLevel2](tx, companyId, id)
	if err != nil {
		return nil, notFound("AccountLevel2", err)
	}
	if account.Level1Id != chain.Level1.ID {
		// moving a subtree would orphan the descendants' level1 references
		if err := guardDelete(tx, companyId, EntityAccountLevel2, id); err != nil {
			return nil, err
		}
	}
	codeChanged := account.Code != input.Code

	if err := tx.Model(account).Updates(map[string]interface{}{
		"Level1Id":   chain.Level1.ID,
		"ParentCode": chain.Level1.Code,
		"Code":       input.Code,
		"Title":      strings.TrimSpace(input.Title),
		"UpdatedBy":  usernameFromContext(ctx),
	}).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "code", input.Code)
	}
	var leaves []int
	if codeChanged {
		if leaves, err = cascadeLevel2Code(tx, companyId, account.ID, input.Code); err != nil {
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

func DeleteAccountLevel2(ctx context.Context, id int) (*AccountLevel2, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	tx := beginTx(ctx)
	defer rollback(tx)

	account, err := utils.FetchModelTx[AccountLevel2](tx, companyId, id)
	if err != nil {
		return nil, notFound("AccountLevel2", err)
	}
	if err := guardDelete(tx, companyId, EntityAccountLevel2, id); err != nil {
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

func GetAccountLevel2(ctx context.Context, id int) (*AccountLevel2, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	account, err := utils.FetchModel[AccountLevel2](ctx, companyId, id)
	if err != nil {
		return nil, notFound("AccountLevel2", err)
	}
	return account, nil
}

// ListAccountLevel2 lists the groups of one Level1, or all of them when level1Id is 0.
func ListAccountLevel2(ctx context.Context, level1Id int) ([]*AccountLevel2, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var results []*AccountLevel2
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	if level1Id > 0 {
		dbCtx = dbCtx.Where("level1_id = ?", level1Id)
	}
	if err := dbCtx.Order("parent_code").Order("code").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
