package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
)

// AccountLevel1 is the top category of the chart of accounts (Assets, Liabilities, ...).
type AccountLevel1 struct {
	ID          int       `gorm:"primary_key" json:"id"`
	CompanyId   string    `gorm:"size:64;not null;uniqueIndex:idx_account_level1_code,priority:1" json:"company_id"`
	Code        string    `gorm:"size:2;not null;uniqueIndex:idx_account_level1_code,priority:2" json:"code"`
	Description string    `gorm:"size:255;not null" json:"description"`
	CreatedBy   string    `gorm:"size:100" json:"created_by"`
	UpdatedBy   string    `gorm:"size:100" json:"updated_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAccountLevel1 struct {
	Code        string `json:"code" binding:"required"`
	Description string `json:"description" binding:"required"`
}

func (input *NewAccountLevel1) validate(ctx context.Context, companyId string, id int) error {
	input.Code = strings.TrimSpace(input.Code)
	if err := ValidateLevel1Code(input.Code); err != nil {
		return err
	}
	if strings.TrimSpace(input.Description) == "" {
		return utils.NewValidationError("description", "description is required")
	}
	return utils.ValidateUnique[AccountLevel1](ctx, companyId, "code", "code", input.Code, id)
}

func CreateAccountLevel1(ctx context.Context, input *NewAccountLevel1) (*AccountLevel1, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, companyId, 0); err != nil {
		return nil, err
	}

	username := usernameFromContext(ctx)
	account := AccountLevel1{
		CompanyId:   companyId,
		Code:        input.Code,
		Description: strings.TrimSpace(input.Description),
		CreatedBy:   username,
		UpdatedBy:   username,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "code", input.Code)
	}
	return &account, nil
}

// UpdateAccountLevel1 changes code/description. A code change is cascaded to every
// descendant snapshot and Level4 code in the same transaction.
func UpdateAccountLevel1(ctx context.Context, id int, input *NewAccountLevel1) (*AccountLevel1, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, companyId, id); err != nil {
		return nil, err
	}

	tx := beginTx(ctx)
	defer rollback(tx)

	account, err := utils.FetchModelTx[AccountLevel1](tx, companyId, id)
	if err != nil {
		return nil, notFound("AccountLevel1", err)
	}
	codeChanged := account.Code != input.Code

	if err := tx.Model(account).Updates(map[string]interface{}{
		"Code":        input.Code,
		"Description": strings.TrimSpace(input.Description),
		"UpdatedBy":   usernameFromContext(ctx),
	}).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "code", input.Code)
	}

	var leaves []int
	if codeChanged {
		if leaves, err = cascadeLevel1Code(tx, companyId, account.ID, input.Code); err != nil {
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

func DeleteAccountLevel1(ctx context.Context, id int) (*AccountLevel1, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	tx := beginTx(ctx)
	defer rollback(tx)

	account, err := utils.FetchModelTx[AccountLevel1](tx, companyId, id)
	if err != nil {
		return nil, notFound("AccountLevel1", err)
	}
	if err := guardDelete(tx, companyId, EntityAccountLevel1, id); err != nil {
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

func GetAccountLevel1(ctx context.Context, id int) (*AccountLevel1, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	account, err := utils.FetchModel[AccountLevel1](ctx, companyId, id)
	if err != nil {
		return nil, notFound("AccountLevel1", err)
	}
	return account, nil
}

func ListAccountLevel1(ctx context.Context) ([]*AccountLevel1, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[AccountLevel1](ctx, companyId, "code")
}
