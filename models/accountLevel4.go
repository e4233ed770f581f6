package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/shopspring/decimal"
)

// AccountLevel4 is the postable leaf account. Code and Fullcode are derived from the
// ancestor snapshots and the subcode on every write and cannot be set by callers.
type AccountLevel4 struct {
	ID               int             `gorm:"primary_key" json:"id"`
	CompanyId        string          `gorm:"size:64;not null;uniqueIndex:idx_account_level4_chain,priority:1;uniqueIndex:idx_account_level4_fullcode,priority:1" json:"company_id"`
	Level1Id         int             `gorm:"not null;uniqueIndex:idx_account_level4_chain,priority:2" json:"level1_id"`
	Level2Id         int             `gorm:"not null;uniqueIndex:idx_account_level4_chain,priority:3" json:"level2_id"`
	Level3Id         int             `gorm:"not null;index;uniqueIndex:idx_account_level4_chain,priority:4" json:"level3_id"`
	ParentLevel1Code string          `gorm:"size:2;not null" json:"parent_level1_code"`
	ParentLevel2Code string          `gorm:"size:2;not null" json:"parent_level2_code"`
	ParentLevel3Code string          `gorm:"size:3;not null" json:"parent_level3_code"`
	Code             string          `gorm:"size:7;not null;uniqueIndex:idx_account_level4_chain,priority:5" json:"code"`
	Subcode          string          `gorm:"size:5;not null;uniqueIndex:idx_account_level4_chain,priority:6" json:"subcode"`
	Fullcode         string          `gorm:"size:12;not null;uniqueIndex:idx_account_level4_fullcode,priority:2" json:"fullcode"`
	Title            string          `gorm:"size:255;not null" json:"title"`
	Balance          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`
	CreatedBy        string          `gorm:"size:100" json:"created_by"`
	UpdatedBy        string          `gorm:"size:100" json:"updated_by"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// regenerate code and fullcode from the current snapshots
func (a *AccountLevel4) regenerateCodes() {
	a.Code = ComposeLevel4Code(a.ParentLevel1Code, a.ParentLevel2Code, a.ParentLevel3Code)
	a.Fullcode = ComposeLevel4Fullcode(a.Code, a.Subcode)
}

type NewAccountLevel4 struct {
	Level1Id         int             `json:"level1_id" binding:"required"`
	Level2Id         int             `json:"level2_id" binding:"required"`
	Level3Id         int             `json:"level3_id" binding:"required"`
	ParentLevel1Code string          `json:"parent_level1_code"`
	ParentLevel2Code string          `json:"parent_level2_code"`
	ParentLevel3Code string          `json:"parent_level3_code"`
	Subcode          string          `json:"subcode" binding:"required"`
	Title            string          `json:"title" binding:"required"`
	Balance          decimal.Decimal `json:"balance"`
}

func (input *NewAccountLevel4) chain() accountChain {
	return accountChain{
		Level1Id:   input.Level1Id,
		Level2Id:   input.Level2Id,
		Level3Id:   input.Level3Id,
		Level1Code: input.ParentLevel1Code,
		Level2Code: input.ParentLevel2Code,
		Level3Code: input.ParentLevel3Code,
	}
}

// validate returns the row to be written, with codes regenerated from the live chain
func (input *NewAccountLevel4) validate(ctx context.Context, companyId string, id int) (*AccountLevel4, error) {
	input.Subcode = strings.TrimSpace(input.Subcode)
	if err := ValidateLevel4Subcode(input.Subcode); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, utils.NewValidationError("title", "title is required")
	}
	chain, err := input.chain().resolve(config.GetDB().WithContext(ctx), companyId, 3)
	if err != nil {
		return nil, err
	}

	account := AccountLevel4{
		CompanyId:        companyId,
		Level1Id:         chain.Level1.ID,
		Level2Id:         chain.Level2.ID,
		Level3Id:         chain.Level3.ID,
		ParentLevel1Code: chain.Level1.Code,
		ParentLevel2Code: chain.Level2.Code,
		ParentLevel3Code: chain.Level3.Code,
		Subcode:          input.Subcode,
		Title:            strings.TrimSpace(input.Title),
		Balance:          input.Balance,
	}
	account.regenerateCodes()

	if err := utils.ValidateUnique[AccountLevel4](ctx, companyId, "fullcode", "fullcode", account.Fullcode, id); err != nil {
		return nil, err
	}
	return &account, nil
}

func CreateAccountLevel4(ctx context.Context, input *NewAccountLevel4) (*AccountLevel4, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	account, err := input.validate(ctx, companyId, 0)
	if err != nil {
		return nil, err
	}
	username := usernameFromContext(ctx)
	account.CreatedBy = username
	account.UpdatedBy = username

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "fullcode", account.Fullcode)
	}
	return account, nil
}

func UpdateAccountLevel4(ctx context.Context, id int, input *NewAccountLevel4) (*AccountLevel4, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	changes, err := input.validate(ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	tx := beginTx(ctx)
	defer rollback(tx)

	account, err := utils.FetchModelTx[AccountLevel4](tx, companyId, id)
	if err != nil {
		return nil, notFound("AccountLevel4", err)
	}
	if account.Level3Id != changes.Level3Id {
		if err := guardDelete(tx, companyId, EntityAccountLevel4, id); err != nil {
			return nil, err
		}
	}
	if err := tx.Model(account).Updates(map[string]interface{}{
		"Level1Id":         changes.Level1Id,
		"Level2Id":         changes.Level2Id,
		"Level3Id":         changes.Level3Id,
		"ParentLevel1Code": changes.ParentLevel1Code,
		"ParentLevel2Code": changes.ParentLevel2Code,
		"ParentLevel3Code": changes.ParentLevel3Code,
		"Subcode":          changes.Subcode,
		"Code":             changes.Code,
		"Fullcode":         changes.Fullcode,
		"Title":            changes.Title,
		"Balance":          changes.Balance,
		"UpdatedBy":        usernameFromContext(ctx),
	}).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "fullcode", changes.Fullcode)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	forgetAccountTitle(ctx, companyId, id)
	return account, nil
}

func DeleteAccountLevel4(ctx context.Context, id int) (*AccountLevel4, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	tx := beginTx(ctx)
	defer rollback(tx)

	account, err := utils.FetchModelTx[AccountLevel4](tx, companyId, id)
	if err != nil {
		return nil, notFound("AccountLevel4", err)
	}
	if err := guardDelete(tx, companyId, EntityAccountLevel4, id); err != nil {
		return nil, err
	}
	if err := tx.Delete(account).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	forgetAccountTitle(ctx, companyId, id)
	return account, nil
}

func GetAccountLevel4(ctx context.Context, id int) (*AccountLevel4, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	account, err := utils.FetchModel[AccountLevel4](ctx, companyId, id)
	if err != nil {
		return nil, notFound("AccountLevel4", err)
	}
	return account, nil
}

func GetAccountLevel4ByFullcode(ctx context.Context, fullcode string) (*AccountLevel4, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var account AccountLevel4
	err = config.GetDB().WithContext(ctx).
		Where("company_id = ? AND fullcode = ?", companyId, fullcode).
		First(&account).Error
	if err != nil {
		return nil, notFound("AccountLevel4", err)
	}
	return &account, nil
}

func ListAccountLevel4(ctx context.Context, level3Id int, title *string) ([]*AccountLevel4, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var results []*AccountLevel4
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	if level3Id > 0 {
		dbCtx = dbCtx.Where("level3_id = ?", level3Id)
	}
	if title != nil && len(*title) > 0 {
		dbCtx = dbCtx.Where("title LIKE ?", "%"+*title+"%")
	}
	err = dbCtx.Order("fullcode").Find(&results).Error
	return results, err
}
