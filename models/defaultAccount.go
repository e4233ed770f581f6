package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
	"gorm.io/gorm"
)

// DefaultAccount tags a Level3 group (optionally one Level4 leaf under it) with a role.
// The display title is resolved on read and never stored here.
type DefaultAccount struct {
	ID            int                `gorm:"primary_key" json:"id"`
	CompanyId     string             `gorm:"size:64;not null;index:idx_default_account_role,priority:1" json:"company_id"`
	Role          DefaultAccountRole `gorm:"size:30;not null;index:idx_default_account_role,priority:2" json:"role"`
	Level1Id      int                `gorm:"not null;index" json:"level1_id"`
	Level2Id      int                `gorm:"not null;index" json:"level2_id"`
	Level3Id      int                `gorm:"not null;index" json:"level3_id"`
	Level1Code    string             `gorm:"size:2;not null" json:"level1_code"`
	Level2Code    string             `gorm:"size:2;not null" json:"level2_code"`
	Level3Code    string             `gorm:"size:3;not null" json:"level3_code"`
	Level4Id      *int               `gorm:"index" json:"level4_id"`
	Level4Subcode string             `gorm:"size:5" json:"level4_subcode"`
	IsActive      *bool              `gorm:"not null;default:true" json:"is_active"`
	IsDefault     *bool              `gorm:"not null;default:false" json:"is_default"`
	CreatedBy     string             `gorm:"size:100" json:"created_by"`
	UpdatedBy     string             `gorm:"size:100" json:"updated_by"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (d *DefaultAccount) Active() bool {
	return d.IsActive != nil && *d.IsActive
}

func (d *DefaultAccount) Default() bool {
	return d.IsDefault != nil && *d.IsDefault
}

// Level3FullCode is the 7 digit path of the Level3 the account hangs on.
func (d *DefaultAccount) Level3FullCode() string {
	return ComposeLevel4Code(d.Level1Code, d.Level2Code, d.Level3Code)
}

type NewDefaultAccount struct {
	Role       DefaultAccountRole `json:"role" binding:"required"`
	Level1Id   int                `json:"level1_id" binding:"required"`
	Level2Id   int                `json:"level2_id" binding:"required"`
	Level3Id   int                `json:"level3_id" binding:"required"`
	Level1Code string             `json:"level1_code"`
	Level2Code string             `json:"level2_code"`
	Level3Code string             `json:"level3_code"`
	Level4Id   *int               `json:"level4_id"`
	IsDefault  bool               `json:"is_default"`
}

func (input *NewDefaultAccount) validate(ctx context.Context, companyId string) (*DefaultAccount, error) {
	if !input.Role.IsValid() {
		return nil, utils.NewValidationError("role", "invalid role %q", input.Role)
	}
	db := config.GetDB().WithContext(ctx)
	chain, err := accountChain{
		Level1Id:   input.Level1Id,
		Level2Id:   input.Level2Id,
		Level3Id:   input.Level3Id,
		Level1Code: input.Level1Code,
		Level2Code: input.Level2Code,
		Level3Code: input.Level3Code,
	}.resolve(db, companyId, 3)
	if err != nil {
		return nil, err
	}

	account := DefaultAccount{
		CompanyId:  companyId,
		Role:       input.Role,
		Level1Id:   chain.Level1.ID,
		Level2Id:   chain.Level2.ID,
		Level3Id:   chain.Level3.ID,
		Level1Code: chain.Level1.Code,
		Level2Code: chain.Level2.Code,
		Level3Code: chain.Level3.Code,
	}

	level4Cond := "level4_id IS NULL"
	level4Args := []interface{}{}
	if input.Level4Id != nil && *input.Level4Id > 0 {
		leaf, err := fetchChainNode[AccountLevel4](db, companyId, *input.Level4Id, "level4")
		if err != nil {
			return nil, err
		}
		if leaf.Level3Id != chain.Level3.ID || leaf.Code != account.Level3FullCode() {
			return nil, utils.NewParentMismatchError("level4", leaf.Code, account.Level3FullCode())
		}
		id := leaf.ID
		account.Level4Id = &id
		account.Level4Subcode = leaf.Subcode
		level4Cond = "level4_id = ?"
		level4Args = append(level4Args, id)
	}

	scope := append([]interface{}{"role = ? AND " + level4Cond, input.Role}, level4Args...)
	if err := utils.ValidateUnique[DefaultAccount](ctx, companyId, "level3Id", "level3_id", chain.Level3.ID, 0, scope...); err != nil {
		return nil, err
	}
	return &account, nil
}

func CreateDefaultAccount(ctx context.Context, input *NewDefaultAccount) (*DefaultAccount, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	account, err := input.validate(ctx, companyId)
	if err != nil {
		return nil, err
	}
	username := usernameFromContext(ctx)
	account.CreatedBy = username
	account.UpdatedBy = username
	account.IsActive = utils.NewTrue()
	account.IsDefault = utils.NewFalse()

	tx := beginTx(ctx)
	defer rollback(tx)

	if err := tx.Create(account).Error; err != nil {
		return nil, err
	}
	if input.IsDefault {
		if err := markDefault(tx, companyId, account.Role, account.ID); err != nil {
			return nil, err
		}
		account.IsDefault = utils.NewTrue()
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return account, nil
}

// markDefault sets is_default for exactly one row of the role in a single statement.
func markDefault(tx *gorm.DB, companyId string, role DefaultAccountRole, id int) error {
	return tx.Model(&DefaultAccount{}).
		Where("company_id = ? AND role = ?", companyId, role).
		UpdateColumn("is_default", gorm.Expr("(id = ?)", id)).Error
}

// SetDefaultAccount makes id the only default of its role.
func SetDefaultAccount(ctx context.Context, id int) (*DefaultAccount, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	tx := beginTx(ctx)
	defer rollback(tx)

	account, err := utils.FetchModelTx[DefaultAccount](tx, companyId, id)
	if err != nil {
		return nil, notFound("DefaultAccount", err)
	}
	if !account.Active() {
		return nil, utils.NewValidationError("isActive", "inactive account cannot be the default")
	}
	if err := markDefault(tx, companyId, account.Role, account.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	account.IsDefault = utils.NewTrue()
	return account, nil
}

// ToggleActiveDefaultAccount flips is_active. Deactivating also drops the default flag.
func ToggleActiveDefaultAccount(ctx context.Context, id int, isActive bool) (*DefaultAccount, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	tx := beginTx(ctx)
	defer rollback(tx)

	account, err := utils.FetchModelTx[DefaultAccount](tx, companyId, id)
	if err != nil {
		return nil, notFound("DefaultAccount", err)
	}
	changes := map[string]interface{}{
		"is_active":  isActive,
		"updated_by": usernameFromContext(ctx),
	}
	if !isActive {
		changes["is_default"] = false
	}
	if err := tx.Model(account).Updates(changes).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	account.IsActive = &isActive
	if !isActive {
		account.IsDefault = utils.NewFalse()
	}
	return account, nil
}

func DeleteDefaultAccount(ctx context.Context, id int) (*DefaultAccount, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	tx := beginTx(ctx)
	defer rollback(tx)

	account, err := utils.FetchModelTx[DefaultAccount](tx, companyId, id)
	if err != nil {
		return nil, notFound("DefaultAccount", err)
	}
	if err := guardDelete(tx, companyId, EntityDefaultAccount, id); err != nil {
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

// GetDefaultAccount returns the default of role, NotFound when none is flagged.
func GetDefaultAccount(ctx context.Context, role DefaultAccountRole) (*DefaultAccount, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var account DefaultAccount
	err = config.GetDB().WithContext(ctx).
		Where("company_id = ? AND role = ? AND is_default = ?", companyId, role, true).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("DefaultAccount", err)
		}
		return nil, err
	}
	return &account, nil
}

func GetDefaultAccountById(ctx context.Context, id int) (*DefaultAccount, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	account, err := utils.FetchModel[DefaultAccount](ctx, companyId, id)
	if err != nil {
		return nil, notFound("DefaultAccount", err)
	}
	return account, nil
}

func ListDefaultAccounts(ctx context.Context, role DefaultAccountRole, activeOnly bool) ([]*DefaultAccount, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var results []*DefaultAccount
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	if role != "" {
		dbCtx = dbCtx.Where("role = ?", role)
	}
	if activeOnly {
		dbCtx = dbCtx.Where("is_active = ?", true)
	}
	err = dbCtx.Order("level1_code").Order("level2_code").Order("level3_code").Order("id").Find(&results).Error
	return results, err
}
