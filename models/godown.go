package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
)

// Godown is a warehouse stock is sold from.
type Godown struct {
	ID        int       `gorm:"primary_key" json:"id"`
	CompanyId string    `gorm:"size:64;not null;uniqueIndex:idx_godown_code,priority:1" json:"company_id"`
	Code      string    `gorm:"size:20;not null;uniqueIndex:idx_godown_code,priority:2" json:"code"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Address   string    `gorm:"type:text" json:"address"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedBy string    `gorm:"size:100" json:"created_by"`
	UpdatedBy string    `gorm:"size:100" json:"updated_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewGodown struct {
	Code    string `json:"code" binding:"required" validate:"required,max=20"`
	Title   string `json:"title" binding:"required" validate:"required,max=255"`
	Address string `json:"address"`
}

func (input *NewGodown) validate(ctx context.Context, companyId string, id int) error {
	input.Code = strings.TrimSpace(input.Code)
	input.Title = strings.TrimSpace(input.Title)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	return utils.ValidateUnique[Godown](ctx, companyId, "code", "code", input.Code, id)
}

func CreateGodown(ctx context.Context, input *NewGodown) (*Godown, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, companyId, 0); err != nil {
		return nil, err
	}

	username := usernameFromContext(ctx)
	godown := Godown{
		CompanyId: companyId,
		Code:      input.Code,
		Title:     input.Title,
		Address:   input.Address,
		IsActive:  utils.NewTrue(),
		CreatedBy: username,
		UpdatedBy: username,
	}
	if err := config.GetDB().WithContext(ctx).Create(&godown).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "code", input.Code)
	}
	return &godown, nil
}

func UpdateGodown(ctx context.Context, id int, input *NewGodown) (*Godown, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, companyId, id); err != nil {
		return nil, err
	}
	godown, err := utils.FetchModel[Godown](ctx, companyId, id)
	if err != nil {
		return nil, notFound("Godown", err)
	}
	err = config.GetDB().WithContext(ctx).Model(godown).Updates(map[string]interface{}{
		"Code":      input.Code,
		"Title":     input.Title,
		"Address":   input.Address,
		"UpdatedBy": usernameFromContext(ctx),
	}).Error
	if err != nil {
		return nil, utils.TranslateDuplicate(err, "code", input.Code)
	}
	return godown, nil
}

func ToggleActiveGodown(ctx context.Context, id int, isActive bool) (*Godown, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	godown, err := utils.FetchModel[Godown](ctx, companyId, id)
	if err != nil {
		return nil, notFound("Godown", err)
	}
	if err := config.GetDB().WithContext(ctx).Model(godown).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}
	godown.IsActive = &isActive
	return godown, nil
}

func DeleteGodown(ctx context.Context, id int) (*Godown, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tx := beginTx(ctx)
	defer rollback(tx)

	godown, err := utils.FetchModelTx[Godown](tx, companyId, id)
	if err != nil {
		return nil, notFound("Godown", err)
	}
	if err := guardDelete(tx, companyId, EntityGodown, id); err != nil {
		return nil, err
	}
	if err := tx.Delete(godown).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return godown, nil
}

func GetGodown(ctx context.Context, id int) (*Godown, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	godown, err := utils.FetchModel[Godown](ctx, companyId, id)
	if err != nil {
		return nil, notFound("Godown", err)
	}
	return godown, nil
}

func ListGodowns(ctx context.Context) ([]*Godown, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Godown](ctx, companyId, "code")
}
