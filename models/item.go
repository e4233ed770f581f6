package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
)

// Item is a sellable product. Level4Id is its default sales account.
type Item struct {
	ID        int       `gorm:"primary_key" json:"id"`
	CompanyId string    `gorm:"size:64;not null;uniqueIndex:idx_item_code,priority:1" json:"company_id"`
	Code      string    `gorm:"size:30;not null;uniqueIndex:idx_item_code,priority:2" json:"code"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Unit      string    `gorm:"size:30" json:"unit"`
	Level4Id  *int      `gorm:"index" json:"level4_id"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedBy string    `gorm:"size:100" json:"created_by"`
	UpdatedBy string    `gorm:"size:100" json:"updated_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItem struct {
	Code     string `json:"code" binding:"required" validate:"required,max=30"`
	Title    string `json:"title" binding:"required" validate:"required,max=255"`
	Unit     string `json:"unit" validate:"max=30"`
	Level4Id *int   `json:"level4_id"`
}

func (input *NewItem) validate(ctx context.Context, companyId string, id int) error {
	input.Code = strings.TrimSpace(input.Code)
	input.Title = strings.TrimSpace(input.Title)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Level4Id != nil && *input.Level4Id > 0 {
		if err := utils.ValidateResourceId[AccountLevel4](ctx, companyId, *input.Level4Id); err != nil {
			return utils.NewReferenceError("level4", "level4 %d not found", *input.Level4Id)
		}
	} else {
		input.Level4Id = nil
	}
	return utils.ValidateUnique[Item](ctx, companyId, "code", "code", input.Code, id)
}

func CreateItem(ctx context.Context, input *NewItem) (*Item, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, companyId, 0); err != nil {
		return nil, err
	}

	username := usernameFromContext(ctx)
	item := Item{
		CompanyId: companyId,
		Code:      input.Code,
		Title:     input.Title,
		Unit:      input.Unit,
		Level4Id:  input.Level4Id,
		IsActive:  utils.NewTrue(),
		CreatedBy: username,
		UpdatedBy: username,
	}
	if err := config.GetDB().WithContext(ctx).Create(&item).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "code", input.Code)
	}
	return &item, nil
}

func UpdateItem(ctx context.Context, id int, input *NewItem) (*Item, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, companyId, id); err != nil {
		return nil, err
	}
	item, err := utils.FetchModel[Item](ctx, companyId, id)
	if err != nil {
		return nil, notFound("Item", err)
	}
	err = config.GetDB().WithContext(ctx).Model(item).Updates(map[string]interface{}{
		"Code":      input.Code,
		"Title":     input.Title,
		"Unit":      input.Unit,
		"Level4Id":  input.Level4Id,
		"UpdatedBy": usernameFromContext(ctx),
	}).Error
	if err != nil {
		return nil, utils.TranslateDuplicate(err, "code", input.Code)
	}
	return item, nil
}

func DeleteItem(ctx context.Context, id int) (*Item, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tx := beginTx(ctx)
	defer rollback(tx)

	item, err := utils.FetchModelTx[Item](tx, companyId, id)
	if err != nil {
		return nil, notFound("Item", err)
	}
	if err := guardDelete(tx, companyId, EntityItem, id); err != nil {
		return nil, err
	}
	if err := tx.Delete(item).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return item, nil
}

func GetItem(ctx context.Context, id int) (*Item, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	item, err := utils.FetchModel[Item](ctx, companyId, id)
	if err != nil {
		return nil, notFound("Item", err)
	}
	return item, nil
}

func ListItems(ctx context.Context, title *string) ([]*Item, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var results []*Item
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	if title != nil && len(*title) > 0 {
		dbCtx = dbCtx.Where("title LIKE ?", "%"+*title+"%")
	}
	err = dbCtx.Order("code").Find(&results).Error
	return results, err
}
