package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
	"gorm.io/gorm"
)

const maxCenterCode = 99

type ParentCenter struct {
	ID         int       `gorm:"primary_key" json:"id"`
	CompanyId  string    `gorm:"size:64;not null;uniqueIndex:idx_parent_center_code,priority:1" json:"company_id"`
	ParentCode string    `gorm:"size:2;not null;uniqueIndex:idx_parent_center_code,priority:2" json:"parent_code"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	CreatedBy  string    `gorm:"size:100" json:"created_by"`
	UpdatedBy  string    `gorm:"size:100" json:"updated_by"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ChildCenter codes are unique per parent center, not per company.
type ChildCenter struct {
	ID             int       `gorm:"primary_key" json:"id"`
	CompanyId      string    `gorm:"size:64;not null;index" json:"company_id"`
	ParentCenterId int       `gorm:"not null;uniqueIndex:idx_child_center_code,priority:1" json:"parent_center_id"`
	ParentCode     string    `gorm:"size:2;not null" json:"parent_code"`
	ChildCode      string    `gorm:"size:2;not null;uniqueIndex:idx_child_center_code,priority:2" json:"child_code"`
	Title          string    `gorm:"size:255;not null" json:"title"`
	CreatedBy      string    `gorm:"size:100" json:"created_by"`
	UpdatedBy      string    `gorm:"size:100" json:"updated_by"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FullCode is parent code + child code.
func (c ChildCenter) FullCode() string {
	return c.ParentCode + c.ChildCode
}

type NewParentCenter struct {
	Title string `json:"title" binding:"required"`
}

type NewChildCenter struct {
	ParentCenterId int    `json:"parent_center_id" binding:"required"`
	ParentCode     string `json:"parent_code"`
	ChildCode      string `json:"child_code"`
	Title          string `json:"title" binding:"required"`
}

func formatCenterCode(n int) string {
	return fmt.Sprintf("%02d", n)
}

// nextCenterCode returns max(existing)+1 over codes; 1 when empty.
func nextCenterCode(codes []string, field string) (string, error) {
	maxCode := 0
	for _, c := range codes {
		if n, err := strconv.Atoi(c); err == nil && n > maxCode {
			maxCode = n
		}
	}
	if maxCode+1 > maxCenterCode {
		return "", utils.NewValidationError(field, "%s range exhausted (max %d)", field, maxCenterCode)
	}
	return formatCenterCode(maxCode + 1), nil
}

func CreateParentCenter(ctx context.Context, input *NewParentCenter) (*ParentCenter, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, utils.NewValidationError("title", "title is required")
	}

	tx := beginTx(ctx)
	defer rollback(tx)

	var codes []string
	if err := tx.Model(&ParentCenter{}).Where("company_id = ?", companyId).Pluck("parent_code", &codes).Error; err != nil {
		return nil, err
	}
	code, err := nextCenterCode(codes, "parentCode")
	if err != nil {
		return nil, err
	}

	username := usernameFromContext(ctx)
	center := ParentCenter{
		CompanyId:  companyId,
		ParentCode: code,
		Title:      title,
		CreatedBy:  username,
		UpdatedBy:  username,
	}
	if err := tx.Create(&center).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "parentCode", code)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &center, nil
}

func UpdateParentCenter(ctx context.Context, id int, input *NewParentCenter) (*ParentCenter, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, utils.NewValidationError("title", "title is required")
	}
	center, err := utils.FetchModel[ParentCenter](ctx, companyId, id)
	if err != nil {
		return nil, notFound("ParentCenter", err)
	}
	err = config.GetDB().WithContext(ctx).Model(center).Updates(map[string]interface{}{
		"Title":     title,
		"UpdatedBy": usernameFromContext(ctx),
	}).Error
	if err != nil {
		return nil, err
	}
	return center, nil
}

func DeleteParentCenter(ctx context.Context, id int) (*ParentCenter, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tx := beginTx(ctx)
	defer rollback(tx)

	center, err := utils.FetchModelTx[ParentCenter](tx, companyId, id)
	if err != nil {
		return nil, notFound("ParentCenter", err)
	}
	if err := guardDelete(tx, companyId, EntityParentCenter, id); err != nil {
		return nil, err
	}
	if err := tx.Delete(center).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return center, nil
}

func GetParentCenter(ctx context.Context, id int) (*ParentCenter, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	center, err := utils.FetchModel[ParentCenter](ctx, companyId, id)
	if err != nil {
		return nil, notFound("ParentCenter", err)
	}
	return center, nil
}

func ListParentCenters(ctx context.Context) ([]*ParentCenter, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[ParentCenter](ctx, companyId, "parent_code")
}

func childCodesOf(tx *gorm.DB, parentCenterId int, exceptId int) ([]string, error) {
	var codes []string
	q := tx.Model(&ChildCenter{}).Where("parent_center_id = ?", parentCenterId)
	if exceptId > 0 {
		q = q.Where("id <> ?", exceptId)
	}
	err := q.Pluck("child_code", &codes).Error
	return codes, err
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func resolveParentCenter(tx *gorm.DB, companyId string, id int, suppliedCode string) (*ParentCenter, error) {
	parent, err := fetchChainNode[ParentCenter](tx, companyId, id, "parentCenter")
	if err != nil {
		return nil, err
	}
	if err := checkSnapshot("parentCenter", suppliedCode, parent.ParentCode); err != nil {
		return nil, err
	}
	return parent, nil
}

// CreateChildCenter uses the supplied child code when given, otherwise the next free one.
func CreateChildCenter(ctx context.Context, input *NewChildCenter) (*ChildCenter, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, utils.NewValidationError("title", "title is required")
	}
	childCode := strings.TrimSpace(input.ChildCode)
	if childCode != "" {
		if err := ValidateCenterCode("childCode", childCode); err != nil {
			return nil, err
		}
	}

	tx := beginTx(ctx)
	defer rollback(tx)

	parent, err := resolveParentCenter(tx, companyId, input.ParentCenterId, input.ParentCode)
	if err != nil {
		return nil, err
	}
	codes, err := childCodesOf(tx, parent.ID, 0)
	if err != nil {
		return nil, err
	}
	if childCode == "" {
		if childCode, err = nextCenterCode(codes, "childCode"); err != nil {
			return nil, err
		}
	} else if containsCode(codes, childCode) {
		return nil, utils.NewDuplicateError("childCode", childCode)
	}

	username := usernameFromContext(ctx)
	center := ChildCenter{
		CompanyId:      companyId,
		ParentCenterId: parent.ID,
		ParentCode:     parent.ParentCode,
		ChildCode:      childCode,
		Title:          title,
		CreatedBy:      username,
		UpdatedBy:      username,
	}
	if err := tx.Create(&center).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "childCode", childCode)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &center, nil
}

// MoveChildCenter re-parents a child center. When its code is taken under the new
// parent it is renumbered to the next free code there.
func MoveChildCenter(ctx context.Context, id int, parentCenterId int, title *string) (*ChildCenter, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	tx := beginTx(ctx)
	defer rollback(tx)

	center, err := utils.FetchModelTx[ChildCenter](tx, companyId, id)
	if err != nil {
		return nil, notFound("ChildCenter", err)
	}
	parent, err := resolveParentCenter(tx, companyId, parentCenterId, "")
	if err != nil {
		return nil, err
	}

	childCode := center.ChildCode
	if parent.ID != center.ParentCenterId {
		codes, err := childCodesOf(tx, parent.ID, center.ID)
		if err != nil {
			return nil, err
		}
		if containsCode(codes, childCode) {
			if childCode, err = nextCenterCode(codes, "childCode"); err != nil {
				return nil, err
			}
		}
	}

	changes := map[string]interface{}{
		"ParentCenterId": parent.ID,
		"ParentCode":     parent.ParentCode,
		"ChildCode":      childCode,
		"UpdatedBy":      usernameFromContext(ctx),
	}
	if title != nil && strings.TrimSpace(*title) != "" {
		changes["Title"] = strings.TrimSpace(*title)
	}
	if err := tx.Model(center).Updates(changes).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "childCode", childCode)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return center, nil
}

func DeleteChildCenter(ctx context.Context, id int) (*ChildCenter, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tx := beginTx(ctx)
	defer rollback(tx)

	center, err := utils.FetchModelTx[ChildCenter](tx, companyId, id)
	if err != nil {
		return nil, notFound("ChildCenter", err)
	}
	if err := guardDelete(tx, companyId, EntityChildCenter, id); err != nil {
		return nil, err
	}
	if err := tx.Delete(center).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return center, nil
}

func GetChildCenter(ctx context.Context, id int) (*ChildCenter, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	center, err := utils.FetchModel[ChildCenter](ctx, companyId, id)
	if err != nil {
		return nil, notFound("ChildCenter", err)
	}
	return center, nil
}

func ListChildCenters(ctx context.Context, parentCenterId int) ([]*ChildCenter, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var results []*ChildCenter
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	if parentCenterId > 0 {
		dbCtx = dbCtx.Where("parent_center_id = ?", parentCenterId)
	}
	err = dbCtx.Order("parent_code").Order("child_code").Find(&results).Error
	return results, err
}
