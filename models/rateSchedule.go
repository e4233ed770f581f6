package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNoApplicableRate means no active schedule is dated on or before the target date.
var ErrNoApplicableRate = errors.New("no applicable rate")

type TaxRateSetting struct {
	ID             int           `gorm:"primary_key" json:"id"`
	CompanyId      string        `gorm:"size:64;not null;uniqueIndex:idx_tax_rate_setting_key,priority:1" json:"company_id"`
	Level4Id       int           `gorm:"not null;uniqueIndex:idx_tax_rate_setting_key,priority:2" json:"level4_id"`
	ItemId         int           `gorm:"not null;uniqueIndex:idx_tax_rate_setting_key,priority:3" json:"item_id"`
	ApplicableDate time.Time     `gorm:"not null;uniqueIndex:idx_tax_rate_setting_key,priority:4" json:"applicable_date"`
	IsExempted     *bool         `gorm:"not null;default:false" json:"is_exempted"`
	IsActive       *bool         `gorm:"not null;default:true" json:"is_active"`
	Lines          []TaxRateLine `gorm:"foreignKey:TaxRateSettingId" json:"lines"`
	CreatedBy      string        `gorm:"size:100" json:"created_by"`
	UpdatedBy      string        `gorm:"size:100" json:"updated_by"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *TaxRateSetting) Exempted() bool {
	return t != nil && t.IsExempted != nil && *t.IsExempted
}

type TaxRateLine struct {
	ID               int             `gorm:"primary_key" json:"id"`
	TaxRateSettingId int             `gorm:"not null;index" json:"tax_rate_setting_id"`
	Type             TaxType         `gorm:"size:50;not null" json:"type"`
	Title            string          `gorm:"size:100" json:"title"`
	Rate             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	Editable         bool            `json:"editable"`
}

type DiscountRate struct {
	ID             int                `gorm:"primary_key" json:"id"`
	CompanyId      string             `gorm:"size:64;not null;uniqueIndex:idx_discount_rate_key,priority:1" json:"company_id"`
	Level4Id       int                `gorm:"not null;uniqueIndex:idx_discount_rate_key,priority:2" json:"level4_id"`
	ItemId         int                `gorm:"not null;uniqueIndex:idx_discount_rate_key,priority:3" json:"item_id"`
	ApplicableDate time.Time          `gorm:"not null;uniqueIndex:idx_discount_rate_key,priority:4" json:"applicable_date"`
	IsActive       *bool              `gorm:"not null;default:true" json:"is_active"`
	Lines          []DiscountRateLine `gorm:"foreignKey:DiscountRateId" json:"lines"`
	CreatedBy      string             `gorm:"size:100" json:"created_by"`
	UpdatedBy      string             `gorm:"size:100" json:"updated_by"`
	CreatedAt      time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type DiscountRateLine struct {
	ID             int             `gorm:"primary_key" json:"id"`
	DiscountRateId int             `gorm:"not null;index" json:"discount_rate_id"`
	Type           DiscountType    `gorm:"size:20;not null" json:"type"`
	Title          string          `gorm:"size:100" json:"title"`
	Rate           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	Editable       bool            `json:"editable"`
}

// ProductRate is the default unit price of an item sold on an account.
type ProductRate struct {
	ID             int             `gorm:"primary_key" json:"id"`
	CompanyId      string          `gorm:"size:64;not null;uniqueIndex:idx_product_rate_key,priority:1" json:"company_id"`
	Level4Id       int             `gorm:"not null;uniqueIndex:idx_product_rate_key,priority:2" json:"level4_id"`
	ItemId         int             `gorm:"not null;uniqueIndex:idx_product_rate_key,priority:3" json:"item_id"`
	ApplicableDate time.Time       `gorm:"not null;uniqueIndex:idx_product_rate_key,priority:4" json:"applicable_date"`
	Rate           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedBy      string          `gorm:"size:100" json:"created_by"`
	UpdatedBy      string          `gorm:"size:100" json:"updated_by"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewRateLine struct {
	Type     string          `json:"type" binding:"required"`
	Title    string          `json:"title"`
	Rate     decimal.Decimal `json:"rate"`
	Editable bool            `json:"editable"`
}

type NewTaxRateSetting struct {
	Level4Id       int           `json:"level4_id" binding:"required"`
	ItemId         int           `json:"item_id" binding:"required"`
	ApplicableDate time.Time     `json:"applicable_date" binding:"required"`
	IsExempted     bool          `json:"is_exempted"`
	Lines          []NewRateLine `json:"lines"`
}

type NewDiscountRate struct {
	Level4Id       int           `json:"level4_id" binding:"required"`
	ItemId         int           `json:"item_id" binding:"required"`
	ApplicableDate time.Time     `json:"applicable_date" binding:"required"`
	Lines          []NewRateLine `json:"lines"`
}

type NewProductRate struct {
	Level4Id       int             `json:"level4_id" binding:"required"`
	ItemId         int             `json:"item_id" binding:"required"`
	ApplicableDate time.Time       `json:"applicable_date" binding:"required"`
	Rate           decimal.Decimal `json:"rate"`
}

// validateScheduleKey checks the (account, item) pair of a schedule and returns the normalized date.
func validateScheduleKey(ctx context.Context, companyId string, level4Id int, itemId int, date time.Time) (time.Time, error) {
	if date.IsZero() {
		return date, utils.NewValidationError("applicableDate", "applicable date is required")
	}
	if err := utils.ValidateResourceId[AccountLevel4](ctx, companyId, level4Id); err != nil {
		return date, utils.NewReferenceError("level4", "level4 %d not found", level4Id)
	}
	if err := utils.ValidateResourceId[Item](ctx, companyId, itemId); err != nil {
		return date, utils.NewReferenceError("item", "item %d not found", itemId)
	}
	return utils.DateOnly(date), nil
}

func validateRateLine(i int, line NewRateLine) error {
	if strings.TrimSpace(line.Type) == "" {
		return utils.NewValidationError("lines", "line %d: type is required", i)
	}
	if line.Rate.IsNegative() {
		return utils.NewValidationError("lines", "line %d: rate must not be negative", i)
	}
	return nil
}

func CreateTaxRateSetting(ctx context.Context, input *NewTaxRateSetting) (*TaxRateSetting, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	date, err := validateScheduleKey(ctx, companyId, input.Level4Id, input.ItemId, input.ApplicableDate)
	if err != nil {
		return nil, err
	}
	var lines []TaxRateLine
	for i, l := range input.Lines {
		if err := validateRateLine(i, l); err != nil {
			return nil, err
		}
		lines = append(lines, TaxRateLine{Type: TaxType(strings.TrimSpace(l.Type)), Title: l.Title, Rate: l.Rate, Editable: l.Editable})
	}

	username := usernameFromContext(ctx)
	setting := TaxRateSetting{
		CompanyId:      companyId,
		Level4Id:       input.Level4Id,
		ItemId:         input.ItemId,
		ApplicableDate: date,
		IsExempted:     &input.IsExempted,
		IsActive:       utils.NewTrue(),
		Lines:          lines,
		CreatedBy:      username,
		UpdatedBy:      username,
	}
	if err := config.GetDB().WithContext(ctx).Create(&setting).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "applicableDate", date.Format(time.DateOnly))
	}
	return &setting, nil
}

func CreateDiscountRate(ctx context.Context, input *NewDiscountRate) (*DiscountRate, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	date, err := validateScheduleKey(ctx, companyId, input.Level4Id, input.ItemId, input.ApplicableDate)
	if err != nil {
		return nil, err
	}
	var lines []DiscountRateLine
	for i, l := range input.Lines {
		if err := validateRateLine(i, l); err != nil {
			return nil, err
		}
		t := DiscountType(strings.ToLower(strings.TrimSpace(l.Type)))
		if !t.IsValid() {
			return nil, utils.NewValidationError("lines", "line %d: unknown discount type %q", i, l.Type)
		}
		lines = append(lines, DiscountRateLine{Type: t, Title: l.Title, Rate: l.Rate, Editable: l.Editable})
	}

	username := usernameFromContext(ctx)
	rate := DiscountRate{
		CompanyId:      companyId,
		Level4Id:       input.Level4Id,
		ItemId:         input.ItemId,
		ApplicableDate: date,
		IsActive:       utils.NewTrue(),
		Lines:          lines,
		CreatedBy:      username,
		UpdatedBy:      username,
	}
	if err := config.GetDB().WithContext(ctx).Create(&rate).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "applicableDate", date.Format(time.DateOnly))
	}
	return &rate, nil
}

func CreateProductRate(ctx context.Context, input *NewProductRate) (*ProductRate, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	date, err := validateScheduleKey(ctx, companyId, input.Level4Id, input.ItemId, input.ApplicableDate)
	if err != nil {
		return nil, err
	}
	if input.Rate.IsNegative() {
		return nil, utils.NewValidationError("rate", "rate must not be negative")
	}

	username := usernameFromContext(ctx)
	rate := ProductRate{
		CompanyId:      companyId,
		Level4Id:       input.Level4Id,
		ItemId:         input.ItemId,
		ApplicableDate: date,
		Rate:           input.Rate,
		IsActive:       utils.NewTrue(),
		CreatedBy:      username,
		UpdatedBy:      username,
	}
	if err := config.GetDB().WithContext(ctx).Create(&rate).Error; err != nil {
		return nil, utils.TranslateDuplicate(err, "applicableDate", date.Format(time.DateOnly))
	}
	return &rate, nil
}

// toggleActiveSchedule flips is_active on any schedule model.
func toggleActiveSchedule[T any](ctx context.Context, resource string, id int, isActive bool) (*T, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	row, err := utils.FetchModel[T](ctx, companyId, id)
	if err != nil {
		return nil, notFound(resource, err)
	}
	err = config.GetDB().WithContext(ctx).Model(row).Updates(map[string]interface{}{
		"is_active":  isActive,
		"updated_by": usernameFromContext(ctx),
	}).Error
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[T](ctx, companyId, id)
}

func ToggleActiveTaxRateSetting(ctx context.Context, id int, isActive bool) (*TaxRateSetting, error) {
	return toggleActiveSchedule[TaxRateSetting](ctx, "TaxRateSetting", id, isActive)
}

func ToggleActiveDiscountRate(ctx context.Context, id int, isActive bool) (*DiscountRate, error) {
	return toggleActiveSchedule[DiscountRate](ctx, "DiscountRate", id, isActive)
}

func ToggleActiveProductRate(ctx context.Context, id int, isActive bool) (*ProductRate, error) {
	return toggleActiveSchedule[ProductRate](ctx, "ProductRate", id, isActive)
}

func DeleteTaxRateSetting(ctx context.Context, id int) error {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return err
	}
	tx := beginTx(ctx)
	defer rollback(tx)

	setting, err := utils.FetchModelTx[TaxRateSetting](tx, companyId, id)
	if err != nil {
		return notFound("TaxRateSetting", err)
	}
	if err := tx.Where("tax_rate_setting_id = ?", setting.ID).Delete(&TaxRateLine{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(setting).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}

func DeleteDiscountRate(ctx context.Context, id int) error {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return err
	}
	tx := beginTx(ctx)
	defer rollback(tx)

	rate, err := utils.FetchModelTx[DiscountRate](tx, companyId, id)
	if err != nil {
		return notFound("DiscountRate", err)
	}
	if err := tx.Where("discount_rate_id = ?", rate.ID).Delete(&DiscountRateLine{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(rate).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}

func DeleteProductRate(ctx context.Context, id int) error {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return err
	}
	rate, err := utils.FetchModel[ProductRate](ctx, companyId, id)
	if err != nil {
		return notFound("ProductRate", err)
	}
	return config.GetDB().WithContext(ctx).Delete(rate).Error
}

// ScheduleFilter narrows schedule listings; zero fields are ignored.
type ScheduleFilter struct {
	Level4Id int
	ItemId   int
}

func (f ScheduleFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Level4Id > 0 {
		db = db.Where("level4_id = ?", f.Level4Id)
	}
	if f.ItemId > 0 {
		db = db.Where("item_id = ?", f.ItemId)
	}
	return db.Order("applicable_date DESC")
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

func ListTaxRateSettings(ctx context.Context, filter ScheduleFilter) ([]*TaxRateSetting, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var results []*TaxRateSetting
	err = filter.apply(config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)).
		Preload("Lines", orderedLines).Find(&results).Error
	return results, err
}

func ListDiscountRates(ctx context.Context, filter ScheduleFilter) ([]*DiscountRate, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var results []*DiscountRate
	err = filter.apply(config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)).
		Preload("Lines", orderedLines).Find(&results).Error
	return results, err
}

func ListProductRates(ctx context.Context, filter ScheduleFilter) ([]*ProductRate, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var results []*ProductRate
	err = filter.apply(config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)).Find(&results).Error
	return results, err
}

// effectiveSchedule picks the newest active row with applicable_date <= date.
func effectiveSchedule[T any](db *gorm.DB, resource string, companyId string, level4Id int, itemId int, date time.Time, preload bool) (*T, error) {
	var row T
	q := db.Where("company_id = ? AND level4_id = ? AND item_id = ? AND is_active = ? AND applicable_date <= ?",
		companyId, level4Id, itemId, true, utils.DateOnly(date))
	if preload {
		q = q.Preload("Lines", orderedLines)
	}
	err := q.Order("applicable_date DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &utils.AppError{
				Kind:      utils.KindNotFound,
				Reference: resource,
				Message:   resource + ": " + ErrNoApplicableRate.Error() + " on " + utils.DateOnly(date).Format(time.DateOnly),
				Err:       ErrNoApplicableRate,
			}
		}
		return nil, err
	}
	return &row, nil
}

func GetEffectiveTaxRate(ctx context.Context, companyId string, level4Id int, itemId int, date time.Time) (*TaxRateSetting, error) {
	return effectiveSchedule[TaxRateSetting](config.GetDB().WithContext(ctx), "TaxRateSetting", companyId, level4Id, itemId, date, true)
}

func GetEffectiveDiscountRate(ctx context.Context, companyId string, level4Id int, itemId int, date time.Time) (*DiscountRate, error) {
	return effectiveSchedule[DiscountRate](config.GetDB().WithContext(ctx), "DiscountRate", companyId, level4Id, itemId, date, true)
}

func GetEffectiveProductRate(ctx context.Context, companyId string, level4Id int, itemId int, date time.Time) (*ProductRate, error) {
	return effectiveSchedule[ProductRate](config.GetDB().WithContext(ctx), "ProductRate", companyId, level4Id, itemId, date, false)
}

// ResolveRatesFor returns the tax and discount schedules effective on date.
// A missing schedule is returned as nil together with an error wrapping ErrNoApplicableRate;
// the first non-rate error aborts.
func ResolveRatesFor(ctx context.Context, companyId string, level4Id int, itemId int, date time.Time) (*TaxRateSetting, *DiscountRate, error) {
	tax, taxErr := GetEffectiveTaxRate(ctx, companyId, level4Id, itemId, date)
	if taxErr != nil && !errors.Is(taxErr, ErrNoApplicableRate) {
		return nil, nil, taxErr
	}
	discount, discountErr := GetEffectiveDiscountRate(ctx, companyId, level4Id, itemId, date)
	if discountErr != nil && !errors.Is(discountErr, ErrNoApplicableRate) {
		return nil, nil, discountErr
	}
	return tax, discount, errors.Join(taxErr, discountErr)
}
