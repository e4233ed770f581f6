package utils

import (
	"context"
	"errors"

	"github.com/mmdatafocus/erp_backend/config"
	"gorm.io/gorm"
)

/* DB fetching */

// fetch model from db
// (company_id is used in query's WHERE, returns ErrorRecordNotFound)
func FetchModel[T any](ctx context.Context, companyId string, id int, associations ...string) (*T, error) {
	return FetchModelTx[T](config.GetDB().WithContext(ctx), companyId, id, associations...)
}

// FetchModelTx is FetchModel on an explicit handle (usually an open transaction).
func FetchModelTx[T any](tx *gorm.DB, companyId string, id int, associations ...string) (*T, error) {
	dbCtx := tx.Where("company_id = ?", companyId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// fetch all models from db
// (company_id is used in query's WHERE)
func FetchAllModels[T any](ctx context.Context, companyId string, orderBy string, associations ...string) ([]*T, error) {
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	if orderBy != "" {
		dbCtx = dbCtx.Order(orderBy)
	}
	var results []*T
	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
