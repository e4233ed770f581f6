package utils

import (
	"context"
	"reflect"

	"github.com/mmdatafocus/erp_backend/config"
	"gorm.io/gorm"
)

// check if id exists, using company_id in WHERE, return ErrorRecordNotFound
func ValidateResourceId[T any](ctx context.Context, companyId string, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, companyId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// ValidateUnique returns a DuplicateError for field when another row of the company
// (scoped further by the optional extra condition) already holds value.
func ValidateUnique[T any](ctx context.Context, companyId string, field string, column string, value interface{}, exceptId interface{}, scope ...interface{}) error {
	cond := column + " = ?"
	args := []interface{}{value}
	if len(scope) > 0 {
		if s, ok := scope[0].(string); ok && s != "" {
			cond += " AND " + s
			args = append(args, scope[1:]...)
		}
	}
	if exceptId != nil && !reflect.ValueOf(exceptId).IsZero() {
		cond += " AND NOT id = ?"
		args = append(args, exceptId)
	}

	count, err := ResourceCountWhere[T](ctx, companyId, cond, args...)
	if err != nil {
		return err
	}
	if count > 0 {
		return NewDuplicateError(field, value)
	}
	return nil
}

// count records, using WHERE company_id = ? AND $condition
func ResourceCountWhere[T any](ctx context.Context, companyId string, condition string, value ...interface{}) (int64, error) {
	return ResourceCountWhereTx[T](config.GetDB().WithContext(ctx), companyId, condition, value...)
}

func ResourceCountWhereTx[T any](tx *gorm.DB, companyId string, condition string, value ...interface{}) (int64, error) {
	var model T
	var count int64
	dbCtx := tx.Model(&model).Where("company_id = ?", companyId)
	if condition != "" {
		dbCtx = dbCtx.Where(condition, value...)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
