package models

import (
	"context"
	"errors"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
	"gorm.io/gorm"
)

const moduleName = "models"

// tenant of the request; every model operation requires one
func companyIdFromContext(ctx context.Context) (string, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok {
		return "", utils.NewValidationError("companyId", "company id is required")
	}
	return companyId, nil
}

// acting user as forwarded by the gateway, "system" for tools
func usernameFromContext(ctx context.Context) string {
	if username, ok := utils.GetUsernameFromContext(ctx); ok && username != "" {
		return username
	}
	return "system"
}

// begin a transaction bound to ctx; callers defer rollback
func beginTx(ctx context.Context) *gorm.DB {
	return config.GetDB().WithContext(ctx).Begin()
}

func rollback(tx *gorm.DB) {
	_ = tx.Rollback().Error
}

// notFound maps a missing row into a NotFoundError naming resource and passes other errors through.
func notFound(resource string, err error) error {
	if errors.Is(err, utils.ErrorRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NewNotFoundError(resource, err)
	}
	return err
}
