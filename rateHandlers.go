package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/erp_backend/models"
	"github.com/mmdatafocus/erp_backend/utils"
)

func registerRateRoutes(api *gin.RouterGroup) {
	tax := api.Group("/tax-rates")
	tax.POST("", createHandler(models.CreateTaxRateSetting))
	tax.GET("", scheduleListHandler(models.ListTaxRateSettings))
	tax.GET("/effective", effectiveRateHandler(models.GetEffectiveTaxRate))
	tax.PUT("/:id/active", toggleActiveHandler(models.ToggleActiveTaxRateSetting))
	tax.DELETE("/:id", scheduleDeleteHandler(models.DeleteTaxRateSetting))

	discount := api.Group("/discount-rates")
	discount.POST("", createHandler(models.CreateDiscountRate))
	discount.GET("", scheduleListHandler(models.ListDiscountRates))
	discount.GET("/effective", effectiveRateHandler(models.GetEffectiveDiscountRate))
	discount.PUT("/:id/active", toggleActiveHandler(models.ToggleActiveDiscountRate))
	discount.DELETE("/:id", scheduleDeleteHandler(models.DeleteDiscountRate))

	product := api.Group("/product-rates")
	product.POST("", createHandler(models.CreateProductRate))
	product.GET("", scheduleListHandler(models.ListProductRates))
	product.GET("/effective", effectiveRateHandler(models.GetEffectiveProductRate))
	product.PUT("/:id/active", toggleActiveHandler(models.ToggleActiveProductRate))
	product.DELETE("/:id", scheduleDeleteHandler(models.DeleteProductRate))
}

func scheduleFilter(c *gin.Context) (models.ScheduleFilter, bool) {
	level4Id, ok := queryInt(c, "level4_id")
	if !ok {
		return models.ScheduleFilter{}, false
	}
	itemId, ok := queryInt(c, "item_id")
	if !ok {
		return models.ScheduleFilter{}, false
	}
	return models.ScheduleFilter{
		Level4Id: utils.DereferencePtr(level4Id),
		ItemId:   utils.DereferencePtr(itemId),
	}, true
}

func scheduleListHandler[Out any](list func(context.Context, models.ScheduleFilter) ([]*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, ok := scheduleFilter(c)
		if !ok {
			return
		}
		result, err := list(c.Request.Context(), filter)
		respond(c, http.StatusOK, result, err)
	}
}

// effectiveRateHandler answers the schedule in force on ?date= (today when omitted).
func effectiveRateHandler[Out any](get func(context.Context, string, int, int, time.Time) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, ok := scheduleFilter(c)
		if !ok {
			return
		}
		if filter.Level4Id == 0 || filter.ItemId == 0 {
			respondError(c, utils.NewValidationError("level4_id", "level4_id and item_id are required"))
			return
		}
		date, ok := queryDate(c, "date")
		if !ok {
			return
		}
		on := utils.DateOnly(time.Now())
		if date != nil {
			on = *date
		}
		companyId, _ := utils.GetCompanyIdFromContext(c.Request.Context())
		result, err := get(c.Request.Context(), companyId, filter.Level4Id, filter.ItemId, on)
		respond(c, http.StatusOK, result, err)
	}
}

func scheduleDeleteHandler(remove func(context.Context, int) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		if err := remove(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
