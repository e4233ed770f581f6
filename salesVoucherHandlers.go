package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/middlewares"
	"github.com/mmdatafocus/erp_backend/models"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/mmdatafocus/erp_backend/workflow"
	"github.com/sirupsen/logrus"
)

type postSalesVoucherRequest struct {
	FbrInvoiceNumber string `json:"fbr_invoice_number"`
}

func registerSalesVoucherRoutes(api *gin.RouterGroup, dispatcher *workflow.VoucherEventDispatcher) {
	vouchers := api.Group("/sales-vouchers")
	vouchers.POST("", createHandler(models.CreateSalesVoucher))
	vouchers.GET("", listSalesVouchersHandler)
	vouchers.GET("/number/:number", func(c *gin.Context) {
		result, err := models.GetSalesVoucherByNumber(c.Request.Context(), c.Param("number"))
		respond(c, http.StatusOK, result, err)
	})
	vouchers.GET("/:id", func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		result, err := models.GetSalesVoucherView(ctx, id, middlewares.TitleLookup(ctx))
		respond(c, http.StatusOK, result, err)
	})
	vouchers.PUT("/:id", updateHandler(models.UpdateSalesVoucher))
	vouchers.DELETE("/:id/items/:itemId", func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		itemId, ok := pathId(c, "itemId")
		if !ok {
			return
		}
		result, err := models.DeleteSalesVoucherItem(c.Request.Context(), id, itemId)
		respond(c, http.StatusOK, result, err)
	})
	vouchers.POST("/:id/post", postSalesVoucherHandler(dispatcher))
	vouchers.GET("/:id/events", byIdListHandler(models.ListVoucherEvents))
}

func listSalesVouchersHandler(c *gin.Context) {
	var filter models.SalesVoucherFilter
	var ok bool
	if filter.FromDate, ok = queryDate(c, "from_date"); !ok {
		return
	}
	if filter.ToDate, ok = queryDate(c, "to_date"); !ok {
		return
	}
	if filter.IsPosted, ok = queryBool(c, "is_posted"); !ok {
		return
	}
	if filter.SubAccountId, ok = queryInt(c, "sub_account_id"); !ok {
		return
	}
	result, err := models.ListSalesVouchers(c.Request.Context(), filter)
	respond(c, http.StatusOK, result, err)
}

// postSalesVoucherHandler posts the voucher, then tries to publish its event right away.
// A failed publish is left to the background dispatcher.
func postSalesVoucherHandler(dispatcher *workflow.VoucherEventDispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input postSalesVoucherRequest
		if !bindOptionalJSON(c, &input) {
			return
		}
		ctx := c.Request.Context()
		voucher, err := models.PostSalesVoucher(ctx, id, input.FbrInvoiceNumber)
		if err != nil {
			respondError(c, err)
			return
		}
		if dispatcher != nil && config.PubSubConfigured() {
			publishAfterPost(ctx, dispatcher, voucher)
		}
		respond(c, http.StatusOK, voucher, nil)
	}
}

func publishAfterPost(ctx context.Context, dispatcher *workflow.VoucherEventDispatcher, voucher *models.SalesVoucher) {
	companyId, _ := utils.GetCompanyIdFromContext(ctx)
	report, err := dispatcher.PublishPending(ctx, companyId)
	if err != nil {
		config.LogError(config.GetLogger(), "server", "publishAfterPost", "publish voucher event", voucher.ID, err)
		return
	}
	config.GetLogger().WithFields(logrus.Fields{
		"field":      "publishAfterPost",
		"company_id": companyId,
		"voucher_id": voucher.ID,
		"published":  report.Published,
	}).Debug("voucher events published after post")
}

func byIdListHandler[Out any](list func(context.Context, int) ([]*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		result, err := list(c.Request.Context(), id)
		respond(c, http.StatusOK, result, err)
	}
}
