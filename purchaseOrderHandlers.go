package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/erp_backend/models"
)

func registerPurchaseOrderRoutes(api *gin.RouterGroup) {
	orders := api.Group("/purchase-orders")
	orders.POST("", createHandler(models.CreatePurchaseOrder))
	orders.GET("", listPurchaseOrdersHandler)
	orders.GET("/:id", byIdHandler(models.GetPurchaseOrder))
	orders.PUT("/:id", updateHandler(models.UpdatePurchaseOrder))
	orders.POST("/:id/receive", updateHandler(models.ReceivePurchaseOrder))
	orders.POST("/:id/cancel", byIdHandler(models.CancelPurchaseOrder))
}

func listPurchaseOrdersHandler(c *gin.Context) {
	var filter models.PurchaseOrderFilter
	var ok bool
	if filter.FromDate, ok = queryDate(c, "from_date"); !ok {
		return
	}
	if filter.ToDate, ok = queryDate(c, "to_date"); !ok {
		return
	}
	if filter.IsCancelled, ok = queryBool(c, "is_cancelled"); !ok {
		return
	}
	if filter.ItemId, ok = queryInt(c, "item_id"); !ok {
		return
	}
	result, err := models.ListPurchaseOrders(c.Request.Context(), filter)
	respond(c, http.StatusOK, result, err)
}
