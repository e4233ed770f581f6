package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/erp_backend/models"
)

type moveChildCenterRequest struct {
	ParentCenterId int     `json:"parent_center_id" binding:"required"`
	Title          *string `json:"title"`
}

func registerCenterRoutes(api *gin.RouterGroup) {
	parents := api.Group("/parent-centers")
	parents.POST("", createHandler(models.CreateParentCenter))
	parents.GET("", func(c *gin.Context) {
		result, err := models.ListParentCenters(c.Request.Context())
		respond(c, http.StatusOK, result, err)
	})
	parents.GET("/:id", byIdHandler(models.GetParentCenter))
	parents.PUT("/:id", updateHandler(models.UpdateParentCenter))
	parents.DELETE("/:id", byIdHandler(models.DeleteParentCenter))

	children := api.Group("/child-centers")
	children.POST("", createHandler(models.CreateChildCenter))
	children.GET("", parentScopedList("parent_center_id", models.ListChildCenters))
	children.GET("/:id", byIdHandler(models.GetChildCenter))
	children.PUT("/:id/move", func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input moveChildCenterRequest
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.MoveChildCenter(c.Request.Context(), id, input.ParentCenterId, input.Title)
		respond(c, http.StatusOK, result, err)
	})
	children.DELETE("/:id", byIdHandler(models.DeleteChildCenter))
}
