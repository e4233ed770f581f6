package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/erp_backend/models"
)

func registerCatalogRoutes(api *gin.RouterGroup) {
	godowns := api.Group("/godowns")
	godowns.POST("", createHandler(models.CreateGodown))
	godowns.GET("", func(c *gin.Context) {
		result, err := models.ListGodowns(c.Request.Context())
		respond(c, http.StatusOK, result, err)
	})
	godowns.GET("/:id", byIdHandler(models.GetGodown))
	godowns.PUT("/:id", updateHandler(models.UpdateGodown))
	godowns.PUT("/:id/active", toggleActiveHandler(models.ToggleActiveGodown))
	godowns.DELETE("/:id", byIdHandler(models.DeleteGodown))

	items := api.Group("/items")
	items.POST("", createHandler(models.CreateItem))
	items.GET("", func(c *gin.Context) {
		result, err := models.ListItems(c.Request.Context(), queryString(c, "title"))
		respond(c, http.StatusOK, result, err)
	})
	items.GET("/:id", byIdHandler(models.GetItem))
	items.PUT("/:id", updateHandler(models.UpdateItem))
	items.DELETE("/:id", byIdHandler(models.DeleteItem))
}
