package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/erp_backend/models"
	"github.com/mmdatafocus/erp_backend/utils"
)

func registerAccountRoutes(api *gin.RouterGroup) {
	level1 := api.Group("/account-level1")
	level1.POST("", createHandler(models.CreateAccountLevel1))
	level1.GET("", func(c *gin.Context) {
		result, err := models.ListAccountLevel1(c.Request.Context())
		respond(c, http.StatusOK, result, err)
	})
	level1.GET("/:id", byIdHandler(models.GetAccountLevel1))
	level1.PUT("/:id", updateHandler(models.UpdateAccountLevel1))
	level1.DELETE("/:id", byIdHandler(models.DeleteAccountLevel1))

	level2 := api.Group("/account-level2")
	level2.POST("", createHandler(models.CreateAccountLevel2))
	level2.GET("", parentScopedList("level1_id", models.ListAccountLevel2))
	level2.GET("/:id", byIdHandler(models.GetAccountLevel2))
	level2.PUT("/:id", updateHandler(models.UpdateAccountLevel2))
	level2.DELETE("/:id", byIdHandler(models.DeleteAccountLevel2))

	level3 := api.Group("/account-level3")
	level3.POST("", createHandler(models.CreateAccountLevel3))
	level3.GET("", parentScopedList("level2_id", models.ListAccountLevel3))
	level3.GET("/:id", byIdHandler(models.GetAccountLevel3))
	level3.PUT("/:id", updateHandler(models.UpdateAccountLevel3))
	level3.DELETE("/:id", byIdHandler(models.DeleteAccountLevel3))

	level4 := api.Group("/account-level4")
	level4.POST("", createHandler(models.CreateAccountLevel4))
	level4.GET("", listAccountLevel4Handler)
	level4.GET("/fullcode/:fullcode", func(c *gin.Context) {
		result, err := models.GetAccountLevel4ByFullcode(c.Request.Context(), c.Param("fullcode"))
		respond(c, http.StatusOK, result, err)
	})
	level4.GET("/:id", byIdHandler(models.GetAccountLevel4))
	level4.PUT("/:id", updateHandler(models.UpdateAccountLevel4))
	level4.DELETE("/:id", byIdHandler(models.DeleteAccountLevel4))

	defaults := api.Group("/default-accounts")
	defaults.POST("", createHandler(models.CreateDefaultAccount))
	defaults.GET("", listDefaultAccountsHandler)
	defaults.GET("/role/:role", func(c *gin.Context) {
		result, err := models.GetDefaultAccount(c.Request.Context(), models.DefaultAccountRole(c.Param("role")))
		respond(c, http.StatusOK, result, err)
	})
	defaults.GET("/:id", byIdHandler(models.GetDefaultAccountById))
	defaults.PUT("/:id/default", byIdHandler(models.SetDefaultAccount))
	defaults.PUT("/:id/active", toggleActiveHandler(models.ToggleActiveDefaultAccount))
	defaults.DELETE("/:id", byIdHandler(models.DeleteDefaultAccount))
}

// parentScopedList lists the children of the parent named by a required query parameter.
func parentScopedList[Out any](param string, list func(context.Context, int) ([]*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		parentId, ok := queryInt(c, param)
		if !ok {
			return
		}
		if parentId == nil {
			respondError(c, utils.NewValidationError(param, "%s is required", param))
			return
		}
		result, err := list(c.Request.Context(), *parentId)
		respond(c, http.StatusOK, result, err)
	}
}

func listAccountLevel4Handler(c *gin.Context) {
	level3Id, ok := queryInt(c, "level3_id")
	if !ok {
		return
	}
	if level3Id == nil {
		respondError(c, utils.NewValidationError("level3_id", "level3_id is required"))
		return
	}
	result, err := models.ListAccountLevel4(c.Request.Context(), *level3Id, queryString(c, "title"))
	respond(c, http.StatusOK, result, err)
}

func listDefaultAccountsHandler(c *gin.Context) {
	activeOnly, ok := queryBool(c, "active")
	if !ok {
		return
	}
	role := models.DefaultAccountRole(c.Query("role"))
	result, err := models.ListDefaultAccounts(c.Request.Context(), role, utils.DereferencePtr(activeOnly))
	respond(c, http.StatusOK, result, err)
}
