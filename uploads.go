package main

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/erp_backend/models"
	"github.com/mmdatafocus/erp_backend/utils"
)

const maxImportFileSize = 10 << 20

func registerImportRoutes(api *gin.RouterGroup) {
	api.POST("/imports/chart-of-accounts", importChartHandler)
}

// importChartHandler accepts a multipart "file" (.xlsx) and an optional "sheet" form value.
func importChartHandler(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, utils.NewValidationError("file", "file is required"))
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		respondError(c, utils.NewValidationError("file", "only .xlsx files are accepted"))
		return
	}
	if header.Size > maxImportFileSize {
		respondError(c, utils.NewValidationError("file", "file exceeds %d bytes", maxImportFileSize))
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	result, err := models.ImportChartOfAccounts(c.Request.Context(), file, c.PostForm("sheet"))
	respond(c, http.StatusOK, result, err)
}
