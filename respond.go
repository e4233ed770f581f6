package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/erp_backend/utils"
)

func statusForKind(kind utils.ErrorKind) int {
	switch kind {
	case utils.KindValidation:
		return http.StatusBadRequest
	case utils.KindReference:
		return http.StatusUnprocessableEntity
	case utils.KindNotFound:
		return http.StatusNotFound
	case utils.KindDuplicate, utils.KindDependencyExists:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes err as {success:false, message, ...}. Infrastructure errors are logged
// through the gin error list and answered with a generic message.
func respondError(c *gin.Context, err error) {
	var appErr *utils.AppError
	if !errors.As(err, &appErr) || appErr.Kind == utils.KindInternal {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
		return
	}
	body := gin.H{
		"success": false,
		"kind":    appErr.Kind,
		"message": appErr.Error(),
	}
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	if appErr.Reference != "" {
		body["reference"] = appErr.Reference
	}
	if appErr.Kind == utils.KindDependencyExists {
		refs := appErr.References
		if refs == nil {
			refs = []utils.DependentReference{}
		}
		body["references"] = refs
	}
	c.AbortWithStatusJSON(statusForKind(appErr.Kind), body)
}

func respond(c *gin.Context, status int, data any, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, gin.H{"success": true, "data": data})
}

// bindJSON reports binding failures as validation errors on the offending field.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for routes whose body may be left out.
func bindOptionalJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return false
	}
	return true
}

func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := utils.LowercaseFirst(verrs[0].Field())
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"kind":    utils.KindValidation,
			"field":   field,
			"message": field + " failed on " + verrs[0].Tag(),
			"errors":  utils.ProcessValidationErrors(err),
		})
		return
	}
	respondError(c, utils.NewValidationError("body", "invalid request body: %v", err))
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		respondError(c, utils.NewValidationError(name, "invalid %s", name))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) (*int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		respondError(c, utils.NewValidationError(name, "invalid %s", name))
		return nil, false
	}
	return &v, true
}

func queryBool(c *gin.Context, name string) (*bool, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondError(c, utils.NewValidationError(name, "invalid %s", name))
		return nil, false
	}
	return &v, true
}

func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	v, err := utils.ParseDate(raw)
	if err != nil {
		respondError(c, utils.NewValidationError(name, "invalid %s", name))
		return nil, false
	}
	return &v, true
}

func queryString(c *gin.Context, name string) *string {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	return &raw
}

func createHandler[In any, Out any](create func(context.Context, *In) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input In
		if !bindJSON(c, &input) {
			return
		}
		result, err := create(c.Request.Context(), &input)
		respond(c, http.StatusCreated, result, err)
	}
}

func updateHandler[In any, Out any](update func(context.Context, int, *In) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input In
		if !bindJSON(c, &input) {
			return
		}
		result, err := update(c.Request.Context(), id, &input)
		respond(c, http.StatusOK, result, err)
	}
}

// byIdHandler serves the get and delete routes.
func byIdHandler[Out any](fn func(context.Context, int) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		result, err := fn(c.Request.Context(), id)
		respond(c, http.StatusOK, result, err)
	}
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func toggleActiveHandler[Out any](toggle func(context.Context, int, bool) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input toggleActiveRequest
		if !bindJSON(c, &input) {
			return
		}
		result, err := toggle(c.Request.Context(), id, *input.IsActive)
		respond(c, http.StatusOK, result, err)
	}
}
