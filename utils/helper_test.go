package utils_test

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	Code  string `validate:"required,len=2"`
	Title string `validate:"max=5"`
}

func TestValidateStructNamesField(t *testing.T) {
	err := utils.ValidateStruct(&sampleInput{Code: "123"})
	assert.ErrorIs(t, err, &utils.AppError{Kind: utils.KindValidation, Field: "code"})
	assert.NoError(t, utils.ValidateStruct(&sampleInput{Code: "01", Title: "Rice"}))
}

func TestFormatPhoneNumber(t *testing.T) {
	phone, err := utils.FormatPhoneNumber("0300 1234567", "PK")
	require.NoError(t, err)
	assert.Equal(t, "+923001234567", phone)

	_, err = utils.FormatPhoneNumber("12", "PK")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := utils.ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), d)

	d, err = utils.ParseDate("2025-03-10T17:45:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = utils.ParseDate("10/03/2025")
	assert.Error(t, err)
}

func TestParseDecimal(t *testing.T) {
	v, err := utils.ParseDecimal(" 12.50 ")
	require.NoError(t, err)
	assert.Equal(t, "12.5", v.String())

	_, err = utils.ParseDecimal("")
	assert.Error(t, err)
}

func TestSliceHelpers(t *testing.T) {
	assert.Equal(t, []int{3, 1, 2}, utils.UniqueSlice([]int{3, 1, 3, 2, 1}))
	assert.Equal(t, "toggleActive", utils.LowercaseFirst("ToggleActive"))
	assert.Equal(t, 7, utils.DereferencePtr[int](nil, 7))
}

func TestContextHelpers(t *testing.T) {
	ctx := utils.SetCompanyIdInContext(context.Background(), "company-1")
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "company-1", companyId)
	skip, ok := utils.GetSkipTenantScopeFromContext(ctx)
	assert.True(t, ok)
	assert.True(t, skip)

	_, ok = utils.GetUsernameFromContext(ctx)
	assert.False(t, ok)
}
