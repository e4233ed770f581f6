package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/middlewares"
	"github.com/mmdatafocus/erp_backend/models"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const testCompany = "company-1"

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope[T any] struct {
	Success    bool                       `json:"success"`
	Data       T                          `json:"data"`
	Kind       utils.ErrorKind            `json:"kind"`
	Message    string                     `json:"message"`
	Field      string                     `json:"field"`
	Reference  string                     `json:"reference"`
	References []utils.DependentReference `json:"references"`
}

func setupServer(t *testing.T) (*gin.Engine, context.Context) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "erp.db") + "?_pragma=busy_timeout(10000)&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), config.InitConfig())
	require.NoError(t, err)
	require.NoError(t, config.InstallPlugins(db))
	require.NoError(t, models.Migrate(db))
	config.SetDB(db)
	config.SetRedis(nil)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	ctx := utils.SetCompanyIdInContext(context.Background(), testCompany)
	ctx = utils.SetUsernameInContext(ctx, "tester")
	return newRouter(config.GetLogger(), nil), ctx
}

func call(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middlewares.HeaderCompanyId, testCompany)
	req.Header.Set(middlewares.HeaderUsername, "api-user")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type seeded struct {
	level1, level2, debtors, sales int
	customer, income               int
	debtor, godown, item           int
}

func seed(t *testing.T, ctx context.Context) seeded {
	t.Helper()
	var s seeded
	l1, err := models.CreateAccountLevel1(ctx, &models.NewAccountLevel1{Code: "01", Description: "Assets"})
	require.NoError(t, err)
	l2, err := models.CreateAccountLevel2(ctx, &models.NewAccountLevel2{Level1Id: l1.ID, Code: "01", Title: "Current assets"})
	require.NoError(t, err)
	debtors, err := models.CreateAccountLevel3(ctx, &models.NewAccountLevel3{Level1Id: l1.ID, Level2Id: l2.ID, Code: "001", Title: "Trade debtors"})
	require.NoError(t, err)
	sales, err := models.CreateAccountLevel3(ctx, &models.NewAccountLevel3{Level1Id: l1.ID, Level2Id: l2.ID, Code: "002", Title: "Sales"})
	require.NoError(t, err)
	customer, err := models.CreateAccountLevel4(ctx, &models.NewAccountLevel4{Level1Id: l1.ID, Level2Id: l2.ID, Level3Id: debtors.ID, Subcode: "00001", Title: "Customer A"})
	require.NoError(t, err)
	income, err := models.CreateAccountLevel4(ctx, &models.NewAccountLevel4{Level1Id: l1.ID, Level2Id: l2.ID, Level3Id: sales.ID, Subcode: "00001", Title: "Rice sales"})
	require.NoError(t, err)
	debtor, err := models.CreateDefaultAccount(ctx, &models.NewDefaultAccount{Role: models.RoleDebtorAccount, Level1Id: l1.ID, Level2Id: l2.ID, Level3Id: debtors.ID})
	require.NoError(t, err)
	godown, err := models.CreateGodown(ctx, &models.NewGodown{Code: "G1", Title: "Main godown"})
	require.NoError(t, err)
	incomeId := income.ID
	item, err := models.CreateItem(ctx, &models.NewItem{Code: "RICE", Title: "Rice", Unit: "bag", Level4Id: &incomeId})
	require.NoError(t, err)

	s.level1, s.level2, s.debtors, s.sales = l1.ID, l2.ID, debtors.ID, sales.ID
	s.customer, s.income = customer.ID, income.ID
	s.debtor, s.godown, s.item = debtor.ID, godown.ID, item.ID
	return s
}

func (s seeded) voucherBody() gin.H {
	return gin.H{
		"godown_id":         s.godown,
		"invoice_type":      "sales",
		"invoice_date":      "2025-03-10T00:00:00Z",
		"debtor_account_id": s.debtor,
		"sub_account_id":    s.customer,
		"items": []gin.H{
			{"product_id": s.item, "quantity": "10", "rate": "100"},
		},
	}
}

func TestHealthzAndTenantHeader(t *testing.T) {
	r, _ := setupServer(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/account-level1", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, r, http.MethodGet, "/api/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAccountHierarchyRoutes(t *testing.T) {
	r, _ := setupServer(t)

	w := call(t, r, http.MethodPost, "/api/v1/account-level1", gin.H{"code": "01", "description": "Assets"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	level1 := decode[models.AccountLevel1](t, w).Data
	assert.Equal(t, "api-user", level1.CreatedBy)

	w = call(t, r, http.MethodPost, "/api/v1/account-level1", gin.H{"code": "01", "description": "Again"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, utils.KindDuplicate, decode[any](t, w).Kind)

	w = call(t, r, http.MethodPost, "/api/v1/account-level1", gin.H{"code": "1", "description": "Short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, r, http.MethodPost, "/api/v1/account-level1", gin.H{"description": "No code"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "code", decode[any](t, w).Field)

	w = call(t, r, http.MethodPost, "/api/v1/account-level2", gin.H{"level1_id": level1.ID, "code": "01", "title": "Current assets"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	level2 := decode[models.AccountLevel2](t, w).Data

	w = call(t, r, http.MethodPost, "/api/v1/account-level3", gin.H{"level1_id": level1.ID, "level2_id": level2.ID, "code": "001", "title": "Trade debtors"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	level3 := decode[models.AccountLevel3](t, w).Data

	w = call(t, r, http.MethodPost, "/api/v1/account-level4", gin.H{
		"level1_id": level1.ID, "level2_id": level2.ID, "level3_id": level3.ID,
		"subcode": "00001", "title": "Customer A",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	level4 := decode[models.AccountLevel4](t, w).Data
	assert.Equal(t, "0101001", level4.Code)
	assert.Equal(t, "010100100001", level4.Fullcode)

	w = call(t, r, http.MethodGet, "/api/v1/account-level4/fullcode/010100100001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, level4.ID, decode[models.AccountLevel4](t, w).Data.ID)

	w = call(t, r, http.MethodGet, "/api/v1/account-level4?level3_id=", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, r, http.MethodPost, "/api/v1/account-level4", gin.H{
		"level1_id": level1.ID, "level2_id": level2.ID, "level3_id": 999,
		"subcode": "00002", "title": "Ghost",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = call(t, r, http.MethodDelete, "/api/v1/account-level1/"+itoa(level1.ID), nil)
	require.Equal(t, http.StatusConflict, w.Code)
	blocked := decode[any](t, w)
	assert.False(t, blocked.Success)
	assert.Equal(t, utils.KindDependencyExists, blocked.Kind)
	assert.NotEmpty(t, blocked.References)
	assert.NotEmpty(t, blocked.Message)

	w = call(t, r, http.MethodGet, "/api/v1/account-level1/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(t, r, http.MethodGet, "/api/v1/account-level1/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSalesVoucherRoutes(t *testing.T) {
	r, ctx := setupServer(t)
	s := seed(t, ctx)

	w := call(t, r, http.MethodPost, "/api/v1/sales-vouchers", s.voucherBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	voucher := decode[models.SalesVoucher](t, w).Data
	assert.Equal(t, "S20250001", voucher.InvoiceNumber)
	assert.True(t, voucher.NetAmount.Equal(decimal.NewFromInt(1000)))
	require.Len(t, voucher.Items, 1)
	assert.Len(t, voucher.AccountingEntries, 2)

	w = call(t, r, http.MethodGet, "/api/v1/sales-vouchers/"+itoa(voucher.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[map[string]any](t, w).Data
	assert.Equal(t, "Customer A", view["sub_account_title"])
	assert.Equal(t, "Trade debtors", view["debtor_account_title"])
	assert.Equal(t, "Main godown", view["godown_title"])
	items := view["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Rice", items[0].(map[string]any)["product_title"])

	w = call(t, r, http.MethodGet, "/api/v1/sales-vouchers/number/S20250001", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := s.voucherBody()
	body["debtor_account_id"] = 999
	w = call(t, r, http.MethodPost, "/api/v1/sales-vouchers", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "debtorAccount", decode[any](t, w).Reference)

	body = s.voucherBody()
	body["items"] = []gin.H{}
	w = call(t, r, http.MethodPost, "/api/v1/sales-vouchers", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, r, http.MethodPost, "/api/v1/sales-vouchers/"+itoa(voucher.ID)+"/post", gin.H{"fbr_invoice_number": "FBR-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[models.SalesVoucher](t, w).Data.IsPosted)

	w = call(t, r, http.MethodPost, "/api/v1/sales-vouchers/"+itoa(voucher.ID)+"/post", gin.H{"fbr_invoice_number": "FBR-2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, r, http.MethodGet, "/api/v1/sales-vouchers/"+itoa(voucher.ID)+"/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.VoucherEvent](t, w).Data, 1)

	w = call(t, r, http.MethodGet, "/api/v1/sales-vouchers?is_posted=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.SalesVoucher](t, w).Data, 1)

	w = call(t, r, http.MethodGet, "/api/v1/sales-vouchers?is_posted=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostSalesVoucherRouteWithoutFbrNumber(t *testing.T) {
	r, ctx := setupServer(t)
	s := seed(t, ctx)

	ids := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := call(t, r, http.MethodPost, "/api/v1/sales-vouchers", s.voucherBody())
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		ids = append(ids, decode[models.SalesVoucher](t, w).Data.ID)
	}

	w := call(t, r, http.MethodPost, "/api/v1/sales-vouchers/"+itoa(ids[0])+"/post", gin.H{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	posted := decode[models.SalesVoucher](t, w).Data
	assert.True(t, posted.IsPosted)
	assert.Empty(t, posted.FbrInvoiceNumber)

	// no body at all
	w = call(t, r, http.MethodPost, "/api/v1/sales-vouchers/"+itoa(ids[1])+"/post", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[models.SalesVoucher](t, w).Data.IsPosted)

	w = call(t, r, http.MethodPost, "/api/v1/sales-vouchers/"+itoa(ids[2])+"/post", gin.H{"fbr_invoice_number": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "body", decode[any](t, w).Field)
}

func TestImportChartRoute(t *testing.T) {
	r, _ := setupServer(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"level1", "level2", "level3", "subcode", "title"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"01", "01", "001", "00001", "Customer A"}))
	workbook, err := f.WriteToBuffer()
	require.NoError(t, err)

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("file", "chart.xlsx")
	require.NoError(t, err)
	_, err = part.Write(workbook.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/chart-of-accounts", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middlewares.HeaderCompanyId, testCompany)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[models.ImportResult](t, w).Data
	assert.Equal(t, 1, result.Created)
	assert.Empty(t, result.Failed)
}

func TestRespondErrorHidesInfrastructureErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, errors.New("dial tcp: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode[any](t, w).Message)
	assert.Len(t, c.Errors, 1)
}

func TestStatusForKind(t *testing.T) {
	cases := map[utils.ErrorKind]int{
		utils.KindValidation:       http.StatusBadRequest,
		utils.KindReference:        http.StatusUnprocessableEntity,
		utils.KindNotFound:         http.StatusNotFound,
		utils.KindDuplicate:        http.StatusConflict,
		utils.KindDependencyExists: http.StatusConflict,
		utils.KindInternal:         http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, statusForKind(kind), kind)
	}
}

func TestRateLimiterPassesWithoutRedis(t *testing.T) {
	limiter := NewRateLimiter(func() *redis.Client { return nil }, 1, time.Minute)
	r := gin.New()
	r.Use(limiter.RateLimitMiddleware)
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func itoa(id int) string {
	return strconv.Itoa(id)
}
