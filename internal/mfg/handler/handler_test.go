package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/AjAjish/manufacturing-erp/internal/config"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/service"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/sse"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/storage"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	adminEmail    = "admin@erp.test"
	adminPassword = "S3cure-pass!"
)

func setupAPI(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:             testutil.JWTSecret,
			AccessTokenExpire:  time.Hour,
			RefreshTokenExpire: 24 * time.Hour,
			Issuer:             "mfg-erp",
		},
		Upload: config.UploadConfig{MaxSize: 1 << 20},
	}
	logger := zap.NewNop()
	svc := service.NewServices(repository.NewRepositories(db), service.Deps{
		DB:     db,
		Store:  store,
		Logger: logger,
	}, cfg)

	ctx := context.Background()
	require.NoError(t, svc.Permission.SeedDefaults(ctx))
	_, err = svc.User.EnsureAdmin(ctx, adminEmail, adminPassword)
	require.NoError(t, err)
	// DefaultTestToken 对应的用户，每个请求都会按用户ID回查
	testutil.SeedTestUser(t, db, "test-user-001", "admin@test.com", entity.RoleAdmin)

	RegisterRoutes(router.Group("/api/v1"), NewHandlers(svc, sse.NewHub(logger), logger), svc, testutil.JWTSecret)
	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func dataOf(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "missing data in %v", resp)
	return data
}

func TestAuthFlow(t *testing.T) {
	env := setupAPI(t)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/accounts/auth/login",
		map[string]string{"email": adminEmail, "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/accounts/auth/login",
		map[string]string{"email": adminEmail, "password": adminPassword}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(t, testutil.ParseResponse(w))
	access := data["access_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, data["refresh_token"])

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/accounts/users/me", nil, access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := dataOf(t, testutil.ParseResponse(w))
	assert.Equal(t, adminEmail, me["email"])

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/accounts/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var activities int64
	require.NoError(t, env.DB.Model(&entity.UserActivity{}).Count(&activities).Error)
	assert.Equal(t, int64(1), activities)
}

func TestOrderLifecycleRoutes(t *testing.T) {
	env := setupAPI(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/crm/customers", map[string]interface{}{
		"name":         "Ravi Kumar",
		"company_name": "Kumar Steel Works",
		"email":        "ravi@kumarsteel.test",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	customerID := dataOf(t, testutil.ParseResponse(w))["id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/crm/orders", map[string]interface{}{
		"customer_id":      customerID,
		"project_name":     "Hopper fabrication",
		"ordered_quantity": 5,
		"unit_price":       "1200.50",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := dataOf(t, testutil.ParseResponse(w))
	orderID := order["id"].(string)
	assert.Equal(t, entity.OrderStatusDraft, order["status"])
	assert.Equal(t, "6002.5", order["total_amount"])

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/crm/orders/"+orderID+"/update_status",
		map[string]string{"status": entity.OrderStatusConfirmed, "notes": "PO received"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entity.OrderStatusConfirmed, dataOf(t, testutil.ParseResponse(w))["status"])

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/crm/orders/"+orderID+"/status_history", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	history := testutil.ParseResponse(w)["data"].([]interface{})
	assert.Len(t, history, 2)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/crm/orders?status=confirmed", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	list := dataOf(t, testutil.ParseResponse(w))
	assert.Len(t, list["items"], 1)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/crm/orders/export", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")

	// 有订单的客户不能删除
	w = testutil.DoRequest(env.Router, http.MethodDelete, "/api/v1/crm/customers/"+customerID, nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/crm/orders/missing", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestModulePermissions(t *testing.T) {
	env := setupAPI(t)
	testutil.SeedTestUser(t, env.DB, "sales-001", "sam@erp.test", entity.RoleSales)
	testutil.SeedTestUser(t, env.DB, "qa-001", "quinn@erp.test", entity.RoleQuality)
	sales := testutil.GenerateTestToken("sales-001", "Sam Sales", "sam@erp.test", entity.RoleSales)
	quality := testutil.GenerateTestToken("qa-001", "Quinn QA", "quinn@erp.test", entity.RoleQuality)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/inspection/order-inspections", nil, sales)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspection/types",
		map[string]string{"name": "Visual", "code": "VIS", "stage": entity.StageFinal}, sales)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspection/types",
		map[string]string{"name": "Visual", "code": "VIS", "stage": entity.StageFinal}, quality)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/audit/logs", nil, sales)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/audit/activities/my_activity", nil, sales)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/accounts/permissions", nil, sales)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/accounts/permissions/by_role?role=sales", nil, testutil.DefaultTestToken())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, testutil.ParseResponse(w)["data"], len(entity.Modules))
}

func TestRoleChangeAppliesToIssuedTokens(t *testing.T) {
	env := setupAPI(t)
	admin := testutil.DefaultTestToken()
	testutil.SeedTestUser(t, env.DB, "sales-001", "sam@erp.test", entity.RoleSales)
	// token 中的角色为 sales，之后的判定以数据库为准
	token := testutil.GenerateTestToken("sales-001", "Sam Sales", "sam@erp.test", entity.RoleSales)
	body := map[string]string{"name": "Visual", "code": "VIS", "stage": entity.StageFinal}

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspection/types", body, token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/accounts/users/sales-001/change_role",
		map[string]string{"role": entity.RoleQuality}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inspection/types", body, token)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/accounts/users/sales-001/toggle_active", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/accounts/users/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 已删除用户的 token 同样失效
	ghost := testutil.GenerateTestToken("ghost-001", "Ghost", "ghost@erp.test", entity.RoleAdmin)
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/crm/orders", nil, ghost)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrderMaterialStatusNotWritable(t *testing.T) {
	env := setupAPI(t)
	token := testutil.DefaultTestToken()
	testutil.SeedCustomer(t, env.DB, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, env.DB, "order-001", "cust-001", entity.OrderStatusConfirmed)
	testutil.SeedMaterial(t, env.DB, "mat-001", "MS-2MM", 500)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/materials/order-materials", map[string]interface{}{
		"order_id":          "order-001",
		"material_id":       "mat-001",
		"required_quantity": "150",
		"status":            entity.OrderMaterialFullyIssued,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	om := dataOf(t, testutil.ParseResponse(w))
	id := om["id"].(string)
	assert.Equal(t, entity.OrderMaterialPlanned, om["status"])

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/materials/order-materials/"+id, map[string]interface{}{
		"status":            entity.OrderMaterialFullyIssued,
		"consumed_quantity": "150",
		"notes":             "cut list attached",
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	om = dataOf(t, testutil.ParseResponse(w))
	assert.Equal(t, entity.OrderMaterialPlanned, om["status"])
	assert.Equal(t, "0", om["consumed_quantity"])
	assert.Equal(t, "cut list attached", om["notes"])
}

func TestDrawingUploadRoutes(t *testing.T) {
	env := setupAPI(t)
	token := testutil.DefaultTestToken()
	testutil.SeedCustomer(t, env.DB, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, env.DB, "order-001", "cust-001", entity.OrderStatusConfirmed)

	fields := map[string]string{"order_id": "order-001", "drawing_number": "DRG-100", "title": "Base plate"}

	w := testutil.DoMultipart(env.Router, "/api/v1/engineering/drawings", fields, "file", "base.exe", []byte("MZ"), token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoMultipart(env.Router, "/api/v1/engineering/drawings", fields, "file", "base.pdf", []byte("%PDF-1.4"), token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	drawing := dataOf(t, testutil.ParseResponse(w))
	id := drawing["id"].(string)
	assert.EqualValues(t, 1, drawing["version"])
	assert.Equal(t, true, drawing["is_latest"])

	w = testutil.DoMultipart(env.Router, "/api/v1/engineering/drawings/"+id+"/new_version",
		map[string]string{"notes": "hole pattern fixed"}, "file", "base-v2.pdf", []byte("%PDF-1.5"), token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	v2 := dataOf(t, testutil.ParseResponse(w))
	assert.EqualValues(t, 2, v2["version"])

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/engineering/drawings/by_order?order_id=order-001", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	latest := testutil.ParseResponse(w)["data"].([]interface{})
	require.Len(t, latest, 1)
	assert.Equal(t, v2["id"], latest[0].(map[string]interface{})["id"])

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/engineering/drawings/"+v2["id"].(string)+"/download", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.5", w.Body.String())
}
