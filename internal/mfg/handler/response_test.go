package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respond(t *testing.T, fn gin.HandlerFunc, target string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	r := gin.New()
	r.GET("/x", fn)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	var resp Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"validation", fmt.Errorf("wrap: %w", &service.ValidationError{Msg: "Insufficient stock available."}), 400, "Insufficient stock available."},
		{"not found", fmt.Errorf("load: %w", repository.ErrNotFound), 404, "Not found."},
		{"duplicate", repository.ErrDuplicate, 400, "A record with these values already exists."},
		{"in use", repository.ErrInUse, 400, "This record is referenced by other records and cannot be deleted."},
		{"credentials", service.ErrInvalidCredentials, 401, "Invalid email or password."},
		{"inactive", service.ErrInactiveUser, 401, "User account is disabled."},
		{"token", service.ErrInvalidToken, 401, "Token is invalid or expired"},
		{"forbidden", service.ErrForbidden, 403, "You do not have permission to perform this action."},
		{"other", errors.New("boom"), 500, "服务器内部错误"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := respond(t, func(c *gin.Context) { RespondError(c, tt.err) }, "/x")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.status*100, resp.Code)
			assert.Equal(t, tt.detail, resp.Detail)
		})
	}
}

func TestPaged(t *testing.T) {
	w, resp := respond(t, func(c *gin.Context) {
		Paged(c, []string{"a", "b"}, 41, 2, 20)
	}, "/x")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)

	data := resp.Data.(map[string]interface{})
	pagination := data["pagination"].(map[string]interface{})
	assert.EqualValues(t, 41, pagination["total"])
	assert.EqualValues(t, 3, pagination["total_pages"])
	assert.Len(t, data["items"], 2)
}

func TestGetPagination(t *testing.T) {
	cases := map[string][2]int{
		"/x":                       {1, 20},
		"/x?page=3&page_size=50":   {3, 50},
		"/x?page=0&page_size=500":  {1, 20},
		"/x?page=abc&page_size=-1": {1, 20},
	}
	for target, want := range cases {
		var page, size int
		respond(t, func(c *gin.Context) {
			page, size = GetPagination(c)
			c.Status(http.StatusNoContent)
		}, target)
		assert.Equal(t, want[0], page, target)
		assert.Equal(t, want[1], size, target)
	}
}

func TestQueryFilters(t *testing.T) {
	var filters map[string]string
	respond(t, func(c *gin.Context) {
		filters = queryFilters(c)
		c.Status(http.StatusNoContent)
	}, "/x?customer=c1&status=confirmed&page=2&page_size=10&token=abc&search=%20&model=order&object_id=o1")

	assert.Equal(t, map[string]string{
		"customer_id": "c1",
		"status":      "confirmed",
		"entity_type": "order",
		"entity_id":   "o1",
	}, filters)
}

func TestQueryInt(t *testing.T) {
	var days, weeks int
	respond(t, func(c *gin.Context) {
		days = queryInt(c, "days", 30)
		weeks = queryInt(c, "weeks", 8)
		c.Status(http.StatusNoContent)
	}, "/x?days=7&weeks=x")
	assert.Equal(t, 7, days)
	assert.Equal(t, 8, weeks)
}
