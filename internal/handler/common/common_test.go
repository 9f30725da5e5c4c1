package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raggate/internal/model/system"
	"raggate/internal/repo/mysql"
)

func jsonBody(s string) *strings.Reader { return strings.NewReader(s) }

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, target string, h gin.HandlerFunc) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	r := gin.New()
	r.Any("/t", h)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, nil)
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestFail_ServiceError(t *testing.T) {
	w, env := serve(t, "/t", func(c *gin.Context) {
		Fail(c, system.NewNotFoundError("User not found", nil))
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, system.CodeNotFound, env.Code)
	assert.Equal(t, "User not found", env.Message)
	assert.JSONEq(t, `{}`, string(env.Detail))
}

func TestFail_WrappedServiceError(t *testing.T) {
	w, env := serve(t, "/t", func(c *gin.Context) {
		Fail(c, errors.Join(errors.New("ctx"), system.NewPermissionDeniedError("nope")))
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, system.CodePermissionDenied, env.Code)
}

func TestFail_BindingError(t *testing.T) {
	type body struct {
		Name string `json:"name" binding:"required"`
	}
	r := gin.New()
	r.POST("/t", func(c *gin.Context) {
		var b body
		if err := c.ShouldBindJSON(&b); err != nil {
			BindError(c, err)
			return
		}
		OK(c, b)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/t", jsonBody(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, system.CodeValidation, env.Code)
	assert.Contains(t, string(env.Detail), `"field":"Name"`)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/t", jsonBody(`{`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestFail_InternalError(t *testing.T) {
	SetDebug(false)
	w, env := serve(t, "/t", func(c *gin.Context) { Fail(c, errors.New("db exploded")) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", env.Message)
	assert.NotContains(t, string(env.Detail), "db exploded")

	SetDebug(true)
	defer SetDebug(false)
	_, env = serve(t, "/t", func(c *gin.Context) { Fail(c, errors.New("db exploded")) })
	assert.Contains(t, string(env.Detail), "db exploded")
}

func TestParsePageQuery(t *testing.T) {
	var got mysql.PageQuery
	_, env := serve(t, "/t?page=2&page_size=5&order_by=username&desc=true&is_active=true&id__in=1&id__in=2", func(c *gin.Context) {
		q, err := ParsePageQuery(c)
		if err != nil {
			Fail(c, err)
			return
		}
		got = q
		OK(c, nil)
	})
	require.Equal(t, 0, env.Code)

	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 5, got.PageSize)
	assert.Equal(t, "username", got.OrderBy)
	assert.True(t, got.Desc)
	assert.Equal(t, mysql.Filters{"is_active": "true", "id__in": "1,2"}, got.Filters)
}

func TestParsePageQuery_Values(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		status int
	}{
		{"defaults", "/t", http.StatusOK},
		{"max page size", "/t?page_size=100", http.StatusOK},
		{"page size too large", "/t?page_size=101", http.StatusUnprocessableEntity},
		{"page zero", "/t?page=0", http.StatusUnprocessableEntity},
		{"bad desc", "/t?desc=maybe", http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := serve(t, tc.query, func(c *gin.Context) {
				q, err := ParsePageQuery(c)
				if err != nil {
					Fail(c, err)
					return
				}
				OK(c, gin.H{"page": q.Page, "page_size": q.PageSize})
			})
			assert.Equal(t, tc.status, w.Code)
		})
	}
}
