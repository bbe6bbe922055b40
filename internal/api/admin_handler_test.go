package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crowdvault/internal/model"
	"crowdvault/internal/util"
)

func TestAdminRoutesAreGated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAdminHandler(nil, nil, nil, nil, nil, zap.NewNop())
	router := NewRouter(nil, nil, nil, nil, nil, h, testSecret, nil, zap.NewNop())

	backerToken, err := util.GenerateJWT(5, string(model.RoleBacker), testSecret)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "ban", method: "POST", path: "/admin/users/1/ban"},
		{name: "stats", method: "GET", path: "/admin/stats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			router.Engine.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			req = httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+backerToken)
			w = httptest.NewRecorder()
			router.Engine.ServeHTTP(w, req)
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestBanUserRequestValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAdminHandler(nil, nil, nil, nil, nil, zap.NewNop())
	r := gin.New()
	r.POST("/admin/users/:id/ban", h.BanUser)

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantBody string
	}{
		{
			name:     "non-numeric user id",
			path:     "/admin/users/abc/ban",
			body:     `{"reason":"fraud"}`,
			wantCode: http.StatusBadRequest,
			wantBody: "invalid user id",
		},
		{
			name:     "missing reason",
			path:     "/admin/users/7/ban",
			body:     `{}`,
			wantCode: http.StatusBadRequest,
			wantBody: "ban reason is required",
		},
		{
			name:     "empty reason",
			path:     "/admin/users/7/ban",
			body:     `{"reason":""}`,
			wantCode: http.StatusBadRequest,
			wantBody: "ban reason is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}
