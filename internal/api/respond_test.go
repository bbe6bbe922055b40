package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"crowdvault/internal/escrow"
	"crowdvault/internal/repository"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &escrow.ValidationError{Msg: "percentages must sum to 100"}, http.StatusBadRequest},
		{"authorization", &escrow.AuthorizationError{Msg: "not the project creator"}, http.StatusForbidden},
		{"state", &escrow.StateError{Msg: "project is not active"}, http.StatusConflict},
		{"insufficient escrow", &escrow.InsufficientEscrowError{MilestoneID: 1, Amount: 100, Shortfall: 40}, http.StatusConflict},
		{"not found", repository.ErrNotFound, http.StatusNotFound},
		{"version conflict", repository.ErrVersionConflict, http.StatusConflict},
		{"wrapped not found", errors.Join(errors.New("load project"), repository.ErrNotFound), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err)

			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}
