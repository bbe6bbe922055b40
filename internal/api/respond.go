package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"crowdvault/internal/escrow"
	"crowdvault/internal/repository"
)

// respondError maps domain errors onto HTTP status codes: validation 400,
// authorization 403, not found 404, state and concurrency conflicts 409.
func respondError(c *gin.Context, err error) {
	var (
		ve *escrow.ValidationError
		ae *escrow.AuthorizationError
		se *escrow.StateError
		ie *escrow.InsufficientEscrowError
	)

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.As(err, &ae):
		c.JSON(http.StatusForbidden, gin.H{"error": ae.Error()})
	case errors.As(err, &se):
		c.JSON(http.StatusConflict, gin.H{"error": se.Error()})
	case errors.As(err, &ie):
		c.JSON(http.StatusConflict, gin.H{"error": ie.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, repository.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent update, retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
