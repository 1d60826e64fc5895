package api

import (
	"errors"
	"net/http"

	"go-quest/internal/quest"

	"github.com/gin-gonic/gin"
)

// statusFor maps quest errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, quest.ErrQuestNotFound),
		errors.Is(err, quest.ErrObjectiveNotFound),
		errors.Is(err, quest.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, quest.ErrInvalidTransition),
		errors.Is(err, quest.ErrQuestNotActive),
		errors.Is(err, quest.ErrProgressRegression),
		errors.Is(err, quest.ErrPrerequisitesUnmet):
		return http.StatusConflict
	case errors.Is(err, quest.ErrRequirementsUnmet),
		errors.Is(err, quest.ErrMalformedGraph):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
