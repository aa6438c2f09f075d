package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ArowuTest/recyclehub-backend/internal/middleware"
	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindNotAuthenticated:   http.StatusUnauthorized,
	services.KindNotFound:           http.StatusNotFound,
	services.KindForbidden:          http.StatusForbidden,
	services.KindInvalidTransition:  http.StatusConflict,
	services.KindWeightExceeded:     http.StatusUnprocessableEntity,
	services.KindQuotaExceeded:      http.StatusUnprocessableEntity,
	services.KindInsufficientPoints: http.StatusPaymentRequired,
	services.KindValidation:         http.StatusBadRequest,
	services.KindPersistence:        http.StatusInternalServerError,
}

// StatusFor maps a service error kind to its HTTP status
func StatusFor(kind services.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError renders err as {"error": message, "kind": kind}
func respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status := StatusFor(kind)
	msg := err.Error()
	var se *services.Error
	if errors.As(err, &se) && se.Message != "" {
		msg = se.Message
	}
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "error", err, "path", c.FullPath())
		_ = c.Error(err)
		msg = "internal error, please retry"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "kind": kind})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": services.KindValidation})
}

// actor returns the authenticated user or renders 401
func actor(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, services.ErrNotAuthenticated)
	}
	return user, ok
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format", "kind": services.KindValidation})
		return primitive.NilObjectID, false
	}
	return id, true
}
