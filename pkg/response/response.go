package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidshare/backend/internal/apperr"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err})
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	c.JSON(http.StatusConflict, Body{Success: false, Error: err})
}

// PayloadTooLarge sends 413.
func PayloadTooLarge(c *gin.Context, err string) {
	c.JSON(http.StatusRequestEntityTooLarge, Body{Success: false, Error: err})
}

// TooManyRequests sends 429.
func TooManyRequests(c *gin.Context, err string) {
	c.JSON(http.StatusTooManyRequests, Body{Success: false, Error: err})
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Error: err})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}

// Error maps an apperr kind to its status code. Messages of 5xx responses never
// include err's text; it is attached to the context for the request logger instead.
func Error(c *gin.Context, err error) {
	if !errors.Is(err, apperr.ErrUpstream) && isClientError(err) {
		writeClientError(c, err)
		return
	}
	_ = c.Error(err)
	if errors.Is(err, apperr.ErrUpstream) {
		ServiceUnavailable(c, "service temporarily unavailable")
		return
	}
	Internal(c, "internal server error")
}

func isClientError(err error) bool {
	for _, kind := range []error{apperr.ErrValidation, apperr.ErrUnauthenticated, apperr.ErrForbidden, apperr.ErrNotFound, apperr.ErrConflict} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func writeClientError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		BadRequest(c, apperr.Message(err))
	case errors.Is(err, apperr.ErrUnauthenticated):
		Unauthorized(c, apperr.Message(err))
	case errors.Is(err, apperr.ErrForbidden):
		Forbidden(c, apperr.Message(err))
	case errors.Is(err, apperr.ErrNotFound):
		NotFound(c, apperr.Message(err))
	default:
		Conflict(c, apperr.Message(err))
	}
}
