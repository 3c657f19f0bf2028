// Package response writes API responses. Success bodies are plain DTOs;
// failures use the structured ApiError envelope.
package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gatherly/backend/internal/apperr"
)

// TimestampLayout is the wire format for ApiError timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// ApiError is the structured error body returned to clients.
type ApiError struct {
	Status    string   `json:"status"`
	Reason    string   `json:"reason"`
	Message   string   `json:"message"`
	Errors    []string `json:"errors"`
	Timestamp string   `json:"timestamp"`
}

const (
	reasonNotFound   = "The required object was not found."
	reasonConflict   = "For the requested operation the conditions are not met."
	reasonBadRequest = "Incorrectly made request."
	reasonForbidden  = "For the requested operation the conditions are not met."
	reasonInternal   = "Unexpected error."
)

// Postgres error codes surfaced as conflicts.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// OK sends a 200 JSON response.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 JSON response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with an ApiError body.
func BadRequest(c *gin.Context, message string, fieldErrors ...string) {
	writeErr(c, http.StatusBadRequest, "BAD_REQUEST", reasonBadRequest, message, fieldErrors)
}

// NotFound sends 404 with an ApiError body.
func NotFound(c *gin.Context, message string) {
	writeErr(c, http.StatusNotFound, "NOT_FOUND", reasonNotFound, message, nil)
}

// Conflict sends 409 with an ApiError body.
func Conflict(c *gin.Context, message string) {
	writeErr(c, http.StatusConflict, "CONFLICT", reasonConflict, message, nil)
}

// Forbidden sends 403 with an ApiError body.
func Forbidden(c *gin.Context, message string) {
	writeErr(c, http.StatusForbidden, "FORBIDDEN", reasonForbidden, message, nil)
}

// Internal sends 500 with a generic ApiError body. The original error is never
// exposed to the client.
func Internal(c *gin.Context) {
	writeErr(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", reasonInternal, "Internal server error", nil)
}

// FromError maps an application or storage error to its ApiError response.
// Uniqueness and foreign-key violations from Postgres surface as conflicts,
// missing rows as not-found; anything unclassified is a generic 500.
func FromError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperr.CodeNotFound:
			NotFound(c, appErr.Message)
		case apperr.CodeConflict:
			Conflict(c, appErr.Message)
		case apperr.CodeBadRequest:
			BadRequest(c, appErr.Message)
		case apperr.CodeForbidden:
			Forbidden(c, appErr.Message)
		default:
			Internal(c)
		}
		return
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == pgUniqueViolation || pgErr.Code == pgForeignKeyViolation) {
		Conflict(c, "Integrity constraint has been violated")
		return
	}
	if errors.Is(err, pgx.ErrNoRows) {
		NotFound(c, "The requested object was not found")
		return
	}
	Internal(c)
}

func writeErr(c *gin.Context, httpStatus int, status, reason, message string, fieldErrors []string) {
	if fieldErrors == nil {
		fieldErrors = []string{}
	}
	c.JSON(httpStatus, ApiError{
		Status:    status,
		Reason:    reason,
		Message:   message,
		Errors:    fieldErrors,
		Timestamp: time.Now().Format(TimestampLayout),
	})
}
