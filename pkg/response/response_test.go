package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/backend/internal/apperr"
)

func run(t *testing.T, err error) (int, ApiError) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, err)

	var body ApiError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestFromError(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		code, body := run(t, apperr.NotFound("event %d not found", 7))
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "NOT_FOUND", body.Status)
		assert.Equal(t, "event 7 not found", body.Message)
		assert.NotEmpty(t, body.Timestamp)
	})

	t.Run("conflict", func(t *testing.T) {
		code, body := run(t, apperr.Conflict("the participant limit has been reached"))
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "CONFLICT", body.Status)
	})

	t.Run("bad request", func(t *testing.T) {
		code, body := run(t, apperr.BadRequest("invalid from"))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "BAD_REQUEST", body.Status)
	})

	t.Run("unique violation becomes conflict", func(t *testing.T) {
		code, _ := run(t, &pgconn.PgError{Code: "23505"})
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("foreign key violation becomes conflict", func(t *testing.T) {
		code, _ := run(t, &pgconn.PgError{Code: "23503"})
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("missing row becomes not found", func(t *testing.T) {
		code, _ := run(t, pgx.ErrNoRows)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("unexpected errors stay generic", func(t *testing.T) {
		code, body := run(t, errors.New("pq: connection reset"))
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", body.Status)
		assert.NotContains(t, body.Message, "connection reset", "driver detail must not leak")
	})
}
