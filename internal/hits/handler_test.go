package hits

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/backend/internal/models"
)

type fakeHitStore struct {
	inserted []models.EndpointHit
	stats    []models.ViewStats

	lastStart, lastEnd time.Time
	lastURIs           []string
	lastUnique         bool
}

func (f *fakeHitStore) Insert(ctx context.Context, app, uri, ip string, ts time.Time) error {
	f.inserted = append(f.inserted, models.EndpointHit{App: app, URI: uri, IP: ip, Timestamp: ts})
	return nil
}

func (f *fakeHitStore) Stats(ctx context.Context, start, end time.Time, uris []string, unique bool) ([]models.ViewStats, error) {
	f.lastStart, f.lastEnd, f.lastURIs, f.lastUnique = start, end, uris, unique
	return f.stats, nil
}

func newTestRouter(store *fakeHitStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, nil)
	router := gin.New()
	router.POST("/hit", h.Record)
	router.GET("/stats", h.Stats)
	return router
}

func TestRecord(t *testing.T) {
	t.Run("stores the hit", func(t *testing.T) {
		store := &fakeHitStore{}
		router := newTestRouter(store)

		body := `{"app":"gatherly-main","uri":"/events/1","ip":"8.8.8.8","timestamp":"2026-03-01 12:00:00"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/hit", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, store.inserted, 1)
		assert.Equal(t, "/events/1", store.inserted[0].URI)
		assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), store.inserted[0].Timestamp)
	})

	t.Run("missing fields", func(t *testing.T) {
		store := &fakeHitStore{}
		router := newTestRouter(store)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/hit", strings.NewReader(`{"app":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, store.inserted)
	})

	t.Run("bad timestamp format", func(t *testing.T) {
		store := &fakeHitStore{}
		router := newTestRouter(store)

		body := `{"app":"x","uri":"/events","ip":"8.8.8.8","timestamp":"2026-03-01T12:00:00Z"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/hit", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStats(t *testing.T) {
	t.Run("passes the window and flags through", func(t *testing.T) {
		store := &fakeHitStore{stats: []models.ViewStats{{App: "gatherly-main", URI: "/events/1", Hits: 12}}}
		router := newTestRouter(store)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/stats?start=2026-01-01+00:00:00&end=2026-03-01+00:00:00&uris=/events/1,/events/2&unique=true", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, store.lastUnique)
		assert.Equal(t, []string{"/events/1", "/events/2"}, store.lastURIs)
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), store.lastStart)
		assert.JSONEq(t, `[{"app":"gatherly-main","uri":"/events/1","hits":12}]`, w.Body.String())
	})

	t.Run("missing start", func(t *testing.T) {
		router := newTestRouter(&fakeHitStore{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/stats?end=2026-03-01+00:00:00", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("start after end", func(t *testing.T) {
		router := newTestRouter(&fakeHitStore{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/stats?start=2026-03-01+00:00:00&end=2026-01-01+00:00:00", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
