package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHit(t *testing.T) {
	t.Run("posts the hit payload", func(t *testing.T) {
		var got hitPayload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/hit", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "gatherly-main", time.Second, nil, 0, nil)
		c.Hit(context.Background(), "/events/42", "8.8.8.8")

		assert.Equal(t, "gatherly-main", got.App)
		assert.Equal(t, "/events/42", got.URI)
		assert.Equal(t, "8.8.8.8", got.IP)
		_, err := time.Parse(DateTimeLayout, got.Timestamp)
		assert.NoError(t, err)
	})

	t.Run("collector failure is swallowed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "gatherly-main", time.Second, nil, 0, nil)
		c.Hit(context.Background(), "/events", "8.8.8.8")
	})

	t.Run("unreachable collector is swallowed", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1", "gatherly-main", 100*time.Millisecond, nil, 0, nil)
		c.Hit(context.Background(), "/events", "8.8.8.8")
	})
}

func TestViews(t *testing.T) {
	t.Run("maps counts by uri", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/stats", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "true", q.Get("unique"))
			assert.ElementsMatch(t, []string{"/events/1", "/events/2"}, q["uris"])
			assert.NotEmpty(t, q.Get("start"))
			assert.NotEmpty(t, q.Get("end"))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"app":"gatherly-main","uri":"/events/1","hits":12},{"app":"gatherly-main","uri":"/events/2","hits":5}]`))
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "gatherly-main", time.Second, nil, 0, nil)
		views := c.Views(context.Background(), []string{"/events/1", "/events/2"})
		assert.Equal(t, map[string]int64{"/events/1": 12, "/events/2": 5}, views)
	})

	t.Run("collector failure yields empty map", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "gatherly-main", time.Second, nil, 0, nil)
		views := c.Views(context.Background(), []string{"/events/1"})
		assert.Empty(t, views)
	})

	t.Run("unreachable collector yields empty map", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1", "gatherly-main", 100*time.Millisecond, nil, 0, nil)
		views := c.Views(context.Background(), []string{"/events/1"})
		assert.Empty(t, views)
	})

	t.Run("no uris, no call", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1", "gatherly-main", time.Second, nil, 0, nil)
		assert.Empty(t, c.Views(context.Background(), nil))
	})
}

func TestResolveIP(t *testing.T) {
	newReq := func(remoteAddr, forwarded string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/events", nil)
		r.RemoteAddr = remoteAddr
		if forwarded != "" {
			r.Header.Set("X-Forwarded-For", forwarded)
		}
		return r
	}

	t.Run("first forwarded entry wins", func(t *testing.T) {
		assert.Equal(t, "203.0.113.9", ResolveIP(newReq("10.0.0.1:1234", "203.0.113.9, 70.41.3.18")))
	})

	t.Run("peer address without forwarding", func(t *testing.T) {
		assert.Equal(t, "203.0.113.9", ResolveIP(newReq("203.0.113.9:1234", "")))
	})

	t.Run("loopback is masked", func(t *testing.T) {
		assert.Equal(t, maskedIP, ResolveIP(newReq("127.0.0.1:1234", "")))
	})

	t.Run("private ranges are masked", func(t *testing.T) {
		assert.Equal(t, maskedIP, ResolveIP(newReq("10.1.2.3:1234", "")))
		assert.Equal(t, maskedIP, ResolveIP(newReq("172.16.0.5:1234", "")))
		assert.Equal(t, maskedIP, ResolveIP(newReq("192.168.1.10:1234", "")))
	})

	t.Run("forwarded private address is masked", func(t *testing.T) {
		assert.Equal(t, maskedIP, ResolveIP(newReq("203.0.113.9:1234", "192.168.0.2")))
	})
}
