// Package stats is the HTTP client for the hit collector service. Recording
// is fire-and-forget and view retrieval is best-effort: a failing collector
// never fails the primary request.
package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/models"
)

// DateTimeLayout is the timestamp format of the collector API.
const DateTimeLayout = "2006-01-02 15:04:05"

// maskedIP replaces loopback and private client addresses before recording.
const maskedIP = "121.0.0.1"

const cacheKeyPrefix = "views:"

// Client talks to the hit collector. The redis cache is optional; when set,
// per-URI view counts are cached for cacheTTL to keep listing endpoints off
// the collector's hot path.
type Client struct {
	baseURL  string
	app      string
	http     *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewClient creates a collector client for the named application.
func NewClient(baseURL, app string, timeout time.Duration, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		app:      app,
		http:     &http.Client{Timeout: timeout},
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// hitPayload is the collector's wire shape for a recorded view.
type hitPayload struct {
	App       string `json:"app"`
	URI       string `json:"uri"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

// Hit records one view of uri by ip. Failures are logged and swallowed.
func (c *Client) Hit(ctx context.Context, uri, ip string) {
	hit := hitPayload{
		App:       c.app,
		URI:       uri,
		IP:        ip,
		Timestamp: time.Now().Format(DateTimeLayout),
	}
	body, err := json.Marshal(hit)
	if err != nil {
		c.logger.Warn("failed to encode hit", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hit", bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("failed to build hit request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("failed to record hit", zap.String("uri", uri), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated {
		c.logger.Warn("collector rejected hit",
			zap.String("uri", uri), zap.Int("status", resp.StatusCode))
	}
}

// Views returns unique view counts per URI since the beginning of time. Any
// failure yields an empty map.
func (c *Client) Views(ctx context.Context, uris []string) map[string]int64 {
	out := make(map[string]int64, len(uris))
	if len(uris) == 0 {
		return out
	}

	missing := uris
	if c.cache != nil {
		missing = c.fromCache(ctx, uris, out)
		if len(missing) == 0 {
			return out
		}
	}

	fetched, err := c.fetch(ctx, missing)
	if err != nil {
		c.logger.Warn("failed to fetch view stats", zap.Error(err))
		return map[string]int64{}
	}
	for uri, hits := range fetched {
		out[uri] = hits
	}
	if c.cache != nil {
		c.toCache(ctx, missing, fetched)
	}
	return out
}

func (c *Client) fetch(ctx context.Context, uris []string) (map[string]int64, error) {
	params := url.Values{}
	params.Set("start", time.Unix(0, 0).UTC().Format(DateTimeLayout))
	params.Set("end", time.Now().UTC().Format(DateTimeLayout))
	params.Set("unique", "true")
	for _, u := range uris {
		params.Add("uris", u)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	var stats []models.ViewStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(stats))
	for _, s := range stats {
		out[s.URI] = s.Hits
	}
	return out, nil
}

// fromCache fills out with cached counts and returns the URIs still missing.
func (c *Client) fromCache(ctx context.Context, uris []string, out map[string]int64) []string {
	keys := make([]string, len(uris))
	for i, u := range uris {
		keys[i] = cacheKeyPrefix + u
	}
	vals, err := c.cache.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("views cache read failed", zap.Error(err))
		return uris
	}

	var missing []string
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, uris[i])
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			missing = append(missing, uris[i])
			continue
		}
		out[uris[i]] = n
	}
	return missing
}

func (c *Client) toCache(ctx context.Context, uris []string, counts map[string]int64) {
	pipe := c.cache.Pipeline()
	for _, u := range uris {
		pipe.Set(ctx, cacheKeyPrefix+u, strconv.FormatInt(counts[u], 10), c.cacheTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("views cache write failed", zap.Error(err))
	}
}

// ResolveIP extracts the client address of r for hit recording. The first
// X-Forwarded-For entry wins over the peer address; loopback and private
// addresses are masked so local traffic does not skew unique counts.
func ResolveIP(r *http.Request) string {
	ip := ""
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	} else {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ip
	}
	if parsed.IsLoopback() || parsed.IsPrivate() {
		return maskedIP
	}
	return ip
}
