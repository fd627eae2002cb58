// Package roblox polls universe CCU data from the Roblox games API, by way
// of the roproxy.com mirror to stay clear of the first-party rate limits.
// All network I/O for snapshot collection lives here; detection never
// touches the network.
package roblox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/earlyshift/earlyshift/internal/config"
	"github.com/earlyshift/earlyshift/internal/logger"
	"github.com/earlyshift/earlyshift/internal/models"
)

const userAgent = "EarlyShiftBot/1.0 (+https://github.com/earlyshift/earlyshift)"

// Client fetches universe discovery listings and CCU readings.
type Client struct {
	baseURL     string
	fallbackURL string
	httpClient  *http.Client
	cfg         config.RobloxConfig
}

// gameEntry is one universe in the games API payload.
type gameEntry struct {
	ID          int64  `json:"id"`
	RootPlaceID int64  `json:"rootPlaceId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Creator     struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"creator"`
	Playing int64  `json:"playing"`
	Visits  int64  `json:"visits"`
	Genre   string `json:"genre"`
}

// discoveryEntry tolerates both key spellings the discovery endpoints use.
type discoveryEntry struct {
	ID         int64 `json:"id"`
	UniverseID int64 `json:"universeId"`
}

type discoveryPage struct {
	Data           []discoveryEntry `json:"data"`
	Universes      []discoveryEntry `json:"universes"`
	NextPageCursor string           `json:"nextPageCursor"`
	NextPageToken  string           `json:"nextPageToken"`
}

// universeCache is the on-disk discovery cache.
type universeCache struct {
	GeneratedAt time.Time `json:"generated_at"`
	UniverseIDs []int64   `json:"universe_ids"`
}

// NewClient creates a new Roblox games client.
func NewClient(cfg config.RobloxConfig) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		fallbackURL: strings.TrimRight(cfg.FallbackBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		cfg: cfg,
	}
}

// TopUniverseIDs returns the universe IDs to track, up to the configured
// limit. Resolution order: fresh on-disk cache, then the discovery endpoints
// (primary host first), then a built-in fallback list. The method never
// fails: when every source is unavailable the fallback list keeps the poller
// alive, at the cost of tracking a static set.
func (c *Client) TopUniverseIDs(ctx context.Context) []int64 {
	limit := c.cfg.UniverseLimit

	if cached := c.loadCachedUniverses(); len(cached) > 0 {
		return trimLimit(cached, limit)
	}

	ids := c.discoverUniverses(ctx, limit)
	if len(ids) > 0 {
		c.saveCachedUniverses(ids)
		return ids
	}

	logger.Warn("discovery endpoints unavailable, using fallback universe list")
	c.saveCachedUniverses(fallbackUniverses)
	return trimLimit(fallbackUniverses, limit)
}

// discoverUniverses pages through the popular-sort discovery listing.
// The first host that yields any IDs wins; partial pages are kept.
func (c *Client) discoverUniverses(ctx context.Context, limit int) []int64 {
	var ids []int64
	seen := make(map[int64]bool)

	for _, host := range []string{c.baseURL, c.fallbackURL} {
		if host == "" {
			continue
		}
		cursor := ""
		for len(ids) < limit {
			page, err := c.fetchDiscoveryPage(ctx, host, limit-len(ids), cursor)
			if err != nil {
				logger.Warn("discovery fetch from %s failed: %v", host, err)
				break
			}
			entries := page.Data
			if len(entries) == 0 {
				entries = page.Universes
			}
			if len(entries) == 0 {
				break
			}
			for _, entry := range entries {
				uid := entry.ID
				if uid == 0 {
					uid = entry.UniverseID
				}
				if uid <= 0 || seen[uid] {
					continue
				}
				seen[uid] = true
				ids = append(ids, uid)
				if len(ids) >= limit {
					break
				}
			}
			cursor = page.NextPageCursor
			if cursor == "" {
				cursor = page.NextPageToken
			}
			if cursor == "" {
				break
			}
		}
		if len(ids) > 0 {
			break
		}
	}
	return ids
}

func (c *Client) fetchDiscoveryPage(ctx context.Context, host string, remaining int, cursor string) (*discoveryPage, error) {
	params := url.Values{}
	params.Set("SortType", "Popular")
	params.Set("Limit", strconv.Itoa(min(100, remaining)))
	if cursor != "" {
		params.Set("Cursor", cursor)
	}

	resp, err := c.doRequest(ctx, host+"/v1/discovery/universes?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var page discoveryPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode discovery page: %w", err)
	}
	return &page, nil
}

// FetchGames polls CCU readings and metadata for the given universes in
// batches. Every snapshot from one call carries the same timestamp, so a
// poll pass reads as a single observation instant downstream.
//
// A failed batch is skipped with a warning: the affected universes simply
// miss this observation, which the growth computation treats as a data gap.
// An error is returned only when every batch fails.
func (c *Client) FetchGames(ctx context.Context, universeIDs []int64) ([]*models.Snapshot, []*models.GameMeta, error) {
	unique := dedupeIDs(universeIDs)
	if len(unique) == 0 {
		return nil, nil, nil
	}

	polledAt := time.Now().UTC().Truncate(time.Second)
	batchSize := c.cfg.BatchSize
	if batchSize <= 0 || batchSize > 100 {
		batchSize = 100
	}

	var snapshots []*models.Snapshot
	var metas []*models.GameMeta
	batches, failed := 0, 0

	for start := 0; start < len(unique); start += batchSize {
		end := min(start+batchSize, len(unique))
		batches++

		entries, err := c.fetchGamesBatch(ctx, unique[start:end])
		if err != nil {
			failed++
			logger.Warn("games batch %d/%d failed: %v", batches, (len(unique)+batchSize-1)/batchSize, err)
			continue
		}

		for _, entry := range entries {
			if entry.ID <= 0 {
				continue
			}
			if entry.Playing < 0 {
				logger.Warn("rejecting negative ccu %d for universe %d", entry.Playing, entry.ID)
				continue
			}
			name := entry.Name
			if name == "" {
				name = "Unknown"
			}
			snapshots = append(snapshots, &models.Snapshot{
				EntityID:  entry.ID,
				Name:      name,
				CCU:       entry.Playing,
				Timestamp: polledAt,
			})
			metas = append(metas, &models.GameMeta{
				EntityID:    entry.ID,
				Name:        name,
				RootPlaceID: entry.RootPlaceID,
				CreatorID:   entry.Creator.ID,
				CreatorName: entry.Creator.Name,
				Description: entry.Description,
				Genre:       entry.Genre,
				Visits:      entry.Visits,
				LastSeenCCU: entry.Playing,
				UpdatedAt:   polledAt,
			})
		}
	}

	if failed == batches {
		return nil, nil, fmt.Errorf("all %d games batches failed", batches)
	}
	logger.Debug("polled %d universes in %d batches (%d failed)", len(snapshots), batches, failed)
	return snapshots, metas, nil
}

// fetchGamesBatch queries one universeIds batch, falling back to the
// secondary host when the primary fails its retries.
func (c *Client) fetchGamesBatch(ctx context.Context, ids []int64) ([]gameEntry, error) {
	query := "/v1/games?universeIds=" + joinIDs(ids)

	resp, err := c.doRequest(ctx, c.baseURL+query)
	if err != nil && c.fallbackURL != "" {
		resp, err = c.doRequest(ctx, c.fallbackURL+query)
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Data []gameEntry `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode games payload: %w", err)
	}
	return payload.Data, nil
}

// doRequest performs a GET with retry logic. Rate limiting (429) and server
// errors are retried with linear backoff; other statuses are the caller's
// problem.
func (c *Client) doRequest(ctx context.Context, requestURL string) (*http.Response, error) {
	maxRetries := c.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(c.cfg.RetryDelay() * time.Duration(i+1))
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(c.cfg.RetryDelay() * time.Duration(i+1))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) loadCachedUniverses() []int64 {
	if c.cfg.CachePath == "" {
		return nil
	}
	data, err := os.ReadFile(c.cfg.CachePath)
	if err != nil {
		return nil
	}
	var cached universeCache
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil
	}
	if cached.GeneratedAt.IsZero() || time.Since(cached.GeneratedAt) > c.cfg.CacheTTL() {
		return nil
	}
	return cached.UniverseIDs
}

func (c *Client) saveCachedUniverses(ids []int64) {
	if c.cfg.CachePath == "" {
		return
	}
	data, err := json.Marshal(universeCache{
		GeneratedAt: time.Now().UTC(),
		UniverseIDs: ids,
	})
	if err != nil {
		return
	}
	// Write to temp then rename so a crash never leaves a torn cache.
	tempPath := c.cfg.CachePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		logger.Warn("failed to write universe cache: %v", err)
		return
	}
	if err := os.Rename(tempPath, c.cfg.CachePath); err != nil {
		logger.Warn("failed to replace universe cache: %v", err)
	}
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func joinIDs(ids []int64) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

func trimLimit(ids []int64, limit int) []int64 {
	if limit > 0 && len(ids) > limit {
		return ids[:limit]
	}
	return ids
}
