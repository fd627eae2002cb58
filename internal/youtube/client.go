// Package youtube collects recent uploads from curated Roblox creator
// channels through the YouTube Data API v3. Collection is a two-step fetch
// per channel: a date-ordered search for the newest uploads, then one
// statistics lookup for the returned IDs.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/earlyshift/earlyshift/internal/config"
	"github.com/earlyshift/earlyshift/internal/logger"
	"github.com/earlyshift/earlyshift/internal/models"
)

// Client fetches creator uploads from the YouTube Data API.
type Client struct {
	apiKey     string
	baseURL    string
	channels   []string
	maxResults int
	httpClient *http.Client
}

type searchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		ChannelID    string `json:"channelId"`
		ChannelTitle string `json:"channelTitle"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		PublishedAt  string `json:"publishedAt"`
	} `json:"snippet"`
}

// videoStats carries the statistics lookup. The API reports counts as
// decimal strings, not numbers.
type videoStats struct {
	ID         string `json:"id"`
	Statistics struct {
		ViewCount string `json:"viewCount"`
		LikeCount string `json:"likeCount"`
	} `json:"statistics"`
}

// NewClient creates a new YouTube client.
func NewClient(cfg config.YouTubeConfig) *Client {
	channels := cfg.ChannelIDs
	if len(channels) == 0 {
		channels = config.DefaultYouTubeChannels
	}
	maxResults := cfg.MaxResultsPerChannel
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		channels:   channels,
		maxResults: maxResults,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
	}
}

// Enabled reports whether an API key is configured. Without one the
// collector stays off and detection runs growth-only.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// CollectAll fetches the most recent uploads for every configured channel.
// A channel failure is logged and skipped so one revoked or throttled
// channel never starves the rest of the feed; an error is returned only
// when every channel fails.
func (c *Client) CollectAll(ctx context.Context) ([]*models.VideoRecord, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("youtube API key not configured")
	}

	fetchedAt := time.Now().UTC().Truncate(time.Second)
	var records []*models.VideoRecord
	failed := 0

	for _, channelID := range c.channels {
		channelRecords, err := c.collectChannel(ctx, channelID, fetchedAt)
		if err != nil {
			failed++
			logger.Warn("failed to collect channel %s: %v", channelID, err)
			continue
		}
		records = append(records, channelRecords...)
	}

	if failed == len(c.channels) && len(c.channels) > 0 {
		return nil, fmt.Errorf("all %d channels failed", failed)
	}
	logger.Info("collected %d videos from %d channels (%d failed)", len(records), len(c.channels), failed)
	return records, nil
}

// collectChannel returns the newest uploads for one channel.
func (c *Client) collectChannel(ctx context.Context, channelID string, fetchedAt time.Time) ([]*models.VideoRecord, error) {
	items, err := c.searchRecent(ctx, channelID)
	if err != nil {
		return nil, err
	}

	videoIDs := make([]string, 0, len(items))
	for _, item := range items {
		if item.ID.VideoID != "" {
			videoIDs = append(videoIDs, item.ID.VideoID)
		}
	}
	stats, err := c.fetchStatistics(ctx, videoIDs)
	if err != nil {
		return nil, err
	}

	records := make([]*models.VideoRecord, 0, len(items))
	for _, item := range items {
		videoID := item.ID.VideoID
		if videoID == "" {
			continue
		}

		publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		if err != nil {
			publishedAt = fetchedAt
		}
		chanID := item.Snippet.ChannelID
		if chanID == "" {
			chanID = channelID
		}
		chanTitle := item.Snippet.ChannelTitle
		if chanTitle == "" {
			chanTitle = "Unknown"
		}

		record := &models.VideoRecord{
			VideoID:      videoID,
			ChannelID:    chanID,
			ChannelTitle: chanTitle,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			PublishedAt:  publishedAt.UTC(),
			FetchedAt:    fetchedAt,
		}
		if s, ok := stats[videoID]; ok {
			record.ViewCount = parseCount(s.Statistics.ViewCount)
			record.LikeCount = parseCount(s.Statistics.LikeCount)
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *Client) searchRecent(ctx context.Context, channelID string) ([]searchItem, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("part", "snippet")
	params.Set("channelId", channelID)
	params.Set("order", "date")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(c.maxResults))

	var payload struct {
		Items []searchItem `json:"items"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/search?"+params.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return payload.Items, nil
}

func (c *Client) fetchStatistics(ctx context.Context, videoIDs []string) (map[string]videoStats, error) {
	if len(videoIDs) == 0 {
		return map[string]videoStats{}, nil
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("part", "statistics,contentDetails,snippet")
	params.Set("id", strings.Join(videoIDs, ","))
	params.Set("maxResults", strconv.Itoa(len(videoIDs)))

	var payload struct {
		Items []videoStats `json:"items"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/videos?"+params.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("statistics lookup failed: %w", err)
	}

	stats := make(map[string]videoStats, len(payload.Items))
	for _, item := range payload.Items {
		stats[item.ID] = item
	}
	return stats, nil
}

// getJSON performs a single GET and decodes the response. Quota errors are
// not worth retrying within a cycle, so there is no retry loop here; the
// per-channel isolation in CollectAll absorbs transient failures instead.
func (c *Client) getJSON(ctx context.Context, requestURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
