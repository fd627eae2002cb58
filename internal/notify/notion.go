package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/earlyshift/earlyshift/internal/config"
	"github.com/earlyshift/earlyshift/internal/models"
)

const notionVersion = "2022-06-28"

// Notion appends one page per spike to a Notion database, giving analysts a
// browsable alert history. The target database must carry the column names
// written here; Notion rejects unknown properties with a 400.
type Notion struct {
	baseURL    string
	token      string
	databaseID string
	httpClient *http.Client
}

// NewNotion creates a Notion sink.
func NewNotion(cfg config.NotionConfig) *Notion {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Notion{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		databaseID: cfg.DatabaseID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name identifies the sink in logs.
func (n *Notion) Name() string { return "notion" }

// Send creates one database page per spike. A failed page does not stop the
// rest of the batch.
func (n *Notion) Send(ctx context.Context, spikes []models.SpikeCandidate) error {
	var failed int
	var lastErr error
	for i := range spikes {
		if err := n.createPage(ctx, &spikes[i]); err != nil {
			failed++
			lastErr = err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d Notion pages failed, last error: %w", failed, len(spikes), lastErr)
	}
	return nil
}

func (n *Notion) createPage(ctx context.Context, spike *models.SpikeCandidate) error {
	properties := map[string]any{
		"Game":             notionTitle(spike.DisplayName),
		"Universe ID":      notionNumber(float64(spike.EntityID)),
		"Growth Percent":   notionNumber(spike.GrowthPercent),
		"Growth Rate":      notionNumber(spike.GrowthRate),
		"Current CCU":      notionNumber(float64(spike.CurrentCCU)),
		"Peak CCU (7d)":    notionNumber(float64(spike.PeakCCU)),
		"Week Ago CCU":     notionNumber(float64(spike.WeekAgoCCU)),
		"Match Confidence": notionNumber(spike.MatchConfidence),
		"Alert Time":       notionDate(spike.DetectedAt),
	}
	if spike.MechanicPhrase != "" {
		properties["Mechanic"] = notionRichText(spike.MechanicPhrase)
	}
	if spike.HasVideo() {
		properties["Video URL"] = notionURL(spike.VideoURL)
		properties["Channel"] = notionRichText(spike.ChannelTitle)
	}

	payload := map[string]any{
		"parent":     map[string]any{"database_id": n.databaseID},
		"properties": properties,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Notion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/v1/pages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to create Notion page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code from Notion: %d", resp.StatusCode)
	}
	return nil
}

// Property value builders for the handful of Notion column types the alert
// schema uses.

func notionTitle(s string) map[string]any {
	return map[string]any{
		"title": []map[string]any{
			{"text": map[string]any{"content": s}},
		},
	}
}

func notionRichText(s string) map[string]any {
	return map[string]any{
		"rich_text": []map[string]any{
			{"text": map[string]any{"content": s}},
		},
	}
}

func notionNumber(v float64) map[string]any {
	return map[string]any{"number": v}
}

func notionDate(t time.Time) map[string]any {
	return map[string]any{
		"date": map[string]any{"start": t.UTC().Format(time.RFC3339)},
	}
}

func notionURL(s string) map[string]any {
	return map[string]any{"url": s}
}
