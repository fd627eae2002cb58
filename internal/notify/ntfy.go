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

// ntfy priorities: 3 is the service default, 5 bypasses quiet hours on
// subscribed phones.
const (
	ntfyPriorityDefault = 3
	ntfyPriorityUrgent  = 5
)

// Ntfy publishes one push notification per spike to an ntfy.sh topic.
// Growth at or above the mobile-alert threshold goes out at urgent
// priority.
type Ntfy struct {
	baseURL            string
	topic              string
	mobileAlertPercent float64
	httpClient         *http.Client
}

// ntfyMessage is the publish payload for the ntfy JSON endpoint.
type ntfyMessage struct {
	Topic    string `json:"topic"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// NewNtfy creates an ntfy.sh sink. Growth at or above mobileAlertPercent is
// published at urgent priority; zero disables the escalation.
func NewNtfy(cfg config.NtfyConfig, mobileAlertPercent float64) *Ntfy {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Ntfy{
		baseURL:            strings.TrimRight(cfg.BaseURL, "/"),
		topic:              cfg.Topic,
		mobileAlertPercent: mobileAlertPercent,
		httpClient:         &http.Client{Timeout: timeout},
	}
}

// Name identifies the sink in logs.
func (n *Ntfy) Name() string { return "ntfy" }

// Send publishes one notification per spike. A failed publish does not stop
// the rest of the batch.
func (n *Ntfy) Send(ctx context.Context, spikes []models.SpikeCandidate) error {
	var failed int
	var lastErr error
	for i := range spikes {
		if err := n.publish(ctx, &spikes[i]); err != nil {
			failed++
			lastErr = err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d ntfy publishes failed, last error: %w", failed, len(spikes), lastErr)
	}
	return nil
}

func (n *Ntfy) publish(ctx context.Context, spike *models.SpikeCandidate) error {
	payload := ntfyMessage{
		Topic:    n.topic,
		Title:    fmt.Sprintf("%s up %.1f%%", spike.DisplayName, spike.GrowthPercent),
		Message:  formatSpikeMessage(spike),
		Priority: n.priorityFor(spike),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal ntfy payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to publish to ntfy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code from ntfy: %d", resp.StatusCode)
	}
	return nil
}

func (n *Ntfy) priorityFor(spike *models.SpikeCandidate) int {
	if n.mobileAlertPercent > 0 && spike.GrowthPercent >= n.mobileAlertPercent {
		return ntfyPriorityUrgent
	}
	return ntfyPriorityDefault
}

// formatSpikeMessage builds the notification body. The first line carries
// the CCU numbers; further lines name the likely driver video when the
// spike is video-backed.
func formatSpikeMessage(spike *models.SpikeCandidate) string {
	msg := fmt.Sprintf("Current CCU %s (peak %s last 7d). Week-ago baseline %s.",
		formatCount(spike.CurrentCCU), formatCount(spike.PeakCCU), formatCount(spike.WeekAgoCCU))
	if spike.HasVideo() {
		msg += fmt.Sprintf("\nLikely driver: %s (%s)", spike.VideoTitle, spike.ChannelTitle)
		if spike.MechanicPhrase != "" {
			msg += fmt.Sprintf("\nMechanic: %s", spike.MechanicPhrase)
		}
	}
	return msg
}
