package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/earlyshift/earlyshift/internal/config"
	"github.com/earlyshift/earlyshift/internal/models"
)

// Telegram sends spike alerts to a Telegram chat via the Bot API. Messages
// use MarkdownV2 so game names can link to their driver videos, which means
// every other piece of text has to be escaped.
type Telegram struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewTelegram creates a Telegram sink. Construction validates the bot token
// against the API, so it fails fast on a bad credential.
func NewTelegram(cfg config.TelegramConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay()
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &Telegram{
		bot:            bot,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelay,
	}, nil
}

// Name identifies the sink in logs.
func (t *Telegram) Name() string { return "telegram" }

// Send delivers the whole batch as a single message.
func (t *Telegram) Send(ctx context.Context, spikes []models.SpikeCandidate) error {
	return t.send(ctx, formatSpikes(spikes))
}

// SendError notifies the chat that monitoring cycles are failing.
func (t *Telegram) SendError(cycleErr error) error {
	message := fmt.Sprintf("⚠️ *Monitoring Error*\n\n%s", escapeMarkdownV2(cycleErr.Error()))
	return t.send(context.Background(), message)
}

// SendRecovery notifies the chat that monitoring resumed after failures.
func (t *Telegram) SendRecovery(failures int) error {
	message := fmt.Sprintf("✅ *Monitoring Recovered*\n\nResumed after %d failed cycles\\.", failures)
	return t.send(context.Background(), message)
}

// send delivers one MarkdownV2 message with linear backoff between retries.
// The Bot API client has no context support, so the context is only checked
// between attempts.
func (t *Telegram) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < t.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := t.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(t.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send message after %d retries: %w", t.maxRetries, lastErr)
}

// formatSpikes renders the batch into one MarkdownV2 message.
func formatSpikes(spikes []models.SpikeCandidate) string {
	message := "🚨 *Roblox CCU Spikes Detected*\n\n"

	// Show detected time once at the top
	if len(spikes) > 0 {
		dateStr := escapeMarkdownV2(spikes[0].DetectedAt.UTC().Format("2006-01-02 15:04:05"))
		message += fmt.Sprintf("📅 Detected: %s\n\n", dateStr)
	}

	for i, spike := range spikes {
		// Link the game name to the driver video when one was matched.
		// The link text is escaped but the URL is not.
		var nameLink string
		if spike.VideoURL != "" {
			nameLink = fmt.Sprintf("[%s](%s)", escapeMarkdownV2(spike.DisplayName), spike.VideoURL)
		} else {
			nameLink = escapeMarkdownV2(spike.DisplayName)
		}

		growthStr := escapeMarkdownV2(fmt.Sprintf("%.1f%%", spike.GrowthPercent))
		ccuStr := escapeMarkdownV2(fmt.Sprintf("%s (peak %s, week ago %s)",
			formatCount(spike.CurrentCCU), formatCount(spike.PeakCCU), formatCount(spike.WeekAgoCCU)))

		message += fmt.Sprintf("%d\\. %s\n", i+1, nameLink)
		message += fmt.Sprintf("   📈 Growth: *%s*\n", growthStr)
		message += fmt.Sprintf("   👥 CCU: %s\n", ccuStr)

		if spike.MechanicPhrase != "" {
			message += fmt.Sprintf("   🧩 Mechanic: %s\n", escapeMarkdownV2(spike.MechanicPhrase))
		}
		if spike.HasVideo() {
			confStr := escapeMarkdownV2(fmt.Sprintf("%.2f", spike.MatchConfidence))
			message += fmt.Sprintf("   🎬 Via %s, confidence %s\n",
				escapeMarkdownV2(spike.ChannelTitle), confStr)
		}
		message += "\n"
	}

	return message
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	result := ""
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			result += "\\" + string(char)
		default:
			result += string(char)
		}
	}
	return result
}
