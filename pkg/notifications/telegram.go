package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"

	"airdrop-distributor/pkg/distributor"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramClient handles sending notifications to Telegram
type TelegramClient struct {
	BotToken string
	ChatID   string
	Enabled  bool
	// Decimals of the distributed token, used to format amounts
	Decimals int

	apiURL     string
	httpClient *http.Client
}

// NewTelegramClient creates a new Telegram client
func NewTelegramClient(botToken, chatID string, enabled bool) *TelegramClient {
	return &TelegramClient{
		BotToken:   botToken,
		ChatID:     chatID,
		Enabled:    enabled,
		Decimals:   9,
		apiURL:     defaultTelegramAPI,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendMessage sends a plain text message to Telegram
func (t *TelegramClient) SendMessage(ctx context.Context, message string) error {
	if !t.Enabled || t.BotToken == "" || t.ChatID == "" {
		return nil // Silently ignore if Telegram is not configured
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.BotToken)

	payload := map[string]interface{}{
		"chat_id":                  t.ChatID,
		"text":                     message,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned non-OK status: %d", resp.StatusCode)
	}

	return nil
}

// Publish notifies about a successful claim
func (t *TelegramClient) Publish(ctx context.Context, distributorAddr solana.PublicKey, event distributor.Claimed) error {
	message := fmt.Sprintf(
		"🎉 <b>Allocation Claimed!</b> 🎉\n\n"+
			"📦 <b>Distributor:</b> <code>%s</code>\n"+
			"🔢 <b>Index:</b> %d\n"+
			"👛 <b>Recipient:</b> <code>%s</code>\n"+
			"💰 <b>Amount:</b> %s\n"+
			"🕒 <b>Time:</b> %s",
		distributorAddr, event.Index, event.Account,
		FormatTokenAmount(event.Amount, t.Decimals),
		time.Now().Format("2006-01-02 15:04:05"),
	)

	if err := t.SendMessage(ctx, message); err != nil {
		return fmt.Errorf("failed to send claimed notification: %w", err)
	}
	return nil
}

// SendStartupMessage announces the service with its main settings
func (t *TelegramClient) SendStartupMessage(ctx context.Context, vaultAddress string, distributors int) error {
	message := fmt.Sprintf(
		"👋 <b>Airdrop Distributor is running</b>\n\n"+
			"🏦 <b>Vault:</b> <code>%s</code>\n"+
			"📦 <b>Distributors loaded:</b> %d\n\n"+
			"🔔 You'll be notified about every claim.",
		vaultAddress, distributors,
	)
	return t.SendMessage(ctx, message)
}

// SendStatusMessage sends a status update about claim progress
func (t *TelegramClient) SendStatusMessage(ctx context.Context, distributorAddr solana.PublicKey, claimed int, uptime time.Duration) error {
	message := fmt.Sprintf(
		"📊 <b>Distributor Status</b> 📊\n\n"+
			"📦 <b>Distributor:</b> <code>%s</code>\n"+
			"✅ <b>Claimed allocations:</b> %d\n"+
			"⏱️ <b>Uptime:</b> %s",
		distributorAddr, claimed, formatDuration(uptime),
	)
	return t.SendMessage(ctx, message)
}

// FormatTokenAmount formats a raw token amount as whole tokens
func FormatTokenAmount(amount uint64, decimals int) string {
	return fmt.Sprintf("%.2f", float64(amount)/math.Pow10(decimals))
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	} else if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
