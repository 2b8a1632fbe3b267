package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/skalibog/oiwatch/internal/config"
	"github.com/skalibog/oiwatch/pkg/logger"
	"github.com/skalibog/oiwatch/pkg/models"
	"go.uber.org/zap"
)

// ErrNotDelivered Telegram отклонил сообщение
var ErrNotDelivered = errors.New("сообщение не доставлено")

// TelegramNotifier отправляет уведомления в один чат Telegram
type TelegramNotifier struct {
	httpClient *http.Client
	baseURL    string
	chatID     string
}

// telegramMessage тело запроса sendMessage
type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// telegramResponse ответ от Telegram API
type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int `json:"message_id"`
	} `json:"result"`
}

// NewTelegramNotifier создает нотификатор Telegram
func NewTelegramNotifier(cfg config.TelegramConfig) *TelegramNotifier {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = config.DefaultTelegramAPIURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &TelegramNotifier{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    fmt.Sprintf("%s/bot%s", apiURL, cfg.BotToken),
		chatID:     cfg.ChatID,
	}
}

// Deliver отправляет уведомление о сигнале
func (n *TelegramNotifier) Deliver(ctx context.Context, alert *models.Alert) error {
	body, err := json.Marshal(telegramMessage{
		ChatID:    n.chatID,
		Text:      RenderHTML(alert),
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("ошибка сериализации сообщения: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки в Telegram: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа Telegram: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: статус %d: %s", ErrNotDelivered, resp.StatusCode, truncate(string(respBody), 200))
	}

	var tgResp telegramResponse
	if err := json.Unmarshal(respBody, &tgResp); err != nil {
		return fmt.Errorf("ошибка разбора ответа Telegram: %w", err)
	}
	if !tgResp.OK {
		return fmt.Errorf("%w: %s", ErrNotDelivered, tgResp.Description)
	}

	logger.Info("Уведомление отправлено",
		zap.String("coin", alert.Coin),
		zap.String("alert_id", alert.ID),
		zap.Int("message_id", tgResp.Result.MessageID))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
