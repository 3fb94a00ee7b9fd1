package telegram

import (
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iwtcode/railmon/internal/config"
	"github.com/iwtcode/railmon/internal/domain/models"
	"github.com/iwtcode/railmon/internal/interfaces"
	"github.com/iwtcode/railmon/internal/middleware/logging"
)

// Минимальный интервал между уведомлениями по одному параметру.
const alertThrottle = 5 * time.Minute

// TelegramNotifier шлет уведомления о тревогах в чат. Повторные тревоги
// одного параметра подавляются, чтобы не заспамить канал при дребезге.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *logging.Logger

	mu             sync.Mutex
	lastAlertTimes map[string]time.Time
}

// NewTelegramNotifier создает нотификатор. Пустой токен означает, что
// уведомления отключены: возвращается nil без ошибки.
func NewTelegramNotifier(cfg *config.AppConfig, logger *logging.Logger) (interfaces.AlertNotifier, error) {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == 0 {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %v", err)
	}

	log := logger.WithPrefix("TELEGRAM")
	log.Info("Telegram bot authorized", "username", bot.Self.UserName)

	return &TelegramNotifier{
		bot:            bot,
		chatID:         cfg.TelegramChatID,
		log:            log,
		lastAlertTimes: make(map[string]time.Time),
	}, nil
}

// NotifyAlert отправляет сообщение о тревоге в чат.
func (t *TelegramNotifier) NotifyAlert(alert models.Alert) error {
	if t.shouldThrottle(alert.Parameter) {
		t.log.Debug("Throttling alert notification", "parameter", alert.Parameter)
		return nil
	}

	icon := "⚠️"
	if alert.Severity == models.SeverityAlarm {
		icon = "🚨"
	}
	text := fmt.Sprintf("%s <b>%s</b>\n%s\nvalue: %.3f, threshold: %.3f\n%s",
		icon, alert.Severity, alert.Message, alert.Value, alert.Threshold,
		alert.Timestamp.Format(time.RFC3339))

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("error sending telegram message: %v", err)
	}

	t.mu.Lock()
	t.lastAlertTimes[alert.Parameter] = time.Now()
	t.mu.Unlock()
	return nil
}

func (t *TelegramNotifier) shouldThrottle(parameter string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.lastAlertTimes[parameter]
	return ok && time.Since(last) < alertThrottle
}
