package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/selivandex/regime-lab/internal/adapters/config"
	"github.com/selivandex/regime-lab/pkg/logger"
	"github.com/selivandex/regime-lab/pkg/models"
)

// Notifier posts derive run results to a single operations chat
type Notifier struct {
	api *tgbotapi.BotAPI
	cfg *config.TelegramConfig
}

// NewNotifier creates new Telegram notifier
func NewNotifier(cfg *config.TelegramConfig) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = false

	logger.Info("telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName),
	)

	return &Notifier{api: bot, cfg: cfg}, nil
}

// SendRunSummary posts a derive run summary
func (n *Notifier) SendRunSummary(summary *models.DeriveSummary) error {
	if !n.cfg.AlertOnRuns {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Derive run finished: %s %s*\n", summary.Symbol, summary.Timeframe)
	fmt.Fprintf(&b, "Period: %s .. %s\n",
		summary.PeriodStart.Format("2006-01-02"), summary.PeriodEnd.Format("2006-01-02"))
	fmt.Fprintf(&b, "Bars: %d, feature rows: %d\n", summary.Bars, summary.FeatureRows)
	fmt.Fprintf(&b, "Vol boundaries: %.6f / %.6f\n", summary.Boundaries.Lower, summary.Boundaries.Upper)
	fmt.Fprintf(&b, "Regimes L/M/H: %d/%d/%d\n",
		summary.RegimeCounts[models.RegimeLow],
		summary.RegimeCounts[models.RegimeMedium],
		summary.RegimeCounts[models.RegimeHigh])
	fmt.Fprintf(&b, "Total return: %+.2f%%\n", summary.TotalReturn*100)
	fmt.Fprintf(&b, "Asymmetry ratio: %.3f, skew: %.3f", summary.AsymmetryRatio, summary.Skewness)

	return n.sendMarkdown(b.String())
}

// SendFailure posts a run failure alert
func (n *Notifier) SendFailure(symbol string, err error) error {
	if !n.cfg.AlertOnErrors {
		return nil
	}

	text := fmt.Sprintf("*Derive run failed: %s*\n`%v`", symbol, err)
	return n.sendMarkdown(text)
}

func (n *Notifier) sendMarkdown(text string) error {
	msg := tgbotapi.NewMessage(n.cfg.ChatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	return nil
}
