package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"teraboxbot/internal/config"
	"teraboxbot/internal/plans"
	"teraboxbot/internal/service"
	"teraboxbot/internal/terabox"
)

const (
	maxFreeFileSize    = 1 << 30      // 1 GB
	maxPremiumFileSize = 10 * 1 << 30 // 10 GB
)

// Resolver turns a share link into file metadata and a download link.
// *terabox.Client satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (*terabox.File, error)
}

// MainBot answers share links, gated by quota and premium state.
type MainBot struct {
	cfg      config.Config
	api      *tgbotapi.BotAPI
	log      *slog.Logger
	quota    *service.QuotaService
	premium  *service.PremiumService
	catalog  *plans.Catalog
	resolver Resolver
}

func NewMainBot(cfg config.Config, api *tgbotapi.BotAPI, log *slog.Logger, quota *service.QuotaService, premium *service.PremiumService, catalog *plans.Catalog, resolver Resolver) *MainBot {
	return &MainBot{
		cfg:      cfg,
		api:      api,
		log:      log,
		quota:    quota,
		premium:  premium,
		catalog:  catalog,
		resolver: resolver,
	}
}

func (b *MainBot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("main bot started")

	for {
		select {
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			}
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (b *MainBot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	urls := terabox.ExtractURLs(msg.Text)
	if len(urls) == 0 {
		b.sendMarkdown(msg.Chat.ID, invalidURLMessage, nil)
		return
	}
	b.handleDownload(ctx, msg, urls[0])
}

func (b *MainBot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.sendMarkdown(msg.Chat.ID, fmt.Sprintf(welcomeTemplate, b.quota.Limit()), nil)
	case "help":
		b.sendMarkdown(msg.Chat.ID, fmt.Sprintf(helpTemplate, b.quota.Limit()), nil)
	case "status":
		b.handleStatus(ctx, msg)
	case "premium", "upgrade":
		b.handleUpgrade(ctx, msg)
	default:
		b.sendMarkdown(msg.Chat.ID, "Unknown command. Use /help to see what I can do.", nil)
	}
}

func (b *MainBot) handleStatus(ctx context.Context, msg *tgbotapi.Message) {
	userID := b.userID(msg)
	active, expiry := b.premium.Check(ctx, userID)
	if active {
		b.sendMarkdown(msg.Chat.ID, fmt.Sprintf(
			"🌟 *Premium Active*\n\nYour premium plan is valid until %s.",
			expiry.UTC().Format("2 Jan 2006 15:04 MST")), nil)
		return
	}

	left, _ := b.quota.Remaining(ctx, userID, b.username(msg))
	text := fmt.Sprintf("📊 *Account Status*\n\nPlan: Free\nRemaining downloads today: %d of %d", left, b.quota.Limit())
	if expiry != nil {
		text += fmt.Sprintf("\nPremium expired: %s", expiry.UTC().Format("2 Jan 2006"))
	}
	b.sendMarkdown(msg.Chat.ID, text, b.upgradeKeyboard(""))
}

func (b *MainBot) handleUpgrade(ctx context.Context, msg *tgbotapi.Message) {
	active, expiry := b.premium.Check(ctx, b.userID(msg))
	if active {
		b.sendMarkdown(msg.Chat.ID, fmt.Sprintf(
			"You already have premium, valid until %s.", expiry.UTC().Format("2 Jan 2006")), nil)
		return
	}
	text := fmt.Sprintf(upgradeTemplate, b.catalog.FormatList())
	b.sendMarkdown(msg.Chat.ID, text, b.upgradeKeyboard(""))
}

func (b *MainBot) handleDownload(ctx context.Context, msg *tgbotapi.Message, rawURL string) {
	userID := b.userID(msg)
	username := b.username(msg)

	isPremium, _ := b.premium.Check(ctx, userID)
	if !isPremium {
		left, unlimited := b.quota.Remaining(ctx, userID, username)
		isPremium = unlimited
		if !unlimited && left <= 0 {
			b.sendMarkdown(msg.Chat.ID, fmt.Sprintf(limitReachedTemplate, b.quota.Limit()), b.upgradeKeyboard(""))
			return
		}
	}

	b.sendMarkdown(msg.Chat.ID, processingMessage, nil)

	file, err := b.resolver.Resolve(ctx, rawURL)
	if err != nil {
		b.log.Error("resolve failed", "user_id", userID, "url", rawURL, "err", err)
		b.sendMarkdown(msg.Chat.ID, downloadErrorMessage, nil)
		return
	}

	sizeLimit := int64(maxFreeFileSize)
	limitLabel := "1 GB"
	if isPremium {
		sizeLimit = maxPremiumFileSize
		limitLabel = "10 GB"
	}
	if file.SizeBytes > sizeLimit {
		b.sendMarkdown(msg.Chat.ID, fmt.Sprintf(fileTooLargeTemplate, formatSize(file.SizeBytes), limitLabel), nil)
		return
	}

	text := fmt.Sprintf(downloadReadyTemplate, file.Name, formatSize(file.SizeBytes), file.DownloadURL)
	if !isPremium {
		count, err := b.quota.Consume(ctx, userID, username)
		if err != nil {
			// The use was not recorded, so the download is refused.
			b.log.Error("quota consume failed", "user_id", userID, "err", err)
			b.sendMarkdown(msg.Chat.ID, downloadErrorMessage, nil)
			return
		}
		left := b.quota.Limit() - count
		if left < 0 {
			left = 0
		}
		text += fmt.Sprintf("\nRemaining free downloads today: %d", left)
	}
	b.sendMarkdown(msg.Chat.ID, text, nil)
}

// upgradeKeyboard deep-links into the payment bot. The plan key rides in the
// start parameter; callback tokens are too long for callback data, so the
// payment bot re-derives identity from its own /start message.
func (b *MainBot) upgradeKeyboard(planKey string) *tgbotapi.InlineKeyboardMarkup {
	link := fmt.Sprintf("https://t.me/%s?start=plans", b.cfg.PaymentBotUsername)
	if planKey != "" {
		link = fmt.Sprintf("https://t.me/%s?start=%s", b.cfg.PaymentBotUsername, planKey)
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🌟 Upgrade to Premium", link),
		),
	)
	return &keyboard
}

func (b *MainBot) userID(msg *tgbotapi.Message) int64 {
	if msg.From != nil {
		return msg.From.ID
	}
	return msg.Chat.ID
}

func (b *MainBot) username(msg *tgbotapi.Message) string {
	if msg.From != nil {
		return msg.From.UserName
	}
	return ""
}

func (b *MainBot) sendMarkdown(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "err", err)
	}
}

// Notify implements service.Notifier against the configured admin chats.
func (b *MainBot) Notify(_ context.Context, text string) {
	for _, adminID := range b.cfg.AdminUserIDs {
		msg := tgbotapi.NewMessage(adminID, text)
		if _, err := b.api.Send(msg); err != nil {
			b.log.Error("notify admin", "admin_id", adminID, "err", err)
		}
	}
}
