package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"teraboxbot/internal/config"
	"teraboxbot/internal/plans"
	"teraboxbot/internal/razorpay"
	"teraboxbot/internal/service"
)

const (
	cbSelectPlan  = "plan:"
	cbConfirmPlan = "confirm:"
	cbOrderStatus = "status:"
	cbCancel      = "cancel"
)

// PaymentBot runs the upgrade conversation: plan selection, checkout link,
// payment status polling.
type PaymentBot struct {
	cfg      config.Config
	api      *tgbotapi.BotAPI
	log      *slog.Logger
	payments *service.PaymentService
	premium  *service.PremiumService
	catalog  *plans.Catalog
	checkout *razorpay.Client
	state    *StateManager
}

func NewPaymentBot(cfg config.Config, api *tgbotapi.BotAPI, log *slog.Logger, payments *service.PaymentService, premium *service.PremiumService, catalog *plans.Catalog, checkout *razorpay.Client) *PaymentBot {
	return &PaymentBot{
		cfg:      cfg,
		api:      api,
		log:      log,
		payments: payments,
		premium:  premium,
		catalog:  catalog,
		checkout: checkout,
		state:    NewStateManager(),
	}
}

func (b *PaymentBot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("payment bot started")

	for {
		select {
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			}
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (b *PaymentBot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.sendMarkdown(msg.Chat.ID, "Use /start to choose a premium plan.", nil)
		return
	}

	switch msg.Command() {
	case "start":
		arg := strings.TrimSpace(msg.CommandArguments())
		if plan, ok := b.catalog.Get(arg); ok {
			b.showPlanDetails(msg.Chat.ID, plan)
			return
		}
		b.showPlans(msg.Chat.ID)
	case "discount":
		b.handleDiscount(msg)
	case "cancel":
		b.state.Reset(msg.Chat.ID)
		b.sendMarkdown(msg.Chat.ID, paymentCancelledMessage, nil)
	default:
		b.sendMarkdown(msg.Chat.ID, "Use /start to choose a premium plan.", nil)
	}
}

func (b *PaymentBot) handleDiscount(msg *tgbotapi.Message) {
	code := strings.TrimSpace(msg.CommandArguments())
	if code == "" {
		b.sendMarkdown(msg.Chat.ID, "Usage: /discount CODE", nil)
		return
	}
	session := b.state.Get(msg.Chat.ID)
	session.DiscountCode = code
	b.state.Set(msg.Chat.ID, session)
	b.sendMarkdown(msg.Chat.ID, fmt.Sprintf("Discount code *%s* will be applied at checkout if valid.", strings.ToUpper(code)), nil)
}

func (b *PaymentBot) showPlans(chatID int64) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, plan := range b.catalog.All() {
		label := fmt.Sprintf("%s - ₹%d", plan.Name, plan.PriceRupees)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbSelectPlan+plan.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
	))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.sendMarkdown(chatID, paymentWelcomeMessage, &keyboard)
}

func (b *PaymentBot) showPlanDetails(chatID int64, plan plans.Plan) {
	session := b.state.Get(chatID)
	session.SelectedPlan = plan.ID
	b.state.Set(chatID, session)

	text := fmt.Sprintf("*%s*\n\n%s\n\nPrice: ₹%d for %d days", plan.Name, plan.Description, plan.PriceRupees, plan.DurationDays)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", cbConfirmPlan+plan.ID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbCancel),
		),
	)
	b.sendMarkdown(chatID, text, &keyboard)
}

func (b *PaymentBot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, cbSelectPlan):
		if plan, ok := b.catalog.Get(strings.TrimPrefix(data, cbSelectPlan)); ok {
			b.ack(cb, plan.Name)
			b.showPlanDetails(chatID, plan)
			return
		}
		b.ack(cb, "Unknown plan")
	case strings.HasPrefix(data, cbConfirmPlan):
		b.ack(cb, "Creating order...")
		b.handleConfirm(ctx, cb, strings.TrimPrefix(data, cbConfirmPlan))
	case strings.HasPrefix(data, cbOrderStatus):
		b.ack(cb, "Checking payment...")
		b.handleOrderStatus(ctx, cb, strings.TrimPrefix(data, cbOrderStatus))
	case data == cbCancel:
		b.ack(cb, "Cancelled")
		b.state.Reset(chatID)
		b.sendMarkdown(chatID, paymentCancelledMessage, nil)
	default:
		b.ack(cb, "Unknown action")
	}
}

func (b *PaymentBot) handleConfirm(ctx context.Context, cb *tgbotapi.CallbackQuery, planID string) {
	chatID := cb.Message.Chat.ID
	userID := chatID
	if cb.From != nil {
		userID = cb.From.ID
	}
	session := b.state.Get(chatID)

	order, quote, err := b.payments.CreateOrder(ctx, userID, planID, session.DiscountCode)
	if err != nil {
		b.log.Error("create order failed", "user_id", userID, "plan", planID, "err", err)
		b.sendMarkdown(chatID, paymentErrorMessage, nil)
		return
	}
	session.PendingOrderID = order.ID
	b.state.Set(chatID, session)

	text := fmt.Sprintf("💳 *%s*\n\nAmount: ₹%.2f", quote.Plan.Name, float64(quote.FinalPaise)/100)
	if quote.Applied {
		text += fmt.Sprintf("\nDiscount %s: -₹%.2f", quote.Code, float64(quote.DiscountPaise)/100)
	}
	text += "\n\nComplete the payment and press *I've paid* to activate your plan."

	link := b.checkout.CheckoutURL(order, "Terabox Premium", quote.Plan.Name, userID, quote.Plan.ID, order.Notes["cb"])
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💳 Pay Now", link),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ I've paid", cbOrderStatus+order.ID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
		),
	)
	b.sendMarkdown(chatID, text, &keyboard)
}

func (b *PaymentBot) handleOrderStatus(ctx context.Context, cb *tgbotapi.CallbackQuery, orderID string) {
	chatID := cb.Message.Chat.ID

	order, err := b.payments.OrderStatus(ctx, orderID)
	if err != nil {
		b.log.Error("order status failed", "order_id", orderID, "err", err)
		b.sendMarkdown(chatID, paymentErrorMessage, nil)
		return
	}
	if order.Status != razorpay.OrderStatusPaid {
		b.sendMarkdown(chatID, fmt.Sprintf(paymentPendingTemplate, orderID), b.retryKeyboard(orderID))
		return
	}

	userID, planID, ok := orderIdentity(order)
	if !ok {
		b.log.Error("paid order has no identity notes", "order_id", orderID)
		b.sendMarkdown(chatID, paymentErrorMessage, nil)
		return
	}

	result, expiry, err := b.payments.Reconcile(ctx, orderID, userID, planID, "")
	if err != nil {
		b.sendMarkdown(chatID, paymentErrorMessage, nil)
		return
	}
	if result == service.ReconcileAlreadyApplied {
		// The webhook got there first; read the expiry back.
		if _, current := b.premium.Check(ctx, userID); current != nil {
			expiry = *current
		}
	}

	plan, _ := b.catalog.Get(planID)
	b.state.Reset(chatID)
	b.sendMarkdown(chatID, fmt.Sprintf(paymentSuccessTemplate,
		plan.Name, expiry.UTC().Format("2 Jan 2006 15:04 MST"), b.cfg.MainBotUsername), nil)
}

func (b *PaymentBot) retryKeyboard(orderID string) *tgbotapi.InlineKeyboardMarkup {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Check again", cbOrderStatus+orderID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
		),
	)
	return &keyboard
}

func orderIdentity(order *razorpay.Order) (int64, string, bool) {
	rawID, ok := order.Notes["user_id"]
	if !ok {
		return 0, "", false
	}
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || order.Notes["plan_id"] == "" {
		return 0, "", false
	}
	return userID, order.Notes["plan_id"], true
}

func (b *PaymentBot) ack(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		b.log.Error("callback ack", "err", err)
	}
}

func (b *PaymentBot) sendMarkdown(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
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
