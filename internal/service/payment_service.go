package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"teraboxbot/internal/models"
	"teraboxbot/internal/plans"
	"teraboxbot/internal/razorpay"
	"teraboxbot/internal/security"
)

// ErrBadSignature means a webhook body or checkout callback failed HMAC
// verification and was discarded unparsed.
var ErrBadSignature = errors.New("bad signature")

// ReconcileResult says what a reconciliation attempt did.
type ReconcileResult int

const (
	// ReconcileApplied: this call activated the plan.
	ReconcileApplied ReconcileResult = iota
	// ReconcileAlreadyApplied: a previous call already did, nothing changed.
	ReconcileAlreadyApplied
)

// WebhookEvent is the digested outcome of a verified gateway webhook.
type WebhookEvent struct {
	Event     string
	OrderID   string
	PaymentID string
	UserID    int64
	PlanID    string
	Result    ReconcileResult
	ExpiresAt time.Time
	// Reconciled is false for events that carry no activation (ignored
	// event types, unparseable notes).
	Reconciled bool
}

// PaymentService creates gateway orders and reconciles confirmed payments
// into entitlements, exactly once per order.
type PaymentService struct {
	gateway       Gateway
	ledger        OrderLedger
	premium       *PremiumService
	catalog       *plans.Catalog
	tokens        *security.TokenCodec
	signer        *security.Signer
	notifier      Notifier
	webhookSecret string
	currency      string
	log           *slog.Logger
}

func NewPaymentService(gateway Gateway, ledger OrderLedger, premium *PremiumService, catalog *plans.Catalog, tokens *security.TokenCodec, signer *security.Signer, notifier Notifier, webhookSecret, currency string, log *slog.Logger) *PaymentService {
	if currency == "" {
		currency = "INR"
	}
	return &PaymentService{
		gateway:       gateway,
		ledger:        ledger,
		premium:       premium,
		catalog:       catalog,
		tokens:        tokens,
		signer:        signer,
		notifier:      notifier,
		webhookSecret: webhookSecret,
		currency:      currency,
		log:           log,
	}
}

// CreateOrder prices the plan, registers the order with the gateway and
// records a pending payment row. The user and plan ride in the order notes so
// the webhook can reconcile without any local session.
func (s *PaymentService) CreateOrder(ctx context.Context, userID int64, planID, discountCode string) (*razorpay.Order, *plans.Quote, error) {
	quote, err := s.catalog.Quote(planID, discountCode)
	if err != nil {
		return nil, nil, err
	}

	notes := map[string]string{
		"user_id": strconv.FormatInt(userID, 10),
		"plan_id": quote.Plan.ID,
	}
	if quote.Applied {
		notes["discount_code"] = quote.Code
	}
	if s.tokens != nil {
		if token, err := s.tokens.Issue(userID, quote.Plan.ID); err == nil {
			notes["cb"] = token
		}
	}

	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   quote.FinalPaise,
		Currency: s.currency,
		Receipt:  "tb_" + uuid.NewString(),
		Notes:    notes,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gateway order: %w", err)
	}

	payment := &models.Payment{
		UserID:   userID,
		PlanID:   quote.Plan.ID,
		OrderID:  order.ID,
		Currency: s.currency,
		Amount:   quote.FinalPaise,
		Status:   "created",
	}
	if err := s.ledger.RecordPayment(ctx, payment); err != nil {
		s.log.Error("payment audit write failed", "order_id", order.ID, "user_id", userID, "err", err)
	}

	s.log.Info("order created",
		"order_id", order.ID,
		"user_id", userID,
		"plan", quote.Plan.ID,
		"amount_paise", quote.FinalPaise,
		"discount", quote.Code)
	return order, &quote, nil
}

// OrderStatus fetches the gateway's current view of an order.
func (s *PaymentService) OrderStatus(ctx context.Context, orderID string) (*razorpay.Order, error) {
	return s.gateway.FetchOrder(ctx, orderID)
}

// Reconcile turns a confirmed payment into an activated plan, at most once
// per order id. The ledger insert happens before the activation, so a second
// delivery of the same order finds the row and becomes a no-op.
func (s *PaymentService) Reconcile(ctx context.Context, orderID string, userID int64, planID, paymentID string) (ReconcileResult, time.Time, error) {
	applied, err := s.ledger.MarkApplied(ctx, orderID, userID, planID, paymentID)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("mark order applied: %w", err)
	}
	if !applied {
		s.log.Info("order already reconciled", "order_id", orderID, "user_id", userID)
		return ReconcileAlreadyApplied, time.Time{}, nil
	}

	expiry, err := s.premium.Activate(ctx, userID, planID, paymentID)
	if err != nil {
		// The payment is confirmed but the entitlement write failed. Release
		// the ledger row so a retry can land, and wake the operator: until it
		// does, money has been taken without the plan being granted.
		if clearErr := s.ledger.ClearApplied(ctx, orderID); clearErr != nil {
			s.log.Error("ledger rollback failed, manual intervention required",
				"order_id", orderID, "user_id", userID, "err", clearErr)
		}
		s.log.Error("activation failed for paid order",
			"order_id", orderID, "user_id", userID, "plan", planID, "err", err)
		if s.notifier != nil {
			s.notifier.Notify(ctx, fmt.Sprintf(
				"⚠️ Paid order %s (user %d, plan %s) could not be activated: %v", orderID, userID, planID, err))
		}
		return 0, time.Time{}, fmt.Errorf("activate plan: %w", err)
	}

	if err := s.ledger.UpdatePaymentStatus(ctx, orderID, "paid", ""); err != nil {
		s.log.Error("payment status update failed", "order_id", orderID, "err", err)
	}
	return ReconcileApplied, expiry, nil
}

// ConfirmCallback handles the checkout return leg: the gateway hands the
// browser back razorpay_order_id, razorpay_payment_id and a signature over
// the pair. Verification happens before the payment is looked at.
func (s *PaymentService) ConfirmCallback(ctx context.Context, orderID, paymentID, signature string) (ReconcileResult, time.Time, error) {
	if !s.signer.VerifyPayment(orderID, paymentID, signature) {
		s.log.Warn("checkout callback rejected", "order_id", orderID, "reason", "signature mismatch")
		return 0, time.Time{}, ErrBadSignature
	}

	payment, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("fetch payment: %w", err)
	}
	userID, planID, ok := s.identify(payment.Notes)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("callback payment %s: cannot identify buyer", paymentID)
	}
	return s.Reconcile(ctx, orderID, userID, planID, paymentID)
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Status  string            `json:"status"`
				Amount  int               `json:"amount"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ProcessWebhook authenticates and applies a gateway webhook delivery. The
// signature is checked over the raw body before any parsing. Only
// payment.captured triggers reconciliation; other events are acknowledged and
// dropped.
func (s *PaymentService) ProcessWebhook(ctx context.Context, body []byte, signature string) (*WebhookEvent, error) {
	if !security.VerifyWebhookSignature(body, signature, s.webhookSecret) {
		s.log.Warn("webhook rejected", "reason", "signature mismatch")
		return nil, ErrBadSignature
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parse webhook: %w", err)
	}

	event := &WebhookEvent{Event: env.Event}
	if env.Event != "payment.captured" {
		s.log.Info("webhook ignored", "event", env.Event)
		return event, nil
	}

	entity := env.Payload.Payment.Entity
	event.OrderID = entity.OrderID
	event.PaymentID = entity.ID

	userID, planID, ok := s.identify(entity.Notes)
	if !ok {
		s.log.Error("webhook payment has no usable identity notes",
			"order_id", entity.OrderID, "payment_id", entity.ID)
		return event, fmt.Errorf("webhook order %s: cannot identify buyer", entity.OrderID)
	}
	event.UserID = userID
	event.PlanID = planID

	result, expiry, err := s.Reconcile(ctx, entity.OrderID, userID, planID, entity.ID)
	if err != nil {
		return event, err
	}
	event.Result = result
	event.ExpiresAt = expiry
	event.Reconciled = true

	if err := s.ledger.UpdatePaymentStatus(ctx, entity.OrderID, "paid", string(body)); err != nil {
		s.log.Error("webhook payload save failed", "order_id", entity.OrderID, "err", err)
	}
	return event, nil
}

// identify extracts the buyer from order notes, falling back to the sealed
// callback token when the plain fields are absent.
func (s *PaymentService) identify(notes map[string]string) (int64, string, bool) {
	if rawID, ok := notes["user_id"]; ok {
		if userID, err := strconv.ParseInt(rawID, 10, 64); err == nil && notes["plan_id"] != "" {
			return userID, notes["plan_id"], true
		}
	}
	if s.tokens != nil {
		if userID, planID, ok := s.tokens.Decode(notes["cb"]); ok {
			return userID, planID, true
		}
	}
	return 0, "", false
}
