package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"teraboxbot/internal/plans"
	"teraboxbot/internal/service"
)

// UserLister is the broadcast audience source.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// Server exposes the webhook endpoint, the daily reset trigger and a few
// operator utilities over HTTP.
type Server struct {
	addr     string
	username string
	password string
	log      *slog.Logger
	quota    *service.QuotaService
	payments *service.PaymentService
	catalog  *plans.Catalog
	users    UserLister
	bot      *tgbotapi.BotAPI
	router   *chi.Mux
}

func NewServer(addr, username, password string, log *slog.Logger, quota *service.QuotaService, payments *service.PaymentService, catalog *plans.Catalog, users UserLister, bot *tgbotapi.BotAPI) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:     addr,
		username: username,
		password: password,
		log:      log,
		quota:    quota,
		payments: payments,
		catalog:  catalog,
		users:    users,
		bot:      bot,
		router:   r,
	}
	r.Post("/webhook/razorpay", s.handleRazorpayWebhook)
	r.Post("/payment/callback", s.handlePaymentCallback)
	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Post("/tasks/daily-reset", s.handleDailyReset)
		protected.Get("/plans", s.handleListPlans)
		protected.Post("/broadcast", s.handleBroadcast)
	})
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin shutdown error", "err", err)
		}
	}()

	s.log.Info("admin server listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin listen: %w", err)
	}
	return nil
}

// handleRazorpayWebhook is the public gateway callback. The signature header
// is verified over the raw body before anything else happens to it.
func (s *Server) handleRazorpayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	signature := r.Header.Get("X-Razorpay-Signature")

	event, err := s.payments.ProcessWebhook(r.Context(), body, signature)
	if err != nil {
		if errors.Is(err, service.ErrBadSignature) {
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		s.log.Error("razorpay webhook", "err", err)
		http.Error(w, "webhook processing failed", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"event":      event.Event,
		"reconciled": event.Reconciled,
	})
}

// handlePaymentCallback is the browser return leg of the hosted checkout.
// Razorpay posts the order id, payment id and a signature over the pair.
func (s *Server) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	orderID := r.Form.Get("razorpay_order_id")
	paymentID := r.Form.Get("razorpay_payment_id")
	signature := r.Form.Get("razorpay_signature")
	if orderID == "" || paymentID == "" || signature == "" {
		http.Error(w, "missing payment fields", http.StatusBadRequest)
		return
	}

	result, _, err := s.payments.ConfirmCallback(r.Context(), orderID, paymentID, signature)
	if err != nil {
		if errors.Is(err, service.ErrBadSignature) {
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		s.log.Error("payment callback", "order_id", orderID, "err", err)
		http.Error(w, "payment processing failed", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"already_applied": result == service.ReconcileAlreadyApplied,
	})
}

// handleDailyReset zeroes the free-tier counters. Wired to an external cron;
// running it more than once a day is harmless.
func (s *Server) handleDailyReset(w http.ResponseWriter, r *http.Request) {
	reset, err := s.quota.ResetAllFree(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"users_reset": reset,
	})
}

func (s *Server) handleListPlans(w http.ResponseWriter, _ *http.Request) {
	type planView struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		DurationDays int    `json:"duration_days"`
		PriceRupees  int    `json:"price_rupees"`
		PricePaise   int    `json:"price_paise"`
		Description  string `json:"description"`
	}
	var out []planView
	for _, p := range s.catalog.All() {
		out = append(out, planView{
			ID:           p.ID,
			Name:         p.Name,
			DurationDays: p.DurationDays,
			PriceRupees:  p.PriceRupees,
			PricePaise:   p.PricePaise,
			Description:  p.Description,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type broadcastRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}

	ids, err := s.users.ListUserIDs(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}

	count := 0
	for _, id := range ids {
		msg := tgbotapi.NewMessage(id, req.Message)
		if _, err := s.bot.Send(msg); err != nil {
			s.log.Error("send broadcast", "user", id, "err", err)
			continue
		}
		count++
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"sent":  count,
		"total": len(ids),
	})
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != s.username || pass != s.password {
				w.Header().Set("WWW-Authenticate", `Basic realm="teraboxbot"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("admin handler error", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
