package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"teraboxbot/internal/admin"
	"teraboxbot/internal/config"
	"teraboxbot/internal/database"
	"teraboxbot/internal/plans"
	"teraboxbot/internal/razorpay"
	"teraboxbot/internal/repository"
	"teraboxbot/internal/security"
	"teraboxbot/internal/service"
	"teraboxbot/internal/telegram"
	"teraboxbot/internal/terabox"
	"teraboxbot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	mainAPI, err := tgbotapi.NewBotAPI(cfg.MainBotToken)
	if err != nil {
		log.Fatalf("main bot: %v", err)
	}
	paymentAPI, err := tgbotapi.NewBotAPI(cfg.PaymentBotToken)
	if err != nil {
		log.Fatalf("payment bot: %v", err)
	}

	tokens, err := security.NewTokenCodec(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	catalog := plans.Default()
	gateway := razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL, cfg.RequestTimeout, logr)
	resolver := terabox.NewClient(cfg.TeraboxAPIBaseURL, cfg.RequestTimeout, logr)

	entitlementRepo := repository.NewEntitlementRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	quotaService := service.NewQuotaService(entitlementRepo, auditRepo, cfg.FreeUsesPerDay, logr)
	premiumService := service.NewPremiumService(entitlementRepo, catalog, logr)

	mainBot := telegram.NewMainBot(cfg, mainAPI, logr, quotaService, premiumService, catalog, resolver)
	signer := security.NewSigner(cfg.RazorpayKeySecret)
	paymentService := service.NewPaymentService(gateway, orderRepo, premiumService, catalog, tokens, signer, mainBot, cfg.RazorpayWebhookSecret, cfg.PaymentCurrency, logr)
	paymentBot := telegram.NewPaymentBot(cfg, paymentAPI, logr, paymentService, premiumService, catalog, gateway)

	adminServer := admin.NewServer(cfg.AdminListenAddr, cfg.AdminUsername, cfg.AdminPassword, logr, quotaService, paymentService, catalog, entitlementRepo, mainAPI)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := adminServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("admin server stopped", "err", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := paymentBot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("payment bot stopped", "err", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := mainBot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("main bot stopped", "err", err)
		}
	}()
	wg.Wait()
}
