package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for both bots and supporting services.
type Config struct {
	MainBotToken          string
	PaymentBotToken       string
	MainBotUsername       string
	PaymentBotUsername    string
	MySQLDSN              string
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	RazorpayBaseURL       string
	EncryptionKey         []byte
	FreeUsesPerDay        int
	PaymentCurrency       string
	TeraboxAPIBaseURL     string
	RequestTimeout        time.Duration
	AdminListenAddr       string
	AdminUsername         string
	AdminPassword         string
	AdminUserIDs          []int64
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		MainBotUsername:       getEnv("MAIN_BOT_USERNAME", "terabox_premium_bot"),
		PaymentBotUsername:    getEnv("PAYMENT_BOT_USERNAME", "terabox_payment_bot"),
		RazorpayBaseURL:       getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		FreeUsesPerDay:        getInt("MAX_FREE_USES_PER_DAY", 3),
		PaymentCurrency:       getEnv("PAYMENT_CURRENCY", "INR"),
		TeraboxAPIBaseURL:     getEnv("TERABOX_API_BASE_URL", "https://terabox-dl.qtcloud.workers.dev"),
		RequestTimeout:        time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 30)),
		AdminListenAddr:       getEnv("ADMIN_LISTEN_ADDR", ":8080"),
		AdminUsername:         getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:         getEnv("ADMIN_PASSWORD", "change-me"),
		AdminUserIDs:          parseIDList(os.Getenv("ADMIN_USER_IDS")),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
	}

	cfg.MainBotToken = os.Getenv("MAIN_BOT_TOKEN")
	cfg.PaymentBotToken = os.Getenv("PAYMENT_BOT_TOKEN")
	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.RazorpayKeyID = os.Getenv("RAZORPAY_KEY_ID")
	cfg.RazorpayKeySecret = os.Getenv("RAZORPAY_KEY_SECRET")

	key, err := decodeEncryptionKey(os.Getenv("ENCRYPTION_KEY"))
	if err != nil {
		return Config{}, err
	}
	cfg.EncryptionKey = key

	var missing []string
	if cfg.MainBotToken == "" {
		missing = append(missing, "MAIN_BOT_TOKEN")
	}
	if cfg.PaymentBotToken == "" {
		missing = append(missing, "PAYMENT_BOT_TOKEN")
	}
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.RazorpayKeyID == "" {
		missing = append(missing, "RAZORPAY_KEY_ID")
	}
	if cfg.RazorpayKeySecret == "" {
		missing = append(missing, "RAZORPAY_KEY_SECRET")
	}
	if len(cfg.EncryptionKey) == 0 {
		missing = append(missing, "ENCRYPTION_KEY")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

// decodeEncryptionKey accepts a base64 encoded 32-byte key.
func decodeEncryptionKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		key, err = base64.URLEncoding.DecodeString(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("decode ENCRYPTION_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func parseIDList(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}
