package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	DB struct {
		DSN string
	}
	Kafka struct {
		Brokers []string
		Topic   string
		GroupID string
	}
	API struct {
		Port     string
		BasePath string
	}
	Engine struct {
		MaxWorkers int
	}
	Dispatch struct {
		Timeout       time.Duration
		RatePerSecond int
		// Telegram gateway settings; leave BotToken empty to disable.
		BotToken string
		ChatID   int64
		// Webhook gateway fallback; leave URL empty to disable.
		WebhookURL string
	}
	Thresholds struct {
		// Bootstrap values saved to the config store when it is empty.
		LoadPercentage      float64
		UnbalancePercentage float64
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.DB.DSN = os.Getenv("DB_DSN")

	if broker := os.Getenv("KAFKA_BROKER"); broker != "" {
		cfg.Kafka.Brokers = []string{broker}
	}
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	if mw, err := strconv.Atoi(os.Getenv("MAX_WORKERS")); err == nil {
		cfg.Engine.MaxWorkers = mw
	}

	if d, err := time.ParseDuration(os.Getenv("DISPATCH_TIMEOUT")); err == nil {
		cfg.Dispatch.Timeout = d
	}
	if r, err := strconv.Atoi(os.Getenv("DISPATCH_RATE_PER_SECOND")); err == nil {
		cfg.Dispatch.RatePerSecond = r
	}
	cfg.Dispatch.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Dispatch.ChatID = id
	}
	cfg.Dispatch.WebhookURL = os.Getenv("NOTIFY_WEBHOOK_URL")

	if v, err := strconv.ParseFloat(os.Getenv("THRESHOLD_LOAD_PERCENT"), 64); err == nil {
		cfg.Thresholds.LoadPercentage = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("THRESHOLD_UNBALANCE_PERCENT"), 64); err == nil {
		cfg.Thresholds.UnbalancePercentage = v
	}

	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "gardu_measurements"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "gardu-alerting-service"
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v1"
	}
	if cfg.Engine.MaxWorkers == 0 {
		cfg.Engine.MaxWorkers = 8
	}
	if cfg.Dispatch.Timeout == 0 {
		cfg.Dispatch.Timeout = 10 * time.Second
	}
	if cfg.Dispatch.RatePerSecond == 0 {
		cfg.Dispatch.RatePerSecond = 5
	}
	if cfg.Thresholds.LoadPercentage == 0 {
		cfg.Thresholds.LoadPercentage = 80
	}
	if cfg.Thresholds.UnbalancePercentage == 0 {
		cfg.Thresholds.UnbalancePercentage = 20
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}
