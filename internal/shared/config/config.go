package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string
	Env         string

	// Twilio
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioSMSFrom    string
	PublicBaseURL    string

	// Reasoning service
	LLMProvider string
	LLMTimeout  time.Duration

	// Payment
	PaymentMode       string
	ProcessorAPIKey   string
	ProcessorBaseURL  string
	CardEncryptionKey string
	PaymentSessionTTL time.Duration
	KeypadRetryLimit  int

	// Conversation
	TextSessionTTL     time.Duration
	ItemMatchThreshold float64
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Port:              os.Getenv("PORT"),
		Env:               os.Getenv("ENV"),
		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioSMSFrom:     os.Getenv("TWILIO_SMS_FROM"),
		PublicBaseURL:     os.Getenv("PUBLIC_BASE_URL"),
		LLMProvider:       os.Getenv("LLM_PROVIDER"),
		PaymentMode:       os.Getenv("PAYMENT_MODE"),
		ProcessorAPIKey:   os.Getenv("PROCESSOR_API_KEY"),
		ProcessorBaseURL:  os.Getenv("PROCESSOR_BASE_URL"),
		CardEncryptionKey: os.Getenv("CARD_ENCRYPTION_KEY"),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	cfg.LLMTimeout = envDuration("LLM_TIMEOUT", 15*time.Second)
	cfg.PaymentSessionTTL = envDuration("PAYMENT_SESSION_TTL", 10*time.Minute)
	cfg.TextSessionTTL = envDuration("TEXT_SESSION_TTL", 24*time.Hour)
	cfg.KeypadRetryLimit = envInt("KEYPAD_RETRY_LIMIT", 3)
	cfg.ItemMatchThreshold = envFloat("ITEM_MATCH_THRESHOLD", 0.72)

	return cfg
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("⚠️ Invalid duration for %s, using default %s", key, fallback)
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("⚠️ Invalid integer for %s, using default %d", key, fallback)
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("⚠️ Invalid float for %s, using default %.2f", key, fallback)
	}
	return fallback
}
