package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	AppEnv      string
	DatabaseURL string

	BrevoAPIKey     string
	EmailSender     string
	EmailSenderName string
	NotifyEmail     string
	FrontendURL     string

	SweepInterval time.Duration
	SweepTimeout  time.Duration

	CreateLimitPerWindow  int
	CreateLimitWindow     time.Duration
	SearchLimitPerMinute  int
	ReadLimitPerMinute    int
	GeneralLimitPerWindow int
	GeneralLimitWindow    time.Duration
}

// Load reads configuration from the environment, with .env as a convenience
// for local development.
func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		AppEnv:      getEnv("APP_ENV", "development"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		BrevoAPIKey:     getEnv("BREVO_API_KEY", ""),
		EmailSender:     getEnv("EMAIL_SENDER", ""),
		EmailSenderName: getEnv("EMAIL_SENDER_NAME", "TellYouSomeday"),
		NotifyEmail:     getEnv("NOTIFY_EMAIL", ""),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:3000"),

		SweepInterval: getDuration("SWEEP_INTERVAL", 5*time.Minute),
		SweepTimeout:  getDuration("SWEEP_TIMEOUT", time.Minute),

		CreateLimitPerWindow:  getInt("CREATE_LIMIT", 5),
		CreateLimitWindow:     getDuration("CREATE_LIMIT_WINDOW", 15*time.Minute),
		SearchLimitPerMinute:  getInt("SEARCH_LIMIT_PER_MINUTE", 30),
		ReadLimitPerMinute:    getInt("READ_LIMIT_PER_MINUTE", 20),
		GeneralLimitPerWindow: getInt("GENERAL_LIMIT", 100),
		GeneralLimitWindow:    getDuration("GENERAL_LIMIT_WINDOW", 15*time.Minute),
	}
}

func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("Warning: invalid value for %s, using default %d", key, fallback)
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Warning: invalid value for %s, using default %s", key, fallback)
	}
	return fallback
}
