package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	CORS         CORSConfig
	Review       ReviewConfig
	Notification NotificationConfig
	Lottery      LotteryConfig
}

type ServerConfig struct {
	Port          string
	GinMode       string
	Environment   string
	PublicBaseURL string // 고객용 웹 주소 (알림 링크 생성용)
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host       string
	Port       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

// Enabled reports whether a Redis host is configured.
// Without Redis, flow sessions are kept in process memory.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

type CORSConfig struct {
	AllowedOrigins []string
}

type ReviewConfig struct {
	StoreTimeout          time.Duration // 저장소 호출 1회 제한 시간
	SideEffectTimeout     time.Duration // 보상/알림 백그라운드 작업 제한 시간
	ContactUpdateAttempts int
}

type NotificationConfig struct {
	Resend ResendConfig
	Twilio TwilioConfig
}

type ResendConfig struct {
	APIKey  string
	BaseURL string
	From    string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	BaseURL    string
	From       string
}

type LotteryConfig struct {
	DrawSchedule string // cron 표현식
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:          getEnv("SERVER_PORT", "8080"),
			GinMode:       getEnv("GIN_MODE", "debug"),
			Environment:   getEnv("ENVIRONMENT", "development"),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "tagreview"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:       getEnv("REDIS_HOST", ""),
			Port:       getEnv("REDIS_PORT", "6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         parseInt(getEnv("REDIS_DB", "0"), 0),
			SessionTTL: parseDuration(getEnv("FLOW_SESSION_TTL", "24h"), 24*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Review: ReviewConfig{
			StoreTimeout:          parseDuration(getEnv("REVIEW_STORE_TIMEOUT", "30s"), 30*time.Second),
			SideEffectTimeout:     parseDuration(getEnv("REVIEW_SIDE_EFFECT_TIMEOUT", "60s"), 60*time.Second),
			ContactUpdateAttempts: parseInt(getEnv("REVIEW_CONTACT_UPDATE_ATTEMPTS", "2"), 2),
		},
		Notification: NotificationConfig{
			Resend: ResendConfig{
				APIKey:  getEnv("RESEND_API_KEY", ""),
				BaseURL: getEnv("RESEND_BASE_URL", "https://api.resend.com"),
				From:    getEnv("RESEND_FROM", "TagReview <no-reply@tagreview.app>"),
			},
			Twilio: TwilioConfig{
				AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
				AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
				BaseURL:    getEnv("TWILIO_BASE_URL", "https://api.twilio.com"),
				From:       getEnv("TWILIO_FROM", ""),
			},
		},
		Lottery: LotteryConfig{
			DrawSchedule: getEnv("LOTTERY_DRAW_SCHEDULE", "0 9 1 * *"),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for i := 0; i < len(s); {
		end := i
		for end < len(s) && s[end] != ',' {
			end++
		}
		result = append(result, s[i:end])
		i = end + 1
	}
	return result
}
