package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string
	PublicURL   string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Payment gateway configuration
	GatewayBaseURL   string
	GatewaySecretKey string
	WebhookSecret    string
	GatewayTimeout   time.Duration

	// Booking policy
	Currency           string
	ServiceFeePercent  float64
	CancelCutoffHours  int
	RefundLadder       RefundLadder
	ReservationTTL     time.Duration
	SweepInterval      time.Duration
	AvailabilityTTL    time.Duration
	MaxTicketsPerOrder int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUUID         string

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

// RefundLadder holds the partial-policy percentages per time-to-event band.
// Evaluated at cancellation time, not at booking time.
type RefundLadder struct {
	Over7Days float64
	Over3Days float64
	Over1Day  float64
	Under1Day float64
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),
		PublicURL:   getEnv("PUBLIC_URL", "http://localhost:8090"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// Payment gateway
		GatewayBaseURL:   getEnv("GATEWAY_BASE_URL", "https://api.paystack.co"),
		GatewaySecretKey: getEnv("GATEWAY_SECRET_KEY", ""),
		WebhookSecret:    getEnv("WEBHOOK_SECRET", ""),
		GatewayTimeout:   getEnvAsDuration("GATEWAY_TIMEOUT", "15s"),

		// Booking policy
		Currency:           getEnv("CURRENCY", "NGN"),
		ServiceFeePercent:  getEnvAsFloat("SERVICE_FEE_PERCENT", 3),
		CancelCutoffHours:  getEnvAsInt("CANCEL_CUTOFF_HOURS", 24),
		ReservationTTL:     getEnvAsDuration("RESERVATION_TTL", "30m"),
		SweepInterval:      getEnvAsDuration("SWEEP_INTERVAL", "1m"),
		AvailabilityTTL:    getEnvAsDuration("AVAILABILITY_TTL", "5s"),
		MaxTicketsPerOrder: getEnvAsInt("MAX_TICKETS_PER_ORDER", 10),
		RefundLadder: RefundLadder{
			Over7Days: getEnvAsFloat("REFUND_OVER_7_DAYS", 90),
			Over3Days: getEnvAsFloat("REFUND_OVER_3_DAYS", 70),
			Over1Day:  getEnvAsFloat("REFUND_OVER_1_DAY", 50),
			Under1Day: getEnvAsFloat("REFUND_UNDER_1_DAY", 30),
		},

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUUID:         getEnv("PUBNUB_UUID", "tickethub-server"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
