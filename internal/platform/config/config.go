package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string

	PostgresDSN string
	RedisAddr   string

	KafkaBrokers    []string
	AuditTopic      string
	AuditQueueSize  int
	ShutdownTimeout time.Duration

	InstrumentName     string
	InstrumentSymbol   string
	InstrumentKind     string
	MaturityDate       time.Time
	CouponRateBps      uint32
	AdminAddress       string
	SelfServiceEnabled bool

	IntakeRateLimit  int
	IntakeRateWindow time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:            envOr("XFTLEDGER_ADDR", ":8080"),
		JWTSigningKey:   envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		AuditTopic:      envOr("AUDIT_TOPIC", "xftledger.audit"),
		AuditQueueSize:  256,
		ShutdownTimeout: 10 * time.Second,

		InstrumentName:     envOr("INSTRUMENT_NAME", "XFT Short Term Bond"),
		InstrumentSymbol:   envOr("INSTRUMENT_SYMBOL", "XTBT"),
		InstrumentKind:     envOr("INSTRUMENT_KIND", "bond"),
		CouponRateBps:      425,
		AdminAddress:       os.Getenv("ADMIN_ADDRESS"),
		SelfServiceEnabled: os.Getenv("SELF_SERVICE_ENABLED") == "true",

		IntakeRateLimit:  120,
		IntakeRateWindow: time.Minute,
	}
	if raw := os.Getenv("INTAKE_RATE_LIMIT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.IntakeRateLimit = n
		}
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if raw := os.Getenv("MATURITY_DATE"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			cfg.MaturityDate = t
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
