package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string
	Addr     string
	GRPCPort string

	JWTSecret  string
	SessionTTL time.Duration
	// memory | postgres | redis
	SessionStore string
	DatabaseURL  string
	RedisURL     string

	UserServiceURL       string
	GroupServiceURL      string
	IndividualServiceURL string
	SchedulerServiceURL  string
	UpstreamTimeout      time.Duration

	AllowedOrigins []string
	// proxies whose X-Forwarded-For is believed; empty trusts none
	TrustedProxies []string
	LoginRate      float64
	LoginBurst     int

	RollbarToken string
}

func defaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("ADDR", ":8080")
	v.SetDefault("GRPC_PORT", "50051")
	v.SetDefault("SESSION_TTL", 24*time.Hour)
	v.SetDefault("SESSION_STORE", "memory")
	v.SetDefault("USER_SERVICE_URL", "http://localhost:8081")
	v.SetDefault("GROUP_SERVICE_URL", "http://localhost:8082")
	v.SetDefault("INDIVIDUAL_SERVICE_URL", "http://localhost:8083")
	v.SetDefault("SCHEDULER_SERVICE_URL", "http://localhost:8084")
	v.SetDefault("UPSTREAM_TIMEOUT", 10*time.Second)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:4200")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("LOGIN_RATE", 5.0)
	v.SetDefault("LOGIN_BURST", 10)
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env loaded: %v", err)
	}
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	defaults(v)
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	c := &Config{
		Env:                  v.GetString("ENV"),
		Addr:                 v.GetString("ADDR"),
		GRPCPort:             v.GetString("GRPC_PORT"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		SessionTTL:           v.GetDuration("SESSION_TTL"),
		SessionStore:         strings.ToLower(v.GetString("SESSION_STORE")),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		RedisURL:             v.GetString("REDIS_URL"),
		UserServiceURL:       v.GetString("USER_SERVICE_URL"),
		GroupServiceURL:      v.GetString("GROUP_SERVICE_URL"),
		IndividualServiceURL: v.GetString("INDIVIDUAL_SERVICE_URL"),
		SchedulerServiceURL:  v.GetString("SCHEDULER_SERVICE_URL"),
		UpstreamTimeout:      v.GetDuration("UPSTREAM_TIMEOUT"),
		LoginRate:            v.GetFloat64("LOGIN_RATE"),
		LoginBurst:           v.GetInt("LOGIN_BURST"),
		RollbarToken:         v.GetString("ROLLBAR_TOKEN"),
	}
	c.AllowedOrigins = list(v.GetString("ALLOWED_ORIGINS"))
	c.TrustedProxies = list(v.GetString("TRUSTED_PROXIES"))

	if c.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	switch c.SessionStore {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres session store")
		}
	case "redis":
		if c.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for the redis session store")
		}
	default:
		return nil, errors.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}
	return c, nil
}

func list(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
