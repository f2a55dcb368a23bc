// Package config loads process configuration from the environment, with an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/Zhima-Mochi/readify/internal/domain/otp"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	App      App
	Storage  Storage
	JWT      JWT
	Password Password
	OTP      OTP
	VNPay    VNPay
	Mail     Mail
	Media    Media
	Rate     Rate

	PendingTTLMinutes int `env:"PENDING_REGISTRATION_EXPIRES_IN_MINUTES,default=15"`
}

type App struct {
	ServiceName string `env:"SERVICE_NAME,default=readify"`
	Env         string `env:"ENV,default=dev"`
	HTTPAddr    string `env:"HTTP_ADDR,default=:8080"`
	FrontendURL string `env:"FRONTEND_URL,default=http://localhost:3000"`
}

type Storage struct {
	Store            string `env:"STORE,default=memory"`
	MongoURI         string `env:"MONGODB_URI"`
	MongoDatabase    string `env:"MONGODB_DATABASE,default=readify"`
	RedisAddr        string `env:"REDIS_ADDR"`
	RedisPassword    string `env:"REDIS_PASSWORD"`
	RabbitMQURL      string `env:"RABBITMQ_URL"`
	TemporalHostPort string `env:"TEMPORAL_HOSTPORT"`
}

type JWT struct {
	AccessSecret      string `env:"ACCESS_TOKEN_SECRET"`
	RefreshSecret     string `env:"REFRESH_TOKEN_SECRET"`
	AccessTTLSeconds  int    `env:"ACCESS_TOKEN_EXPIRES_IN,default=900"`
	RefreshTTLSeconds int    `env:"REFRESH_TOKEN_EXPIRES_IN,default=604800"`
}

func (j JWT) AccessTTL() time.Duration  { return time.Duration(j.AccessTTLSeconds) * time.Second }
func (j JWT) RefreshTTL() time.Duration { return time.Duration(j.RefreshTTLSeconds) * time.Second }

type Password struct {
	BcryptCost int `env:"BCRYPT_COST,default=10"`
}

type OTP struct {
	ExpiresInMinutes int           `env:"OTP_EXPIRES_IN_MINUTES,default=5"`
	Cooldown         time.Duration `env:"OTP_COOLDOWN,default=60s"`
	Block            time.Duration `env:"OTP_BLOCK,default=15m"`
	MaxResend        int           `env:"OTP_MAX_RESEND_COUNT,default=10"`
	MaxAttempts      int           `env:"OTP_MAX_ATTEMPTS,default=10"`
}

func (o OTP) Policy() otp.Policy {
	return otp.Policy{
		TTL:         time.Duration(o.ExpiresInMinutes) * time.Minute,
		Cooldown:    o.Cooldown,
		Block:       o.Block,
		MaxResend:   o.MaxResend,
		MaxAttempts: o.MaxAttempts,
	}
}

type VNPay struct {
	TmnCode     string        `env:"VNPAY_TMN_CODE"`
	SecretKey   string        `env:"VNPAY_SECRET_KEY"`
	URL         string        `env:"VNPAY_URL,default=https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	ReturnURL   string        `env:"VNPAY_RETURN_URL,default=http://localhost:8080/payment/vnpay/return"`
	IPNURL      string        `env:"VNPAY_IPN_URL"`
	ExpireAfter time.Duration `env:"VNPAY_EXPIRE_AFTER,default=15m"`
}

type Mail struct {
	From     string `env:"MAIL_FROM,default=no-reply@readify.local"`
	SMTPAddr string `env:"SMTP_ADDR"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
}

type Media struct {
	TempTTL         time.Duration `env:"MEDIA_TEMP_TTL,default=24h"`
	CleanupSchedule string        `env:"MEDIA_CLEANUP_SCHEDULE,default=@hourly"`
}

type Rate struct {
	RPS   float64 `env:"RATE_LIMIT_RPS,default=5"`
	Burst int     `env:"RATE_LIMIT_BURST,default=10"`
}

func (c Config) PendingTTL() time.Duration {
	return time.Duration(c.PendingTTLMinutes) * time.Minute
}

// Load reads envFile when it exists and decodes the environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
			}
		}
	}
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Store {
	case StoreMemory:
	case StoreMongo:
		if c.Storage.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required when STORE=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE must be %q or %q, got %q", StoreMongo, StoreMemory, c.Storage.Store))
	}
	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required"))
	}
	if c.JWT.AccessSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("access and refresh secrets must differ"))
	}
	if c.JWT.AccessTTLSeconds <= 0 || c.JWT.RefreshTTLSeconds <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.Rate.RPS <= 0 || c.Rate.Burst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// VNPayEnabled reports whether online payment can be offered.
func (c Config) VNPayEnabled() bool {
	return c.VNPay.TmnCode != "" && c.VNPay.SecretKey != ""
}
