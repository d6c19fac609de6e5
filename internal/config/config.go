package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port    int    `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SessionConfig struct {
	TTL string `yaml:"ttl"`
}

type OTPConfig struct {
	TTL          string `yaml:"ttl"`
	Length       int    `yaml:"length"`
	ResendWindow string `yaml:"resend_window"`
}

type PricingConfig struct {
	SignupGrant  int64   `yaml:"signup_grant"`
	LoginCost    int64   `yaml:"login_cost"`
	ExportCost   int64   `yaml:"export_cost"`
	TokensPerKES float64 `yaml:"tokens_per_kes"`
}

type SMSConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
	Timeout    string `yaml:"timeout"`
}

type MpesaConfig struct {
	BaseURL        string `yaml:"base_url"`
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
	Shortcode      string `yaml:"shortcode"`
	Passkey        string `yaml:"passkey"`
	CallbackURL    string `yaml:"callback_url"`
	Timeout        string `yaml:"timeout"`
}

type ConfigFile struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
	OTP      OTPConfig      `yaml:"otp"`
	Pricing  PricingConfig  `yaml:"pricing"`
	SMS      SMSConfig      `yaml:"sms"`
	Mpesa    MpesaConfig    `yaml:"mpesa"`
}

type Config struct {
	Port             string
	GinMode          string
	DSN              string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	SessionTTL       time.Duration
	OTP_TTL          time.Duration
	OTP_Length       int
	OTP_ResendWindow time.Duration
	SignupGrant      int64
	LoginCost        int64
	ExportCost       int64
	TokensPerKES     float64
	TwilioSID        string
	TwilioToken      string
	TwilioFrom       string
	SMSTimeout       time.Duration
	MpesaBaseURL     string
	MpesaKey         string
	MpesaSecret      string
	MpesaShortcode   string
	MpesaPasskey     string
	MpesaCallbackURL string
	MpesaTimeout     time.Duration
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads config/config.yml (overridable via CONFIG_PATH) and applies
// environment overrides for secrets.
func Load() (*Config, error) {
	path := env("CONFIG_PATH", "config/config.yml")
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	return fromFile(configFile)
}

func fromFile(f *ConfigFile) (*Config, error) {
	sessTTL, err := parseDuration(f.Session.TTL, 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid session TTL: %w", err)
	}

	otpTTL, err := parseDuration(f.OTP.TTL, 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP TTL: %w", err)
	}

	resWnd, err := parseDuration(f.OTP.ResendWindow, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP resend window: %w", err)
	}

	smsTimeout, err := parseDuration(f.SMS.Timeout, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SMS timeout: %w", err)
	}

	mpesaTimeout, err := parseDuration(f.Mpesa.Timeout, 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid M-PESA timeout: %w", err)
	}

	port := f.App.Port
	if port == 0 {
		port = 8080
	}

	cfg := &Config{
		Port:             env("PORT", fmt.Sprintf("%d", port)),
		GinMode:          f.App.GinMode,
		DSN:              env("DATABASE_DSN", f.Database.DSN),
		RedisAddr:        env("REDIS_ADDR", f.Redis.Addr),
		RedisPassword:    env("REDIS_PASSWORD", f.Redis.Password),
		RedisDB:          f.Redis.DB,
		SessionTTL:       sessTTL,
		OTP_TTL:          otpTTL,
		OTP_Length:       f.OTP.Length,
		OTP_ResendWindow: resWnd,
		SignupGrant:      f.Pricing.SignupGrant,
		LoginCost:        f.Pricing.LoginCost,
		ExportCost:       f.Pricing.ExportCost,
		TokensPerKES:     f.Pricing.TokensPerKES,
		TwilioSID:        env("TWILIO_ACCOUNT_SID", f.SMS.AccountSID),
		TwilioToken:      env("TWILIO_AUTH_TOKEN", f.SMS.AuthToken),
		TwilioFrom:       env("TWILIO_FROM_NUMBER", f.SMS.FromNumber),
		SMSTimeout:       smsTimeout,
		MpesaBaseURL:     env("MPESA_BASE_URL", f.Mpesa.BaseURL),
		MpesaKey:         env("MPESA_CONSUMER_KEY", f.Mpesa.ConsumerKey),
		MpesaSecret:      env("MPESA_CONSUMER_SECRET", f.Mpesa.ConsumerSecret),
		MpesaShortcode:   env("MPESA_SHORTCODE", f.Mpesa.Shortcode),
		MpesaPasskey:     env("MPESA_PASSKEY", f.Mpesa.Passkey),
		MpesaCallbackURL: env("MPESA_CALLBACK_URL", f.Mpesa.CallbackURL),
		MpesaTimeout:     mpesaTimeout,
	}

	// pricing defaults match the product's published table
	if cfg.OTP_Length == 0 {
		cfg.OTP_Length = 6
	}
	if cfg.SignupGrant == 0 {
		cfg.SignupGrant = 5
	}
	if cfg.LoginCost == 0 {
		cfg.LoginCost = 1
	}
	if cfg.ExportCost == 0 {
		cfg.ExportCost = 5
	}
	if cfg.TokensPerKES == 0 {
		cfg.TokensPerKES = 1
	}
	if cfg.MpesaBaseURL == "" {
		cfg.MpesaBaseURL = "https://sandbox.safaricom.co.ke"
	}

	return cfg, nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}
