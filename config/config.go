package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Redis   RedisConfig   `yaml:"redis"`
	Auth    AuthConfig    `yaml:"auth"`
	Payment PaymentConfig `yaml:"payment"`
	Media   MediaConfig   `yaml:"media"`
	Mail    MailConfig    `yaml:"mail"`
	Log     LogConfig     `yaml:"log"`
	Voucher VoucherConfig `yaml:"voucher"`
}

type HTTPConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Addr is the listen address, always with a leading colon.
func (h HTTPConfig) Addr() string {
	if h.Port == "" {
		return ":8080"
	}
	if h.Port[0] != ':' {
		return ":" + h.Port
	}
	return h.Port
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type PaymentConfig struct {
	BaseURL       string `yaml:"base_url"`
	KeyID         string `yaml:"key_id"`
	KeySecret     string `yaml:"key_secret"`
	WebhookSecret string `yaml:"webhook_secret"`
	Currency      string `yaml:"currency"`
}

type MediaConfig struct {
	BaseURL      string `yaml:"base_url"`
	CloudName    string `yaml:"cloud_name"`
	UploadPreset string `yaml:"upload_preset"`
	MaxWidth     int    `yaml:"max_width"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Enabled is false when no SMTP host is configured; mail is then only logged.
func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type VoucherConfig struct {
	// signs the QR payload printed on vouchers
	Secret string `yaml:"secret"`
}

func Defaults() Config {
	return Config{
		HTTP:    HTTPConfig{Port: ":8080", CORSOrigins: []string{"*"}},
		Mongo:   MongoConfig{URI: "mongodb://localhost:27017", Database: "wanderlust"},
		Redis:   RedisConfig{Addr: "localhost:6379"},
		Payment: PaymentConfig{BaseURL: "https://api.razorpay.com/v1", Currency: "INR"},
		Media:   MediaConfig{BaseURL: "https://api.cloudinary.com/v1_1", MaxWidth: 1920},
		Mail:    MailConfig{Port: 587, From: "bookings@wanderlust.local"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads .env (if any), then the YAML file at path (if any), then applies
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if cfg.Voucher.Secret == "" {
		cfg.Voucher.Secret = cfg.Auth.JWTSecret
	}
	return &cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("PORT", &cfg.HTTP.Port)
	str("MONGO_URI", &cfg.Mongo.URI)
	str("MONGO_DB", &cfg.Mongo.Database)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	str("AUTH_ISSUER", &cfg.Auth.Issuer)
	str("PAYMENT_BASE_URL", &cfg.Payment.BaseURL)
	str("PAYMENT_KEY_ID", &cfg.Payment.KeyID)
	str("PAYMENT_KEY_SECRET", &cfg.Payment.KeySecret)
	str("PAYMENT_WEBHOOK_SECRET", &cfg.Payment.WebhookSecret)
	str("PAYMENT_CURRENCY", &cfg.Payment.Currency)
	str("MEDIA_BASE_URL", &cfg.Media.BaseURL)
	str("MEDIA_CLOUD_NAME", &cfg.Media.CloudName)
	str("MEDIA_UPLOAD_PRESET", &cfg.Media.UploadPreset)
	str("SMTP_HOST", &cfg.Mail.Host)
	str("SMTP_USER", &cfg.Mail.User)
	str("SMTP_PASSWORD", &cfg.Mail.Password)
	str("MAIL_FROM", &cfg.Mail.From)
	str("VOUCHER_SECRET", &cfg.Voucher.Secret)
	str("LOG_LEVEL", &cfg.Log.Level)

	for key, dst := range map[string]*int{
		"REDIS_DB":        &cfg.Redis.DB,
		"MEDIA_MAX_WIDTH": &cfg.Media.MaxWidth,
		"SMTP_PORT":       &cfg.Mail.Port,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.HTTP.CORSOrigins = origins
	}
	if v, ok := lookup("LOG_PRETTY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		cfg.Log.Pretty = b
	}
	return nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.Mongo.URI == "" || c.Mongo.Database == "" {
		errs = append(errs, errors.New("mongo uri and database are required"))
	}
	if c.Payment.KeyID == "" || c.Payment.KeySecret == "" {
		errs = append(errs, errors.New("PAYMENT_KEY_ID and PAYMENT_KEY_SECRET are required"))
	}
	return errors.Join(errs...)
}
