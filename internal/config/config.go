package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL string // あれば POSTGRES_* より優先

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	JWTSecret string // JWT署名シークレット

	GoEnv string // dev/prod

	// 任意。空なら no-op / メモリ実装
	Redis    RedisConfig
	SMTP     SMTPConfig
	MinIO    MinIOConfig
	RabbitMQ string

	ESewa    ESewaConfig
	Khalti   KhaltiConfig
	Payment  PaymentURLs
	Shipping ShippingConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// 公開URLのベース（空なら endpoint から組み立てる）
	PublicURL string
}

type ESewaConfig struct {
	ProductCode string
	SecretKey   string
	FormURL     string
}

type KhaltiConfig struct {
	SecretKey string
	BaseURL   string
}

type PaymentURLs struct {
	SuccessURL string
	FailureURL string
	WebsiteURL string
}

type ShippingConfig struct {
	ValleyPrice  int64
	OutsidePrice int64
	Carrier      string
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// 接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port:        os.Getenv("PORT"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		GoEnv:     os.Getenv("GO_ENV"),

		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getenv("SMTP_FROM", "no-reply@localhost"),
		},
		MinIO: MinIOConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getenv("MINIO_BUCKET", "storefront"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
			PublicURL: os.Getenv("MINIO_PUBLIC_URL"),
		},
		RabbitMQ: os.Getenv("RABBITMQ_URL"),

		ESewa: ESewaConfig{
			ProductCode: getenv("ESEWA_PRODUCT_CODE", "EPAYTEST"),
			SecretKey:   os.Getenv("ESEWA_SECRET_KEY"),
			FormURL:     getenv("ESEWA_FORM_URL", "https://rc-epay.esewa.com.np/api/epay/main/v2/form"),
		},
		Khalti: KhaltiConfig{
			SecretKey: os.Getenv("KHALTI_SECRET_KEY"),
			BaseURL:   getenv("KHALTI_BASE_URL", "https://a.khalti.com/api/v2"),
		},
		Payment: PaymentURLs{
			SuccessURL: getenv("PAYMENT_SUCCESS_URL", "http://localhost:3000/payment/success"),
			FailureURL: getenv("PAYMENT_FAILURE_URL", "http://localhost:3000/payment/failure"),
			WebsiteURL: getenv("WEBSITE_URL", "http://localhost:3000"),
		},
		Shipping: ShippingConfig{
			Carrier: getenv("SHIPPING_CARRIER", "Nepal Can Move"),
		},
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.DatabaseURL == "" {
		pgPort, err := mustAtoi("POSTGRES_PORT")
		if err != nil {
			return Config{}, err
		}
		cfg.PostgresPort = pgPort

		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.PostgresPassword == "" {
			return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
		if cfg.PostgresHost == "" {
			return Config{}, fmt.Errorf("POSTGRES_HOST is required")
		}
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	//任意の数値
	var err error
	if cfg.Redis.DB, err = atoiDefault("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.SMTP.Port, err = atoiDefault("SMTP_PORT", 587); err != nil {
		return Config{}, err
	}
	valley, err := atoiDefault("SHIPPING_PRICE_VALLEY", 100)
	if err != nil {
		return Config{}, err
	}
	outside, err := atoiDefault("SHIPPING_PRICE_OUTSIDE", 100)
	if err != nil {
		return Config{}, err
	}
	if valley < 0 || outside < 0 {
		return Config{}, fmt.Errorf("SHIPPING_PRICE_* must not be negative")
	}
	cfg.Shipping.ValleyPrice = int64(valley)
	cfg.Shipping.OutsidePrice = int64(outside)

	cfg.Port = strings.TrimPrefix(cfg.Port, ":")
	return cfg, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func atoiDefault(key string, def int) (int, error) {
	if os.Getenv(key) == "" {
		return def, nil
	}
	return mustAtoi(key)
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
