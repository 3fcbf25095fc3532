// Package config предоставляет загрузку конфигурации из переменных окружения.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config содержит полную конфигурацию приложения.
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	MySQL    MySQLConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	Razorpay RazorpayConfig
	Shop     ShopConfig
	SMTP     SMTPConfig
	Jaeger   JaegerConfig
	Metrics  MetricsConfig
}

// AppConfig содержит общие настройки приложения.
type AppConfig struct {
	Name      string `env:"APP_NAME" envDefault:"craftshop"`
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// HTTPConfig содержит настройки HTTP сервера.
type HTTPConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	RateLimit       int           `env:"HTTP_RATE_LIMIT" envDefault:"100"`
	RateWindow      time.Duration `env:"HTTP_RATE_WINDOW" envDefault:"1m"`
	CORSOrigins     []string      `env:"HTTP_CORS_ORIGINS" envDefault:"*" envSeparator:","`
}

// Addr возвращает адрес для HTTP сервера.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// MySQLConfig содержит настройки подключения к MySQL.
type MySQLConfig struct {
	Host            string        `env:"MYSQL_HOST" envDefault:"localhost"`
	Port            int           `env:"MYSQL_PORT" envDefault:"3306"`
	User            string        `env:"MYSQL_USER" envDefault:"root"`
	Password        string        `env:"MYSQL_PASSWORD" envDefault:"root"`
	Database        string        `env:"MYSQL_DATABASE" envDefault:"craftshop"`
	MaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN возвращает строку подключения к MySQL.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// RedisConfig содержит настройки подключения к Redis.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Addr возвращает адрес Redis сервера.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig содержит настройки подключения к Kafka.
type KafkaConfig struct {
	Brokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	ConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"craftshop-effects"`
}

// JWTConfig содержит настройки JWT токенов администраторов (RS256).
// PrivateKeyPath нужен для выдачи токенов при логине,
// PublicKeyPath — для их валидации в middleware.
type JWTConfig struct {
	PrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH"`
	PublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH,required"`
	Issuer         string        `env:"JWT_ISSUER" envDefault:"craftshop"`
	AccessTokenTTL time.Duration `env:"JWT_ACCESS_TOKEN_TTL" envDefault:"12h"`
}

// RazorpayConfig содержит настройки платёжного шлюза.
// KeySecret используется и для Basic Auth, и для HMAC проверки подписи callback.
type RazorpayConfig struct {
	BaseURL   string        `env:"RAZORPAY_BASE_URL" envDefault:"https://api.razorpay.com/v1"`
	KeyID     string        `env:"RAZORPAY_KEY_ID,required"`
	KeySecret string        `env:"RAZORPAY_KEY_SECRET,required"`
	Timeout   time.Duration `env:"RAZORPAY_TIMEOUT" envDefault:"15s"`
}

// ShopConfig содержит бизнес-настройки магазина.
type ShopConfig struct {
	// CommissionBps — комиссия площадки в базисных пунктах (100 = 1%).
	// Вычитается при признании выручки.
	CommissionBps int64 `env:"SHOP_COMMISSION_BPS" envDefault:"0"`

	// RefundLockTTL — время жизни Redis-блокировки обработки возврата.
	RefundLockTTL time.Duration `env:"SHOP_REFUND_LOCK_TTL" envDefault:"2m"`

	// AdminEmail / AdminPasswordHash — учётные данные администратора (bcrypt hash).
	AdminEmail        string `env:"SHOP_ADMIN_EMAIL" envDefault:"admin@craftshop.local"`
	AdminPasswordHash string `env:"SHOP_ADMIN_PASSWORD_HASH,required"`
}

// SMTPConfig содержит настройки почтовых уведомлений.
// Пустой Host отключает SMTP — письма уходят в лог.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST" envDefault:""`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	From     string `env:"SMTP_FROM" envDefault:"orders@craftshop.local"`
	Password string `env:"SMTP_PASSWORD" envDefault:""`
}

// JaegerConfig содержит настройки трассировки Jaeger.
type JaegerConfig struct {
	Enabled  bool   `env:"JAEGER_ENABLED" envDefault:"true"`
	Host     string `env:"JAEGER_HOST" envDefault:"localhost"`
	OTLPPort int    `env:"JAEGER_OTLP_PORT" envDefault:"4317"` // OTLP gRPC порт
}

// OTLPEndpoint возвращает OTLP gRPC endpoint для Jaeger.
func (c JaegerConfig) OTLPEndpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.OTLPPort)
}

// MetricsConfig содержит настройки Prometheus метрик.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"` // Включить metrics endpoint
	Port    int  `env:"METRICS_PORT" envDefault:"9090"`    // Порт для /metrics
}

// Addr возвращает адрес для Metrics HTTP сервера.
func (c MetricsConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load загружает конфигурацию из переменных окружения.
// Опционально загружает .env файл, если он существует.
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файл не найден)
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return cfg, nil
}

// LoadFromFile загружает конфигурацию из указанного .env файла.
func LoadFromFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("ошибка загрузки .env файла %s: %w", path, err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return cfg, nil
}

// IsDevelopment возвращает true, если приложение запущено в development режиме.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction возвращает true, если приложение запущено в production режиме.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
