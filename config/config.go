package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Config armazena todas as configurações do GoStore.
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string

	// Banco de Dados (PostgreSQL)
	DatabaseURL string
	DBTimeout   time.Duration

	// Redis: cache de produtos, carrinhos, rate limit e eventos
	RedisAddr    string
	CacheTimeout time.Duration
	CartTTL      time.Duration

	// Segurança (JWT)
	JWTSecretKey  string
	JWTIssuer     string
	TokenExpiry   time.Duration
	AdminEmail    string
	AdminPassword string

	// Rate Limiting
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration

	// Loja
	GCSBucket      string
	WhatsAppNumber string
	StoreName      string
}

// LoadConfig lê as configurações do ambiente. O .env, quando existir, já deve
// ter sido carregado pelo godotenv no main.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	// Valores padrão
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_TIMEOUT_SEC", 5)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("CACHE_TIMEOUT_SEC", 10)
	v.SetDefault("CART_TTL_MIN", 60*24*7)
	v.SetDefault("JWT_EXPIRY_MIN", 60)
	v.SetDefault("JWT_ISSUER", "gostore")
	v.SetDefault("RATE_LIMIT_MAX_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_PERIOD_MIN", 1)
	v.SetDefault("STORE_NAME", "GoStore")

	cfg := &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),

		DatabaseURL: v.GetString("DATABASE_URL"),
		DBTimeout:   time.Duration(v.GetInt("DB_TIMEOUT_SEC")) * time.Second,

		RedisAddr:    v.GetString("REDIS_ADDR"),
		CacheTimeout: time.Duration(v.GetInt("CACHE_TIMEOUT_SEC")) * time.Second,
		CartTTL:      time.Duration(v.GetInt("CART_TTL_MIN")) * time.Minute,

		JWTSecretKey:  v.GetString("JWT_SECRET_KEY"),
		JWTIssuer:     v.GetString("JWT_ISSUER"),
		TokenExpiry:   time.Duration(v.GetInt("JWT_EXPIRY_MIN")) * time.Minute,
		AdminEmail:    v.GetString("ADMIN_EMAIL"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),

		RateLimitMaxRequests: v.GetInt("RATE_LIMIT_MAX_REQUESTS"),
		RateLimitPeriod:      time.Duration(v.GetInt("RATE_LIMIT_PERIOD_MIN")) * time.Minute,

		GCSBucket:      v.GetString("GCS_BUCKET"),
		WhatsAppNumber: v.GetString("WHATSAPP_NUMBER"),
		StoreName:      v.GetString("STORE_NAME"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate impede a inicialização sem credenciais essenciais.
func (c *Config) validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("a variável de ambiente DATABASE_URL deve ser definida"))
	}
	if c.JWTSecretKey == "" {
		errs = append(errs, fmt.Errorf("a variável de ambiente JWT_SECRET_KEY deve ser definida"))
	}
	if c.AdminEmail != "" && len(c.AdminPassword) < 8 {
		errs = append(errs, fmt.Errorf("ADMIN_PASSWORD deve ter ao menos 8 caracteres quando ADMIN_EMAIL é definido"))
	}
	if c.DBTimeout <= 0 || c.CacheTimeout <= 0 || c.CartTTL <= 0 {
		errs = append(errs, fmt.Errorf("timeouts e TTLs devem ser positivos"))
	}
	return multierr.Combine(errs...)
}

// IsProduction informa se o ambiente é de produção.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
