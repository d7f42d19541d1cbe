package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	AppBaseURL    string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	BcryptCost           int  `env:"BCRYPT_COST" envDefault:"10"`
	RequireVerifiedLogin bool `env:"REQUIRE_VERIFIED_LOGIN" envDefault:"false"`

	VerificationStore string        `env:"VERIFICATION_STORE" envDefault:"postgres"`
	VerifyCodeTTL     time.Duration `env:"VERIFY_CODE_TTL" envDefault:"72h"`
	ResetCodeTTL      time.Duration `env:"RESET_CODE_TTL" envDefault:"1h"`
	ResetRateLimit    int           `env:"RESET_RATE_LIMIT" envDefault:"3"`
	ResetRateWindow   time.Duration `env:"RESET_RATE_WINDOW" envDefault:"10m"`

	SMTPHost        string        `env:"SMTP_HOST"`
	SMTPPort        int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser        string        `env:"SMTP_USER"`
	SMTPPass        string        `env:"SMTP_PASS"`
	SMTPFrom        string        `env:"SMTP_FROM"`
	SMTPFromName    string        `env:"SMTP_FROM_NAME"`
	SMTPUseTLS      bool          `env:"SMTP_USE_TLS" envDefault:"false"`
	SMTPSendTimeout time.Duration `env:"SMTP_SEND_TIMEOUT" envDefault:"15s"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Backends soportados para el almacén de códigos de verificación.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
