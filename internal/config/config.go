package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"local"` // local, dev, prod
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Payment    PaymentConfig    `yaml:"payment"`
	Checkout   CheckoutConfig   `yaml:"checkout"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

// DSN собирает строку подключения для lib/pq
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// URL - строка подключения в формате, который понимает golang-migrate
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string        `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL time.Duration `yaml:"token_ttl" env-default:"1h"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// PaymentConfig настройки платёжного шлюза; ключ Stripe только из окружения
type PaymentConfig struct {
	StripeSecretKey string `yaml:"-" env:"STRIPE_SECRET_KEY" env-required:"true"`
	Currency        string `yaml:"currency" env-default:"usd"`
	SuccessURL      string `yaml:"success_url" env-required:"true"`
	CancelURL       string `yaml:"cancel_url" env-required:"true"`
	Description     string `yaml:"description" env-default:"TOTEMBO order"`
}

// Stripe принимает expires_at от 30 минут до 24 часов после создания сессии.
// Сессия создаётся чуть позже начала оформления, поэтому нижняя граница с запасом.
const (
	MinSessionTTL = 31 * time.Minute
	MaxSessionTTL = 24 * time.Hour
)

type CheckoutConfig struct {
	// SessionTTL - сколько заказ может ждать оплаты, прежде чем резерв будет снят
	SessionTTL time.Duration `yaml:"session_ttl" env-default:"1h"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	var cfg Config
	mustRead(configPath, &cfg)
	if err := cfg.Validate(); err != nil {
		panic("invalid config " + configPath + ": " + err.Error())
	}
	return &cfg
}

// Validate проверяет значения, которые нельзя выразить тегами cleanenv
func (c *Config) Validate() error {
	ttl := c.Checkout.SessionTTL
	if ttl < MinSessionTTL || ttl > MaxSessionTTL {
		return fmt.Errorf("checkout.session_ttl %s is out of range [%s, %s]", ttl, MinSessionTTL, MaxSessionTTL)
	}
	return nil
}

// MustLoadSections читает из того же файла только нужные секции,
// например migrator'у не нужны ключи платёжного шлюза
func MustLoadSections(v any) {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	mustRead(configPath, v)
}

func mustRead(configPath string, v any) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}
	if err := cleanenv.ReadConfig(configPath, v); err != nil {
		log.Fatalf("can't read config file %s: %s", configPath, err)
	}
}
