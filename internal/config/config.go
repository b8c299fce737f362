// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RabbitURL               string `yaml:"rabbit_url" env:"RABBIT_URL"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Gateway                 `yaml:"gateway"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env-default:"0"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// JWTToken структура для работы с парой jwt-токенов.
// Access- и refresh-токены подписываются независимыми секретами.
type JWTToken struct {
	AccessSecretKey  string        `yaml:"access_secret_key" env:"JWT_SECRET" env-required:"true"`
	RefreshSecretKey string        `yaml:"refresh_secret_key" env:"JWT_REFRESH_SECRET" env-required:"true"`
	AccessTokenTTL   time.Duration `yaml:"access_token_ttl" env-default:"15m"`
	RefreshTokenTTL  time.Duration `yaml:"refresh_token_ttl" env-default:"168h"`
}

// Gateway структура с реквизитами платежного шлюза.
// Отсутствие ключей приводит к немедленному падению на старте,
// а не к ошибке при первом обращении к шлюзу.
type Gateway struct {
	APIKey         string        `yaml:"api_key" env:"PAYMENT_GATEWAY_API_KEY" env-required:"true"`
	SecretKey      string        `yaml:"secret_key" env:"PAYMENT_GATEWAY_SECRET" env-required:"true"`
	BaseURL        string        `yaml:"base_url" env:"PAYMENT_GATEWAY_URL" env-default:"https://api.paymentgateway.com"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"10s"`
}

// MustLoad функция для загрузки конфига, завершает процесс при любой ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  AccessTokenTTL: %s\n"+
			"  RefreshTokenTTL: %s\n"+
			"Gateway:\n"+
			"  BaseURL: %s\n"+
			"  RequestTimeout: %s\n",
		c.Env,
		c.StorageConnectionString,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.AccessTokenTTL,
		c.RefreshTokenTTL,
		c.BaseURL,
		c.RequestTimeout,
	)
}
