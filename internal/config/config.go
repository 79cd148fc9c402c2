// config - источник загрузки конфигурации клиента портала.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	API      APIConfig     `yaml:"api"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
	Access   AccessConfig  `yaml:"access"`
	Device   DeviceConfig  `yaml:"device"`
	Storage  StorageConfig `yaml:"storage"`
	Breaker  BreakerConfig `yaml:"breaker"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// APIConfig — адрес бэкенда и признаки окружения, из которых он выводится.
//
// OriginHost/OriginPort играют роль location.hostname/location.port браузера:
// для CLI это «откуда» запущен клиент.
type APIConfig struct {
	BaseURL    string   `yaml:"base_url"    env:"API_BASE_URL"`
	Mode       string   `yaml:"mode"        env:"APP_MODE"    env-default:"production"`
	OriginHost string   `yaml:"origin_host" env:"ORIGIN_HOST"`
	OriginPort string   `yaml:"origin_port" env:"ORIGIN_PORT"`
	DevPorts   []string `yaml:"dev_ports"   env:"DEV_PORTS"   env-default:"5173,5174,4173,3000" env-separator:","`
	DevURL     string   `yaml:"dev_url"     env:"API_DEV_URL" env-default:"http://localhost:4000/api/v1"`
	ProdURL    string   `yaml:"prod_url"    env:"API_PROD_URL" env-default:"https://api.socrates-edu.com/api/v1"`
	LoginRoute string   `yaml:"login_route" env:"LOGIN_ROUTE" env-default:"/login"`
}

// TimeoutConfig — таймауты исходящих вызовов.
type TimeoutConfig struct {
	Request time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"30s"`
	Refresh time.Duration `yaml:"refresh" env:"REFRESH_TIMEOUT" env-default:"15s"`
}

// AccessConfig — параметры проверки доступа к курсу.
type AccessConfig struct {
	PollInterval        time.Duration `yaml:"poll_interval"        env:"ACCESS_POLL_INTERVAL" env-default:"60s"`
	PurchaseConcurrency int           `yaml:"purchase_concurrency" env:"PURCHASE_CONCURRENCY" env-default:"6"`
}

// DeviceConfig — то, что браузер знает о себе сам, а CLI получает из конфига.
type DeviceConfig struct {
	Screen    string `yaml:"screen"     env:"DEVICE_SCREEN"     env-default:"unknown"`
	UserAgent string `yaml:"user_agent" env:"DEVICE_USER_AGENT" env-default:"socrates-portal-client"`
}

// StorageConfig — где хранится состояние клиента (аналог localStorage).
type StorageConfig struct {
	Driver   string `yaml:"driver"    env:"STORAGE_DRIVER"    env-default:"file"`
	Path     string `yaml:"path"      env:"STORAGE_PATH"      env-default:".portal-client.json"`
	RedisURL string `yaml:"redis_url" env:"STORAGE_REDIS_URL"`
	Prefix   string `yaml:"prefix"    env:"STORAGE_PREFIX"    env-default:"portal:ls:"`
}

// BreakerConfig — circuit breaker вокруг транспорта.
type BreakerConfig struct {
	Disabled     bool          `yaml:"disabled"      env:"BREAKER_DISABLED"`
	MaxRequests  uint32        `yaml:"max_requests"  env:"BREAKER_MAX_REQUESTS"  env-default:"5"`
	Interval     time.Duration `yaml:"interval"      env:"BREAKER_INTERVAL"      env-default:"30s"`
	Timeout      time.Duration `yaml:"timeout"       env:"BREAKER_TIMEOUT"       env-default:"10s"`
	FailureRatio float64       `yaml:"failure_ratio" env:"BREAKER_FAILURE_RATIO" env-default:"0.6"`
	MinRequests  uint32        `yaml:"min_requests"  env:"BREAKER_MIN_REQUESTS"  env-default:"5"`
}

// MetricsConfig — HTTP для Prometheus (используется командой watch).
type MetricsConfig struct {
	Host string `yaml:"host" env:"METRICS_HOST" env-default:"127.0.0.1"`
	Port string `yaml:"port" env:"METRICS_PORT"`
}

// Addr пустой, если порт не задан: метрики тогда не публикуются.
func (m MetricsConfig) Addr() string {
	if m.Port == "" {
		return ""
	}

	return net.JoinHostPort(m.Host, m.Port)
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
