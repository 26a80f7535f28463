package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"marketplace-client-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string        `yaml:"env"`
	Gateway GatewayConfig `yaml:"gateway"`
	Payment PaymentConfig `yaml:"payment"`
	Store   StoreConfig   `yaml:"store"`
	Logger  logger.Config `yaml:"logger"`
	Metrics MetricsConfig `yaml:"metrics"`
	Alert   AlertConfig   `yaml:"alert"`
}

// GatewayConfig 订单服务网关配置。
type GatewayConfig struct {
	BaseURL   string  `yaml:"baseURL"`
	APIKey    string  `yaml:"apiKey"`
	RateLimit float64 `yaml:"rateLimit"` // 每秒请求数
	RateBurst int     `yaml:"rateBurst"`
}

// PaymentConfig 支付服务配置。
type PaymentConfig struct {
	ServiceURL        string `yaml:"serviceURL"`     // 转账提交端点
	StreamEndpoint    string `yaml:"streamEndpoint"` // 结果流 WebSocket 端点
	ConfirmTimeoutSec int    `yaml:"confirmTimeoutSec"`
	FlowTimeoutSec    int    `yaml:"flowTimeoutSec"`
}

// StoreConfig 本地标志存储配置。
type StoreConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig 指标服务配置。
type MetricsConfig struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

// AlertConfig 告警配置。
type AlertConfig struct {
	WebhookURL      string `yaml:"webhookURL"`
	ThrottleSeconds int    `yaml:"throttleSeconds"`
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads the file then lets environment variables
// override secrets so they can stay out of the YAML.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("MARKETPLACE_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("MARKETPLACE_GATEWAY_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Logger.Level == "" {
		cfg.Logger = logger.DefaultConfig()
	}
	if cfg.Gateway.RateLimit <= 0 {
		cfg.Gateway.RateLimit = 10
	}
	if cfg.Gateway.RateBurst <= 0 {
		cfg.Gateway.RateBurst = 20
	}
	if cfg.Payment.ConfirmTimeoutSec <= 0 {
		cfg.Payment.ConfirmTimeoutSec = 90
	}
	if cfg.Payment.FlowTimeoutSec <= 0 {
		cfg.Payment.FlowTimeoutSec = 120
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "data/flags.json"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9102"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "marketplace"
	}
	if cfg.Alert.ThrottleSeconds <= 0 {
		cfg.Alert.ThrottleSeconds = 60
	}
}

// ErrMissingGateway indicates the order service endpoint is not configured.
var ErrMissingGateway = errors.New("gateway.baseURL is required")
