package config

import (
	"fmt"
	"strings"
)

// Validate applies structural checks beyond YAML decoding.
func Validate(cfg AppConfig) error {
	if strings.TrimSpace(cfg.Gateway.BaseURL) == "" {
		return ErrMissingGateway
	}
	if !strings.HasPrefix(cfg.Gateway.BaseURL, "http://") && !strings.HasPrefix(cfg.Gateway.BaseURL, "https://") {
		return fmt.Errorf("gateway.baseURL must be http(s): %q", cfg.Gateway.BaseURL)
	}
	if cfg.Payment.StreamEndpoint != "" &&
		!strings.HasPrefix(cfg.Payment.StreamEndpoint, "ws://") &&
		!strings.HasPrefix(cfg.Payment.StreamEndpoint, "wss://") {
		return fmt.Errorf("payment.streamEndpoint must be ws(s): %q", cfg.Payment.StreamEndpoint)
	}
	if cfg.Payment.ServiceURL != "" &&
		!strings.HasPrefix(cfg.Payment.ServiceURL, "http://") &&
		!strings.HasPrefix(cfg.Payment.ServiceURL, "https://") {
		return fmt.Errorf("payment.serviceURL must be http(s): %q", cfg.Payment.ServiceURL)
	}
	if cfg.Payment.ConfirmTimeoutSec > cfg.Payment.FlowTimeoutSec {
		return fmt.Errorf("payment.confirmTimeoutSec (%d) must not exceed flowTimeoutSec (%d)",
			cfg.Payment.ConfirmTimeoutSec, cfg.Payment.FlowTimeoutSec)
	}
	return nil
}
