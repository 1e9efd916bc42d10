package config

import (
	"errors"
	"fmt"
)

func Validate(cfg *AppConfig) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if cfg.JWTSecret == "" {
		return errors.New("jwt_secret is required (PARCELDESK_JWT_SECRET)")
	}
	if len(cfg.JWTSecret) < 32 {
		return fmt.Errorf("jwt_secret too short: %d bytes, need at least 32", len(cfg.JWTSecret))
	}
	if cfg.Pepper == "" {
		return errors.New("pepper is required (PARCELDESK_PEPPER)")
	}
	if cfg.Client.RefreshThreshold <= cfg.Client.ExpiryMargin {
		return errors.New("client.refresh_threshold must be larger than client.expiry_margin")
	}
	if cfg.AccessTokenTTL <= cfg.Client.RefreshThreshold {
		return errors.New("access_token_ttl must exceed client.refresh_threshold or tokens refresh on every tick")
	}
	return nil
}
