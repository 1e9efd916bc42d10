package config

import "time"

type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	AppEnv     string `yaml:"app_env"`
	DBDriver   string `yaml:"db_driver"`
	DBURL      string `yaml:"db_url"`
	DBPath     string `yaml:"db_path"`

	JWTSecret       string        `yaml:"jwt_secret"`
	Pepper          string        `yaml:"pepper"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`

	Client        ClientConfig        `yaml:"client"`
	Security      SecurityConfig      `yaml:"security"`
	Observability ObservabilityConfig `yaml:"observability"`
	Maintenance   MaintenanceConfig   `yaml:"maintenance"`
}

// ClientConfig tunes the session manager that runs next to the UI:
// expiry margins, the background refresh loop and cross-tab sync.
type ClientConfig struct {
	BaseURL          string        `yaml:"base_url"`
	ExpiryMargin     time.Duration `yaml:"expiry_margin"`
	RefreshThreshold time.Duration `yaml:"refresh_threshold"`
	CheckInterval    time.Duration `yaml:"check_interval"`
	SyncThrottle     time.Duration `yaml:"sync_throttle"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`
}

type SecurityConfig struct {
	TrustedProxies []string `yaml:"trusted_proxies"`
	LoginBurst     int      `yaml:"login_burst"`
}

type ObservabilityConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsToken   string `yaml:"metrics_token"`
}

type MaintenanceConfig struct {
	Enabled       bool   `yaml:"enabled"`
	PurgeSchedule string `yaml:"purge_schedule"`
}
