// Package config loads server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "NEXPOS_"

// Config holds all server settings. Every field can be overridden with
// a NEXPOS_ environment variable, e.g. NEXPOS_HTTP_PORT or
// NEXPOS_STORE_BACKEND.
type Config struct {
	HTTP  HTTPConfig  `koanf:"http"`
	Auth  AuthConfig  `koanf:"auth"`
	Tax   TaxConfig   `koanf:"tax"`
	Store StoreConfig `koanf:"store"`
	UPI   UPIConfig   `koanf:"upi"`
}

type HTTPConfig struct {
	Port           int      `koanf:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret" validate:"required"`
}

type TaxConfig struct {
	Percent float64 `koanf:"percent" validate:"min=0,max=100"`
}

// StoreConfig selects the persistence backend. "memory" keeps all
// state in process and is meant for development and tests; "rtdb"
// persists to Firebase Realtime Database.
type StoreConfig struct {
	Backend         string        `koanf:"backend" validate:"oneof=memory rtdb"`
	DatabaseURL     string        `koanf:"database_url" validate:"required_if=Backend rtdb"`
	CredentialsPath string        `koanf:"credentials_path"`
	PollInterval    time.Duration `koanf:"poll_interval"`
}

// UPIConfig configures payment QR code generation.
type UPIConfig struct {
	VPA       string `koanf:"vpa"`
	PayeeName string `koanf:"payee_name"`
	QRSize    int    `koanf:"qr_size" validate:"min=64,max=2048"`
	QRLevel   string `koanf:"qr_level" validate:"oneof=L M Q H"`
}

func defaults() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Tax:   TaxConfig{Percent: 5},
		Store: StoreConfig{Backend: "memory", PollInterval: time.Second},
		UPI:   UPIConfig{PayeeName: "NexPOS", QRSize: 256, QRLevel: "M"},
	}
}

// Load reads the YAML file at path (skipped if path is empty or the
// file does not exist), applies NEXPOS_ environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	// NEXPOS_STORE_BACKEND=rtdb -> store.backend=rtdb
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			key = strings.Replace(key, "_", ".", 1)
			if strings.Contains(value, ",") {
				return key, strings.Split(value, ",")
			}
			return key, value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
