package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dchest/uniuri"
	"github.com/debankfi/debank/internal/provider"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         string        `yaml:"port"`
	Env          string        `yaml:"env"`
	Theme        string        `yaml:"theme"` // light or dark, the starting theme
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	Provider provider.Config `yaml:"provider"`

	// BuildDir holds the compiled contract artifacts with their deployments.
	BuildDir  string `yaml:"build_dir"`
	EventsDir string `yaml:"events_dir"`

	// SessionKey is the base64 (URL encoding) cookie signing key.
	SessionKey string `yaml:"session_key"`
}

// Load reads the optional YAML file named by DEBANK_CONFIG, then applies
// environment overrides and defaults.
func Load(getenv func(string) string) (Config, error) {
	var cfg Config

	if path := getenv("DEBANK_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	override := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	override(&cfg.Port, "PORT")
	override(&cfg.Env, "ENV")
	override(&cfg.Theme, "THEME")
	override(&cfg.Provider.RPCURL, "RPC_URL")
	override(&cfg.Provider.KeystoreDir, "KEYSTORE_DIR")
	override(&cfg.Provider.Account, "ACCOUNT")
	override(&cfg.Provider.PrivateKey, "PRIVATE_KEY")
	override(&cfg.BuildDir, "BUILD_DIR")
	override(&cfg.EventsDir, "EVENTS_DIR")
	override(&cfg.SessionKey, "SESSION_KEY")

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = time.Second * 5
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = time.Second * 30
	}
	if cfg.BuildDir == "" {
		cfg.BuildDir = "build/contracts"
	}
	if cfg.EventsDir == "" {
		cfg.EventsDir = "tmp/js"
	}

	if cfg.Theme != "" && cfg.Theme != "light" && cfg.Theme != "dark" {
		return Config{}, fmt.Errorf("config: unknown theme %q", cfg.Theme)
	}

	if cfg.SessionKey == "" {
		if cfg.Prod() {
			return Config{}, errors.New("config: missing SESSION_KEY environment variable")
		}
		// Dev only, cookies do not survive a restart.
		cfg.SessionKey = base64.URLEncoding.EncodeToString([]byte(uniuri.NewLen(32)))
	}
	return cfg, nil
}

func (c Config) Prod() bool {
	return c.Env == "prod"
}

// Key decodes SessionKey.
func (c Config) Key() ([]byte, error) {
	key, err := base64.URLEncoding.DecodeString(c.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("config: session key: %w", err)
	}
	return key, nil
}
