package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ConsoleConfig is the driftgate.toml schema. Zero values mean "unset"
// except Retention, where 0 keeps every manifest.
type ConsoleConfig struct {
	NodeID        string      `toml:"node_id"`
	Addr          string      `toml:"addr"`
	SharedSecret  string      `toml:"shared_secret"`
	ActorSalt     string      `toml:"actor_salt"`
	Retention     int         `toml:"retention"`
	GuardEnforced bool        `toml:"guard_enforced"`
	CorsOrigins   []string    `toml:"cors_origins"`
	HistoryPath   string      `toml:"history_path"`
	TLS           TLSConfig   `toml:"tls"`
	Audit         AuditConfig `toml:"audit"`
}

type TLSConfig struct {
	Enabled  bool   `toml:"enabled"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
}

type AuditConfig struct {
	LogEvents     bool   `toml:"log_events"`
	PubSubProject string `toml:"pubsub_project"`
	PubSubTopic   string `toml:"pubsub_topic"`
}

func LoadConsoleConfig(path string) (ConsoleConfig, error) {
	var cfg ConsoleConfig
	if err := loadToml(path, &cfg); err != nil {
		return ConsoleConfig{}, err
	}
	if cfg.NodeID == "" {
		cfg.NodeID = "console.local"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if err := ValidateConsoleConfig(cfg); err != nil {
		return ConsoleConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateConsoleConfig(cfg ConsoleConfig) error {
	if strings.TrimSpace(cfg.NodeID) == "" {
		return fmt.Errorf("console config missing node_id")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("console config missing addr")
	}
	if cfg.Retention < 0 {
		return fmt.Errorf("console config retention must be non-negative")
	}
	if cfg.TLS.Enabled {
		if strings.TrimSpace(cfg.TLS.CertFile) == "" {
			return fmt.Errorf("console config tls.cert_file required when tls is enabled")
		}
		if strings.TrimSpace(cfg.TLS.KeyFile) == "" {
			return fmt.Errorf("console config tls.key_file required when tls is enabled")
		}
	}
	project := strings.TrimSpace(cfg.Audit.PubSubProject)
	topic := strings.TrimSpace(cfg.Audit.PubSubTopic)
	if (project == "") != (topic == "") {
		return fmt.Errorf("console config audit.pubsub_project and audit.pubsub_topic must be set together")
	}
	return nil
}
