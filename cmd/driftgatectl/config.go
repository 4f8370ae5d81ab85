package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/contentops/driftgate/internal/config"
	"github.com/contentops/driftgate/internal/console"
)

// driftgatectl loader for TOML config with default overlay. Only keys
// present in the file replace built-in defaults, so retention = 0 and
// audit.log_events = false survive as deliberate choices.
func loadServiceConfig(path string) (console.ServiceConfig, error) {
	var raw config.ConsoleConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return console.ServiceConfig{}, fmt.Errorf("load console config: %w", err)
	}

	cfg := console.DefaultServiceConfig()
	overlay := raw.ServiceConfig()

	if meta.IsDefined("node_id") {
		cfg.NodeID = overlay.NodeID
	}
	if meta.IsDefined("addr") {
		cfg.ListenAddr = overlay.ListenAddr
	}
	if meta.IsDefined("shared_secret") {
		cfg.SharedSecret = overlay.SharedSecret
	}
	if meta.IsDefined("actor_salt") {
		cfg.ActorSalt = overlay.ActorSalt
	}
	if meta.IsDefined("retention") {
		cfg.Retention = overlay.Retention
	}
	if meta.IsDefined("guard_enforced") {
		cfg.GuardEnforced = overlay.GuardEnforced
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = overlay.CORSOrigins
	}
	if meta.IsDefined("history_path") {
		cfg.HistoryPath = overlay.HistoryPath
	}
	if meta.IsDefined("tls", "enabled") {
		cfg.TLS.Enabled = overlay.TLS.Enabled
	}
	if meta.IsDefined("tls", "cert_file") {
		cfg.TLS.CertFile = overlay.TLS.CertFile
	}
	if meta.IsDefined("tls", "key_file") {
		cfg.TLS.KeyFile = overlay.TLS.KeyFile
	}
	if meta.IsDefined("audit", "log_events") {
		cfg.Audit.LogEvents = overlay.Audit.LogEvents
	}
	if meta.IsDefined("audit", "pubsub_project") {
		cfg.Audit.PubSubProject = overlay.Audit.PubSubProject
	}
	if meta.IsDefined("audit", "pubsub_topic") {
		cfg.Audit.PubSubTopic = overlay.Audit.PubSubTopic
	}

	// Identity fields fall back to defaults; everything else validates
	// exactly as written.
	raw.NodeID = cfg.NodeID
	raw.Addr = cfg.ListenAddr
	if err := config.ValidateConsoleConfig(raw); err != nil {
		return console.ServiceConfig{}, err
	}
	return cfg, nil
}
