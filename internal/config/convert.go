package config

import (
	"strings"

	"github.com/contentops/driftgate/internal/console"
)

// ServiceConfig maps file settings onto console runtime settings.
func (c ConsoleConfig) ServiceConfig() console.ServiceConfig {
	return console.ServiceConfig{
		NodeID:        strings.TrimSpace(c.NodeID),
		ListenAddr:    strings.TrimSpace(c.Addr),
		SharedSecret:  c.SharedSecret,
		ActorSalt:     c.ActorSalt,
		Retention:     c.Retention,
		GuardEnforced: c.GuardEnforced,
		CORSOrigins:   append([]string(nil), c.CorsOrigins...),
		HistoryPath:   strings.TrimSpace(c.HistoryPath),
		TLS: console.TLSConfig{
			Enabled:  c.TLS.Enabled,
			CertFile: strings.TrimSpace(c.TLS.CertFile),
			KeyFile:  strings.TrimSpace(c.TLS.KeyFile),
		},
		Audit: console.AuditConfig{
			LogEvents:     c.Audit.LogEvents,
			PubSubProject: strings.TrimSpace(c.Audit.PubSubProject),
			PubSubTopic:   strings.TrimSpace(c.Audit.PubSubTopic),
		},
	}
}
