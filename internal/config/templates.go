package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "console":
		return consoleTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const consoleTemplate = `node_id = "console.local"
addr = ":8080"

# Shared secret checked against the x-preview-signature header.
# An empty secret denies every guarded request.
shared_secret = "change-me"

# Salt mixed into operator and actor digests. Rotate to invalidate
# recorded hashes without touching callers.
actor_salt = "change-me-too"

# Number of manifests retained in history. 0 keeps everything.
retention = 5

# Block live remediations whose newest manifest lacks a passing rehearsal.
guard_enforced = false

cors_origins = ["http://localhost:3000"]

# Path to the bbolt history file. Empty runs fully in memory.
history_path = ""

[tls]
enabled = false
cert_file = ""
key_file = ""

[audit]
log_events = true
pubsub_project = ""
pubsub_topic = ""
`
