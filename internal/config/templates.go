package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "node":
		return nodeTemplate, nil
	case "client":
		return clientTemplate, nil
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

const nodeTemplate = `name = "pktnode"
addr = ":7400"
admin_addr = "127.0.0.1:7401"
cors_origins = ["http://localhost:3000"]
packets = ["ping", "pong", "echo"]

[session]
codec = "json"
handler_mode = "inline"
max_buffer_bytes = 4000000
response_timeout_ms = 5000
write_timeout_ms = 15000
write_yield_ms = 10
queue_capacity = 0
`

const clientTemplate = `addr = "127.0.0.1:7400"

[session]
codec = "json"
response_timeout_ms = 5000
connect_timeout_ms = 5000
connect_attempts = 5
`
