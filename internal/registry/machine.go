package registry

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// machineIDFile is the persisted machine identifier, relative to the
// config directory.
const machineIDFile = "machine_id"

// MachineID returns a stable identifier for this machine, of the form
// "<hostname>-<hex8>". It is generated once and persisted so claims made
// by this machine survive restarts. A persist failure is non-fatal; the
// generated ID is still returned for the current session.
func MachineID(configDir string) string {
	path := filepath.Join(configDir, machineIDFile)

	if raw, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id
		}
	}

	id := MachineName() + "-" + uuid.NewString()[:8]
	if err := os.MkdirAll(configDir, 0o755); err == nil {
		_ = os.WriteFile(path, []byte(id), 0o644)
	}
	return id
}

// MachineName returns the human-readable host name.
func MachineName() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "unknown-device"
	}
	return name
}
