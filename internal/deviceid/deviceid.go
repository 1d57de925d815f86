// Package deviceid persists a per-install identifier, logged at
// startup to correlate logs across restarts without wiring up
// telemetry (out of scope).
package deviceid

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/naripok/complete-coordinator/internal/logger"
)

// LoadOrCreate reads a persistent device ID from stateDir/device_id,
// or generates and stores a new UUID if the file doesn't exist.
func LoadOrCreate(stateDir string) string {
	if stateDir == "" {
		return uuid.New().String()
	}

	path := filepath.Join(stateDir, "device_id")

	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id
		}
	}

	id := uuid.New().String()
	if err := os.WriteFile(path, []byte(id), 0644); err != nil {
		logger.Warn("failed to write device_id: %v", err)
	}
	return id
}
