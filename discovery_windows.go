//go:build windows

package passthru

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// defaultDiscoverPort reads the serial port path from the platform
// registry subtree spec section 6 names:
// SOFTWARE\WOW6432Node\PassThruSupport.04.04\Macchina-Passthru, value
// COM-PORT. Grounded on golang.org/x/sys/windows/registry's standard
// OpenKey/GetStringValue pattern.
func defaultDiscoverPort() (string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE,
		`SOFTWARE\WOW6432Node\PassThruSupport.04.04\Macchina-Passthru`, registry.QUERY_VALUE)
	if err != nil {
		return "", fmt.Errorf("passthru: opening registry key: %w", err)
	}
	defer k.Close()
	path, _, err := k.GetStringValue("COM-PORT")
	if err != nil {
		return "", fmt.Errorf("passthru: reading COM-PORT value: %w", err)
	}
	if path == "" {
		return "", fmt.Errorf("passthru: COM-PORT value is empty")
	}
	return path, nil
}
