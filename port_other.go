//go:build !linux

package passthru

import (
	"fmt"

	"github.com/tarm/serial"
)

// openSerialPort opens the device path via github.com/tarm/serial, the
// serial library used across most of the rest of the retrieval pack
// (seedhammer-seedhammer, rinzlerlabs-gomodbus, kstaniek-go-ampio-server,
// serebryakov7-j1708-stats). tarm/serial has no hardware flow control
// knob, so on platforms other than Linux the port is opened at the
// required baud/word size but without CRTSCTS — see DESIGN.md.
func openSerialPort(path string) (serialPort, error) {
	cfg := &serial.Config{
		Name:        path,
		Baud:        portBaud,
		Size:        portDataBits,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: portReadTimeout,
	}
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("passthru: open %s: %w", path, err)
	}
	return port, nil
}
