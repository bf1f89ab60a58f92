//go:build linux

package passthru

import (
	"fmt"

	goserial "github.com/daedaluz/goserial"
)

// openSerialPort opens the device path with the exact settings spec
// section 6 mandates, including hardware flow control — the one thing
// github.com/tarm/serial cannot express. goserial's Termios2 gives
// direct access to CRTSCTS, grounded on Daedaluz-goserial's own
// MakeRaw/SetSpeed/SetAttr2 sequence in port_linux.go.
func openSerialPort(path string) (serialPort, error) {
	port, err := goserial.Open(path, goserial.NewOptions().SetReadTimeout(portReadTimeout))
	if err != nil {
		return nil, fmt.Errorf("passthru: open %s: %w", path, err)
	}
	attrs, err := port.GetAttr2()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("passthru: get termios for %s: %w", path, err)
	}
	attrs.MakeRaw()
	attrs.SetSpeed(goserial.B500000)
	attrs.Cflag |= goserial.CREAD | goserial.CLOCAL | goserial.CRTSCTS
	if err := port.SetAttr2(goserial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("passthru: set termios for %s: %w", path, err)
	}
	return port, nil
}
