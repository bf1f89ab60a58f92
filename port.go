package passthru

import "time"

// serialPort is the minimal surface the transport worker needs from the
// underlying serial library. Both openSerialPort implementations (Linux
// via github.com/daedaluz/goserial, everywhere else via
// github.com/tarm/serial) satisfy it.
type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// portConfig carries only the device path; the fixed line parameters
// (500000 baud, 8 data bits, 1 stop bit) are the constants below, and
// parity and flow control are set inside each openSerialPort.
type portConfig struct {
	path string
}

const (
	portBaud     = 500000
	portDataBits = 8
	portStopBits = 1

	// portReadTimeout bounds each Read call so transport.run wakes up
	// and rechecks its stop flag even when the device goes quiet,
	// instead of blocking forever in the kernel.
	portReadTimeout = 100 * time.Millisecond
)
