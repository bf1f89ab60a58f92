package passthru

import (
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// readMsgsPollInterval is how often ReadMsgs retries an empty queue
// while a positive timeout is still running.
const readMsgsPollInterval = 5 * time.Millisecond

// apiVersion is the J2534 API version literal this driver implements.
const apiVersion = "04.04"

// driverVersion is the build-metadata version string reported alongside
// apiVersion; set at link time in a real build, a fixed literal here
// since there is no build pipeline stamping it.
var driverVersion = "dev"

// deviceID is the fixed sentinel handle returned by Open. Its only
// requirement, per spec section 4.G, is to be a value subsequent calls
// can be checked against; it does not need to vary across opens.
const deviceID uint32 = 0x1234

// Device is the single open driver instance: one serial transport, one
// channel registry, and the IOCTL handler wired to both. Grounded on the
// teacher's top-level Modbus type in modbus.go, which likewise owns a
// transport and hands out operations against it, but narrowed to at
// most one instance process-wide per spec section 4.G.
type Device struct {
	transport *transport
	registry  *registry
	ioctl     *ioctlHandler
	log       *zap.Logger
}

var (
	deviceMu  sync.Mutex
	deviceCur *Device
)

// discoverPort locates the serial port path via the platform discovery
// collaborator (Windows registry or the JSON config file), per spec
// section 6.
type portDiscoverer func() (string, error)

var discoverPort portDiscoverer = defaultDiscoverPort

// Open constructs the single driver instance, per spec section 4.G. If
// one is already open it fails DeviceInUse. logSink and devLog may both
// be nil.
func Open(logSink io.Writer, devLog deviceLogSink) (uint32, error) {
	deviceMu.Lock()
	defer deviceMu.Unlock()
	if deviceCur != nil {
		return 0, newErr(DeviceInUse, "a device is already open")
	}
	path, err := discoverPort()
	if err != nil {
		return 0, errFailedF("locating serial port: %v", err)
	}
	log := newLogger(logSink)
	corr := newCorrelator(log)
	reg := newRegistry(log)
	t, err := openTransport(path, corr, reg, devLog, log)
	if err != nil {
		return 0, err
	}
	reg.bindSender(t)
	deviceCur = &Device{
		transport: t,
		registry:  reg,
		ioctl:     newIoctlHandler(reg, t, log),
		log:       log,
	}
	return deviceID, nil
}

// current returns the open device. It fails DeviceNotConnected if none
// is open, and InvalidDeviceID if one is open but id does not match.
func current(id uint32) (*Device, error) {
	deviceMu.Lock()
	defer deviceMu.Unlock()
	if deviceCur == nil {
		return nil, newErr(DeviceNotConnected, "no device is open")
	}
	if id != deviceID {
		return nil, newErr(InvalidDeviceID, "unrecognized device id 0x%x", id)
	}
	return deviceCur, nil
}

// Close tears the device down: destroys all channels, stops the
// transport (which joins), and clears the global slot. Idempotent: a
// mismatched or absent device id is not an error, per spec section 4.G
// invariant 8.
func Close(id uint32) error {
	deviceMu.Lock()
	if deviceCur == nil || id != deviceID {
		deviceMu.Unlock()
		return nil
	}
	d := deviceCur
	deviceCur = nil
	deviceMu.Unlock()

	d.registry.destroyAll()
	d.transport.stop()
	return nil
}

// ReadVersion reports the API version literal, the driver build
// version, and a firmware version obtained from the device via a
// GetFwVersion round-trip, per spec section 4.F.
func (d *Device) ReadVersion() (api, dll, fw string, err error) {
	resp, err := d.transport.sendAndAwait(kindGetFwVersion, nil, deadlineGetFwVersion)
	if err != nil {
		return "", "", "", err
	}
	return apiVersion, driverVersion, string(resp.payload), nil
}

// Connect opens a channel for protocol, per spec section 4.D, via the
// device's registry.
func (d *Device) Connect(protocol Protocol, flags, baud uint32) (byte, error) {
	return d.registry.create(protocol, baud, flags)
}

// Disconnect closes the channel at id.
func (d *Device) Disconnect(channelID byte) error {
	return d.registry.destroy(channelID)
}

// Handle looks up the open device by id, for callers (the ABI layer,
// the CLI) that only hold the numeric handle J2534 passes around.
func Handle(id uint32) (*Device, error) {
	return current(id)
}

// WriteMsg transmits msg on channelID, per spec section 4.D. When
// requireResponse is false the call is fire-and-forget (timeout_ms=0 at
// the ABI boundary, per the Open Questions decision in DESIGN.md).
func (d *Device) WriteMsg(channelID byte, msg Msg, requireResponse bool) error {
	return d.registry.transmit(channelID, msg, requireResponse)
}

// ReadMsg pops the oldest buffered inbound message on channelID.
func (d *Device) ReadMsg(channelID byte) (Msg, bool, error) {
	return d.registry.popRx(channelID)
}

// ReadMsgs pops up to requested buffered inbound messages on channelID,
// per spec section 6's ReadMsgs. A timeoutMs of 0 returns whatever is
// already queued, erroring BufferEmpty whenever the queue runs dry before
// requested messages have been collected (even if some were); a positive
// timeoutMs polls the queue until it yields requested messages or the
// deadline elapses, returning Timeout in the latter case. This mirrors
// the original firmware's read_msgs (passthru_drv.rs), which keeps
// polling read_channel_data rather than failing on the first empty
// read whenever a caller-supplied timeout is still running.
//
// The returned slice holds whatever was collected before an error, so a
// caller that times out partway through still gets the messages that
// did arrive.
func (d *Device) ReadMsgs(channelID byte, requested int, timeoutMs uint32) ([]Msg, error) {
	out := make([]Msg, 0, requested)
	var deadline time.Time
	if timeoutMs != 0 {
		deadline = time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	}
	for len(out) < requested {
		m, ok, err := d.registry.popRx(channelID)
		if err != nil {
			return out, err
		}
		if ok {
			out = append(out, m)
			continue
		}
		if timeoutMs == 0 {
			return out, newErr(BufferEmpty, "no messages available on channel %d", channelID)
		}
		if !time.Now().Before(deadline) {
			return out, errTimeoutF("channel %d produced %d of %d requested messages within %d ms", channelID, len(out), requested, timeoutMs)
		}
		time.Sleep(readMsgsPollInterval)
	}
	return out, nil
}

// AddFilter installs a filter on channelID and returns its index.
func (d *Device) AddFilter(channelID byte, ftype FilterType, mask, pattern, flow []byte) (int, error) {
	return d.registry.addFilter(channelID, ftype, mask, pattern, flow)
}

// RemoveFilter uninstalls the filter at filterIndex on channelID.
func (d *Device) RemoveFilter(channelID byte, filterIndex int) error {
	return d.registry.removeFilter(channelID, filterIndex)
}

// ReadBattery performs the ReadBatt round-trip and returns millivolts.
func (d *Device) ReadBattery() (uint32, error) {
	return d.ioctl.readVbatt()
}

// GetConfig and SetConfig expose the IOCTL configuration pairs.
func (d *Device) GetConfig(channelID byte, params []uint32) ([]configPair, error) {
	return d.ioctl.getConfig(channelID, params)
}

func (d *Device) SetConfig(channelID byte, pairs []configPair) error {
	return d.ioctl.setConfig(channelID, pairs)
}

// ClearTxBuffer and ClearRxBuffer are the local-only IOCTLs.
func (d *Device) ClearTxBuffer(channelID byte) error { return d.ioctl.clearTxBuffer(channelID) }
func (d *Device) ClearRxBuffer(channelID byte) error { return d.ioctl.clearRxBuffer(channelID) }

// AcknowledgedIoctl handles the IOCTLs the original firmware accepts
// without actually performing on this hardware.
func (d *Device) AcknowledgedIoctl(id ioctlID) error { return d.ioctl.acknowledgedStub(id) }
