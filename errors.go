package passthru

import (
	"fmt"
)

// Code is the J2534 numeric error taxonomy. The values are fixed by the
// PassThru specification and are what the device puts in the status byte
// of a response frame, and what the ABI entry points return to callers.
type Code uint32

const (
	Success             Code = 0x00
	NotSupported        Code = 0x01
	InvalidChannelID    Code = 0x02
	InvalidProtocolID   Code = 0x03
	NullParameter       Code = 0x04
	InvalidIoctlValue   Code = 0x05
	InvalidFlags        Code = 0x06
	Failed              Code = 0x07
	DeviceNotConnected  Code = 0x08
	Timeout             Code = 0x09
	InvalidMsg          Code = 0x0A
	InvalidTimeInterval Code = 0x0B
	ExceededLimit       Code = 0x0C
	InvalidMsgID        Code = 0x0D
	DeviceInUse         Code = 0x0E
	InvalidIoctlID      Code = 0x0F
	BufferEmpty         Code = 0x10
	BufferFull          Code = 0x11
	BufferOverflow      Code = 0x12
	PinInvalid          Code = 0x13
	ChannelInUse        Code = 0x14
	MsgProtocolID       Code = 0x15
	InvalidFilterID     Code = 0x16
	NoFlowControl       Code = 0x17
	NotUnique           Code = 0x18
	InvalidBaudrate     Code = 0x19
	InvalidDeviceID     Code = 0x1A
)

var codeText = map[Code]string{
	Success:             "No error",
	NotSupported:        "Operation not supported",
	InvalidChannelID:    "Invalid channel ID",
	InvalidProtocolID:   "Invalid protocol ID",
	NullParameter:       "Null parameter received",
	InvalidIoctlValue:   "Invalid IOCTL value",
	InvalidFlags:        "Invalid flags",
	Failed:              "Unspecified error",
	DeviceNotConnected:  "Device not connected",
	Timeout:             "Device did not respond in time",
	InvalidMsg:          "Invalid or malformed message",
	InvalidTimeInterval: "Time interval outside specified range",
	ExceededLimit:       "Too many filters or periodic messages",
	InvalidMsgID:        "Message ID / handle ID not recognized",
	DeviceInUse:         "Device is already in use",
	InvalidIoctlID:      "IOCTL ID not recognized",
	BufferEmpty:         "Receive buffer is empty",
	BufferFull:          "Transmit buffer is full",
	BufferOverflow:      "Device buffer overflow",
	PinInvalid:          "Unknown programming voltage pin",
	ChannelInUse:        "Channel is already in use",
	MsgProtocolID:       "Message protocol ID does not match the channel's",
	InvalidFilterID:     "Filter ID not recognized",
	NoFlowControl:       "No flow control filter is set",
	NotUnique:           "An existing filter already matches",
	InvalidBaudrate:     "Unable to set requested baud rate",
	InvalidDeviceID:     "Device ID not recognized",
}

func (c Code) String() string {
	if s, ok := codeText[c]; ok {
		return s
	}
	return fmt.Sprintf("Code(0x%02X)", uint32(c))
}

// Error is the driver's internal error type, carrying a J2534 Code
// alongside a human-readable detail.
type Error struct {
	code Code
	msg  string
}

func (err *Error) Error() string {
	return err.msg
}

// Code returns the J2534 numeric error this Error maps to.
func (err *Error) Code() Code {
	return err.code
}

func newErr(code Code, format string, args ...interface{}) *Error {
	return &Error{code, fmt.Sprintf(format, args...)}
}

func errTimeoutF(format string, args ...interface{}) *Error {
	return newErr(Timeout, format, args...)
}

func errFailedF(format string, args ...interface{}) *Error {
	return newErr(Failed, format, args...)
}

// codeOf extracts the Code from any error, mapping unrecognized errors
// (e.g. from the serial library) to Failed.
func codeOf(err error) Code {
	if err == nil {
		return Success
	}
	if pe, ok := err.(*Error); ok {
		return pe.code
	}
	return Failed
}
