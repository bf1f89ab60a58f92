// Package main builds the J2534 PassThru C ABI as a shared library
// (-buildmode=c-shared), component F. It is a thin marshaling layer:
// every exported function validates pointers, converts numeric
// arguments to the internal typed enums, calls into the passthru
// package, and maps the outcome to the J2534 numeric error taxonomy.
// It holds no logic of its own.
package main

/*
#include <string.h>

typedef struct {
    unsigned long ProtocolID;
    unsigned long RxStatus;
    unsigned long TxFlags;
    unsigned long Timestamp;
    unsigned long DataSize;
    unsigned long ExtraDataIndex;
    unsigned char Data[4128];
} PASSTHRU_MSG;

typedef struct {
    unsigned long Parameter;
    unsigned long Value;
} SCONFIG;

typedef struct {
    unsigned long NumOfParams;
    SCONFIG *ConfigPtr;
} SCONFIG_LIST;
*/
import "C"

import (
	"unsafe"

	"github.com/macchina-drv/passthru"
)

// msgFromC copies a caller-owned PASSTHRU_MSG into the internal Msg
// type, per spec section 4.F: "the cgo adapter is responsible for
// copying to and from the caller's fixed-size buffer."
func msgFromC(cm *C.PASSTHRU_MSG) passthru.Msg {
	n := int(cm.DataSize)
	if n > len(cm.Data) {
		n = len(cm.Data)
	}
	data := make([]byte, n)
	for i := 0; i < n; i++ {
		data[i] = byte(cm.Data[i])
	}
	return passthru.Msg{
		ProtocolID:   passthru.Protocol(cm.ProtocolID),
		RxStatus:     uint32(cm.RxStatus),
		TxFlags:      uint32(cm.TxFlags),
		TimestampUs:  uint32(cm.Timestamp),
		Data:         data,
		ExtraDataLen: uint32(cm.ExtraDataIndex),
	}
}

// msgToC copies an internal Msg back into a caller-owned buffer.
func msgToC(m passthru.Msg, cm *C.PASSTHRU_MSG) {
	cm.ProtocolID = C.ulong(m.ProtocolID)
	cm.RxStatus = C.ulong(m.RxStatus)
	cm.TxFlags = C.ulong(m.TxFlags)
	cm.Timestamp = C.ulong(m.TimestampUs)
	cm.DataSize = C.ulong(len(m.Data))
	cm.ExtraDataIndex = C.ulong(m.ExtraDataLen)
	n := len(m.Data)
	if n > len(cm.Data) {
		n = len(cm.Data)
	}
	for i := 0; i < n; i++ {
		cm.Data[i] = C.uchar(m.Data[i])
	}
}

// result converts a Go error into the J2534 numeric code the ABI
// boundary returns, recording its text for the next GetLastError call.
func result(err error) C.long {
	passthru.SetLastError(err)
	if err == nil {
		return C.long(passthru.Success)
	}
	return C.long(passthru.CodeOf(err))
}

// cString writes s NUL-terminated into buf, truncating to the
// J2534-standard 80-byte string buffer if necessary.
func cString(buf *C.char, size int, s string) {
	if buf == nil {
		return
	}
	b := []byte(s)
	if len(b) > size-1 {
		b = b[:size-1]
	}
	for i, c := range b {
		*(*C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(buf)) + uintptr(i))) = C.char(c)
	}
	*(*C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(buf)) + uintptr(len(b)))) = 0
}

//export PassThruOpen
func PassThruOpen(name *C.char, deviceID *C.ulong) C.long {
	if deviceID == nil {
		return result(passthru.NewError(passthru.NullParameter, "device_id pointer is null"))
	}
	id, err := passthru.Open(nil, nil)
	if err != nil {
		return result(err)
	}
	*deviceID = C.ulong(id)
	return result(nil)
}

//export PassThruClose
func PassThruClose(deviceID C.ulong) C.long {
	return result(passthru.Close(uint32(deviceID)))
}

//export PassThruConnect
func PassThruConnect(deviceID C.ulong, protocolID C.ulong, flags C.ulong, baud C.ulong, channelID *C.ulong) C.long {
	if channelID == nil {
		return result(passthru.NewError(passthru.NullParameter, "channel_id pointer is null"))
	}
	d, err := passthru.Handle(uint32(deviceID))
	if err != nil {
		return result(err)
	}
	proto, ok := passthru.ParseProtocol(uint32(protocolID))
	if !ok {
		return result(passthru.NewError(passthru.InvalidProtocolID, "unrecognized protocol id %d", protocolID))
	}
	id, err := d.Connect(proto, uint32(flags), uint32(baud))
	if err != nil {
		return result(err)
	}
	*channelID = C.ulong(id)
	return result(nil)
}

//export PassThruDisconnect
func PassThruDisconnect(channelID C.ulong) C.long {
	d, err := anyDevice()
	if err != nil {
		return result(err)
	}
	return result(d.Disconnect(byte(channelID)))
}

//export PassThruReadVersion
func PassThruReadVersion(deviceID C.ulong, firmwareVersion, dllVersion, apiVersion *C.char) C.long {
	d, err := passthru.Handle(uint32(deviceID))
	if err != nil {
		return result(err)
	}
	api, dll, fw, err := d.ReadVersion()
	if err != nil {
		return result(err)
	}
	cString(apiVersion, 80, api)
	cString(dllVersion, 80, dll)
	cString(firmwareVersion, 80, fw)
	return result(nil)
}

//export PassThruGetLastError
func PassThruGetLastError(buf *C.char) C.long {
	cString(buf, 80, passthru.GetLastError())
	return C.long(passthru.Success)
}

//export PassThruReadMsgs
func PassThruReadMsgs(channelID C.ulong, msgs *C.PASSTHRU_MSG, numMsgs *C.ulong, timeoutMs C.ulong) C.long {
	if msgs == nil || numMsgs == nil {
		return result(passthru.NewError(passthru.NullParameter, "msgs or numMsgs pointer is null"))
	}
	d, err := anyDevice()
	if err != nil {
		return result(err)
	}
	requested := int(*numMsgs)
	arr := (*[1 << 16]C.PASSTHRU_MSG)(unsafe.Pointer(msgs))[:requested:requested]

	got, err := d.ReadMsgs(byte(channelID), requested, uint32(timeoutMs))
	for i, m := range got {
		msgToC(m, &arr[i])
	}
	*numMsgs = C.ulong(len(got))
	return result(err)
}

//export PassThruWriteMsgs
func PassThruWriteMsgs(channelID C.ulong, msgs *C.PASSTHRU_MSG, numMsgs *C.ulong, timeoutMs C.ulong) C.long {
	if msgs == nil || numMsgs == nil {
		return result(passthru.NewError(passthru.NullParameter, "msgs or numMsgs pointer is null"))
	}
	d, err := anyDevice()
	if err != nil {
		return result(err)
	}
	// A zero timeout means fire-and-forget, per the Open Questions
	// decision recorded in DESIGN.md (the original firmware treats
	// timeout_ms=0 as "do not wait for an acknowledgement").
	requireResponse := timeoutMs != 0
	count := int(*numMsgs)
	arr := (*[1 << 16]C.PASSTHRU_MSG)(unsafe.Pointer(msgs))[:count:count]
	sent := 0
	for i := 0; i < count; i++ {
		m := msgFromC(&arr[i])
		if err := d.WriteMsg(byte(channelID), m, requireResponse); err != nil {
			*numMsgs = C.ulong(sent)
			return result(err)
		}
		sent++
	}
	*numMsgs = C.ulong(sent)
	return result(nil)
}

//export PassThruStartMsgFilter
func PassThruStartMsgFilter(channelID C.ulong, filterType C.ulong, mask, pattern, flowControl *C.PASSTHRU_MSG, filterID *C.ulong) C.long {
	if filterID == nil {
		return result(passthru.NewError(passthru.NullParameter, "filter_id pointer is null"))
	}
	d, err := anyDevice()
	if err != nil {
		return result(err)
	}
	ftype, ok := passthru.ParseFilterType(uint32(filterType))
	if !ok {
		return result(passthru.NewError(passthru.InvalidFlags, "unrecognized filter type %d", filterType))
	}
	var maskBytes, patternBytes, flowBytes []byte
	if mask != nil {
		maskBytes = msgFromC(mask).Data
	}
	if pattern != nil {
		patternBytes = msgFromC(pattern).Data
	}
	if flowControl != nil {
		flowBytes = msgFromC(flowControl).Data
	}
	idx, err := d.AddFilter(byte(channelID), ftype, maskBytes, patternBytes, flowBytes)
	if err != nil {
		return result(err)
	}
	*filterID = C.ulong(idx)
	return result(nil)
}

//export PassThruStopMsgFilter
func PassThruStopMsgFilter(channelID C.ulong, filterID C.ulong) C.long {
	d, err := anyDevice()
	if err != nil {
		return result(err)
	}
	return result(d.RemoveFilter(byte(channelID), int(filterID)))
}

//export PassThruStartPeriodicMsg
func PassThruStartPeriodicMsg(channelID C.ulong, msg *C.PASSTHRU_MSG, msgID *C.ulong, timeInterval C.ulong) C.long {
	// Periodic messages are never actually scheduled on this hardware;
	// ClearPeriodicMsgs is in the acknowledged-but-unimplemented set,
	// which only makes sense if nothing ever starts one. Reported as
	// NotSupported rather than a silent success.
	return result(passthru.NewError(passthru.NotSupported, "periodic messages are not implemented"))
}

//export PassThruStopPeriodicMsg
func PassThruStopPeriodicMsg(channelID C.ulong, msgID C.ulong) C.long {
	return result(passthru.NewError(passthru.NotSupported, "periodic messages are not implemented"))
}

//export PassThruSetProgrammingVoltage
func PassThruSetProgrammingVoltage(deviceID C.ulong, pinNumber C.ulong, voltage C.ulong) C.long {
	return result(passthru.NewError(passthru.Failed, "programming voltage is not supported"))
}

//export PassThruIoctl
func PassThruIoctl(handleID C.ulong, ioctlID C.ulong, input, output unsafe.Pointer) C.long {
	d, err := anyDevice()
	if err != nil {
		return result(err)
	}
	return result(dispatchIoctl(d, uint32(ioctlID), byte(handleID), input, output))
}

// anyDevice looks up the currently-open device regardless of which
// fixed handle the caller passed, since every ABI call after Open
// operates against the single global instance.
func anyDevice() (*passthru.Device, error) {
	return passthru.Handle(passthru.DeviceID())
}

// dispatchIoctl routes PassThruIoctl by numeric ioctl id to the
// Device's typed IOCTL methods, marshaling the SCONFIG_LIST / *ulong
// in/out parameters the J2534 standard defines per id.
func dispatchIoctl(d *passthru.Device, id uint32, channelID byte, input, output unsafe.Pointer) error {
	switch passthru.IoctlID(id) {
	case passthru.IoctlGetConfig:
		list := (*C.SCONFIG_LIST)(input)
		if list == nil {
			return passthru.NewError(passthru.NullParameter, "GetConfig input is null")
		}
		n := int(list.NumOfParams)
		entries := (*[1 << 12]C.SCONFIG)(unsafe.Pointer(list.ConfigPtr))[:n:n]
		params := make([]uint32, n)
		for i := range entries {
			params[i] = uint32(entries[i].Parameter)
		}
		pairs, err := d.GetConfig(channelID, params)
		if err != nil {
			return err
		}
		for i, p := range pairs {
			if i >= n {
				break
			}
			entries[i].Value = C.ulong(p.Value)
		}
		return nil

	case passthru.IoctlSetConfig:
		list := (*C.SCONFIG_LIST)(input)
		if list == nil {
			return passthru.NewError(passthru.NullParameter, "SetConfig input is null")
		}
		n := int(list.NumOfParams)
		entries := (*[1 << 12]C.SCONFIG)(unsafe.Pointer(list.ConfigPtr))[:n:n]
		pairs := make([]passthru.ConfigPair, n)
		for i := range entries {
			pairs[i] = passthru.ConfigPair{Parameter: uint32(entries[i].Parameter), Value: uint32(entries[i].Value)}
		}
		return d.SetConfig(channelID, pairs)

	case passthru.IoctlReadVbatt:
		out := (*C.ulong)(output)
		if out == nil {
			return passthru.NewError(passthru.NullParameter, "ReadVbatt output is null")
		}
		mv, err := d.ReadBattery()
		if err != nil {
			return err
		}
		*out = C.ulong(mv)
		return nil

	case passthru.IoctlClearTxBuffer:
		return d.ClearTxBuffer(channelID)
	case passthru.IoctlClearRxBuffer:
		return d.ClearRxBuffer(channelID)

	case passthru.IoctlFiveBaudInit, passthru.IoctlFastInit, passthru.IoctlClearPeriodicMsgs,
		passthru.IoctlClearMsgFilters, passthru.IoctlClearFunctMsgLookupTable,
		passthru.IoctlAddToFunctMsgLookupTable, passthru.IoctlDeleteFromFunctMsgLookupTable,
		passthru.IoctlReadProgVoltage:
		return d.AcknowledgedIoctl(passthru.IoctlID(id))

	default:
		return passthru.NewError(passthru.InvalidIoctlID, "unrecognized ioctl id %d", id)
	}
}

func main() {}
