package passthru

/*
This file is the package's public surface for the cgo ABI adapter in
cmd/passthrudll: thin aliases over the internal error, ioctl, and
protocol types so that package stays a pure marshaling layer and never
needs unexported identifiers reached through reflection or copy-paste.
*/

// NewError builds a driver error carrying the given J2534 Code.
func NewError(code Code, format string, args ...interface{}) error {
	return newErr(code, format, args...)
}

// CodeOf extracts the J2534 Code from any error returned by this
// package, defaulting to Failed for errors it did not originate.
func CodeOf(err error) Code { return codeOf(err) }

// SetLastError records err's text for the next GetLastError call.
func SetLastError(err error) { setLastError(err) }

// DeviceID returns the fixed sentinel handle Open hands back.
func DeviceID() uint32 { return deviceID }

// ParseProtocol validates a raw protocol id from the ABI boundary.
func ParseProtocol(raw uint32) (Protocol, bool) { return parseProtocol(raw) }

// ParseFilterType validates a raw filter type id from the ABI boundary.
func ParseFilterType(raw uint32) (FilterType, bool) { return parseFilterType(raw) }

// IoctlID is the public name for the internal ioctl identifier type.
type IoctlID = ioctlID

// ConfigPair is the public name for a GetConfig/SetConfig entry.
type ConfigPair = configPair

const (
	IoctlGetConfig                     = ioctlGetConfig
	IoctlSetConfig                     = ioctlSetConfig
	IoctlReadVbatt                     = ioctlReadVbatt
	IoctlFiveBaudInit                  = ioctlFiveBaudInit
	IoctlFastInit                      = ioctlFastInit
	IoctlClearTxBuffer                 = ioctlClearTxBuffer
	IoctlClearRxBuffer                 = ioctlClearRxBuffer
	IoctlClearPeriodicMsgs             = ioctlClearPeriodicMsgs
	IoctlClearMsgFilters               = ioctlClearMsgFilters
	IoctlClearFunctMsgLookupTable      = ioctlClearFunctMsgLookupTable
	IoctlAddToFunctMsgLookupTable      = ioctlAddToFunctMsgLookupTable
	IoctlDeleteFromFunctMsgLookupTable = ioctlDeleteFromFunctMsgLookupTable
	IoctlReadProgVoltage               = ioctlReadProgVoltage
)
