package passthru

import "sync"

/*
lastError mirrors the J2534 PassThruGetLastError contract: the most
recent error's human-readable text, process-wide, overwritten on every
fallible ABI call. Grounded on the teacher's use of a package-level
mutex-guarded field for cross-call state in modbusDiagnostics.go.
*/
var (
	lastErrorMu  sync.Mutex
	lastErrorMsg string
)

// setLastError records text for the next PassThruGetLastError call. A
// nil err clears it.
func setLastError(err error) {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if err == nil {
		lastErrorMsg = ""
		return
	}
	lastErrorMsg = err.Error()
}

// GetLastError returns the most recently recorded error text.
func GetLastError() string {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	return lastErrorMsg
}
