package passthru

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

/*
Logging is split into two concerns, matching spec section 1's treatment
of "logging sinks" as an external collaborator:

  - The driver's own operational logging (dropped frames, unsupported
    IOCTLs, decode errors) goes through a *zap.Logger built
    here, the way rinzlerlabs-gomodbus pairs a serial transport with
    go.uber.org/zap.
  - Device-originated LogMsg frame text (spec section 4.B) is forwarded
    verbatim to a caller-supplied io.Writer "log sink" — the driver does
    not interpret it, it just relays it.
*/

// newLogger builds the driver's internal structured logger, writing to
// sink (defaulting to a discarded writer when nil, so a driver embedded
// in a diagnostic application never writes to stderr behind the
// caller's back unless asked to).
func newLogger(sink io.Writer) *zap.Logger {
	if sink == nil {
		return zap.NewNop()
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(sink),
		zap.InfoLevel,
	)
	return zap.New(core)
}

// deviceLogSink receives the raw text of device-originated LogMsg
// frames. It is never handed PASSTHRU_MSG data — only frames of kind
// kindLogMsg are routed here, per spec section 4.B.
type deviceLogSink interface {
	LogDeviceMessage(text string)
}

// writerLogSink adapts a plain io.Writer (a file, stdout, or a ring
// buffer) into a deviceLogSink.
type writerLogSink struct {
	w io.Writer
}

// NewWriterLogSink wraps an io.Writer so it can receive device log text.
func NewWriterLogSink(w io.Writer) deviceLogSink {
	return &writerLogSink{w: w}
}

func (s *writerLogSink) LogDeviceMessage(text string) {
	if s.w == nil {
		return
	}
	io.WriteString(s.w, text)
	if len(text) == 0 || text[len(text)-1] != '\n' {
		io.WriteString(s.w, "\n")
	}
}

type nopLogSink struct{}

func (nopLogSink) LogDeviceMessage(string) {}
