package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/btcsuite/btclog/v2"
)

// sLogger adapts a btclog.Logger to the structured, context-first calling
// convention used throughout this runtime (TraceS/DebugS/InfoS/WarnS/ErrorS),
// mirroring the call sites already present in the actor package this runtime
// is grounded on. btclog itself only distinguishes levels, not context or
// key/value pairs, so the context and kv pairs are folded into the message.
type sLogger struct {
	backend btclog.Logger
}

func newSLogger(backend btclog.Logger) *sLogger {
	return &sLogger{backend: backend}
}

func kvString(kv []any) string {
	if len(kv) == 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
	}

	return b.String()
}

func (l *sLogger) TraceS(_ context.Context, msg string, kv ...any) {
	l.backend.Tracef("%s %s", msg, kvString(kv))
}

func (l *sLogger) DebugS(_ context.Context, msg string, kv ...any) {
	l.backend.Debugf("%s %s", msg, kvString(kv))
}

func (l *sLogger) InfoS(_ context.Context, msg string, kv ...any) {
	l.backend.Infof("%s %s", msg, kvString(kv))
}

func (l *sLogger) WarnS(_ context.Context, msg string, err error, kv ...any) {
	l.backend.Warnf("%s: %v %s", msg, err, kvString(kv))
}

func (l *sLogger) ErrorS(_ context.Context, msg string, err error, kv ...any) {
	l.backend.Errorf("%s: %v %s", msg, err, kvString(kv))
}

// log is the package-level logger used throughout the runtime. It defaults
// to a disabled backend so importing this package has no side effects until
// the embedding host wires one in via UseLogger.
var log = newSLogger(btclog.Disabled)

// UseLogger sets the backend used by the runtime package's structured log
// calls. Hosts that want visibility into scheduling decisions, timer
// firings, or supervisor restarts should call this once before starting a
// Loop.
func UseLogger(backend btclog.Logger) {
	log = newSLogger(backend)
}

// DisableLog disables all logging output from the runtime package.
func DisableLog() {
	log = newSLogger(btclog.Disabled)
}
