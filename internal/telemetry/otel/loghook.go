package otel

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	otellog "go.opentelemetry.io/otel/log"
)

const logScope = "referral-hub/auth"

// LogHook forwards zerolog events at or above min to an OTel logger so they reach the collector
// alongside traces. Fields attached with zerolog are not forwarded; the message and level are.
type LogHook struct {
	logger otellog.Logger
	min    zerolog.Level
	now    func() time.Time
}

// NewLogHook returns a hook bound to provider. A nil provider yields nil, which zerolog.Hook callers
// should skip.
func NewLogHook(provider otellog.LoggerProvider, min zerolog.Level) *LogHook {
	if provider == nil {
		return nil
	}
	return &LogHook{logger: provider.Logger(logScope), min: min, now: time.Now}
}

// Run implements zerolog.Hook.
func (h *LogHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if h == nil || level < h.min || level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}
	ctx := e.GetCtx()
	if ctx == nil {
		ctx = context.Background()
	}
	var rec otellog.Record
	rec.SetTimestamp(h.now().UTC())
	rec.SetSeverity(severity(level))
	rec.SetSeverityText(level.String())
	rec.SetBody(otellog.StringValue(msg))
	h.logger.Emit(ctx, rec)
}

func severity(level zerolog.Level) otellog.Severity {
	switch level {
	case zerolog.TraceLevel:
		return otellog.SeverityTrace
	case zerolog.DebugLevel:
		return otellog.SeverityDebug
	case zerolog.InfoLevel:
		return otellog.SeverityInfo
	case zerolog.WarnLevel:
		return otellog.SeverityWarn
	case zerolog.ErrorLevel:
		return otellog.SeverityError
	case zerolog.FatalLevel:
		return otellog.SeverityFatal
	case zerolog.PanicLevel:
		return otellog.SeverityFatal4
	default:
		return otellog.SeverityUndefined
	}
}
