package audit

import "go.uber.org/zap"

// LogWriter is the always-on fallback Writer. It logs events as structured
// JSON via zap.
type LogWriter struct {
	logger *zap.Logger
}

// NewLogWriter creates a LogWriter that outputs events to the given logger.
func NewLogWriter(logger *zap.Logger) *LogWriter {
	return &LogWriter{logger: logger}
}

func (w *LogWriter) Write(event *Event) {
	w.logger.Info("advisory_event",
		zap.String("request_id", event.RequestID),
		zap.String("session_id", event.SessionID),
		zap.String("identity_id", event.IdentityID),
		zap.String("category", string(event.Category)),
		zap.String("action", string(event.Action)),
		zap.String("severity", string(event.Severity)),
		zap.String("detail", event.Detail),
		zap.String("message_preview", event.MessagePreview),
		zap.String("language", event.Language),
		zap.Strings("intents", event.Intents),
		zap.String("tool_name", event.ToolName),
		zap.Float32("latency_ms", event.LatencyMs),
	)
}

func (w *LogWriter) Close() {}

// MultiWriter fans every event out to all configured sinks.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter combines writers into one. With zero writers it is a no-op.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Write(event *Event) {
	for _, w := range m.writers {
		w.Write(event)
	}
}

func (m *MultiWriter) Close() {
	for _, w := range m.writers {
		w.Close()
	}
}
