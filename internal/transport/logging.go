package transport

import applog "audiomidi/internal/log"

// LoggingTransport decorates another Transport, tracing every payload at
// debug level. Useful when bringing up a new visualizer client.
type LoggingTransport struct {
	next Transport
}

// NewLoggingTransport wraps next with send tracing.
func NewLoggingTransport(next Transport) *LoggingTransport {
	return &LoggingTransport{next: next}
}

func (t *LoggingTransport) Send(data any) error {
	applog.Debugf("transport: send %+v", data)
	return t.next.Send(data)
}

func (t *LoggingTransport) Close() error {
	return t.next.Close()
}

var _ Transport = (*LoggingTransport)(nil)
