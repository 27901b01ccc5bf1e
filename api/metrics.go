package api

import (
	"time"

	log "github.com/sirupsen/logrus"
)

const metricsMessage = "calendar.request.metrics"

// requestMetrics collects timings of one widget callback and logs them as a
// single entry when the request completes.
type requestMetrics struct {
	logger       *log.Logger
	method       string
	route        string
	start        time.Time
	authDuration time.Duration
	errorStage   string
	reloaded     *bool
}

func newRequestMetrics(logger *log.Logger, method, route string) *requestMetrics {
	return &requestMetrics{
		logger: logger,
		method: method,
		route:  route,
		start:  time.Now(),
	}
}

func (m *requestMetrics) ObserveAuth(duration time.Duration) {
	if m == nil || duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if m == nil || stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *requestMetrics) SetReloaded(reloaded bool) {
	if m == nil {
		return
	}
	m.reloaded = &reloaded
}

func (m *requestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"method":   m.method,
		"route":    m.route,
		"status":   status,
		"total_ms": durationToMillis(time.Since(m.start)),
	}
	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if m.reloaded != nil {
		fields["reloaded"] = *m.reloaded
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	entry := m.logger.WithFields(fields)
	if status >= 500 {
		entry.Warn(metricsMessage)
		return
	}
	entry.Info(metricsMessage)
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
