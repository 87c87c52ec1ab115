package xapi

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics равен nil без Config.Registerer; все методы это допускают.
type metrics struct {
	commandsSent      *prometheus.CounterVec
	responses         *prometheus.CounterVec
	requestTimeouts   prometheus.Counter
	framesDiscarded   *prometheus.CounterVec
	pendingRequests   prometheus.Gauge
	streamMessages    *prometheus.CounterVec
	messagesDropped   *prometheus.CounterVec
	subscriptions     prometheus.Gauge
	requestDuration   *prometheus.HistogramVec
	keepaliveFailures *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &metrics{
		commandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xapi",
			Subsystem: "command",
			Name:      "sent_total",
			Help:      "Total commands written to the command connection",
		}, []string{"command"}),

		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xapi",
			Subsystem: "command",
			Name:      "responses_total",
			Help:      "Total correlated responses by status",
		}, []string{"status"}),

		requestTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xapi",
			Subsystem: "command",
			Name:      "timeouts_total",
			Help:      "Total requests resolved by their deadline",
		}),

		framesDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xapi",
			Subsystem: "frames",
			Name:      "discarded_total",
			Help:      "Total inbound frames dropped (malformed, unmatched)",
		}, []string{"connection", "reason"}),

		pendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "xapi",
			Subsystem: "command",
			Name:      "pending",
			Help:      "Requests awaiting a response",
		}),

		streamMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xapi",
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Total stream data frames received",
		}, []string{"command"}),

		messagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xapi",
			Subsystem: "stream",
			Name:      "dropped_total",
			Help:      "Total stream frames evicted from full consumer mailboxes",
		}, []string{"command"}),

		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "xapi",
			Subsystem: "stream",
			Name:      "subscriptions",
			Help:      "Active physical subscriptions",
		}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "xapi",
			Subsystem: "command",
			Name:      "duration_seconds",
			Help:      "Command round-trip duration",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0},
		}, []string{"command"}),

		keepaliveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xapi",
			Subsystem: "session",
			Name:      "keepalive_failures_total",
			Help:      "Total failed keepalive pings",
		}, []string{"connection"}),
	}

	var err error

	// повторная регистрация (несколько сессий на одном registry) переиспользует существующие коллекторы
	if m.commandsSent, err = register(reg, m.commandsSent); err != nil {
		return nil, err
	}
	if m.responses, err = register(reg, m.responses); err != nil {
		return nil, err
	}
	if m.requestTimeouts, err = register(reg, m.requestTimeouts); err != nil {
		return nil, err
	}
	if m.framesDiscarded, err = register(reg, m.framesDiscarded); err != nil {
		return nil, err
	}
	if m.pendingRequests, err = register(reg, m.pendingRequests); err != nil {
		return nil, err
	}
	if m.streamMessages, err = register(reg, m.streamMessages); err != nil {
		return nil, err
	}
	if m.messagesDropped, err = register(reg, m.messagesDropped); err != nil {
		return nil, err
	}
	if m.subscriptions, err = register(reg, m.subscriptions); err != nil {
		return nil, err
	}
	if m.requestDuration, err = register(reg, m.requestDuration); err != nil {
		return nil, err
	}
	if m.keepaliveFailures, err = register(reg, m.keepaliveFailures); err != nil {
		return nil, err
	}

	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}

		return c, err
	}

	return c, nil
}

func (m *metrics) commandSent(name string) {
	if m == nil {
		return
	}
	m.commandsSent.WithLabelValues(name).Inc()
	m.pendingRequests.Inc()
}

func (m *metrics) resolved(name string, status string, seconds float64) {
	if m == nil {
		return
	}
	m.pendingRequests.Dec()
	m.responses.WithLabelValues(status).Inc()
	if status == "timeout" {
		m.requestTimeouts.Inc()
	}
	m.requestDuration.WithLabelValues(name).Observe(seconds)
}

func (m *metrics) discarded(connection, reason string) {
	if m == nil {
		return
	}
	m.framesDiscarded.WithLabelValues(connection, reason).Inc()
}

func (m *metrics) streamMessage(command string) {
	if m == nil {
		return
	}
	m.streamMessages.WithLabelValues(command).Inc()
}

func (m *metrics) dropped(command string) {
	if m == nil {
		return
	}
	m.messagesDropped.WithLabelValues(command).Inc()
}

func (m *metrics) subscriptionAdded() {
	if m == nil {
		return
	}
	m.subscriptions.Inc()
}

func (m *metrics) subscriptionRemoved() {
	if m == nil {
		return
	}
	m.subscriptions.Dec()
}

func (m *metrics) keepaliveFailed(connection string) {
	if m == nil {
		return
	}
	m.keepaliveFailures.WithLabelValues(connection).Inc()
}
