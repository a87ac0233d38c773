// Package observability exposes the room's counters as Prometheus metrics.
package observability

import (
	"chat-relay/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const Namespace = "chat_relay"

// RoomMetrics aggregates everything the room reports.
// Collectors are registered on a private registry so several rooms
// (or tests) can coexist in one process.
type RoomMetrics struct {
	registry *prometheus.Registry

	guests           prometheus.Gauge
	accepted         prometheus.Counter
	rejected         prometheus.Counter
	left             *prometheus.CounterVec
	frames           *prometheus.CounterVec
	deliveries       prometheus.Counter
	deliveryFailures prometheus.Counter
	broadcasts       prometheus.Counter
	truncated        prometheus.Counter
	censoredWords    prometheus.Counter
	historyFrames    prometheus.Counter
	waits            prometheus.Counter
	processRSS       prometheus.Gauge
	processCPU       prometheus.Gauge
}

func NewRoomMetrics(room string) *RoomMetrics {
	labels := prometheus.Labels{"room": room}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace, Name: name, Help: help, ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace, Name: name, Help: help, ConstLabels: labels,
		})
	}

	m := &RoomMetrics{
		registry:         prometheus.NewRegistry(),
		guests:           gauge("guests", "Guests currently connected."),
		accepted:         counter("connections_accepted_total", "Connections registered as guests."),
		rejected:         counter("connections_rejected_total", "Connections closed because the room was full."),
		deliveries:       counter("deliveries_total", "Frames written to a recipient."),
		deliveryFailures: counter("delivery_failures_total", "Recipients dropped after a failed write."),
		broadcasts:       counter("broadcasts_total", "Text frames relayed to the room."),
		truncated:        counter("frames_truncated_total", "Text frames that filled the frame buffer."),
		censoredWords:    counter("censored_words_total", "Forbidden words masked in relayed text."),
		historyFrames:    counter("history_frames_total", "History frames written on request."),
		waits:            counter("multiplexer_waits_total", "Readiness waits performed by the control loop."),
		processRSS:       gauge("process_rss_bytes", "Resident memory of the room process."),
		processCPU:       gauge("process_cpu_percent", "CPU usage of the room process."),
		left: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Name: "guests_left_total", Help: "Guests that left, by reason.", ConstLabels: labels,
		}, []string{"reason"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace, Name: "frames_read_total", Help: "Frames read from guests, by kind.", ConstLabels: labels,
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.guests, m.accepted, m.rejected, m.left, m.frames,
		m.deliveries, m.deliveryFailures, m.broadcasts, m.truncated,
		m.censoredWords, m.historyFrames, m.waits, m.processRSS, m.processCPU,
	)
	return m
}

func (m *RoomMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *RoomMetrics) Accepted() { m.accepted.Inc() }

func (m *RoomMetrics) Rejected() { m.rejected.Inc() }

func (m *RoomMetrics) Left(reason string) { m.left.WithLabelValues(reason).Inc() }

func (m *RoomMetrics) FrameRead(kind domain.Kind) { m.frames.WithLabelValues(kind.String()).Inc() }

func (m *RoomMetrics) Relayed(delivered, failed int) {
	m.broadcasts.Inc()
	m.deliveries.Add(float64(delivered))
	m.deliveryFailures.Add(float64(failed))
}

func (m *RoomMetrics) Truncated() { m.truncated.Inc() }

func (m *RoomMetrics) Censored(words int) { m.censoredWords.Add(float64(words)) }

func (m *RoomMetrics) HistoryServed(frames int) { m.historyFrames.Add(float64(frames)) }

func (m *RoomMetrics) Waited() { m.waits.Inc() }

func (m *RoomMetrics) SetGuests(n int) { m.guests.Set(float64(n)) }

func (m *RoomMetrics) ObserveProcess(sample domain.ProcessSample) {
	m.processRSS.Set(float64(sample.RSSBytes))
	m.processCPU.Set(sample.CPUPercent)
}
