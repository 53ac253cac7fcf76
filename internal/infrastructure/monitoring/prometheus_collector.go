package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"skylink/internal/core/domain"
)

// PrometheusCollector exposes viewer telemetry. It implements
// ports.MetricsSink.
type PrometheusCollector struct {
	sessionState       *prometheus.GaugeVec
	sessionTransitions *prometheus.CounterVec
	statusPushesTotal  prometheus.Counter

	liveUpdatesTotal *prometheus.CounterVec
	submissionsTotal *prometheus.CounterVec

	videoBitrateKbps prometheus.Gauge
	videoFPS         prometheus.Gauge
	videoRTT         prometheus.Histogram
	videoJitter      prometheus.Histogram
	packetsLostTotal prometheus.Gauge
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		sessionState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "skylink_session_state",
			Help: "Current session state (1 for the active state, 0 otherwise)",
		}, []string{"state"}),

		sessionTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "skylink_session_transitions_total",
			Help: "Session state transitions",
		}, []string{"from", "to"}),

		statusPushesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "skylink_status_pushes_total",
			Help: "Authoritative status pushes received from the backend",
		}),

		liveUpdatesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "skylink_live_updates_total",
			Help: "Live parameter updates sent to the backend",
		}, []string{"result"}),

		submissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "skylink_config_submissions_total",
			Help: "Full configuration submissions",
		}, []string{"result"}),

		videoBitrateKbps: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "skylink_video_bitrate_kbps",
			Help: "Received video bitrate in kilobits per second",
		}),

		videoFPS: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "skylink_video_fps",
			Help: "Received video frames per second",
		}),

		videoRTT: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "skylink_video_rtt_seconds",
			Help:    "Round-trip time of the media path",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		videoJitter: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "skylink_video_jitter_seconds",
			Help:    "Receive jitter of the media path",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),

		packetsLostTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "skylink_video_packets_lost",
			Help: "Cumulative packets lost as reported by the transport",
		}),
	}
}

func (p *PrometheusCollector) ObserveSnapshot(snapshot domain.StatsSnapshot) {
	p.videoBitrateKbps.Set(snapshot.BitrateKbps)
	p.videoFPS.Set(snapshot.FPS)
	p.packetsLostTotal.Set(float64(snapshot.PacketsLost))
	if snapshot.RTTMs > 0 {
		p.videoRTT.Observe(snapshot.RTTMs / 1000)
	}
	if snapshot.JitterMs > 0 {
		p.videoJitter.Observe(snapshot.JitterMs / 1000)
	}
}

func (p *PrometheusCollector) SessionStateChanged(from, to domain.ConnectionState) {
	p.sessionTransitions.WithLabelValues(string(from), string(to)).Inc()

	states := []domain.ConnectionState{
		domain.StateDisconnected,
		domain.StateConnecting,
		domain.StateConnected,
		domain.StateFailed,
	}
	for _, s := range states {
		v := 0.0
		if s == to {
			v = 1
		}
		p.sessionState.WithLabelValues(string(s)).Set(v)
	}

	// Rates are meaningless outside a connected session.
	if to != domain.StateConnected {
		p.videoBitrateKbps.Set(0)
		p.videoFPS.Set(0)
	}
}

func (p *PrometheusCollector) LiveUpdateResult(ok bool) {
	p.liveUpdatesTotal.WithLabelValues(resultLabel(ok)).Inc()
}

func (p *PrometheusCollector) SubmissionResult(ok bool) {
	p.submissionsTotal.WithLabelValues(resultLabel(ok)).Inc()
}

func (p *PrometheusCollector) StatusPushReceived() {
	p.statusPushesTotal.Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
