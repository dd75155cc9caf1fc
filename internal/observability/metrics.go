// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Candle data metrics
	HistoryPagesFetched *prometheus.CounterVec
	HistoryFetchErrors  *prometheus.CounterVec
	CandleCacheLookups  *prometheus.CounterVec
	LiveUpdates         *prometheus.CounterVec
	StreamReconnects    prometheus.Counter
	HistoryFetchLatency prometheus.Histogram

	// Replay metrics
	ReplaySessionsActive prometheus.Gauge
	ReplayStarts         prometheus.Counter
	ReplayAdvances       prometheus.Counter
	PositionsOpened      *prometheus.CounterVec
	TradesClosed         *prometheus.CounterVec

	// Journal metrics
	TradePersistOps  *prometheus.CounterVec
	TradesPending    prometheus.Gauge
	StatsComputed    prometheus.Counter
	ReportsGenerated prometheus.Counter

	// HTTP metrics
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "senzo_replay"
	}

	return &Metrics{
		HistoryPagesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "candles",
			Name:      "history_pages_fetched_total",
			Help:      "Total number of history pages fetched by source",
		}, []string{"source"}),
		HistoryFetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "candles",
			Name:      "history_fetch_errors_total",
			Help:      "Total number of failed history page fetches by source",
		}, []string{"source"}),
		CandleCacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "candles",
			Name:      "cache_lookups_total",
			Help:      "Candle cache lookups by result (hit, miss)",
		}, []string{"result"}),
		LiveUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "candles",
			Name:      "live_updates_total",
			Help:      "Live candle updates by outcome (appended, replaced, ignored)",
		}, []string{"outcome"}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "candles",
			Name:      "stream_reconnects_total",
			Help:      "Total number of live stream reconnect attempts",
		}),
		HistoryFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "candles",
			Name:      "history_fetch_seconds",
			Help:      "Full paginated history fetch latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		ReplaySessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "sessions_active",
			Help:      "Number of replay sessions currently held in memory",
		}),
		ReplayStarts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "starts_total",
			Help:      "Total number of replays started",
		}),
		ReplayAdvances: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "advances_total",
			Help:      "Total number of candles revealed by advance",
		}),
		PositionsOpened: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "positions_opened_total",
			Help:      "Total number of simulated positions opened by side",
		}, []string{"side"}),
		TradesClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "trades_closed_total",
			Help:      "Total number of simulated trades closed by exit reason and status",
		}, []string{"reason", "status"}),

		TradePersistOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "persist_ops_total",
			Help:      "Trade store operations by operation and result",
		}, []string{"op", "result"}),
		TradesPending: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "trades_pending",
			Help:      "Trades shown optimistically but not yet confirmed by the store",
		}),
		StatsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "stats_computed_total",
			Help:      "Total number of statistics recomputations",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful history backfill",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordHistoryPage records one fetched history page.
func RecordHistoryPage(source string, err error) {
	if err != nil {
		DefaultMetrics.HistoryFetchErrors.WithLabelValues(source).Inc()
		return
	}
	DefaultMetrics.HistoryPagesFetched.WithLabelValues(source).Inc()
}

// RecordHistoryFetch records the latency of a full history assembly.
func RecordHistoryFetch(seconds float64) {
	DefaultMetrics.HistoryFetchLatency.Observe(seconds)
}

// RecordCacheLookup records a candle cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CandleCacheLookups.WithLabelValues(result).Inc()
}

// RecordLiveUpdate records how a live candle update was applied.
func RecordLiveUpdate(outcome string) {
	DefaultMetrics.LiveUpdates.WithLabelValues(outcome).Inc()
}

// RecordStreamReconnect increments the stream reconnect counter.
func RecordStreamReconnect() {
	DefaultMetrics.StreamReconnects.Inc()
}

// RecordReplayStart increments the replay start counter.
func RecordReplayStart() {
	DefaultMetrics.ReplayStarts.Inc()
}

// RecordAdvance increments the revealed candle counter.
func RecordAdvance() {
	DefaultMetrics.ReplayAdvances.Inc()
}

// RecordPositionOpened records a simulated position open.
func RecordPositionOpened(side string) {
	DefaultMetrics.PositionsOpened.WithLabelValues(side).Inc()
}

// RecordTradeClosed records a simulated trade close.
func RecordTradeClosed(reason, status string) {
	DefaultMetrics.TradesClosed.WithLabelValues(reason, status).Inc()
}

// SetActiveSessions updates the replay sessions gauge.
func SetActiveSessions(n int) {
	DefaultMetrics.ReplaySessionsActive.Set(float64(n))
}

// RecordPersist records the result of a trade store operation.
func RecordPersist(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	DefaultMetrics.TradePersistOps.WithLabelValues(op, result).Inc()
}

// AddPending adjusts the pending trades gauge by delta.
func AddPending(delta int) {
	DefaultMetrics.TradesPending.Add(float64(delta))
}

// RecordStatsComputed increments the stats recomputation counter.
func RecordStatsComputed() {
	DefaultMetrics.StatsComputed.Inc()
}

// RecordReportGenerated increments the reports counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, route, status string, seconds float64) {
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// MarkIngestionSuccess sets the last successful ingestion timestamp.
func MarkIngestionSuccess(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulIngestion.Set(float64(unixSeconds))
}
