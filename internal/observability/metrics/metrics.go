package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "lendledger_"

	resultSuccess = "success"
	resultError   = "error"

	rowResultAccepted = "accepted"
	rowResultRejected = "rejected"
)

var (
	registerOnce sync.Once

	importBatches      *prometheus.CounterVec
	importBatchLatency *prometheus.HistogramVec
	importRows         *prometheus.CounterVec

	recordUpdates       *prometheus.CounterVec
	recordUpdateLatency *prometheus.HistogramVec

	historyWrites *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		importBatches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_batches_total",
				Help: "Total import batches by kind and result",
			},
			[]string{"kind", "result"},
		)
		importBatchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "import_batch_latency_seconds",
				Help:    "Import batch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "result"},
		)
		importRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_rows_total",
				Help: "Total imported rows by outcome",
			},
			[]string{"result"},
		)

		recordUpdates = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "record_updates_total",
				Help: "Total record updates by result",
			},
			[]string{"result"},
		)
		recordUpdateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "record_update_latency_seconds",
				Help:    "Record update latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		historyWrites = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "history_writes_total",
				Help: "Total usage history writes by result",
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total ledger export operations by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Ledger export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			importBatches,
			importBatchLatency,
			importRows,
			recordUpdates,
			recordUpdateLatency,
			historyWrites,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	collector := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "db_open_connections",
			Help: "Open connections in the database pool",
		},
		func() float64 { return float64(db.Stats().OpenConnections) },
	)
	if err := prometheus.Register(collector); err != nil && logger != nil {
		logger.Printf("db metrics registration failed: %v", err)
	}
}

// ObserveImportBatch records one batch run by kind and result.
func ObserveImportBatch(kind, result string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if importBatches != nil {
		importBatches.WithLabelValues(kind, result).Inc()
	}
	if importBatchLatency != nil {
		importBatchLatency.WithLabelValues(kind, result).Observe(duration.Seconds())
	}
}

// IncImportRow counts one processed row outcome.
func IncImportRow(result string) {
	if result == "" {
		result = rowResultAccepted
	}
	if importRows != nil {
		importRows.WithLabelValues(result).Inc()
	}
}

// ObserveRecordUpdate records one update operation.
func ObserveRecordUpdate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if recordUpdates != nil {
		recordUpdates.WithLabelValues(result).Inc()
	}
	if recordUpdateLatency != nil {
		recordUpdateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncHistoryWrite counts one usage history write attempt.
func IncHistoryWrite(result string) {
	if result == "" {
		result = resultSuccess
	}
	if historyWrites != nil {
		historyWrites.WithLabelValues(result).Inc()
	}
}

// ObserveExport records an export operation by format and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	RowResultAccepted = rowResultAccepted
	RowResultRejected = rowResultRejected
)
