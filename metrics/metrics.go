package metrics

import "time"

// Recorder receives counters, latencies and gauges. Labels other than
// "network" and "status" are ignored by the Prometheus implementation.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}

// Event names.
const (
	QRCreated         = "qr_created"
	QRScanned         = "qr_scanned"
	QRExpired         = "qr_expired"
	QRPaid            = "qr_paid"
	QRFailed          = "qr_failed"
	PersistenceSynced = "persistence_synced"
	PersistenceFailed = "persistence_failed"
	PersistenceDrop   = "persistence_dropped"
	TxOutcome         = "tx_outcome"
	SettlementExecute = "settlement_execute"
	ActiveQR          = "active_qr"
	RetryQueueDepth   = "retry_queue_depth"
)
