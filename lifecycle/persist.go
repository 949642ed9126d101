package lifecycle

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vitwit/arpay/ledger"
	"github.com/vitwit/arpay/metrics"
	"github.com/vitwit/arpay/types"
)

// retryEntry is a QR whose last ledger write failed.
type retryEntry struct {
	id       string
	attempts int
	nextAt   time.Time
	inFlight bool
	backoff  *backoff.ExponentialBackOff
}

func (m *Manager) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.SyncInitialBackoff
	b.MaxInterval = m.cfg.SyncMaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// persist queues a write of qr's current snapshot. Must hold m.mu.
func (m *Manager) persist(qr types.QRObject) {
	if m.closed {
		return
	}
	rec := ledger.RecordFromQR(qr)
	m.workers.Submit(func() {
		m.write(rec)
	})
}

func (m *Manager) write(rec ledger.Record) {
	ctx, cancel := context.WithTimeout(m.ctx, m.cfg.SyncTimeout)
	err := m.ledger.Save(ctx, rec)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	qr, ok := m.get(rec.ID)
	if !ok {
		// Evicted from history before the write finished.
		return
	}

	if err != nil {
		if rec.Version < qr.Version {
			// A newer version has its own write in flight or done.
			m.logger.Debug("stale ledger write failed", map[string]any{"qr_id": rec.ID, "version": rec.Version})
			return
		}
		qr.PersistenceStatus = types.PersistenceSyncFailed
		m.put(qr)
		m.metrics.IncCounter(metrics.PersistenceFailed, map[string]string{"network": string(qr.Metadata.ChainID)})
		m.logger.Warn("ledger write failed", map[string]any{
			"qr_id":   rec.ID,
			"version": rec.Version,
			"error":   err,
		})
		m.scheduleRetry(rec.ID)
		return
	}

	if rec.Version >= qr.Version {
		qr.PersistenceStatus = types.PersistenceSynced
		m.put(qr)
		delete(m.queued, rec.ID)
	}
	m.metrics.IncCounter(metrics.PersistenceSynced, map[string]string{"network": string(qr.Metadata.ChainID)})
}

// scheduleRetry records a failed write of id. The queue is bounded; when full
// the oldest entry is dropped and its QR stays SyncFailed. Must hold m.mu.
func (m *Manager) scheduleRetry(id string) {
	re, ok := m.queued[id]
	if !ok {
		if m.retries.Len() >= m.cfg.SyncQueueSize {
			m.dropOldestRetry()
		}
		re = &retryEntry{id: id, backoff: m.newBackoff()}
		m.queued[id] = re
		m.retries.PushBack(re)
	}

	re.inFlight = false
	re.attempts++
	if re.attempts >= m.cfg.SyncMaxAttempts {
		delete(m.queued, id)
		m.logger.Error("giving up on ledger write", map[string]any{
			"qr_id":    id,
			"attempts": re.attempts,
		})
		return
	}
	re.nextAt = m.clock.Now().Add(re.backoff.NextBackOff())
}

func (m *Manager) dropOldestRetry() {
	for m.retries.Len() > 0 {
		old := m.retries.PopFront()
		if m.queued[old.id] != old {
			continue
		}
		delete(m.queued, old.id)
		m.metrics.IncCounter(metrics.PersistenceDrop, nil)
		m.logger.Warn("retry queue full, dropping oldest entry", map[string]any{
			"qr_id":    old.id,
			"attempts": old.attempts,
		})
		return
	}
}

// drainRetries resubmits writes whose backoff has elapsed. Must hold m.mu.
func (m *Manager) drainRetries(now time.Time) {
	for n := m.retries.Len(); n > 0; n-- {
		re := m.retries.PopFront()
		if m.queued[re.id] != re {
			continue
		}

		qr, ok := m.get(re.id)
		if !ok || qr.PersistenceStatus == types.PersistenceSynced {
			delete(m.queued, re.id)
			continue
		}

		m.retries.PushBack(re)
		if re.inFlight || now.Before(re.nextAt) {
			continue
		}
		re.inFlight = true
		m.logger.Debug("retrying ledger write", map[string]any{
			"qr_id":   re.id,
			"attempt": re.attempts + 1,
		})
		m.persist(qr)
	}
}

// PendingRetries returns the number of QRs waiting for a ledger retry.
func (m *Manager) PendingRetries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queued)
}
