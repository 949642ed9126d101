// Package ledger persists QR snapshots to a backing store. The store is
// eventually consistent: writes may fail and are retried by the caller, and a
// write carrying an older version than the stored one is ignored.
package ledger

import (
	"context"
	"time"

	"github.com/vitwit/arpay/types"
)

// Record is the durable projection of a QR object. Rendering data (anchor)
// is not persisted.
type Record struct {
	ID            string           `json:"id"`
	AgentID       string           `json:"agentId"`
	Status        types.QRStatus   `json:"status"`
	Payload       string           `json:"payload"`
	Metadata      types.QRMetadata `json:"metadata"`
	CreatedAt     time.Time        `json:"createdAt"`
	ExpiresAt     time.Time        `json:"expiresAt"`
	ResolvedAt    *time.Time       `json:"resolvedAt,omitempty"`
	FailureReason string           `json:"failureReason,omitempty"`
	TxRef         string           `json:"txRef,omitempty"`
	Version       uint64           `json:"version"`
}

// RecordFromQR snapshots q.
func RecordFromQR(q types.QRObject) Record {
	return Record{
		ID:            q.ID,
		AgentID:       q.AgentID,
		Status:        q.Status,
		Payload:       q.Payload,
		Metadata:      q.Metadata,
		CreatedAt:     q.CreatedAt,
		ExpiresAt:     q.ExpiresAt,
		ResolvedAt:    q.ResolvedAt,
		FailureReason: q.FailureReason,
		TxRef:         q.TxRef,
		Version:       q.Version,
	}
}

// Ledger is the backing store of QR records.
type Ledger interface {
	// Save upserts rec unless a record with a higher version is stored.
	Save(ctx context.Context, rec Record) error
	// Load returns NOT_FOUND when id was never saved.
	Load(ctx context.Context, id string) (*Record, error)
}

func notFound(id string) error {
	return types.NewError(types.ErrNotFound, "ledger record %s not found", id)
}
