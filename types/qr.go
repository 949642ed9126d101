package types

import "time"

// Vec3 is a point or vector in scene space (meters, Y up).
type Vec3 struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
	Z float64 `json:"z" mapstructure:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Anchor is the spatial placement assigned to a QR for rendering.
type Anchor struct {
	Position Vec3    `json:"position"`
	Rotation Vec3    `json:"rotation"` // pitch (X), yaw (Y), roll (Z) in radians
	Scale    float64 `json:"scale"`
	Strategy string  `json:"strategy"`
}

// QRStatus is the lifecycle state of a QR object.
type QRStatus string

const (
	QRGenerated QRStatus = "generated"
	QRActive    QRStatus = "active"
	QRScanned   QRStatus = "scanned"
	QRExpired   QRStatus = "expired"
	QRPaid      QRStatus = "paid"
	QRFailed    QRStatus = "failed"
)

// IsTerminal reports whether no transition may leave s.
func (s QRStatus) IsTerminal() bool {
	return s == QRExpired || s == QRPaid || s == QRFailed
}

var qrTransitions = map[QRStatus][]QRStatus{
	QRGenerated: {QRActive},
	QRActive:    {QRScanned, QRExpired},
	QRScanned:   {QRPaid, QRFailed},
}

// CanTransition reports whether from -> to is an edge of the QR state machine.
func CanTransition(from, to QRStatus) bool {
	for _, s := range qrTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PersistenceStatus tracks the remote (ledger) copy of a QR. It never gates
// the local status.
type PersistenceStatus string

const (
	PersistencePending    PersistenceStatus = "pending"
	PersistenceSynced     PersistenceStatus = "synced"
	PersistenceSyncFailed PersistenceStatus = "sync_failed"
)

// QRMetadata is the read-only payment summary shown next to a QR.
type QRMetadata struct {
	Amount    string  `json:"amount"`
	Token     string  `json:"token"`
	Recipient string  `json:"recipient"`
	ChainID   ChainID `json:"chainId"`
}

// QRObject is a spatially anchored, time-boxed payment QR. Values handed out
// by the lifecycle manager are copies.
type QRObject struct {
	ID                string            `json:"id"`
	AgentID           string            `json:"agentId"`
	Payload           string            `json:"payload"`
	Anchor            Anchor            `json:"anchor"`
	Status            QRStatus          `json:"status"`
	PersistenceStatus PersistenceStatus `json:"persistenceStatus"`
	Metadata          QRMetadata        `json:"metadata"`
	Request           PaymentRequest    `json:"request"`

	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	ScannedAt  *time.Time `json:"scannedAt,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`

	FailureReason string `json:"failureReason,omitempty"`
	TxRef         string `json:"txRef,omitempty"`

	// Incremented on every mutation; ledgers drop writes older than what they hold.
	Version uint64 `json:"version"`
}

// IsVisible reports whether renderers may show the QR at now.
func (q QRObject) IsVisible(now time.Time) bool {
	return q.Status == QRActive && now.Before(q.ExpiresAt)
}
