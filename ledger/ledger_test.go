package ledger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/arpay/types"
)

func sampleQR(version uint64, status types.QRStatus) types.QRObject {
	return types.QRObject{
		ID:        "qr-1",
		AgentID:   "agent-1",
		Payload:   "ethereum:0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238@1043/transfer?address=0x70997970C51812dc3A010C7d01b50e0d17dc79C8&uint256=50",
		Status:    status,
		CreatedAt: time.Unix(1_700_000_000, 0).UTC(),
		ExpiresAt: time.Unix(1_700_000_300, 0).UTC(),
		Version:   version,
		Anchor:    types.Anchor{Strategy: "front"},
	}
}

func TestRecordFromQR(t *testing.T) {
	q := sampleQR(3, types.QRPaid)
	q.TxRef = "0xabc"
	rec := RecordFromQR(q)

	assert.Equal(t, q.ID, rec.ID)
	assert.Equal(t, types.QRPaid, rec.Status)
	assert.Equal(t, "0xabc", rec.TxRef)
	assert.Equal(t, uint64(3), rec.Version)
}

func TestMemoryKeepsNewestVersion(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, RecordFromQR(sampleQR(2, types.QRScanned))))
	require.NoError(t, m.Save(ctx, RecordFromQR(sampleQR(1, types.QRActive))))

	rec, err := m.Load(ctx, "qr-1")
	require.NoError(t, err)
	assert.Equal(t, types.QRScanned, rec.Status)

	require.NoError(t, m.Save(ctx, RecordFromQR(sampleQR(3, types.QRPaid))))
	rec, err = m.Load(ctx, "qr-1")
	require.NoError(t, err)
	assert.Equal(t, types.QRPaid, rec.Status)
	assert.Len(t, m.All(), 1)
}

func TestMemoryLoadMissing(t *testing.T) {
	_, err := NewMemory().Load(context.Background(), "nope")
	assert.True(t, types.IsCode(err, types.ErrNotFound))
}

func TestMemoryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewMemory().Save(ctx, Record{ID: "x"}), context.Canceled)
}

// Runs against a live server when ARPAY_TEST_REDIS_ADDR is set.
func TestRedisLedger(t *testing.T) {
	addr := os.Getenv("ARPAY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ARPAY_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	r, err := NewRedisFromConfig(ctx, types.LedgerConfig{
		RedisAddr: addr,
		KeyPrefix: "arpay:test:" + uuid.NewString() + ":",
		RecordTTL: time.Minute,
	})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Save(ctx, RecordFromQR(sampleQR(2, types.QRScanned))))
	require.NoError(t, r.Save(ctx, RecordFromQR(sampleQR(1, types.QRActive))))

	rec, err := r.Load(ctx, "qr-1")
	require.NoError(t, err)
	assert.Equal(t, types.QRScanned, rec.Status)
	assert.Equal(t, uint64(2), rec.Version)

	_, err = r.Load(ctx, "missing")
	assert.True(t, types.IsCode(err, types.ErrNotFound))
}
