package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autotrader/internal/models"
	"autotrader/internal/store"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	l, err := New(st)
	require.NoError(t, err)
	return l
}

func TestOpenAddAveragePrice(t *testing.T) {
	l := newTestLedger(t)

	pos, err := l.Open("SOL/USDC", 100, 1, "ladder")
	require.NoError(t, err)
	assert.Equal(t, 100.0, pos.AvgPrice)
	assert.Equal(t, models.PositionOpen, pos.Status)

	pos, err = l.Add(pos.ID, 200, 1)
	require.NoError(t, err)
	assert.Equal(t, 150.0, pos.AvgPrice)
	assert.Equal(t, 2.0, pos.Size)
	assert.Len(t, pos.Adds, 1)
}

func TestCloseAtEntryIsFlat(t *testing.T) {
	l := newTestLedger(t)

	pos, err := l.Open("SOL/USDC", 100, 1, "")
	require.NoError(t, err)

	closed, err := l.Close(pos.ID, 100, "manual")
	require.NoError(t, err)
	require.NotNil(t, closed.PnlPercent)
	assert.Zero(t, *closed.PnlPercent)
	assert.Equal(t, models.PositionClosed, closed.Status)
}

func TestCloseComputesPnlAndHoldDays(t *testing.T) {
	l := newTestLedger(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	pos, err := l.Open("SOL/USDC", 100, 2, "")
	require.NoError(t, err)

	l.now = func() time.Time { return base.Add(49 * time.Hour) }
	closed, err := l.Close(pos.ID, 125, "profit_target")
	require.NoError(t, err)
	assert.InDelta(t, 25.0, *closed.PnlPercent, 1e-9)
	assert.Equal(t, 2, *closed.HoldDays)
}

func TestMutationsRejectClosedOrMissing(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.Add("missing", 100, 1)
	assert.Error(t, err)

	pos, err := l.Open("SOL/USDC", 100, 1, "")
	require.NoError(t, err)
	_, err = l.Close(pos.ID, 110, "manual")
	require.NoError(t, err)

	_, err = l.Add(pos.ID, 100, 1)
	assert.Error(t, err)
	_, err = l.Close(pos.ID, 120, "manual")
	assert.Error(t, err)
}

func TestQueryFiltersAndPersistence(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(dir)
	require.NoError(t, err)
	l, err := New(st)
	require.NoError(t, err)

	open, err := l.Open("SOL/USDC", 100, 1, "")
	require.NoError(t, err)
	closedPos, err := l.Open("BONK/USDC", 0.00002, 1000, "")
	require.NoError(t, err)
	_, err = l.Close(closedPos.ID, 0.00003, "take_profit")
	require.NoError(t, err)

	assert.Len(t, l.Query(models.PositionOpen), 1)
	assert.Len(t, l.Query(models.PositionClosed), 1)
	assert.Len(t, l.Query(""), 2)
	assert.Len(t, l.OpenByPair("SOL/USDC"), 1)
	assert.Empty(t, l.OpenByPair("BONK/USDC"))

	// A fresh ledger over the same directory sees the persisted document.
	reloaded, err := New(st)
	require.NoError(t, err)
	assert.Len(t, reloaded.Query(""), 2)
	assert.Equal(t, open.ID, reloaded.Query(models.PositionOpen)[0].ID)
}
