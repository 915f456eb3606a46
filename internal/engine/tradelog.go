package engine

import (
	"autotrader/internal/models"
	"autotrader/internal/store"
)

const tradeLogCap = 200

// logTrade appends to the capped trade log, persists it, and broadcasts the
// entry. Called with t.mu NOT held.
func (t *Trader) logTrade(kind, message, txID string) {
	entry := models.TradeLogEntry{
		Kind:          kind,
		Message:       message,
		TransactionID: txID,
		Timestamp:     t.now(),
	}

	t.mu.Lock()
	t.tradeLog = append(t.tradeLog, entry)
	if len(t.tradeLog) > tradeLogCap {
		t.tradeLog = t.tradeLog[len(t.tradeLog)-tradeLogCap:]
	}
	snapshot := make([]models.TradeLogEntry, len(t.tradeLog))
	copy(snapshot, t.tradeLog)
	t.mu.Unlock()

	if err := t.store.Save(store.FileTradeLog, snapshot); err != nil {
		t.logEntry().WithError(err).Warn("failed to persist trade log")
	}

	t.bus.Publish(Event{
		Type:      EventLog,
		UserID:    t.cfg.UserID,
		Timestamp: entry.Timestamp,
		Payload:   entry,
	})
}

// TradeLog returns a copy of the capped history, newest last.
func (t *Trader) TradeLog() []models.TradeLogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.TradeLogEntry, len(t.tradeLog))
	copy(out, t.tradeLog)
	return out
}
