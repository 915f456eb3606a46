package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"autotrader/internal/models"
	"autotrader/internal/store"
)

// Ledger tracks a user's spot positions. Every mutation rewrites the whole
// positions document before returning.
type Ledger struct {
	mu        sync.Mutex
	positions []models.Position
	store     *store.Store
	now       func() time.Time
}

func New(st *store.Store) (*Ledger, error) {
	l := &Ledger{store: st, now: time.Now}
	if _, err := st.Load(store.FilePositions, &l.positions); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Open(pair string, entryPrice, size float64, strategyName string) (models.Position, error) {
	if entryPrice <= 0 || size <= 0 {
		return models.Position{}, &models.ValidationError{Field: "position", Msg: "entry price and size must be positive"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos := models.Position{
		ID:           uuid.New().String(),
		Pair:         pair,
		EntryPrice:   entryPrice,
		AvgPrice:     entryPrice,
		Size:         size,
		EntryDate:    l.now(),
		Status:       models.PositionOpen,
		StrategyName: strategyName,
	}
	l.positions = append(l.positions, pos)
	if err := l.save(); err != nil {
		return models.Position{}, err
	}
	return pos, nil
}

func (l *Ledger) Add(id string, price, size float64) (models.Position, error) {
	if price <= 0 || size <= 0 {
		return models.Position{}, &models.ValidationError{Field: "position", Msg: "price and size must be positive"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos := l.find(id)
	if pos == nil {
		return models.Position{}, fmt.Errorf("position %s not found", id)
	}
	if pos.Status != models.PositionOpen {
		return models.Position{}, fmt.Errorf("position %s is not open", id)
	}

	totalCost := pos.AvgPrice*pos.Size + price*size
	pos.Size += size
	pos.AvgPrice = totalCost / pos.Size
	pos.Adds = append(pos.Adds, models.PositionAdd{Price: price, Size: size, Time: l.now()})

	if err := l.save(); err != nil {
		return models.Position{}, err
	}
	return *pos, nil
}

func (l *Ledger) Close(id string, exitPrice float64, reason string) (models.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos := l.find(id)
	if pos == nil {
		return models.Position{}, fmt.Errorf("position %s not found", id)
	}
	if pos.Status != models.PositionOpen {
		return models.Position{}, fmt.Errorf("position %s is not open", id)
	}

	now := l.now()
	pnl := (exitPrice - pos.AvgPrice) / pos.AvgPrice * 100
	holdDays := int(now.Sub(pos.EntryDate).Milliseconds() / 86400000)

	pos.Status = models.PositionClosed
	pos.ExitDate = &now
	pos.PnlPercent = &pnl
	pos.HoldDays = &holdDays
	pos.CloseReason = reason

	if err := l.save(); err != nil {
		return models.Position{}, err
	}
	return *pos, nil
}

// Query returns positions filtered by status; pass an empty status for all.
func (l *Ledger) Query(status models.PositionStatus) []models.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		if status == "" || pos.Status == status {
			out = append(out, pos)
		}
	}
	return out
}

// OpenByPair returns the open positions for one trading pair.
func (l *Ledger) OpenByPair(pair string) []models.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.Position
	for _, pos := range l.positions {
		if pos.Status == models.PositionOpen && pos.Pair == pair {
			out = append(out, pos)
		}
	}
	return out
}

func (l *Ledger) find(id string) *models.Position {
	for i := range l.positions {
		if l.positions[i].ID == id {
			return &l.positions[i]
		}
	}
	return nil
}

func (l *Ledger) save() error {
	return l.store.Save(store.FilePositions, l.positions)
}
