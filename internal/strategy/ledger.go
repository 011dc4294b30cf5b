package strategy

import (
	"sort"
	"sync"
	"time"

	"github.com/joonholab/argos/pkg/logger"
)

// Position is one open holding.
type Position struct {
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Quantity   int64     `json:"quantity"`
	EntryPrice int64     `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
}

// UnrealizedPnL is (current − entry) × quantity.
func (p *Position) UnrealizedPnL(currentPrice int64) int64 {
	return (currentPrice - p.EntryPrice) * p.Quantity
}

// PnLPct is the unrealized return in percent.
func (p *Position) PnLPct(currentPrice int64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return float64(currentPrice-p.EntryPrice) / float64(p.EntryPrice) * 100
}

// Investment is the total entry cost.
func (p *Position) Investment() int64 {
	return p.EntryPrice * p.Quantity
}

// Ledger tracks open positions and the day's realized PnL.
// ⭐ SSOT: 포지션 상태는 이 원장에서만
type Ledger struct {
	logger *logger.Logger

	mu            sync.RWMutex
	positions     map[string]*Position
	dailyRealized int64
}

// NewLedger creates an empty ledger.
func NewLedger(log *logger.Logger) *Ledger {
	return &Ledger{
		logger:    log,
		positions: make(map[string]*Position),
	}
}

// Open records a new position. An existing position for the code is
// replaced; partial adds are out of scope.
func (l *Ledger) Open(code, name string, quantity, entryPrice int64) *Position {
	p := &Position{
		Code:       code,
		Name:       name,
		Quantity:   quantity,
		EntryPrice: entryPrice,
		EntryTime:  time.Now(),
	}

	l.mu.Lock()
	l.positions[code] = p
	l.mu.Unlock()

	l.logger.Infof("포지션 추가: %s %d주 @%d원", name, quantity, entryPrice)
	return p
}

// Close removes a position and accrues its realized PnL. Returns false when
// no position exists for the code.
func (l *Ledger) Close(code string, exitPrice int64) (int64, bool) {
	l.mu.Lock()
	p, ok := l.positions[code]
	if !ok {
		l.mu.Unlock()
		return 0, false
	}
	realized := (exitPrice - p.EntryPrice) * p.Quantity
	l.dailyRealized += realized
	delete(l.positions, code)
	l.mu.Unlock()

	l.logger.Infof("포지션 청산: %s 손익=%+d원 (%+.2f%%)",
		p.Name, realized, p.PnLPct(exitPrice))
	return realized, true
}

// Get returns the position for a code.
func (l *Ledger) Get(code string) (*Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[code]
	return p, ok
}

// All returns open positions sorted by code.
func (l *Ledger) All() []*Position {
	l.mu.RLock()
	out := make([]*Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of open positions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}

// DailyRealizedPnL returns the day's accrued realized PnL.
func (l *Ledger) DailyRealizedPnL() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dailyRealized
}

// ResetDailyPnL zeroes the daily accrual, run before each session.
func (l *Ledger) ResetDailyPnL() {
	l.mu.Lock()
	l.dailyRealized = 0
	l.mu.Unlock()
	l.logger.Info("일일 손익 초기화")
}
