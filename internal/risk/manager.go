package risk

import (
	"fmt"
	"sync"
	"time"
)

// Manager enforces the trade-frequency limits around the sizing calculation:
// an optional trades-per-day cap and account balance tracking. It owns no
// pricing logic; volume comes from SizeVolume.
type Manager struct {
	mu              sync.RWMutex
	maxTradesPerDay int
	tradesToday     int
	lastTradeDate   time.Time
	accountBalance  float64
}

// NewManager creates a manager. maxTradesPerDay <= 0 disables the daily cap.
func NewManager(maxTradesPerDay int) *Manager {
	return &Manager{maxTradesPerDay: maxTradesPerDay}
}

// UpdateBalance records the latest account balance.
func (m *Manager) UpdateBalance(balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountBalance = balance
}

// Balance returns the last recorded account balance.
func (m *Manager) Balance() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountBalance
}

// CanTrade reports whether a new trade may be opened at the given time,
// with a reason when it may not.
func (m *Manager) CanTrade(now time.Time) (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.maxTradesPerDay <= 0 {
		return true, ""
	}
	if sameDay(now, m.lastTradeDate) && m.tradesToday >= m.maxTradesPerDay {
		return false, fmt.Sprintf("daily trade limit reached (%d/%d)", m.tradesToday, m.maxTradesPerDay)
	}
	return true, ""
}

// RegisterTrade counts an executed trade against the daily cap.
func (m *Manager) RegisterTrade(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !sameDay(now, m.lastTradeDate) {
		m.tradesToday = 0
	}
	m.tradesToday++
	m.lastTradeDate = now
}

// TradesToday returns the number of trades counted for the given day.
func (m *Manager) TradesToday(now time.Time) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !sameDay(now, m.lastTradeDate) {
		return 0
	}
	return m.tradesToday
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
