package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"packloop-client/internal/domain"
	"packloop-client/internal/logger"
)

// Tab is one of the transaction list's filter tabs.
type Tab string

const (
	TabBorrow   Tab = "borrow"
	TabReturned Tab = "returned"
	TabOverdue  Tab = "overdue"
)

// TabCounts carries the badge numbers shown on the filter tabs.
type TabCounts struct {
	Borrow   int
	Returned int
	Overdue  int
}

// ErrReloadInProgress signals an overlapping refresh; the caller keeps the
// data it has. Reloads are never coalesced or queued.
var ErrReloadInProgress = errors.New("a history reload is already running")

type historyService struct {
	mu            sync.Mutex
	api           PlatformAPI
	pageSize      int
	transactions  []domain.BorrowTransaction
	reloading     bool
	lastRefreshed time.Time
	now           func() time.Time
}

func NewHistoryService(api PlatformAPI, historyPageSize int) HistoryService {
	if historyPageSize <= 0 || historyPageSize > 1000 {
		historyPageSize = 1000
	}
	return &historyService{api: api, pageSize: historyPageSize, now: time.Now}
}

// Refresh fetches one bounded page of transaction history and replaces the
// cached list. Guarded so a pull-to-refresh and a background job cannot
// fetch the same resource concurrently.
func (h *historyService) Refresh(ctx context.Context) ([]domain.BorrowTransaction, error) {
	h.mu.Lock()
	if h.reloading {
		h.mu.Unlock()
		return nil, ErrReloadInProgress
	}
	h.reloading = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.reloading = false
		h.mu.Unlock()
	}()

	txns, err := h.api.ListTransactions(ctx, "", 1, h.pageSize)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.transactions = txns
	h.lastRefreshed = h.now()
	h.mu.Unlock()
	logger.Debug("Transaction history refreshed", "count", len(txns))
	return txns, nil
}

// Transactions returns a copy of the cached list.
func (h *historyService) Transactions() []domain.BorrowTransaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.BorrowTransaction, len(h.transactions))
	copy(out, h.transactions)
	return out
}

// Filter returns the cached transactions belonging to one tab.
func (h *historyService) Filter(tab Tab) []domain.BorrowTransaction {
	now := h.now()
	var out []domain.BorrowTransaction
	for _, t := range h.Transactions() {
		switch tab {
		case TabBorrow:
			if t.Type == domain.TransactionTypeBorrow {
				out = append(out, t)
			}
		case TabReturned:
			if t.Type == domain.TransactionTypeReturn {
				out = append(out, t)
			}
		case TabOverdue:
			if t.IsOverdue(now) {
				out = append(out, t)
			}
		}
	}
	return out
}

// TabCounts computes the badge numbers for all tabs in one pass.
func (h *historyService) TabCounts() TabCounts {
	now := h.now()
	var counts TabCounts
	for _, t := range h.Transactions() {
		if t.Type == domain.TransactionTypeBorrow {
			counts.Borrow++
		}
		if t.Type == domain.TransactionTypeReturn {
			counts.Returned++
		}
		if t.IsOverdue(now) {
			counts.Overdue++
		}
	}
	return counts
}

// ReturnCategoryCounts buckets the cached return transactions by outcome.
func (h *historyService) ReturnCategoryCounts() map[domain.ReturnCategory]int {
	counts := make(map[domain.ReturnCategory]int)
	for _, t := range h.Transactions() {
		if t.Type != domain.TransactionTypeReturn {
			continue
		}
		counts[t.ReturnCategory()]++
	}
	return counts
}
