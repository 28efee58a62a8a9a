package service

import (
	"strconv"
	"sync"
	"time"
)

const transactionPrefix = "TRX-"

// TransactionNumbers issues "TRX-<unix millis>" numbers. Within one process
// the millisecond part never repeats; across processes a collision is
// possible and surfaces as a unique-constraint failure on commit.
type TransactionNumbers struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewTransactionNumbers(now func() time.Time) *TransactionNumbers {
	if now == nil {
		now = time.Now
	}
	return &TransactionNumbers{now: now}
}

func (g *TransactionNumbers) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return transactionPrefix + strconv.FormatInt(ms, 10)
}
