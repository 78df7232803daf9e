package notify

import (
	"fmt"
	"sync"
)

// Outcome is the classified result of one delivery attempt.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
	// OutcomeRemoved is recorded in addition to OutcomeFailed when a
	// permanently invalid registration was pruned from the store.
	OutcomeRemoved Outcome = "removed"
)

// Report is the aggregate result of one dispatch call.
type Report struct {
	SuccessCount int    `json:"success_count"`
	FailureCount int    `json:"failure_count"`
	RemovedCount int    `json:"removed_count"`
	Message      string `json:"message"`
}

// tally accumulates per-endpoint outcomes from concurrent workers. It only
// counts, so the resulting report is independent of completion order.
type tally struct {
	mu        sync.Mutex
	delivered int
	failed    int
	removed   int
}

func (t *tally) record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch o {
	case OutcomeDelivered:
		t.delivered++
	case OutcomeFailed:
		t.failed++
	case OutcomeRemoved:
		t.removed++
	}
}

func (t *tally) report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Report{
		SuccessCount: t.delivered,
		FailureCount: t.failed,
		RemovedCount: t.removed,
		Message: fmt.Sprintf("%d delivered, %d failed, %d stale registrations removed",
			t.delivered, t.failed, t.removed),
	}
}
