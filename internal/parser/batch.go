package parser

import (
	"sync"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
)

// EvaluateBatch evaluates msgs concurrently with up to workers goroutines.
// results[i] always belongs to msgs[i].
func (e *Engine) EvaluateBatch(msgs []domain.RawMessage, workers int) []Result {
	results := make([]Result, len(msgs))
	if len(msgs) == 0 {
		return results
	}

	if workers <= 1 {
		for i := range msgs {
			results[i] = e.Evaluate(msgs[i])
		}
		return results
	}
	if workers > len(msgs) {
		workers = len(msgs)
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				results[i] = e.Evaluate(msgs[i])
			}
		}()
	}

	for i := range msgs {
		idx <- i
	}
	close(idx)
	wg.Wait()

	return results
}

// ParseBatch returns the transactions found in msgs, in input order.
func (e *Engine) ParseBatch(msgs []domain.RawMessage, workers int) []*domain.ParsedTransaction {
	var out []*domain.ParsedTransaction
	for _, r := range e.EvaluateBatch(msgs, workers) {
		if r.Transaction != nil {
			out = append(out, r.Transaction)
		}
	}
	return out
}
