package assigner

import (
	"runtime"
	"sync"

	"github.com/inodb/vibe-acmg/internal/acmg"
	"github.com/inodb/vibe-acmg/internal/evaluation"
)

// WorkItem is one (variant, mode) pair of a streamed run.
type WorkItem struct {
	Seq   int
	Eval  *evaluation.VariantEvaluation
	Mode  acmg.ModeOfInheritance
	Extra any // caller-specific data
}

// WorkResult is the assignment of a WorkItem.
type WorkResult struct {
	Seq        int
	Assignment Assignment
	Err        error
	Extra      any
}

// ParallelAssign assigns streamed work items using a pool of workers.
// Results arrive in completion order; use OrderedCollect to restore Seq
// order. If workers is 0, runtime.NumCPU() is used.
func (a *Assigner) ParallelAssign(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				r, err := a.Assign(item.Eval, item.Mode)
				results <- WorkResult{Seq: item.Seq, Assignment: r, Err: err, Extra: item.Extra}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in Seq order, buffering results
// that arrive early. Seq numbers must start at 0 and have no gaps. Blocks
// until results is closed; after an error from fn the rest is drained.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	next := 0

	for r := range results {
		pending[r.Seq] = r
		for {
			rr, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if err := fn(rr); err != nil {
				for range results {
				}
				return err
			}
		}
	}
	return nil
}
