package staticrefl

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/jward/staticrefl/internal/source"
	"github.com/jward/staticrefl/internal/store"
)

// workItem holds everything needed to extract and commit one file.
type workItem struct {
	path    string
	content []byte

	// existing is the previous file record, nil for a new file. old holds
	// its class declarations, captured for cache invalidation.
	existing *store.File
	old      []*store.ClassDecl

	result *source.Result
}

// indexFilesParallel indexes files using a three-phase parallel pipeline:
//
//	Phase A (serial):   Read, hash check, capture old declarations.
//	Phase B (parallel): Parse and extract via worker pool.
//	Phase C (serial):   Replace file data in SQLite, evict cached nodes.
func (e *Engine) indexFilesParallel(ctx context.Context, paths []string) error {
	var errs []error

	// ---- Phase A: Serial file preparation ----
	var items []workItem
	for _, path := range paths {
		item, skip, err := e.prepareFile(path)
		if err != nil {
			indexFilesTotal.WithLabelValues(statusError).Inc()
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			indexFilesTotal.WithLabelValues(statusUnchanged).Inc()
			continue
		}
		items = append(items, item)
	}

	if len(items) > 0 {
		errs = append(errs, e.extractAndCommit(ctx, items)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("staticrefl: parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) extractAndCommit(ctx context.Context, items []workItem) []error {
	// ---- Phase B: Parallel extraction ----
	numWorkers := min(runtime.NumCPU(), len(items))
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item workItem
		err  error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each Extract call owns its parser; results only touch the
			// store in Phase C.
			for item := range workCh {
				res, err := e.extractor.Extract(ctx, item.content, item.path)
				item.result = res
				item.content = nil
				resultCh <- result{item: item, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	var errs []error
	for res := range resultCh {
		if res.err != nil {
			indexFilesTotal.WithLabelValues(statusError).Inc()
			errs = append(errs, fmt.Errorf("extract %s: %w", res.item.path, res.err))
			continue
		}
		if err := e.commitFile(res.item); err != nil {
			indexFilesTotal.WithLabelValues(statusError).Inc()
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
			continue
		}
		indexFilesTotal.WithLabelValues(statusIndexed).Inc()
	}
	return errs
}

// prepareFile does Phase A work for a single file: read, hash check and
// capture of the declarations about to be replaced.
// Returns (item, skip, error). skip=true means the file is unchanged.
func (e *Engine) prepareFile(path string) (workItem, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == source.HashContent(content) {
		return workItem{}, true, nil // unchanged
	}

	var old []*store.ClassDecl
	if existing != nil {
		old, err = e.store.ClassesByFile(existing.ID)
		if err != nil {
			return workItem{}, false, fmt.Errorf("capture old declarations: %w", err)
		}
	}

	return workItem{
		path:     path,
		content:  content,
		existing: existing,
		old:      old,
	}, false, nil
}
