package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/use-agent/complyscan/models"
)

// BatchScan scans urls with bounded parallelism. The batch is rejected with
// INVALID_BATCH before any network work when it is empty or larger than the
// configured maximum.
//
// Outcomes are returned in input order, one per input. Inputs that
// normalize to the same target are scanned once and share the outcome. A
// failing URL only fails its own slots.
func (s *Scanner) BatchScan(ctx context.Context, urls []string) (*models.BatchResult, error) {
	if len(urls) == 0 {
		return nil, models.NewScanError(models.ErrKindInvalidBatch, "batch must contain at least one URL", nil)
	}
	if len(urls) > s.batch.MaxSize {
		return nil, models.NewScanError(models.ErrKindInvalidBatch,
			fmt.Sprintf("batch has %d URLs, maximum is %d", len(urls), s.batch.MaxSize), nil)
	}

	outcomes := make([]models.BatchOutcome, len(urls))
	slots := make([]int, len(urls)) // index into unique, -1 for unparseable input
	index := make(map[models.ScanTarget]int, len(urls))
	var unique []models.ScanTarget

	for i, raw := range urls {
		outcomes[i].URL = raw
		target, err := models.ParseTarget(raw)
		if err != nil {
			outcomes[i].Error = models.DetailOf(err)
			slots[i] = -1
			continue
		}
		outcomes[i].Target = target.String()
		j, ok := index[target]
		if !ok {
			j = len(unique)
			index[target] = j
			unique = append(unique, target)
		}
		slots[i] = j
	}

	type scanned struct {
		result *models.ScanResult
		err    error
	}
	results := make([]scanned, len(unique))

	parallelism := s.batch.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

	for j, target := range unique {
		wg.Add(1)
		go func(j int, target models.ScanTarget) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					slog.Error("scanner: batch worker panic", "url", target.String(), "panic", p)
					results[j] = scanned{err: models.NewScanError(models.ErrKindInternal, "scan panicked", fmt.Errorf("%v", p))}
				}
			}()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[j] = scanned{err: models.NewScanError(models.ErrKindCanceled, "batch canceled before scan started", ctx.Err())}
				return
			}
			defer func() { <-sem }()

			r, _, err := s.scan(ctx, target, false)
			results[j] = scanned{result: r, err: err}
		}(j, target)
	}
	wg.Wait()

	batch := &models.BatchResult{
		ID:       uuid.NewString(),
		Total:    len(urls),
		Outcomes: outcomes,
	}
	for i, j := range slots {
		if j >= 0 {
			if res := results[j]; res.err != nil {
				outcomes[i].Error = models.DetailOf(res.err)
			} else {
				outcomes[i].Result = res.result
			}
		}
		if outcomes[i].OK() {
			batch.Succeeded++
		} else {
			batch.Failed++
		}
	}

	switch {
	case batch.Failed == batch.Total:
		batch.Status = models.BatchFailed
	case batch.Failed > 0:
		batch.Status = models.BatchPartial
	default:
		batch.Status = models.BatchCompleted
	}

	if s.metrics != nil {
		s.metrics.ObserveBatch(batch.Status)
	}
	slog.Info("batch finished",
		"id", batch.ID,
		"status", batch.Status,
		"succeeded", batch.Succeeded,
		"failed", batch.Failed,
		"total", batch.Total,
		"unique", len(unique),
	)
	return batch, nil
}
