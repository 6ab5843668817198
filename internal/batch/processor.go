// Package batch is the single choke point turning raw records into durable
// rows: validate, partition, then one atomic write per batch.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"dataforge/internal/diag"
	"dataforge/internal/schema"
	"dataforge/internal/store"
	"dataforge/internal/validate"
)

// MaxBatchSize is the hard admission ceiling per batch.
const MaxBatchSize = 1000

// ErrBatchSize rejects an empty or oversized batch before any validation.
var ErrBatchSize = fmt.Errorf("batch must contain between 1 and %d records", MaxBatchSize)

// Rejection is one rejected record of a batch.
type Rejection struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Value      any    `json:"value,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// Outcome reports the accept/reject partition of one batch.
// Accepted + Rejected always equals Total; accepted rows are either all
// committed or, on a store failure, none (in which case Process returns an
// error instead of an Outcome).
type Outcome struct {
	Table      string      `json:"table"`
	BatchID    string      `json:"batch_id"`
	Total      int         `json:"total"`
	Accepted   int         `json:"accepted"`
	Rejected   int         `json:"rejected"`
	Rejections []Rejection `json:"rejections,omitempty"`
}

// Merge folds another outcome for the same table into this one. The
// migration driver uses it to aggregate per-chunk outcomes.
func (o *Outcome) Merge(other *Outcome) {
	o.Total += other.Total
	o.Accepted += other.Accepted
	o.Rejected += other.Rejected
	o.Rejections = append(o.Rejections, other.Rejections...)
}

// Processor validates batches and writes the accepted subset atomically.
// Both the migration driver and the ingestion API call exactly this contract,
// so the two paths cannot diverge in what counts as a valid row.
type Processor struct {
	reg       *schema.Registry
	store     store.Store
	validator *validate.Validator
	sink      diag.Sink
	workers   int
}

func NewProcessor(reg *schema.Registry, st store.Store, sink diag.Sink) *Processor {
	if sink == nil {
		sink = diag.Nop{}
	}
	return &Processor{
		reg:       reg,
		store:     st,
		validator: validate.New(reg, st),
		sink:      sink,
		workers:   runtime.NumCPU(),
	}
}

// Process validates every record of the batch independently, then writes all
// accepted records in one store transaction. Data-quality failures become
// Rejections in the Outcome; infrastructure failures (lookup or commit) abort
// the batch with no partial write and are returned as an error.
func (p *Processor) Process(ctx context.Context, table string, raws []map[string]any) (*Outcome, error) {
	if len(raws) == 0 || len(raws) > MaxBatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrBatchSize, len(raws))
	}
	tbl, err := p.reg.Table(table)
	if err != nil {
		return nil, err
	}

	batchID := uuid.New().String()
	results, err := p.validateAll(ctx, tbl, raws)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Table: table, BatchID: batchID, Total: len(raws)}
	var accepted []map[string]any
	for _, res := range results {
		if res.Accepted {
			accepted = append(accepted, res.Record)
			continue
		}
		outcome.Rejections = append(outcome.Rejections, Rejection{
			Field:      res.Rejection.Field,
			Constraint: string(res.Rejection.Constraint),
			Value:      res.Rejection.Value,
			Detail:     res.Rejection.Detail,
		})
		p.sink.Record(diag.Entry{
			Table:      table,
			BatchID:    batchID,
			Field:      res.Rejection.Field,
			Constraint: string(res.Rejection.Constraint),
			Value:      res.Rejection.Value,
			At:         time.Now().UTC(),
		})
	}
	outcome.Accepted = len(accepted)
	outcome.Rejected = len(outcome.Rejections)

	if err := p.store.WriteBatch(ctx, tbl, accepted); err != nil {
		return nil, fmt.Errorf("batch %s commit: %w", batchID, err)
	}
	return outcome, nil
}

// validateAll fans record validation out over a bounded worker set.
// Validation is read-only, so records can be checked in parallel; results
// keep input positions. The first infrastructure error cancels the rest.
func (p *Processor) validateAll(ctx context.Context, tbl *schema.Table, raws []map[string]any) ([]validate.Result, error) {
	workers := p.workers
	if workers > len(raws) {
		workers = len(raws)
	}
	if workers < 1 {
		workers = 1
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]validate.Result, len(raws))
	sem := make(chan struct{}, workers)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i, raw := range raws {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, raw map[string]any) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := p.validator.ValidateAgainst(ctx, tbl, raw)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
				return
			}
			results[i] = res
		}(i, raw)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	// Caller-initiated cancellation before the write step: abort cleanly.
	if err := parent.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
