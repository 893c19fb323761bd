package supplier

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/parts-cli/internal/model"
	"github.com/sells-group/parts-cli/internal/resilience"
)

// DefaultTimeout bounds a single supplier call.
const DefaultTimeout = 30 * time.Second

// ErrNoSupplierData is returned when no supplier produced a payload.
var ErrNoSupplierData = eris.New("supplier: no supplier returned data")

// FanOut queries every configured supplier concurrently. Suppliers are
// called once; a failure is recorded on its result and never cancels the
// others.
type FanOut struct {
	fetchers []Fetcher
	timeout  time.Duration
	breakers *resilience.Breakers
}

// NewFanOut creates a fan-out over fetchers. A nil breakers disables
// circuit breaking.
func NewFanOut(fetchers []Fetcher, timeout time.Duration, breakers *resilience.Breakers) *FanOut {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FanOut{fetchers: fetchers, timeout: timeout, breakers: breakers}
}

// Suppliers returns the IDs of the configured fetchers.
func (f *FanOut) Suppliers() []model.SupplierID {
	ids := make([]model.SupplierID, len(f.fetchers))
	for i, fe := range f.fetchers {
		ids[i] = fe.ID()
	}
	return ids
}

// Fetch runs every fetcher and returns one result per supplier in the
// fixed supplier order. The error is ErrNoSupplierData when every supplier
// failed; the set is returned either way.
func (f *FanOut) Fetch(ctx context.Context, part model.PartRequest) (model.SupplierSet, error) {
	results := make(model.SupplierSet, len(f.fetchers))

	var g errgroup.Group
	for i, fe := range f.fetchers {
		g.Go(func() error {
			results[i] = f.fetchOne(ctx, fe, part)
			return nil
		})
	}
	_ = g.Wait()

	slices.SortStableFunc(results, func(a, b model.SupplierResult) int {
		return supplierRank(a.Source) - supplierRank(b.Source)
	})

	if err := ctx.Err(); err != nil {
		return results, eris.Wrap(err, "supplier: fetch cancelled")
	}
	if results.Succeeded() == 0 {
		return results, eris.Wrapf(ErrNoSupplierData, "supplier: part %s", part.PartNumber)
	}
	return results, nil
}

func (f *FanOut) fetchOne(ctx context.Context, fe Fetcher, part model.PartRequest) model.SupplierResult {
	id := fe.ID()
	log := zap.L().With(zap.String("supplier", string(id)), zap.String("part_number", part.PartNumber))
	res := model.SupplierResult{Source: id}

	var breaker *resilience.Breaker
	if f.breakers != nil {
		breaker = f.breakers.Get(string(id))
		if err := breaker.Allow(); err != nil {
			log.Warn("supplier: skipped, circuit open")
			res.Error = err.Error()
			res.Transient = true
			return res
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	payload, err := fe.Fetch(callCtx, part)
	res.Duration = time.Since(start).Milliseconds()

	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = resilience.NewTransientError(eris.Wrapf(callCtx.Err(), "supplier: %s timed out after %s", id, f.timeout), 0)
	}
	if breaker != nil {
		breaker.Record(err)
	}

	if err != nil {
		res.Error = err.Error()
		res.Transient = resilience.IsTransient(err)
		log.Warn("supplier: lookup failed",
			zap.Int64("duration_ms", res.Duration),
			zap.Bool("transient", res.Transient),
			zap.Error(err),
		)
		return res
	}

	res.Success = true
	res.Payload = payload
	log.Info("supplier: lookup complete",
		zap.Int64("duration_ms", res.Duration),
		zap.Int("payload_bytes", len(payload)),
	)
	return res
}

func supplierRank(id model.SupplierID) int {
	if i := slices.Index(model.Suppliers, id); i >= 0 {
		return i
	}
	return len(model.Suppliers)
}
