package supplier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/parts-cli/internal/model"
	"github.com/sells-group/parts-cli/internal/resilience"
	"github.com/sells-group/parts-cli/pkg/encompass"
	"github.com/sells-group/parts-cli/pkg/reliable"
)

// ErrModelNotFound is returned when Encompass knows no model ID for a
// model number.
var ErrModelNotFound = eris.New("supplier: model not found")

// ModelLookup lists the parts of an appliance model at the suppliers that
// publish exploded model part lists. Either client may be nil.
type ModelLookup struct {
	Encompass encompass.Client
	Reliable  reliable.Client
	Timeout   time.Duration
}

// ModelParts is one supplier's payload for a model lookup: the model
// search answer and the part list it led to.
type ModelParts struct {
	ModelID string          `json:"model_id,omitempty"`
	Search  json.RawMessage `json:"search"`
	Parts   json.RawMessage `json:"parts"`
}

// Parts queries both suppliers concurrently and returns one result per
// configured supplier in the fixed supplier order. The error is
// ErrNoSupplierData when neither answered.
func (m *ModelLookup) Parts(ctx context.Context, modelNumber, makeCode string) (model.SupplierSet, error) {
	if modelNumber == "" {
		return nil, eris.New("supplier: model number is required")
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	type call struct {
		id model.SupplierID
		fn func(ctx context.Context) (any, error)
	}
	var calls []call
	if m.Encompass != nil {
		calls = append(calls, call{model.SupplierEncompass, func(ctx context.Context) (any, error) {
			return m.encompassParts(ctx, modelNumber, makeCode)
		}})
	}
	if m.Reliable != nil {
		calls = append(calls, call{model.SupplierReliable, func(ctx context.Context) (any, error) {
			return m.reliableParts(ctx, modelNumber)
		}})
	}
	if len(calls) == 0 {
		return nil, eris.New("supplier: no model part list supplier configured")
	}

	results := make(model.SupplierSet, len(calls))
	var g errgroup.Group
	for i, c := range calls {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			res := model.SupplierResult{Source: c.id}
			v, err := c.fn(callCtx)
			if err == nil {
				res.Payload, err = marshal(string(c.id), v)
			}
			res.Duration = time.Since(start).Milliseconds()
			if err != nil {
				res.Error = err.Error()
				res.Transient = resilience.IsTransient(err)
				zap.L().Warn("supplier: model lookup failed",
					zap.String("supplier", string(c.id)),
					zap.String("model", modelNumber),
					zap.Error(err),
				)
			} else {
				res.Success = true
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if results.Succeeded() == 0 {
		return results, eris.Wrapf(ErrNoSupplierData, "supplier: model %s", modelNumber)
	}
	return results, nil
}

// encompassParts resolves the model number to a model ID and fetches the
// part list for the first ID found.
func (m *ModelLookup) encompassParts(ctx context.Context, modelNumber, makeCode string) (*ModelParts, error) {
	search, err := m.Encompass.SearchModel(ctx, modelNumber)
	if err != nil {
		return nil, err
	}
	ids := encompass.ModelIDs(search)
	if len(ids) == 0 {
		return nil, eris.Wrapf(ErrModelNotFound, "encompass: model %s", modelNumber)
	}
	if len(ids) > 1 {
		zap.L().Debug("supplier: several encompass model ids, using the first",
			zap.String("model", modelNumber),
			zap.Strings("ids", ids),
		)
	}

	parts, err := m.Encompass.ModelPartList(ctx, ids[0], makeCode)
	if err != nil {
		return nil, err
	}
	return &ModelParts{ModelID: ids[0], Search: search, Parts: parts}, nil
}

func (m *ModelLookup) reliableParts(ctx context.Context, modelNumber string) (*ModelParts, error) {
	search, err := m.Reliable.SearchModel(ctx, modelNumber)
	if err != nil {
		return nil, err
	}
	parts, err := m.Reliable.ModelParts(ctx, modelNumber)
	if err != nil {
		return nil, err
	}
	return &ModelParts{Search: search, Parts: parts}, nil
}
