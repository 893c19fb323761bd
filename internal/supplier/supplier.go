// Package supplier queries the parts suppliers for one part and keeps each
// supplier's raw answer separate.
package supplier

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parts-cli/internal/model"
	"github.com/sells-group/parts-cli/pkg/amazon"
	"github.com/sells-group/parts-cli/pkg/encompass"
	"github.com/sells-group/parts-cli/pkg/marcone"
	"github.com/sells-group/parts-cli/pkg/reliable"
)

// Fetcher returns one supplier's raw payload for a part.
type Fetcher interface {
	ID() model.SupplierID
	Fetch(ctx context.Context, part model.PartRequest) (json.RawMessage, error)
}

// Encompass fetches exact part matches from Encompass.
type Encompass struct {
	Client encompass.Client
}

func (e *Encompass) ID() model.SupplierID { return model.SupplierEncompass }

func (e *Encompass) Fetch(ctx context.Context, part model.PartRequest) (json.RawMessage, error) {
	parts, err := e.Client.PartInformation(ctx, part.PartNumber, part.Make)
	if err != nil {
		return nil, err
	}
	return marshal("encompass", parts)
}

// Marcone fetches a part from Marcone, trying each make code in turn.
type Marcone struct {
	Client marcone.Client
	Makes  []string
}

func (m *Marcone) ID() model.SupplierID { return model.SupplierMarcone }

func (m *Marcone) Fetch(ctx context.Context, part model.PartRequest) (json.RawMessage, error) {
	res, err := marcone.LookupWithFallback(ctx, m.Client, part.PartNumber, part.Make, m.Makes)
	if err != nil {
		return nil, err
	}
	return marshal("marcone", res)
}

// Reliable runs a Reliable Parts part search.
type Reliable struct {
	Client     reliable.Client
	PostalCode string
}

func (r *Reliable) ID() model.SupplierID { return model.SupplierReliable }

func (r *Reliable) Fetch(ctx context.Context, part model.PartRequest) (json.RawMessage, error) {
	return r.Client.SearchPart(ctx, reliable.SearchRequest{
		PartNumber: part.PartNumber,
		PostalCode: r.PostalCode,
	})
}

// Amazon runs the Unwrangle search-then-detail lookup.
type Amazon struct {
	Client amazon.Client
}

func (a *Amazon) ID() model.SupplierID { return model.SupplierAmazon }

func (a *Amazon) Fetch(ctx context.Context, part model.PartRequest) (json.RawMessage, error) {
	res, err := amazon.LookupPart(ctx, a.Client, part.PartNumber)
	if err != nil {
		return nil, err
	}
	return marshal("amazon", res)
}

func marshal(service string, v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrapf(err, "supplier: marshal %s payload", service)
	}
	return data, nil
}
