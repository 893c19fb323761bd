package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parts-cli/internal/cost"
	"github.com/sells-group/parts-cli/internal/extract"
	"github.com/sells-group/parts-cli/internal/model"
	"github.com/sells-group/parts-cli/internal/pipeline"
	"github.com/sells-group/parts-cli/internal/registry"
	"github.com/sells-group/parts-cli/internal/resilience"
	"github.com/sells-group/parts-cli/internal/store"
	"github.com/sells-group/parts-cli/internal/supplier"
	"github.com/sells-group/parts-cli/pkg/amazon"
	"github.com/sells-group/parts-cli/pkg/encompass"
	"github.com/sells-group/parts-cli/pkg/marcone"
	"github.com/sells-group/parts-cli/pkg/notion"
	"github.com/sells-group/parts-cli/pkg/reliable"
	sfpkg "github.com/sells-group/parts-cli/pkg/salesforce"
)

// pipelineEnv holds all initialized clients, registries, and the pipeline
// needed by the run and batch commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Fields   *model.FieldRegistry
	Board    *pipeline.ReviewBoard
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, suppliers and both extractors, loads the
// field registry, and builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("pipeline"); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	notionClient := initNotion()

	fields, err := registry.Load(ctx, registry.Source{
		NotionClient: notionClient,
		NotionDB:     cfg.Notion.FieldDB,
		File:         cfg.Pipeline.FieldsFile,
	})
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load field registry")
	}

	fanOut, err := initSuppliers()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	costs := cost.NewCalculator(cost.Merge(cost.DefaultRates(), pricingOverrides()))
	primary, err := initExtractor(ctx, cfg.Extraction.Primary, fields, costs)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init primary extractor")
	}
	secondary, err := initExtractor(ctx, cfg.Extraction.Secondary, fields, costs)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init secondary extractor")
	}

	var sfClient sfpkg.Client
	if cfg.Pipeline.PublishSalesforce {
		sfClient, err = initSalesforce()
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		if err := sfpkg.CheckFieldMap(ctx, sfClient, fields); err != nil {
			zap.L().Warn("salesforce field map check failed", zap.Error(err))
		}
	}

	board := pipeline.NewReviewBoard(notionClient, cfg.Notion.ReviewDB)
	if board == nil {
		zap.L().Debug("notion review board not configured, reviews are stored locally only")
	}

	zap.L().Info("pipeline initialized",
		zap.Strings("suppliers", supplierNames(fanOut.Suppliers())),
		zap.String("primary", primary.Provider.Name()),
		zap.String("secondary", secondary.Provider.Name()),
		zap.Int("fields", fields.Len()),
	)

	p := pipeline.New(cfg, st, fanOut, primary, secondary, sfClient, board, fields)

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
		Fields:   fields,
		Board:    board,
	}, nil
}

// initNotion returns a Notion client, or nil when no token is configured.
func initNotion() notion.Client {
	if cfg.Notion.Token == "" {
		return nil
	}
	return notion.NewClient(cfg.Notion.Token)
}

// initSuppliers builds the fan-out over the configured suppliers in the
// fixed supplier order.
func initSuppliers() (*supplier.FanOut, error) {
	enabled := make(map[model.SupplierID]bool, len(cfg.Pipeline.Suppliers))
	for _, name := range cfg.Pipeline.Suppliers {
		id, ok := model.ParseSupplierID(name)
		if !ok {
			return nil, eris.Errorf("unknown supplier %q in pipeline.suppliers", name)
		}
		enabled[id] = true
	}

	var fetchers []supplier.Fetcher
	for _, id := range model.Suppliers {
		if !enabled[id] {
			continue
		}
		switch id {
		case model.SupplierEncompass:
			fetchers = append(fetchers, &supplier.Encompass{Client: newEncompassClient()})
		case model.SupplierMarcone:
			fetchers = append(fetchers, &supplier.Marcone{Client: newMarconeClient(), Makes: cfg.Marcone.Makes})
		case model.SupplierReliable:
			fetchers = append(fetchers, &supplier.Reliable{Client: newReliableClient(), PostalCode: cfg.Reliable.PostalCode})
		case model.SupplierAmazon:
			fetchers = append(fetchers, &supplier.Amazon{Client: newAmazonClient()})
		}
	}

	return supplier.NewFanOut(fetchers, supplierTimeout(), resilience.NewBreakers(0, 0)), nil
}

func supplierTimeout() time.Duration {
	return time.Duration(cfg.Pipeline.SupplierTimeoutSecs) * time.Second
}

func newEncompassClient() encompass.Client {
	return encompass.NewClient(cfg.Encompass.Username, cfg.Encompass.Password,
		encompass.WithBaseURL(cfg.Encompass.BaseURL))
}

func newMarconeClient() marcone.Client {
	baseURL, username, password := cfg.Marcone.Endpoint()
	return marcone.NewClient(baseURL, username, password)
}

func newReliableClient() reliable.Client {
	return reliable.NewClient(cfg.Reliable.Username, cfg.Reliable.Password,
		reliable.Keys{
			PartSearch:  cfg.Reliable.PartSearchKey,
			ModelSearch: cfg.Reliable.ModelSearchKey,
			ModelToPart: cfg.Reliable.ModelToPartKey,
		},
		reliable.WithBaseURL(cfg.Reliable.BaseURL),
		reliable.WithInsecureSkipVerify(cfg.Reliable.InsecureSkipVerify),
	)
}

func newAmazonClient() amazon.Client {
	return amazon.NewClient(cfg.Amazon.Key,
		amazon.WithBaseURL(cfg.Amazon.BaseURL),
		amazon.WithCountry(cfg.Amazon.CountryCode),
		amazon.WithRateLimit(cfg.Amazon.RateLimit),
	)
}

func initExtractor(ctx context.Context, name string, fields *model.FieldRegistry, costs *cost.Calculator) (*extract.Extractor, error) {
	provider, err := extract.NewProvider(ctx, name, cfg)
	if err != nil {
		return nil, err
	}
	return &extract.Extractor{
		Provider:    provider,
		Fields:      fields,
		Temperature: cfg.Extraction.Temperature,
		Costs:       costs,
	}, nil
}

// pricingOverrides converts configured model pricing into cost rates.
func pricingOverrides() cost.Rates {
	rates := make(cost.Rates, len(cfg.Pricing.Models))
	for _, m := range cfg.Pricing.Models {
		if m.Model == "" {
			continue
		}
		rates[m.Model] = cost.ModelRate{Input: m.Input, Output: m.Output}
	}
	return rates
}

func supplierNames(ids []model.SupplierID) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return names
}
