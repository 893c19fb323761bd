package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parts-cli/internal/config"
	"github.com/sells-group/parts-cli/internal/model"
)

func testPipelineConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "pipeline.db"),
		},
		OpenAI:     config.OpenAIConfig{Key: "sk-test", BaseURL: "http://127.0.0.1:1", Model: "gpt-4o-mini"},
		XAI:        config.OpenAIConfig{Key: "xai-test", BaseURL: "http://127.0.0.1:1", Model: "grok-3"},
		Extraction: config.ExtractionConfig{Primary: "openai", Secondary: "xai"},
		Pipeline: config.PipelineConfig{
			Suppliers:           []string{"encompass", "marcone", "reliable", "amazon"},
			SupplierTimeoutSecs: 5,
			MaxSourceChars:      2000,
		},
	}
}

func TestPipelineEnv_Close_Nil(t *testing.T) {
	pe := &pipelineEnv{}
	assert.NotPanics(t, func() {
		pe.Close()
	})
}

func TestInitPipeline(t *testing.T) {
	cfg = testPipelineConfig(t)

	env, err := initPipeline(context.Background())
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Pipeline)
	assert.NotNil(t, env.Store)
	assert.Nil(t, env.Board)
	assert.Equal(t, len(model.DefaultFields()), env.Fields.Len())
}

func TestInitPipeline_ValidationFails(t *testing.T) {
	cfg = testPipelineConfig(t)
	cfg.XAI.Key = ""

	env, err := initPipeline(context.Background())
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xai.key")
}

func TestInitPipeline_BadDriver(t *testing.T) {
	cfg = testPipelineConfig(t)
	cfg.Store.Driver = "mysql"

	env, err := initPipeline(context.Background())
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitPipeline_MissingFieldsFile(t *testing.T) {
	cfg = testPipelineConfig(t)
	cfg.Pipeline.FieldsFile = filepath.Join(t.TempDir(), "missing.yaml")

	env, err := initPipeline(context.Background())
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load field registry")
}

func TestInitSuppliers(t *testing.T) {
	tests := []struct {
		name      string
		suppliers []string
		want      []model.SupplierID
	}{
		{
			name:      "fixed order regardless of config order",
			suppliers: []string{"amazon", "encompass"},
			want:      []model.SupplierID{model.SupplierEncompass, model.SupplierAmazon},
		},
		{
			name:      "case insensitive",
			suppliers: []string{" Marcone ", "RELIABLE"},
			want:      []model.SupplierID{model.SupplierMarcone, model.SupplierReliable},
		},
		{
			name:      "duplicates collapse",
			suppliers: []string{"marcone", "marcone"},
			want:      []model.SupplierID{model.SupplierMarcone},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg = testPipelineConfig(t)
			cfg.Pipeline.Suppliers = tt.suppliers

			fanOut, err := initSuppliers()
			require.NoError(t, err)
			assert.Equal(t, tt.want, fanOut.Suppliers())
		})
	}
}

func TestInitSuppliers_Unknown(t *testing.T) {
	cfg = testPipelineConfig(t)
	cfg.Pipeline.Suppliers = []string{"encompass", "partselect"}

	_, err := initSuppliers()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown supplier "partselect"`)
}

func TestPricingOverrides(t *testing.T) {
	cfg = &config.Config{
		Pricing: config.PricingConfig{Models: []config.ModelPricing{
			{Model: "gpt-4o-mini", Input: 0.2, Output: 0.8},
			{Model: "", Input: 1, Output: 1},
		}},
	}

	rates := pricingOverrides()
	require.Len(t, rates, 1)
	assert.Equal(t, 0.2, rates["gpt-4o-mini"].Input)
	assert.Equal(t, 0.8, rates["gpt-4o-mini"].Output)
}

func TestInitEnhanceProviders(t *testing.T) {
	cfg = &config.Config{
		OpenAI: config.OpenAIConfig{Key: "sk-test", Model: "gpt-4o-mini"},
	}

	providers, err := initEnhanceProviders(context.Background(), []string{"anthropic", "openai"})
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "openai", providers[0].Name())

	_, err = initEnhanceProviders(context.Background(), []string{"anthropic"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no enhancement provider is configured")
}
