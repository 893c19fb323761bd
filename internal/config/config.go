package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Encompass  EncompassConfig  `yaml:"encompass" mapstructure:"encompass"`
	Marcone    MarconeConfig    `yaml:"marcone" mapstructure:"marcone"`
	Reliable   ReliableConfig   `yaml:"reliable" mapstructure:"reliable"`
	Amazon     AmazonConfig     `yaml:"amazon" mapstructure:"amazon"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	XAI        OpenAIConfig     `yaml:"xai" mapstructure:"xai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Enhance    EnhanceConfig    `yaml:"enhance" mapstructure:"enhance"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// EncompassConfig holds Encompass REST credentials.
type EncompassConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// MarconeConfig holds Marcone SOAP and FTP settings. Environment picks the
// test or prod endpoint and credential pair.
type MarconeConfig struct {
	Environment  string    `yaml:"environment" mapstructure:"environment"`
	TestURL      string    `yaml:"test_url" mapstructure:"test_url"`
	ProdURL      string    `yaml:"prod_url" mapstructure:"prod_url"`
	TestUsername string    `yaml:"test_username" mapstructure:"test_username"`
	TestPassword string    `yaml:"test_password" mapstructure:"test_password"`
	ProdUsername string    `yaml:"prod_username" mapstructure:"prod_username"`
	ProdPassword string    `yaml:"prod_password" mapstructure:"prod_password"`
	Makes        []string  `yaml:"makes" mapstructure:"makes"`
	FTP          FTPConfig `yaml:"ftp" mapstructure:"ftp"`
}

// FTPConfig holds FTP server credentials.
type FTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// Endpoint returns the SOAP base URL and credentials for the configured
// environment.
func (m MarconeConfig) Endpoint() (url, username, password string) {
	if strings.EqualFold(m.Environment, "prod") {
		return m.ProdURL, m.ProdUsername, m.ProdPassword
	}
	return m.TestURL, m.TestUsername, m.TestPassword
}

// ReliableConfig holds Reliable Parts Boomi API settings. Each API
// subscription has its own key.
type ReliableConfig struct {
	BaseURL            string `yaml:"base_url" mapstructure:"base_url"`
	Username           string `yaml:"username" mapstructure:"username"`
	Password           string `yaml:"password" mapstructure:"password"`
	PartSearchKey      string `yaml:"part_search_key" mapstructure:"part_search_key"`
	ModelSearchKey     string `yaml:"model_search_key" mapstructure:"model_search_key"`
	ModelToPartKey     string `yaml:"model_to_part_key" mapstructure:"model_to_part_key"`
	PostalCode         string `yaml:"postal_code" mapstructure:"postal_code"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// AmazonConfig holds Unwrangle API settings.
type AmazonConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	CountryCode string  `yaml:"country_code" mapstructure:"country_code"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// OpenAIConfig holds settings for an OpenAI-compatible chat API.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID  string  `yaml:"client_id" mapstructure:"client_id"`
	Username  string  `yaml:"username" mapstructure:"username"`
	KeyPath   string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL  string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// NotionConfig holds the Notion token and database IDs. Both databases are
// optional.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	FieldDB  string `yaml:"field_db" mapstructure:"field_db"`
	ReviewDB string `yaml:"review_db" mapstructure:"review_db"`
}

// ExtractionConfig selects the two independent extraction providers.
type ExtractionConfig struct {
	Primary     string  `yaml:"primary" mapstructure:"primary"`
	Secondary   string  `yaml:"secondary" mapstructure:"secondary"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// EnhanceConfig selects the providers used for Salesforce enhancement. The
// first provider runs; the rest are tried in order on failure.
type EnhanceConfig struct {
	Providers   []string `yaml:"providers" mapstructure:"providers"`
	Temperature float64  `yaml:"temperature" mapstructure:"temperature"`
}

// PipelineConfig configures the lookup pipeline.
type PipelineConfig struct {
	Suppliers           []string `yaml:"suppliers" mapstructure:"suppliers"`
	SupplierTimeoutSecs int      `yaml:"supplier_timeout_secs" mapstructure:"supplier_timeout_secs"`
	MaxSourceChars      int      `yaml:"max_source_chars" mapstructure:"max_source_chars"`
	FieldsFile          string   `yaml:"fields_file" mapstructure:"fields_file"`
	ReportDir           string   `yaml:"report_dir" mapstructure:"report_dir"`
	PublishSalesforce   bool     `yaml:"publish_salesforce" mapstructure:"publish_salesforce"`
}

// PricingConfig holds per-model token pricing overrides. Model names may
// contain dots, so rates are listed rather than keyed.
type PricingConfig struct {
	Models []ModelPricing `yaml:"models" mapstructure:"models"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Model  string  `yaml:"model" mapstructure:"model"`
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentParts int `yaml:"max_concurrent_parts" mapstructure:"max_concurrent_parts"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps config keys to the unprefixed variable names used by
// existing deployments and .env files.
var legacyEnv = map[string]string{
	"encompass.base_url":         "ENCOMPASS_BASE_URL",
	"encompass.username":         "ENCOMPASS_USERNAME",
	"encompass.password":         "ENCOMPASS_PASSWORD",
	"marcone.test_url":           "MARCONE_TEST_URL",
	"marcone.prod_url":           "MARCONE_PROD_URL",
	"marcone.test_username":      "MARCONE_TEST_USERNAME",
	"marcone.test_password":      "MARCONE_TEST_PASSWORD",
	"marcone.prod_username":      "MARCONE_PROD_USERNAME",
	"marcone.prod_password":      "MARCONE_PROD_PASSWORD",
	"marcone.ftp.host":           "MARCONE_FTP_HOST",
	"marcone.ftp.username":       "MARCONE_FTP_USERNAME",
	"marcone.ftp.password":       "MARCONE_FTP_PASSWORD",
	"reliable.base_url":          "RELIABLE_PARTS_BASE_URL",
	"reliable.username":          "RELIABLE_PARTS_USERNAME",
	"reliable.password":          "RELIABLE_PARTS_PASSWORD",
	"reliable.part_search_key":   "RELIABLE_PARTS_PART_SEARCH_API_KEY",
	"reliable.model_search_key":  "RELIABLE_PARTS_MODEL_SEARCH_API_KEY",
	"reliable.model_to_part_key": "RELIABLE_PARTS_MODEL_TO_PART_API_KEY",
	"amazon.key":                 "AMAZON_API_KEY",
	"openai.key":                 "OPENAI_API_KEY",
	"xai.key":                    "XAI_API_KEY",
	"anthropic.key":              "ANTHROPIC_API_KEY",
	"gemini.key":                 "GEMINI_API_KEY",
	"salesforce.username":        "SALESFORCE_USERNAME",
	"salesforce.login_url":       "SALESFORCE_INSTANCE_URL",
}

// Load reads configuration from .env files, config.yaml and the environment.
// PARTS_* variables take precedence over the legacy unprefixed names.
func Load() (*Config, error) {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PARTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := "PARTS_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", legacy)
		}
	}

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "parts.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("batch.max_concurrent_parts", 5)
	v.SetDefault("encompass.base_url", "https://encompass.com")
	v.SetDefault("marcone.environment", "test")
	v.SetDefault("marcone.test_url", "https://testapi.marcone.com")
	v.SetDefault("marcone.prod_url", "https://api.marcone.com")
	v.SetDefault("marcone.makes", []string{"GEH", "GEN", "GE", "HOT"})
	v.SetDefault("reliable.base_url", "https://stgapi.reliableparts.net:8077")
	v.SetDefault("reliable.insecure_skip_verify", true)
	v.SetDefault("amazon.base_url", "https://data.unwrangle.com/api/getter/")
	v.SetDefault("amazon.country_code", "us")
	v.SetDefault("amazon.rate_limit", 2)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("xai.base_url", "https://api.x.ai/v1")
	v.SetDefault("xai.model", "grok-3")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 5)
	v.SetDefault("extraction.primary", "openai")
	v.SetDefault("extraction.secondary", "xai")
	v.SetDefault("extraction.temperature", 0.3)
	v.SetDefault("enhance.providers", []string{"openai", "xai"})
	v.SetDefault("enhance.temperature", 0.7)
	v.SetDefault("pipeline.suppliers", []string{"encompass", "marcone", "reliable", "amazon"})
	v.SetDefault("pipeline.supplier_timeout_secs", 30)
	v.SetDefault("pipeline.max_source_chars", 2000)
	v.SetDefault("pipeline.report_dir", ".")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the keys a command needs are present. Modes:
// "lookup" (suppliers only), "pipeline" (suppliers and both extraction
// providers), "enhance" (Salesforce and an enhancement provider),
// "marcone" (SOAP endpoint), "marcone-ftp", "amazon".
func (c *Config) Validate(mode string) error {
	var missing []string

	switch mode {
	case "lookup":
		if len(c.Pipeline.Suppliers) == 0 {
			missing = append(missing, "pipeline.suppliers")
		}
	case "pipeline":
		if len(c.Pipeline.Suppliers) == 0 {
			missing = append(missing, "pipeline.suppliers")
		}
		slots := []struct{ name, provider string }{
			{"primary", c.Extraction.Primary},
			{"secondary", c.Extraction.Secondary},
		}
		for _, s := range slots {
			slot, p := s.name, s.provider
			key := c.providerKeyName(p)
			if key == "" {
				return eris.Errorf("config: extraction.%s: unknown provider %q", slot, p)
			}
			if c.providerKey(p) == "" {
				missing = append(missing, key)
			}
		}
	case "enhance":
		if c.Salesforce.ClientID == "" {
			missing = append(missing, "salesforce.client_id")
		}
		if len(c.Enhance.Providers) == 0 {
			missing = append(missing, "enhance.providers")
		}
		for _, p := range c.Enhance.Providers {
			if c.providerKeyName(p) == "" {
				return eris.Errorf("config: enhance.providers: unknown provider %q", p)
			}
		}
	case "marcone-ftp":
		if c.Marcone.FTP.Host == "" {
			missing = append(missing, "marcone.ftp.host")
		}
	case "marcone":
		url, user, _ := c.Marcone.Endpoint()
		env := "test"
		if strings.EqualFold(c.Marcone.Environment, "prod") {
			env = "prod"
		}
		if url == "" {
			missing = append(missing, "marcone."+env+"_url")
		}
		if user == "" {
			missing = append(missing, "marcone."+env+"_username")
		}
	case "amazon":
		if c.Amazon.Key == "" {
			missing = append(missing, "amazon.key")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required keys for %s: %s", mode, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) providerKeyName(provider string) string {
	switch provider {
	case "openai", "xai", "anthropic", "gemini":
		return provider + ".key"
	default:
		return ""
	}
}

func (c *Config) providerKey(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAI.Key
	case "xai":
		return c.XAI.Key
	case "anthropic":
		return c.Anthropic.Key
	case "gemini":
		return c.Gemini.Key
	default:
		return ""
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
