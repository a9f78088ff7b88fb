package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Company    CompanyConfig    `yaml:"company" mapstructure:"company"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Currency   CurrencyConfig   `yaml:"currency" mapstructure:"currency"`
	Generation GenerationConfig `yaml:"generation" mapstructure:"generation"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// PathsConfig locates the document source tree and the working directory.
type PathsConfig struct {
	Source  string `yaml:"source" mapstructure:"source"`
	WorkDir string `yaml:"work_dir" mapstructure:"work_dir"`
}

// CompanyConfig holds the service provider's legal identity, rendered into
// every generated annex.
type CompanyConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	TaxID    string `yaml:"tax_id" mapstructure:"tax_id"`
	Address  string `yaml:"address" mapstructure:"address"`
	Director string `yaml:"director" mapstructure:"director"`
	Location string `yaml:"location" mapstructure:"location"`
}

// ExtractionConfig configures the extraction collaborator.
type ExtractionConfig struct {
	APIKey         string  `yaml:"api_key" mapstructure:"api_key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	MaxTokens      int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxConcurrent  int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	UseBatchAPI    bool    `yaml:"use_batch_api" mapstructure:"use_batch_api"`
	BatchThreshold int     `yaml:"batch_threshold" mapstructure:"batch_threshold"`
}

// Timeout returns the per-request deadline for collaborator calls.
func (c ExtractionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CurrencyConfig fixes the legacy-currency conversion rate.
type CurrencyConfig struct {
	HRKToEURRate string `yaml:"hrk_to_eur_rate" mapstructure:"hrk_to_eur_rate"`
}

// GenerationConfig configures annex generation.
type GenerationConfig struct {
	DefaultEffectiveDate string `yaml:"default_effective_date" mapstructure:"default_effective_date"`
	VATNote              string `yaml:"vat_note" mapstructure:"vat_note"`
	// RenderCommand is the external templating tool invoked per annex. It
	// receives the resolved context as JSON on stdin and must write the
	// rendered .docx to stdout.
	RenderCommand []string `yaml:"render_command" mapstructure:"render_command"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// InventoryPath returns the inventory document location.
func (c *Config) InventoryPath() string {
	return filepath.Join(c.Paths.WorkDir, "data", "inventory.json")
}

// ExtractionsDir returns the per-client extraction record directory.
func (c *Config) ExtractionsDir() string {
	return filepath.Join(c.Paths.WorkDir, "data", "extractions")
}

// WorkbookPath returns the review workbook location.
func (c *Config) WorkbookPath() string {
	return filepath.Join(c.Paths.WorkDir, "output", "review_workbook.xlsx")
}

// AnnexOutputDir returns the rendered annex output directory.
func (c *Config) AnnexOutputDir() string {
	return filepath.Join(c.Paths.WorkDir, "output", "annexes")
}

// LockPath returns the advisory lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, "contract-cli.lock")
}

// HistoryDBPath returns the sqlite audit ledger location.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.WorkDir, "runs", "history.db")
}

// Load reads configuration from config.yaml and the environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CONTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("paths.source", "./contracts")
	v.SetDefault("paths.work_dir", ".")
	v.SetDefault("company.name", "Procudo d.o.o.")
	v.SetDefault("company.location", "Zagreb")
	v.SetDefault("extraction.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("extraction.max_tokens", 4096)
	v.SetDefault("extraction.timeout_secs", 120)
	v.SetDefault("extraction.max_concurrent", 4)
	v.SetDefault("extraction.requests_per_sec", 2.0)
	v.SetDefault("extraction.use_batch_api", true)
	v.SetDefault("extraction.batch_threshold", 10)
	v.SetDefault("currency.hrk_to_eur_rate", "7.53450")
	v.SetDefault("generation.vat_note", "Sve cijene su izražene bez PDV-a.")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
