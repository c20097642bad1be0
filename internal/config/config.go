package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-churn/internal/models"
	"github.com/miradorstack/mirador-churn/internal/utils"
)

// Config captures every setting of a churn report run.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Split    SplitConfig    `yaml:"split"`
	Models   ModelsConfig   `yaml:"models"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Output   OutputConfig   `yaml:"output"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InputConfig locates and decodes the customer table.
type InputConfig struct {
	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter"`
	Encoding  string `yaml:"encoding"`
}

// SplitConfig controls the stratified train/test split.
type SplitConfig struct {
	TrainFraction float64 `yaml:"trainFraction"`
	Seed          int64   `yaml:"seed"`
}

// ModelsConfig groups the classifier settings.
type ModelsConfig struct {
	Logistic LogisticConfig `yaml:"logistic"`
	Forest   ForestConfig   `yaml:"forest"`
}

// LogisticConfig configures the IRLS logistic regression.
type LogisticConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Threshold     float64 `yaml:"threshold"`
	MaxIterations int     `yaml:"maxIterations"`
	Tolerance     float64 `yaml:"tolerance"`
}

// ForestConfig configures the random forest.
type ForestConfig struct {
	Enabled     bool  `yaml:"enabled"`
	Trees       int   `yaml:"trees"`
	MaxFeatures int   `yaml:"maxFeatures"`
	MinNodeSize int   `yaml:"minNodeSize"`
	Seed        int64 `yaml:"seed"`
	Workers     int   `yaml:"workers"`
}

// AnalysisConfig selects the fields summarised by the descriptive stage.
type AnalysisConfig struct {
	CategoricalFields []string `yaml:"categoricalFields"`
	ServiceFields     []string `yaml:"serviceFields"`
	HotspotMinSupport int      `yaml:"hotspotMinSupport"`
	HotspotLimit      int      `yaml:"hotspotLimit"`
}

// OutputConfig controls the report artefacts.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Charts      bool   `yaml:"charts"`
	CleanedCSV  bool   `yaml:"cleanedCSV"`
	MetricsFile string `yaml:"metricsFile"`
}

// StoreConfig enables the SQLite run history when Path is set.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig controls the gRPC listener used with -serve.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	Reflection      bool          `yaml:"reflection"`
}

// CacheConfig sizes the in-process view cache.
type CacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_CHURN_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, utils.WithCode(utils.CodeConfig, fmt.Errorf("parse config: %w", err))
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := defaultConfig()
	return &cfg
}

func defaultConfig() Config {
	return Config{
		Input: InputConfig{
			Path:      "data/WA_Fn-UseC_-Telco-Customer-Churn.csv",
			Delimiter: ",",
			Encoding:  "utf-8",
		},
		Split: SplitConfig{TrainFraction: 0.7, Seed: 123},
		Models: ModelsConfig{
			Logistic: LogisticConfig{Enabled: true, Threshold: 0.5, MaxIterations: 25, Tolerance: 1e-8},
			Forest:   ForestConfig{Enabled: true, Trees: 100, MinNodeSize: 1, Seed: 123},
		},
		Analysis: AnalysisConfig{
			CategoricalFields: []string{
				"gender", "SeniorCitizen", "Partner", "Dependents", "PhoneService",
				"MultipleLines", "InternetService", "OnlineSecurity", "OnlineBackup",
				"DeviceProtection", "TechSupport", "StreamingTV", "StreamingMovies",
				"Contract", "PaperlessBilling", "PaymentMethod",
			},
			ServiceFields: []string{
				"OnlineSecurity", "OnlineBackup", "DeviceProtection",
				"TechSupport", "StreamingTV", "StreamingMovies",
			},
			HotspotMinSupport: 50,
			HotspotLimit:      10,
		},
		Output: OutputConfig{Dir: "out", Charts: true, CleanedCSV: true, MetricsFile: "metrics.prom"},
		Server: ServerConfig{
			Address:         ":50061",
			MetricsAddress:  ":2113",
			GracefulTimeout: 10 * time.Second,
			Reflection:      true,
		},
		Cache:   CacheConfig{Size: 64, TTL: 5 * time.Minute},
		Logging: LoggingConfig{Level: "info", JSON: false, MaxSizeMB: 50, MaxBackups: 3},
	}
}

// Validate rejects settings that would make a stage fail later.
func (c *Config) Validate() error {
	var problems []string
	if _, err := c.DelimiterRune(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.CategoricalFields(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.ServiceFields(); err != nil {
		problems = append(problems, err.Error())
	}
	if f := c.Split.TrainFraction; math.IsNaN(f) || f <= 0 || f >= 1 {
		problems = append(problems, fmt.Sprintf("split.trainFraction %v is outside (0,1)", f))
	}
	if t := c.Models.Logistic.Threshold; t <= 0 || t >= 1 {
		problems = append(problems, fmt.Sprintf("models.logistic.threshold %v is outside (0,1)", t))
	}
	if c.Models.Logistic.MaxIterations <= 0 {
		problems = append(problems, "models.logistic.maxIterations must be positive")
	}
	if c.Models.Forest.Trees <= 0 {
		problems = append(problems, "models.forest.trees must be positive")
	}
	if c.Models.Forest.MaxFeatures < 0 || c.Models.Forest.Workers < 0 {
		problems = append(problems, "models.forest.maxFeatures and workers must not be negative")
	}
	if !c.Models.Logistic.Enabled && !c.Models.Forest.Enabled {
		problems = append(problems, "at least one of models.logistic and models.forest must be enabled")
	}
	if c.Output.Dir == "" {
		problems = append(problems, "output.dir is required")
	}
	if len(problems) > 0 {
		return utils.WithCode(utils.CodeConfig, fmt.Errorf("invalid config: %s", strings.Join(problems, "; ")))
	}
	return nil
}

// DelimiterRune returns the single-character input delimiter.
func (c *Config) DelimiterRune() (rune, error) {
	d := c.Input.Delimiter
	if d == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(d) != 1 {
		return 0, fmt.Errorf("input.delimiter %q must be a single character", d)
	}
	r, _ := utf8.DecodeRuneInString(d)
	return r, nil
}

// CategoricalFields resolves analysis.categoricalFields.
func (c *Config) CategoricalFields() ([]models.Field, error) {
	return categoricalList("analysis.categoricalFields", c.Analysis.CategoricalFields)
}

// ServiceFields resolves analysis.serviceFields.
func (c *Config) ServiceFields() ([]models.Field, error) {
	return categoricalList("analysis.serviceFields", c.Analysis.ServiceFields)
}

func categoricalList(key string, names []string) ([]models.Field, error) {
	out := make([]models.Field, 0, len(names))
	for _, name := range names {
		f, err := models.ParseField(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if f.Kind() != models.KindCategorical {
			return nil, fmt.Errorf("%s: %s is %s, not categorical", key, name, f.Kind())
		}
		out = append(out, f)
	}
	return out, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_CHURN_INPUT"); v != "" {
		cfg.Input.Path = v
	}
	if v := os.Getenv("MIRADOR_CHURN_DELIMITER"); v != "" {
		cfg.Input.Delimiter = v
	}
	if v := os.Getenv("MIRADOR_CHURN_ENCODING"); v != "" {
		cfg.Input.Encoding = v
	}
	if v := os.Getenv("MIRADOR_CHURN_TRAIN_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Split.TrainFraction = f
		}
	}
	if v := os.Getenv("MIRADOR_CHURN_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Split.Seed = seed
			cfg.Models.Forest.Seed = seed
		}
	}
	if v := os.Getenv("MIRADOR_CHURN_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Models.Logistic.Threshold = f
		}
	}
	if v := os.Getenv("MIRADOR_CHURN_FOREST_TREES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Models.Forest.Trees = n
		}
	}
	if v := os.Getenv("MIRADOR_CHURN_FOREST_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Models.Forest.Workers = n
		}
	}
	if v := os.Getenv("MIRADOR_CHURN_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("MIRADOR_CHURN_CHARTS"); v != "" {
		cfg.Output.Charts = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("MIRADOR_CHURN_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("MIRADOR_CHURN_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MIRADOR_CHURN_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MIRADOR_CHURN_SERVER_REFLECTION"); v != "" {
		cfg.Server.Reflection = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("MIRADOR_CHURN_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Size = n
		}
	}
	if v := os.Getenv("MIRADOR_CHURN_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("MIRADOR_CHURN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_CHURN_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_CHURN_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}
