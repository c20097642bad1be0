package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/miradorstack/mirador-churn/internal/models"
	"github.com/miradorstack/mirador-churn/internal/utils"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MIRADOR_CHURN_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Split.TrainFraction != 0.7 || cfg.Split.Seed != 123 {
		t.Fatalf("unexpected split defaults %+v", cfg.Split)
	}
	if cfg.Models.Forest.Trees != 100 || !cfg.Models.Logistic.Enabled {
		t.Fatalf("unexpected model defaults %+v", cfg.Models)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "churn.yaml")
	body := `
input:
  path: customers.csv
  delimiter: ";"
split:
  seed: 7
models:
  forest:
    trees: 20
cache:
  ttl: 30s
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MIRADOR_CHURN_OUTPUT_DIR", "reports")
	t.Setenv("MIRADOR_CHURN_FOREST_WORKERS", "2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Input.Path != "customers.csv" || cfg.Split.Seed != 7 || cfg.Models.Forest.Trees != 20 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Models.Logistic.MaxIterations != 25 {
		t.Fatalf("expected untouched defaults to survive, got %d", cfg.Models.Logistic.MaxIterations)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Fatalf("expected ttl 30s, got %v", cfg.Cache.TTL)
	}
	if cfg.Output.Dir != "reports" || cfg.Models.Forest.Workers != 2 {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.Output, cfg.Models.Forest)
	}
	r, err := cfg.DelimiterRune()
	if err != nil || r != ';' {
		t.Fatalf("expected ';', got %q (%v)", r, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cfg := Default()
	cfg.Split.TrainFraction = 1.2
	cfg.Input.Delimiter = ";;"
	cfg.Analysis.CategoricalFields = append(cfg.Analysis.CategoricalFields, "tenure")

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"trainFraction", "delimiter", "tenure"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
	if utils.Classify(err) != utils.CodeConfig {
		t.Fatalf("expected config code, got %s", utils.Classify(err))
	}
}

func TestValidateRequiresAModel(t *testing.T) {
	cfg := Default()
	cfg.Models.Logistic.Enabled = false
	cfg.Models.Forest.Enabled = false

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "must be enabled") {
		t.Fatalf("expected error with every model disabled, got %v", err)
	}

	cfg.Models.Forest.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("forest alone should validate: %v", err)
	}
}

func TestFieldLists(t *testing.T) {
	cfg := Default()
	services, err := cfg.ServiceFields()
	if err != nil {
		t.Fatalf("service fields: %v", err)
	}
	if len(services) != 6 || services[0] != models.FieldOnlineSecurity {
		t.Fatalf("unexpected services %v", services)
	}
	cfg.Input.Delimiter = `\t`
	if r, _ := cfg.DelimiterRune(); r != '\t' {
		t.Fatalf("expected tab delimiter")
	}
}
