package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/mirador-churn/internal/charts"
	"github.com/miradorstack/mirador-churn/internal/ingest"
	"github.com/miradorstack/mirador-churn/internal/metrics"
)

// ArtifactOptions selects the files written next to report.json.
type ArtifactOptions struct {
	Dir         string
	Charts      bool
	CleanedCSV  bool
	MetricsFile string
	Gatherer    prometheus.Gatherer
}

// WriteArtifacts writes the report and the optional artefacts under opts.Dir and
// returns the written paths.
func WriteArtifacts(report *Report, opts ArtifactOptions) ([]string, error) {
	if report == nil {
		return nil, fmt.Errorf("write artifacts: nil report")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	path := filepath.Join(opts.Dir, "report.json")
	if err := writeJSON(path, report); err != nil {
		return written, err
	}
	written = append(written, path)

	if opts.CleanedCSV {
		path := filepath.Join(opts.Dir, "cleaned.csv")
		if err := writeCleaned(path, report); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if opts.Charts {
		paths, err := writeCharts(filepath.Join(opts.Dir, "charts"), report)
		written = append(written, paths...)
		if err != nil {
			return written, err
		}
	}

	if opts.MetricsFile != "" && opts.Gatherer != nil {
		path := opts.MetricsFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(opts.Dir, path)
		}
		if err := metrics.WriteTextfile(path, opts.Gatherer); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeCleaned(path string, report *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := ingest.WriteCSV(f, report.Cleaned); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeCharts(dir string, report *Report) ([]string, error) {
	var written []string
	summary := report.Summary

	fields := make([]string, 0, len(summary.GroupRates))
	for field := range summary.GroupRates {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		path := filepath.Join(dir, "churn_by_"+fileName(field)+".png")
		if err := charts.ChurnRateBar(path, field, summary.GroupRates[field], summary.ChurnRate); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if len(summary.Tenure) > 0 {
		var services []string
		for service := range summary.Tenure[0].Adoption {
			services = append(services, service)
		}
		sort.Strings(services)
		path := filepath.Join(dir, "tenure.png")
		if err := charts.TenureLines(path, summary.Tenure, services); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	for _, m := range report.Models {
		if len(m.Importance) == 0 {
			continue
		}
		path := filepath.Join(dir, "importance_"+fileName(m.Name)+".png")
		if err := charts.ImportanceBar(path, m.Name, m.Importance); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func fileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}
