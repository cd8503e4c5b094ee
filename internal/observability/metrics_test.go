package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/opensource-finance/baobab/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveComparison(t *testing.T) {
	m := NewMetricsForTesting()
	result := &domain.ComparisonResult{
		Cells: []domain.Cell{
			{Status: domain.CellOK},
			{Status: domain.CellOK},
			{Status: domain.CellFailed, Failure: &domain.CellFailure{Kind: domain.KindRange}},
		},
	}

	m.ObserveComparison(result, 0.002)

	if got := testutil.ToFloat64(m.Comparisons); got != 1 {
		t.Errorf("expected 1 comparison, got %v", got)
	}
	if got := testutil.ToFloat64(m.Cells.WithLabelValues(domain.CellOK, "")); got != 2 {
		t.Errorf("expected 2 ok cells, got %v", got)
	}
	if got := testutil.ToFloat64(m.Cells.WithLabelValues(domain.CellFailed, domain.KindRange)); got != 1 {
		t.Errorf("expected 1 range failure, got %v", got)
	}
	if got := testutil.CollectAndCount(m.ComparisonDuration); got != 1 {
		t.Errorf("expected duration histogram, got %d series", got)
	}
}

func TestObserveComparisonNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveComparison(&domain.ComparisonResult{}, 1)
}

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.SevereAlerts.Inc()
	m.CacheLookups.WithLabelValues("hit").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"baobab_severe_alerts_total", "baobab_cache_lookups_total", "baobab_comparisons_total"} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       domain.LoggingConfig
		wantDebug bool
		wantJSON  bool
	}{
		{"default json", domain.LoggingConfig{}, false, true},
		{"debug json", domain.LoggingConfig{Level: "debug", Format: "json"}, true, true},
		{"text", domain.LoggingConfig{Level: "DEBUG", Format: "text"}, true, false},
		{"error only", domain.LoggingConfig{Level: "error"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.cfg)

			logger.Debug("debug line")
			if got := buf.Len() > 0; got != tt.wantDebug {
				t.Errorf("debug emitted = %v, want %v", got, tt.wantDebug)
			}

			buf.Reset()
			logger.Error("error line", "scenario", "SSP2-4.5")
			line := strings.TrimSpace(buf.String())
			var decoded map[string]any
			isJSON := json.Unmarshal([]byte(line), &decoded) == nil
			if isJSON != tt.wantJSON {
				t.Errorf("json output = %v, want %v: %s", isJSON, tt.wantJSON, line)
			}
			if !strings.Contains(line, "SSP2-4.5") {
				t.Errorf("expected attribute in output: %s", line)
			}
		})
	}
}
