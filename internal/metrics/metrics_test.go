package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestGlobalMetrics(t *testing.T) {
	if Global() != nil {
		t.Error("Global() should be nil before SetGlobal")
	}

	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	if Global() != m {
		t.Error("Global() did not return the set metrics")
	}
}

func TestHelpersWithoutGlobal(t *testing.T) {
	// Every helper is a no-op when metrics are disabled
	IncAssetsGenerated("template", "conversion")
	IncGenerationFailed("model_authored", "llm")
	IncGenerationFallback()
	ObserveGeneration("template", 1)
	AddTokens("generate", 10)
	IncValidationFailed("model")
	IncSanitized()
	IncEdits("manual")
	AddExports("html", "single", 1)
	IncProofsSent()
	IncProofsFailed("submit")
	IncAPIErrors("not_found")
}

func TestHelpers(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncAssetsGenerated("model_authored", "conversion")
	IncAssetsGenerated("model_authored", "conversion")
	IncAssetsGenerated("template", "awareness")
	IncGenerationFallback()
	AddTokens("generate", 120)
	AddTokens("generate", 0)
	AddExports("html", "bulk", 3)
	IncEdits("undo")
	IncProofsSent()

	tests := []struct {
		name    string
		counter prometheus.Counter
		want    float64
	}{
		{"generated model", m.AssetsGeneratedTotal.WithLabelValues("model_authored", "conversion"), 2},
		{"generated template", m.AssetsGeneratedTotal.WithLabelValues("template", "awareness"), 1},
		{"fallbacks", m.GenerationFallbacksTotal, 1},
		{"tokens", m.LLMTokensTotal.WithLabelValues("generate"), 120},
		{"exports", m.ExportsTotal.WithLabelValues("html", "bulk"), 3},
		{"edits", m.EditsTotal.WithLabelValues("undo"), 1},
		{"proofs", m.ProofsSentTotal, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := counterValue(t, tt.counter); got != tt.want {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistryGather(t *testing.T) {
	m := New()
	m.SanitizationsTotal.Inc()

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, mf := range families {
		if mf.GetName() == "inkwell_sanitizations_total" {
			found = true
		}
	}
	if !found {
		t.Error("inkwell_sanitizations_total not gathered")
	}
}
