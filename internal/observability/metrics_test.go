package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lzjever/escn/internal/core"
)

func TestRegisterGenerator(t *testing.T) {
	reg := prometheus.NewRegistry()
	gen := core.NewGenerator()
	RegisterGenerator(reg, gen)

	for i := 0; i < 3; i++ {
		if _, err := gen.Generate("001", "123456789"); err != nil {
			t.Fatalf("generate: %v", err)
		}
	}

	n, err := testutil.GatherAndCount(reg, "escn_generated_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one escn_generated_total series, got %d", n)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "escn_generated_total" {
			if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 3 {
				t.Errorf("expected 3 generated, got %v", v)
			}
		}
	}
}

func TestRegisterAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterAll(reg)

	RegistryRequestsTotal.WithLabelValues("student_exists", "200").Inc()
	if got := testutil.ToFloat64(RegistryRequestsTotal.WithLabelValues("student_exists", "200")); got < 1 {
		t.Errorf("expected counter to be incremented, got %v", got)
	}
}
