package observability

import (
	"context"
	"testing"

	"github.com/business-planner/backend/config"
)

func TestClampRatio(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-1, 0},
		{0, 0},
		{0.25, 0.25},
		{1, 1},
		{3, 1},
	}
	for _, tt := range tests {
		if got := clampRatio(tt.in); got != tt.want {
			t.Errorf("clampRatio(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown := InitTracing(context.Background(), config.TelemetryConfig{OTelEnabled: false}, "test")
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("expected no-op shutdown, got %v", err)
	}
}
