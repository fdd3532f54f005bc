package adapters

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/domain/entity"
)

func newTestGemini(t *testing.T, reply string, replyErr error) (*GeminiService, *string) {
	t.Helper()
	s, err := NewGeminiService("test-key", "")
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	var sent string
	s.generate = func(ctx context.Context, prompt string) (string, error) {
		sent = prompt
		return reply, replyErr
	}
	return s, &sent
}

func TestGeminiService_MarketScan(t *testing.T) {
	tests := []struct {
		name            string
		reply           string
		wantCompetitors int
		wantErr         bool
	}{
		{
			name: "clean JSON",
			reply: `{"competitors":[{"name":"Acme","marketPosition":"Leader","threatLevel":9,"features":["Payroll"]}],
				"featureComparison":[{"feature":"Payroll","competitors":["Acme"]}]}`,
			wantCompetitors: 1,
		},
		{
			name:            "fenced with trailing comma",
			reply:           "```json\n{\"competitors\":[{\"name\":\"Acme\",\"marketPosition\":\"niche\",},{\"name\":\"Beta\"},],}\n```",
			wantCompetitors: 2,
		},
		{
			name:            "blank names dropped",
			reply:           `{"competitors":[{"name":"  "},{"name":"Gamma","marketPosition":"unknown"}]}`,
			wantCompetitors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestGemini(t, tt.reply, nil)
			result, err := s.MarketScan(context.Background(), &adapter.MarketScanRequest{BusinessName: "Bookkeeping"})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result.Competitors) != tt.wantCompetitors {
				t.Fatalf("expected %d competitors, got %d", tt.wantCompetitors, len(result.Competitors))
			}
			for _, c := range result.Competitors {
				if !c.MarketPosition.IsValid() {
					t.Errorf("invalid market position %q", c.MarketPosition)
				}
				if c.ThreatLevel < 1 || c.ThreatLevel > 5 {
					t.Errorf("threat level %d out of range", c.ThreatLevel)
				}
			}
		})
	}

	t.Run("leader position and clamped threat", func(t *testing.T) {
		s, _ := newTestGemini(t, tests[0].reply, nil)
		result, _ := s.MarketScan(context.Background(), &adapter.MarketScanRequest{})
		if result.Competitors[0].MarketPosition != entity.MarketPositionLeader || result.Competitors[0].ThreatLevel != 5 {
			t.Errorf("unexpected competitor: %+v", result.Competitors[0])
		}
		if len(result.FeatureComparison) != 1 {
			t.Errorf("expected feature comparison row")
		}
	})
}

func TestGeminiService_MarketScanPrompt(t *testing.T) {
	s, sent := newTestGemini(t, `{"competitors":[]}`, nil)
	_, err := s.MarketScan(context.Background(), &adapter.MarketScanRequest{
		BusinessName: "Bean There",
		Solution:     "Roasted-to-order beans",
		Known:        []string{"Acme Coffee", "Brewly"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"BUSINESS: Bean There", "Roasted-to-order beans", "- Acme Coffee", "- Brewly"} {
		if !strings.Contains(*sent, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGeminiService_CompetitorDeepDive(t *testing.T) {
	t.Run("parses analysis", func(t *testing.T) {
		s, sent := newTestGemini(t, `{'analysis': 'Strong brand, weak onboarding.', 'features': ['API'], 'weaknesses': ['Price']}`, nil)
		result, err := s.CompetitorDeepDive(context.Background(), &adapter.DeepDiveRequest{
			BusinessName: "Bean There",
			Competitor:   entity.Competitor{Name: "Acme Coffee", Website: "acme.example"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Analysis != "Strong brand, weak onboarding." || len(result.Features) != 1 || len(result.Weaknesses) != 1 {
			t.Errorf("unexpected result: %+v", result)
		}
		if !strings.Contains(*sent, "COMPETITOR: Acme Coffee") || !strings.Contains(*sent, "WEBSITE: acme.example") {
			t.Errorf("prompt missing competitor details: %s", *sent)
		}
	})

	t.Run("empty analysis", func(t *testing.T) {
		s, _ := newTestGemini(t, `{"analysis":""}`, nil)
		if _, err := s.CompetitorDeepDive(context.Background(), &adapter.DeepDiveRequest{}); err == nil {
			t.Error("expected error for empty analysis")
		}
	})

	t.Run("generation error", func(t *testing.T) {
		s, _ := newTestGemini(t, "", errors.New("googleapi: Error 429"))
		_, err := s.CompetitorDeepDive(context.Background(), &adapter.DeepDiveRequest{})
		if err == nil || !strings.Contains(err.Error(), "429") {
			t.Errorf("expected wrapped 429 error, got %v", err)
		}
	})
}

func TestGeminiService_IsAvailable(t *testing.T) {
	s, err := NewGeminiService("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsAvailable() {
		t.Error("service without API key should be unavailable")
	}
	if _, err := s.MarketScan(context.Background(), &adapter.MarketScanRequest{}); err == nil {
		t.Error("expected error from unconfigured service")
	}
}
