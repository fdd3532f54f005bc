package adapters

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/domain/entity"
)

//go:embed prompts.yaml
var promptsYAML []byte

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash-lite"

type promptSet struct {
	MarketScan string `yaml:"market_scan"`
	DeepDive   string `yaml:"deep_dive"`
}

// generateFunc sends a prompt and returns the raw text of the first candidate.
type generateFunc func(ctx context.Context, prompt string) (string, error)

// GeminiService implements the AIAnalysisService using Google Gemini.
type GeminiService struct {
	apiKey    string
	modelName string

	marketScan *template.Template
	deepDive   *template.Template
	generate   generateFunc
}

// NewGeminiService creates a new Gemini service instance.
func NewGeminiService(apiKey, modelName string) (*GeminiService, error) {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	var prompts promptSet
	if err := yaml.Unmarshal(promptsYAML, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}

	marketScan, err := template.New("market_scan").Parse(prompts.MarketScan)
	if err != nil {
		return nil, fmt.Errorf("failed to parse market scan prompt: %w", err)
	}
	deepDive, err := template.New("deep_dive").Parse(prompts.DeepDive)
	if err != nil {
		return nil, fmt.Errorf("failed to parse deep dive prompt: %w", err)
	}

	s := &GeminiService{
		apiKey:     apiKey,
		modelName:  modelName,
		marketScan: marketScan,
		deepDive:   deepDive,
	}
	s.generate = s.generateContent
	return s, nil
}

// IsAvailable checks if the Gemini service is available and properly configured.
func (s *GeminiService) IsAvailable() bool {
	return s.apiKey != ""
}

// MarketScan asks Gemini for the competitors of the described business.
func (s *GeminiService) MarketScan(ctx context.Context, request *adapter.MarketScanRequest) (*adapter.MarketScanResult, error) {
	if !s.IsAvailable() {
		return nil, fmt.Errorf("gemini service is not configured")
	}

	prompt, err := render(s.marketScan, request)
	if err != nil {
		return nil, err
	}

	text, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	result, err := parseMarketScan(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return result, nil
}

// CompetitorDeepDive asks Gemini for a detailed analysis of one competitor.
func (s *GeminiService) CompetitorDeepDive(ctx context.Context, request *adapter.DeepDiveRequest) (*adapter.DeepDiveResult, error) {
	if !s.IsAvailable() {
		return nil, fmt.Errorf("gemini service is not configured")
	}

	prompt, err := render(s.deepDive, request)
	if err != nil {
		return nil, err
	}

	text, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	result, err := parseDeepDive(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return result, nil
}

func (s *GeminiService) generateContent(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(s.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(s.modelName)
	model.SetTemperature(0.4)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in response")
	}
	return sb.String(), nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// decodeModelJSON strips markdown fences and repairs the usual LLM damage
// (trailing commas, single quotes, truncated arrays) before decoding.
func decodeModelJSON(text string, v any) error {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	repaired, err := jsonrepair.RepairJSON(text)
	if err != nil {
		return fmt.Errorf("failed to repair JSON response: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON response: %w", err)
	}
	return nil
}

type geminiCompetitor struct {
	Name           string   `json:"name"`
	MarketPosition string   `json:"marketPosition"`
	ThreatLevel    int      `json:"threatLevel"`
	Strengths      string   `json:"strengths"`
	Weaknesses     string   `json:"weaknesses"`
	TargetMarket   string   `json:"targetMarket"`
	OurAdvantage   string   `json:"ourAdvantage"`
	Pricing        string   `json:"pricing"`
	Website        string   `json:"website"`
	Features       []string `json:"features"`
}

type geminiMarketScan struct {
	Competitors       []geminiCompetitor `json:"competitors"`
	FeatureComparison []struct {
		Feature     string   `json:"feature"`
		Competitors []string `json:"competitors"`
	} `json:"featureComparison"`
}

func parseMarketScan(text string) (*adapter.MarketScanResult, error) {
	var raw geminiMarketScan
	if err := decodeModelJSON(text, &raw); err != nil {
		return nil, err
	}

	result := &adapter.MarketScanResult{
		Competitors:       make([]entity.Competitor, 0, len(raw.Competitors)),
		FeatureComparison: make([]entity.FeatureComparison, 0, len(raw.FeatureComparison)),
	}
	for _, c := range raw.Competitors {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		position := entity.MarketPosition(strings.ToLower(strings.TrimSpace(c.MarketPosition)))
		if !position.IsValid() {
			position = entity.MarketPositionNiche
		}
		result.Competitors = append(result.Competitors, entity.Competitor{
			Name:           name,
			MarketPosition: position,
			ThreatLevel:    clampThreat(c.ThreatLevel),
			Strengths:      c.Strengths,
			Weaknesses:     c.Weaknesses,
			TargetMarket:   c.TargetMarket,
			OurAdvantage:   c.OurAdvantage,
			Pricing:        c.Pricing,
			Website:        c.Website,
			Features:       c.Features,
		})
	}
	for _, fc := range raw.FeatureComparison {
		if strings.TrimSpace(fc.Feature) == "" {
			continue
		}
		result.FeatureComparison = append(result.FeatureComparison, entity.FeatureComparison{
			Feature:     strings.TrimSpace(fc.Feature),
			Competitors: fc.Competitors,
		})
	}
	return result, nil
}

func clampThreat(level int) int {
	switch {
	case level < 1:
		return 1
	case level > 5:
		return 5
	}
	return level
}

func parseDeepDive(text string) (*adapter.DeepDiveResult, error) {
	var raw struct {
		Analysis   string   `json:"analysis"`
		Features   []string `json:"features"`
		Weaknesses []string `json:"weaknesses"`
	}
	if err := decodeModelJSON(text, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.Analysis) == "" {
		return nil, fmt.Errorf("deep dive response has no analysis")
	}
	return &adapter.DeepDiveResult{
		Analysis:   strings.TrimSpace(raw.Analysis),
		Features:   raw.Features,
		Weaknesses: raw.Weaknesses,
	}, nil
}

// Ensure GeminiService implements adapter.AIAnalysisService.
var _ adapter.AIAnalysisService = (*GeminiService)(nil)
