package plandata

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/domain/projection"
)

func TestDefault(t *testing.T) {
	owner := uuid.New()
	doc := Default(owner, "Cafe")

	if doc.OwnerID != owner || doc.LastEditedBy != owner {
		t.Error("expected owner and editor to be set")
	}
	if len(doc.MonthlyProjections) != 60 {
		t.Fatalf("expected 60 monthly rows, got %d", len(doc.MonthlyProjections))
	}
	first := doc.MonthlyProjections[0]
	if first.Revenue != 10000 || first.ClientCount != 5 || first.Month != 1 {
		t.Errorf("unexpected first row: %+v", first)
	}
	last := doc.MonthlyProjections[59]
	if last.ClientCount != 70 || last.Month != 60 {
		t.Errorf("unexpected last row: %+v", last)
	}
	for i, row := range doc.MonthlyProjections {
		if row.Revenue != row.Expenses+row.Profit {
			t.Errorf("row %d breaks the profit identity: %+v", i, row)
		}
	}
	if len(doc.YearlyProjections) != 5 {
		t.Errorf("expected 5 yearly rows, got %d", len(doc.YearlyProjections))
	}
	if doc.ProductRoadmap.IsLegacy() {
		t.Error("expected structured roadmap")
	}
	if _, err := Validate(doc, ValidationOptions{StrictPriceRanges: true}); err != nil {
		t.Errorf("expected default plan to validate, got %v", err)
	}

	t.Run("seventy percent margin on the first row", func(t *testing.T) {
		rows := projection.RecalculateOnMarginChange(doc.MonthlyProjections, 0, 70)
		if rows[0].Profit != 7000 || rows[0].Expenses != 3000 {
			t.Errorf("expected 7000/3000, got %.0f/%.0f", rows[0].Profit, rows[0].Expenses)
		}
	})

	t.Run("empty title falls back", func(t *testing.T) {
		if Default(owner, "").Title == "" {
			t.Error("expected a default title")
		}
	})
}

func TestMigrate(t *testing.T) {
	t.Run("legacy roadmap becomes a single planned item", func(t *testing.T) {
		var doc entity.BusinessPlanDocument
		raw := `{"id":"p1","productRoadmap":"Q1: launch MVP","monthlyProjections":[]}`
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}

		if !Migrate(&doc) {
			t.Fatal("expected migration to report a change")
		}
		items := doc.ProductRoadmap.Items()
		if len(items) != 1 {
			t.Fatalf("expected 1 item, got %d", len(items))
		}
		if items[0].Feature != LegacyRoadmapFeature || items[0].Description != "Q1: launch MVP" {
			t.Errorf("unexpected item: %+v", items[0])
		}
		if items[0].Status != entity.RoadmapStatusPlanned || items[0].Source != entity.RoadmapSourceManual {
			t.Errorf("unexpected status or source: %+v", items[0])
		}
		if len(doc.MonthlyProjections) != 0 {
			t.Error("expected explicit empty projections to be kept")
		}
	})

	t.Run("blank legacy roadmap becomes empty", func(t *testing.T) {
		doc := entity.BusinessPlanDocument{ID: "p1", ProductRoadmap: entity.LegacyRoadmap("  "), MonthlyProjections: []entity.ProjectionRow{}}
		Migrate(&doc)
		if doc.ProductRoadmap.IsLegacy() || doc.ProductRoadmap.Len() != 0 {
			t.Errorf("expected empty structured roadmap, got %+v", doc.ProductRoadmap)
		}
	})

	t.Run("missing projections are filled", func(t *testing.T) {
		doc := entity.BusinessPlanDocument{ID: "p1"}
		if !Migrate(&doc) {
			t.Fatal("expected migration to report a change")
		}
		if len(doc.MonthlyProjections) != 60 {
			t.Errorf("expected default projections, got %d rows", len(doc.MonthlyProjections))
		}
	})

	t.Run("missing competitors encode as an empty list", func(t *testing.T) {
		doc := Default(uuid.New(), "Shop")
		doc.Competitors = nil
		if Migrate(doc) {
			t.Error("an empty competitor list is not a content change")
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("failed to encode: %v", err)
		}
		if !strings.Contains(string(raw), `"competitors":[]`) {
			t.Errorf("expected an empty competitors array, got %s", raw)
		}
	})

	t.Run("current documents are untouched", func(t *testing.T) {
		doc := Default(uuid.New(), "Shop")
		before := doc.Clone()
		if Migrate(doc) {
			t.Error("expected no change")
		}
		if !reflect.DeepEqual(before, doc) {
			t.Error("document was modified")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(d *entity.BusinessPlanDocument)
		strict   bool
		code     domainerror.PlanErrorCode
		warnings int
	}{
		{name: "valid", mutate: func(d *entity.BusinessPlanDocument) {}},
		{name: "NaN price", mutate: func(d *entity.BusinessPlanDocument) { d.Pricing.HourlyRate = math.NaN() }, code: domainerror.ErrCodeInvalidNumber},
		{name: "infinite revenue", mutate: func(d *entity.BusinessPlanDocument) { d.MonthlyProjections[3].Revenue = math.Inf(1) }, code: domainerror.ErrCodeInvalidNumber},
		{name: "negative price", mutate: func(d *entity.BusinessPlanDocument) { d.Pricing.BasePriceLow = -1 }, code: domainerror.ErrCodeNegativeValue},
		{name: "negative clients", mutate: func(d *entity.BusinessPlanDocument) { d.MonthlyProjections[0].ClientCount = -2 }, code: domainerror.ErrCodeNegativeValue},
		{name: "inverted range warns", mutate: func(d *entity.BusinessPlanDocument) { d.Pricing.BasePriceLow = 3000 }, warnings: 1},
		{name: "inverted range rejected when strict", mutate: func(d *entity.BusinessPlanDocument) { d.Pricing.FeaturePriceLow = 3000 }, strict: true, code: domainerror.ErrCodeInvertedRange},
		{name: "unknown market position", mutate: func(d *entity.BusinessPlanDocument) {
			d.Competitors = []entity.Competitor{{Name: "Acme", MarketPosition: "king"}}
		}, code: domainerror.ErrCodeInvalidEnum},
		{name: "threat level out of range", mutate: func(d *entity.BusinessPlanDocument) {
			d.Competitors = []entity.Competitor{{Name: "Acme", ThreatLevel: 9}}
		}, code: domainerror.ErrCodeInvalidNumber},
		{name: "unset threat level", mutate: func(d *entity.BusinessPlanDocument) {
			d.Competitors = []entity.Competitor{{Name: "Acme"}}
		}},
		{name: "negative threat level", mutate: func(d *entity.BusinessPlanDocument) {
			d.Competitors = []entity.Competitor{{Name: "Acme", ThreatLevel: -1}}
		}, code: domainerror.ErrCodeInvalidNumber},
		{name: "upgrade adoption above 100", mutate: func(d *entity.BusinessPlanDocument) { d.MonthlyProjections[2].UpgradeAdoption = 140 }, code: domainerror.ErrCodeInvalidNumber},
		{name: "negative upgrade adoption", mutate: func(d *entity.BusinessPlanDocument) { d.YearlyProjections[0].UpgradeAdoption = -5 }, code: domainerror.ErrCodeInvalidNumber},
		{name: "full upgrade adoption", mutate: func(d *entity.BusinessPlanDocument) { d.YearlyProjections[0].UpgradeAdoption = 100 }},
		{name: "unknown legal status", mutate: func(d *entity.BusinessPlanDocument) { d.Legal[0].Status = "done" }, code: domainerror.ErrCodeInvalidEnum},
		{name: "missing id", mutate: func(d *entity.BusinessPlanDocument) { d.ID = "" }, code: domainerror.ErrCodeMissingPlanField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Default(uuid.New(), "Plan")
			tt.mutate(doc)

			warnings, err := Validate(doc, ValidationOptions{StrictPriceRanges: tt.strict})

			if tt.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(warnings) != tt.warnings {
					t.Errorf("expected %d warnings, got %v", tt.warnings, warnings)
				}
				return
			}

			var planErr *domainerror.PlanError
			if !errors.As(err, &planErr) {
				t.Fatalf("expected PlanError, got %v", err)
			}
			if planErr.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, planErr.Code)
			}
			if !domainerror.IsValidationError(err) {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestChangedSections(t *testing.T) {
	prev := Default(uuid.New(), "Plan")

	t.Run("no change", func(t *testing.T) {
		if got := ChangedSections(prev, prev.Clone()); len(got) != 0 {
			t.Errorf("expected no sections, got %v", got)
		}
	})

	t.Run("pricing and projections", func(t *testing.T) {
		next := prev.Clone()
		next.Pricing.HourlyRate = 200
		next.MonthlyProjections = projection.RecalculateOnMarginChange(next.MonthlyProjections, 0, 50)

		got := ChangedSections(prev, next)
		expected := []string{SectionPricing, SectionProjections}
		if !reflect.DeepEqual(got, expected) {
			t.Errorf("expected %v, got %v", expected, got)
		}
	})

	t.Run("json round trip is not a change", func(t *testing.T) {
		data, err := json.Marshal(prev)
		if err != nil {
			t.Fatalf("failed to encode: %v", err)
		}
		var decoded entity.BusinessPlanDocument
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if got := ChangedSections(prev, &decoded); len(got) != 0 {
			t.Errorf("expected no sections, got %v", got)
		}
	})

	t.Run("nil previous marks everything present", func(t *testing.T) {
		got := ChangedSections(nil, prev)
		if len(got) == 0 || got[0] != SectionNarrative {
			t.Errorf("unexpected sections: %v", got)
		}
	})
}
