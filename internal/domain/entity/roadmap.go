package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RoadmapStatus is the lifecycle state of a roadmap item.
type RoadmapStatus string

const (
	RoadmapStatusIdea       RoadmapStatus = "idea"
	RoadmapStatusPlanned    RoadmapStatus = "planned"
	RoadmapStatusInProgress RoadmapStatus = "in-progress"
	RoadmapStatusCompleted  RoadmapStatus = "completed"
)

// IsValid reports whether the status is one of the known values.
func (s RoadmapStatus) IsValid() bool {
	switch s {
	case RoadmapStatusIdea, RoadmapStatusPlanned, RoadmapStatusInProgress, RoadmapStatusCompleted:
		return true
	}
	return false
}

// RoadmapSource records how a roadmap item was created.
type RoadmapSource string

const (
	RoadmapSourceManual      RoadmapSource = "manual"
	RoadmapSourceGapAnalysis RoadmapSource = "gap-analysis"
)

// RoadmapItem is one feature on the product roadmap.
type RoadmapItem struct {
	ID          string        `json:"id"`
	Feature     string        `json:"feature"`
	Status      RoadmapStatus `json:"status"`
	Quarter     string        `json:"quarter"`
	Description string        `json:"description"`
	Source      RoadmapSource `json:"source"`
}

// Roadmap is either a legacy free-text roadmap or a structured item list.
// Older plans stored the roadmap as a single string; it is decoded as Legacy
// and converted once on load.
type Roadmap struct {
	legacy   string
	isLegacy bool
	items    []RoadmapItem
}

// LegacyRoadmap wraps a free-text roadmap.
func LegacyRoadmap(text string) Roadmap {
	return Roadmap{legacy: text, isLegacy: true}
}

// StructuredRoadmap wraps a list of roadmap items.
func StructuredRoadmap(items []RoadmapItem) Roadmap {
	return Roadmap{items: cloneSlice(items)}
}

// IsLegacy reports whether the roadmap still holds free text.
func (r Roadmap) IsLegacy() bool {
	return r.isLegacy
}

// LegacyText returns the free-text roadmap, empty for structured roadmaps.
func (r Roadmap) LegacyText() string {
	return r.legacy
}

// Items returns a copy of the structured items. Legacy roadmaps have none.
func (r Roadmap) Items() []RoadmapItem {
	return cloneSlice(r.items)
}

// Len returns the number of structured items.
func (r Roadmap) Len() int {
	return len(r.items)
}

func (r Roadmap) clone() Roadmap {
	return Roadmap{legacy: r.legacy, isLegacy: r.isLegacy, items: cloneSlice(r.items)}
}

// MarshalJSON encodes legacy roadmaps as a string and structured ones as an array.
func (r Roadmap) MarshalJSON() ([]byte, error) {
	if r.isLegacy {
		return json.Marshal(r.legacy)
	}
	if r.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.items)
}

// UnmarshalJSON accepts either a string or an array of items.
func (r *Roadmap) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*r = Roadmap{}
		return nil
	case trimmed[0] == '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return fmt.Errorf("failed to decode legacy roadmap: %w", err)
		}
		*r = LegacyRoadmap(text)
		return nil
	case trimmed[0] == '[':
		var items []RoadmapItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("failed to decode roadmap items: %w", err)
		}
		*r = Roadmap{items: items}
		return nil
	default:
		return fmt.Errorf("roadmap must be a string or an array, got %q", string(trimmed[:1]))
	}
}
