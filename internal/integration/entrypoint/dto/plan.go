package dto

import (
	"encoding/json"
	"time"

	"github.com/business-planner/backend/internal/application/planstate"
	planuc "github.com/business-planner/backend/internal/application/usecase/plan"
	"github.com/business-planner/backend/internal/domain/entity"
	"github.com/business-planner/backend/internal/domain/projection"
)

// CreatePlanRequest represents the request body for creating a plan.
// Document is optional; without it the plan starts from the default template.
type CreatePlanRequest struct {
	Title    string          `json:"title" binding:"max=255"`
	Document json.RawMessage `json:"document"`
}

// PlanStateResponse represents the save and history state of an open plan.
type PlanStateResponse struct {
	Status        string     `json:"status"`
	CanUndo       bool       `json:"can_undo"`
	CanRedo       bool       `json:"can_redo"`
	Position      int        `json:"position"`
	HistoryLength int        `json:"history_length"`
	Generation    uint64     `json:"generation"`
	LastError     string     `json:"last_error,omitempty"`
	LastSavedAt   *time.Time `json:"last_saved_at,omitempty"`
}

// PlanResponse represents a plan's working copy with its state.
type PlanResponse struct {
	Plan     *entity.BusinessPlanDocument `json:"plan"`
	State    PlanStateResponse            `json:"state"`
	Warnings []string                     `json:"warnings,omitempty"`
}

// CreatePlanResponse represents the response for a created plan.
type CreatePlanResponse struct {
	Plan     *entity.BusinessPlanDocument `json:"plan"`
	Warnings []string                     `json:"warnings,omitempty"`
}

// PlanSummaryResponse represents a plan in list responses.
type PlanSummaryResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlanListResponse represents the response for listing plans.
type PlanListResponse struct {
	Plans []PlanSummaryResponse `json:"plans"`
}

// HistoryResponse represents the result of undo, redo or a shortcut.
type HistoryResponse struct {
	PlanResponse
	Applied  bool                      `json:"applied"`
	Shortcut *planstate.ShortcutResult `json:"shortcut,omitempty"`
}

// ClientCountRequest represents a client count edit on one projection row.
type ClientCountRequest struct {
	Schedule    string `json:"schedule" binding:"omitempty,oneof=monthly yearly"`
	Index       *int   `json:"index" binding:"required"`
	ClientCount *int   `json:"client_count" binding:"required"`
}

// MarginRequest represents a profit margin edit on one projection row.
type MarginRequest struct {
	Schedule      string   `json:"schedule" binding:"omitempty,oneof=monthly yearly"`
	Index         *int     `json:"index" binding:"required"`
	MarginPercent *float64 `json:"margin_percent" binding:"required"`
}

// ScheduleRequest represents a request to rebuild a projection schedule.
// Without params the revenue inputs are derived from the plan's pricing.
type ScheduleRequest struct {
	Schedule     string                 `json:"schedule" binding:"omitempty,oneof=monthly yearly"`
	StartClients int                    `json:"start_clients"`
	EndClients   int                    `json:"end_clients"`
	Periods      int                    `json:"periods" binding:"required"`
	Params       *ScheduleParamsRequest `json:"params"`
}

// ScheduleParamsRequest represents explicit revenue stream inputs.
type ScheduleParamsRequest struct {
	SubscriptionPrice      float64 `json:"subscription_price"`
	UpsellRate             float64 `json:"upsell_rate"`
	UpsellMarkup           float64 `json:"upsell_markup"`
	ReferralConversionRate float64 `json:"referral_conversion_rate"`
	AvgReferralValue       float64 `json:"avg_referral_value"`
	WhiteLabelCap          int     `json:"white_label_cap"`
	AvgWhiteLabelPrice     float64 `json:"avg_white_label_price"`
}

// ToScheduleParams converts the request to projection inputs.
func (p *ScheduleParamsRequest) ToScheduleParams() *projection.ScheduleParams {
	if p == nil {
		return nil
	}
	return &projection.ScheduleParams{
		SubscriptionPrice:      p.SubscriptionPrice,
		UpsellRate:             p.UpsellRate,
		UpsellMarkup:           p.UpsellMarkup,
		ReferralConversionRate: p.ReferralConversionRate,
		AvgReferralValue:       p.AvgReferralValue,
		WhiteLabelCap:          p.WhiteLabelCap,
		AvgWhiteLabelPrice:     p.AvgWhiteLabelPrice,
	}
}

// ProjectionSummaryResponse represents totals for a projection schedule.
// Money values are decimal strings.
type ProjectionSummaryResponse struct {
	Schedule       string `json:"schedule"`
	Periods        int    `json:"periods"`
	TotalRevenue   string `json:"total_revenue"`
	TotalExpenses  string `json:"total_expenses"`
	TotalProfit    string `json:"total_profit"`
	AverageMargin  string `json:"average_margin"`
	FinalClients   int    `json:"final_clients"`
	BreakEvenAfter int    `json:"break_even_after"`
}

// VersionResponse represents a stored plan version.
type VersionResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Sections  []string  `json:"sections"`
	CreatedAt time.Time `json:"created_at"`
}

// VersionListResponse represents the response for listing versions.
type VersionListResponse struct {
	Versions []VersionResponse `json:"versions"`
}

// SharePlanRequest represents the request body for emailing a plan summary.
type SharePlanRequest struct {
	RecipientEmail string `json:"recipient_email" binding:"required,email"`
	RecipientName  string `json:"recipient_name" binding:"max=100"`
	Message        string `json:"message" binding:"max=2000"`
}

// ToPlanStateResponse converts a store state to its DTO.
func ToPlanStateResponse(state planstate.State) PlanStateResponse {
	return PlanStateResponse{
		Status:        string(state.Status),
		CanUndo:       state.CanUndo,
		CanRedo:       state.CanRedo,
		Position:      state.Position,
		HistoryLength: state.HistoryLength,
		Generation:    state.Generation,
		LastError:     state.LastError,
		LastSavedAt:   state.LastSavedAt,
	}
}

// ToPlanResponse converts a use case plan output to its DTO.
func ToPlanResponse(out *planuc.PlanOutput) PlanResponse {
	return PlanResponse{
		Plan:     out.Plan,
		State:    ToPlanStateResponse(out.State),
		Warnings: out.Warnings,
	}
}

// ToPlanListResponse converts plan summaries to the list DTO.
func ToPlanListResponse(plans []*entity.PlanSummary) PlanListResponse {
	resp := PlanListResponse{Plans: make([]PlanSummaryResponse, 0, len(plans))}
	for _, p := range plans {
		resp.Plans = append(resp.Plans, PlanSummaryResponse{
			ID:        p.ID,
			Title:     p.Title,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return resp
}

// ToProjectionSummaryResponse converts a projection summary to its DTO.
func ToProjectionSummaryResponse(schedule string, s *projection.Summary) ProjectionSummaryResponse {
	return ProjectionSummaryResponse{
		Schedule:       schedule,
		Periods:        s.Periods,
		TotalRevenue:   s.TotalRevenue.StringFixed(2),
		TotalExpenses:  s.TotalExpenses.StringFixed(2),
		TotalProfit:    s.TotalProfit.StringFixed(2),
		AverageMargin:  s.AverageMargin.StringFixed(2),
		FinalClients:   s.FinalClients,
		BreakEvenAfter: s.BreakEvenAfter,
	}
}

// ToVersionListResponse converts versions to the list DTO.
func ToVersionListResponse(versions []*entity.BusinessPlanVersion) VersionListResponse {
	resp := VersionListResponse{Versions: make([]VersionResponse, 0, len(versions))}
	for _, v := range versions {
		sections := v.Sections
		if sections == nil {
			sections = []string{}
		}
		resp.Versions = append(resp.Versions, VersionResponse{
			ID:        v.ID.String(),
			AuthorID:  v.AuthorID.String(),
			Sections:  sections,
			CreatedAt: v.CreatedAt,
		})
	}
	return resp
}
