package plan

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/application/planstate"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/domain/projection"
)

// SharePlanInput represents the input for emailing a plan summary.
type SharePlanInput struct {
	PlanID         string
	UserID         uuid.UUID
	RecipientEmail string
	RecipientName  string
	Message        string
}

// SharePlanUseCase queues an email with a summary of a plan.
type SharePlanUseCase struct {
	registry     *planstate.Registry
	userRepo     adapter.UserRepository
	emailService adapter.EmailService
	appBaseURL   string
}

// NewSharePlanUseCase creates a new SharePlanUseCase instance.
func NewSharePlanUseCase(
	registry *planstate.Registry,
	userRepo adapter.UserRepository,
	emailService adapter.EmailService,
	appBaseURL string,
) *SharePlanUseCase {
	return &SharePlanUseCase{
		registry:     registry,
		userRepo:     userRepo,
		emailService: emailService,
		appBaseURL:   appBaseURL,
	}
}

// Execute queues the share email.
func (uc *SharePlanUseCase) Execute(ctx context.Context, input SharePlanInput) error {
	if _, err := mail.ParseAddress(input.RecipientEmail); err != nil {
		return domainerror.NewPlanError(
			domainerror.ErrCodeMissingPlanField,
			"recipient email is invalid",
			err,
		)
	}

	store, err := OpenOwnedStore(ctx, uc.registry, input.PlanID, input.UserID)
	if err != nil {
		return err
	}

	sender, err := uc.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return fmt.Errorf("failed to find sender: %w", err)
	}

	doc := store.Current()
	summary, err := projection.Summarize(doc.MonthlyProjections, doc.Pricing.OneTimeServerCost)
	if err != nil {
		return domainerror.NewPlanError(domainerror.ErrCodeInvalidNumber, "projections cannot be summarized", err)
	}

	breakEven := "not within the projection window"
	if summary.BreakEvenAfter > 0 {
		breakEven = fmt.Sprintf("month %d", summary.BreakEvenAfter)
	}

	err = uc.emailService.QueuePlanShareEmail(ctx, adapter.QueuePlanShareInput{
		SenderName:     sender.Name,
		SenderEmail:    sender.Email,
		RecipientEmail: input.RecipientEmail,
		RecipientName:  input.RecipientName,
		PlanTitle:      doc.Title,
		PlanURL:        fmt.Sprintf("%s/plans/%s", strings.TrimRight(uc.appBaseURL, "/"), doc.ID),
		Message:        input.Message,
		Narrative:      narrativeMarkdown(doc),
		TotalRevenue:   summary.TotalRevenue.StringFixed(0),
		TotalProfit:    summary.TotalProfit.StringFixed(0),
		AverageMargin:  summary.AverageMargin.StringFixed(1) + "%",
		BreakEven:      breakEven,
		Competitors:    len(doc.Competitors),
		RoadmapItems:   doc.ProductRoadmap.Len(),
	})
	if err != nil {
		return domainerror.NewPlanError(domainerror.ErrCodeShareEmailFailure, "failed to queue share email", err)
	}
	return nil
}

// narrativeMarkdown lays out the narrative sections as a markdown document.
func narrativeMarkdown(doc *entity.BusinessPlanDocument) string {
	var b strings.Builder
	sections := []struct{ heading, body string }{
		{"Mission", doc.MissionStatement},
		{"Problem", doc.Problem},
		{"Solution", doc.Solution},
		{"Target audience", doc.TargetAudience},
		{"Monetization", doc.MonetizationSummary},
		{"Revenue strategy", doc.RevenueStrategy},
	}
	for _, s := range sections {
		if strings.TrimSpace(s.body) == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", s.heading, strings.TrimSpace(s.body))
	}
	return b.String()
}
