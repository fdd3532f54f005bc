package email

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
)

// Service handles email queueing operations.
type Service struct {
	queue    adapter.EmailQueueRepository
	markdown goldmark.Markdown
}

// NewService creates a new email service.
func NewService(queue adapter.EmailQueueRepository) *Service {
	return &Service{
		queue:    queue,
		markdown: goldmark.New(),
	}
}

// QueuePasswordResetEmail queues a password reset email.
func (s *Service) QueuePasswordResetEmail(ctx context.Context, input adapter.QueuePasswordResetInput) error {
	subject := "Reset your password - Business Planner"

	templateData := map[string]interface{}{
		"user_name":  input.UserName,
		"reset_url":  input.ResetURL,
		"expires_in": input.ExpiresIn,
	}

	job := entity.NewEmailJob(
		entity.TemplatePasswordReset,
		input.UserEmail,
		input.UserName,
		subject,
		templateData,
	)

	if err := s.queue.Create(ctx, job); err != nil {
		return domainerror.NewEmailError(
			domainerror.ErrCodeEmailQueueFailed,
			"failed to queue password reset email",
			err,
		)
	}

	return nil
}

// QueuePlanShareEmail queues an email with a plan summary. The markdown
// narrative is rendered to HTML here so the worker only fills templates.
func (s *Service) QueuePlanShareEmail(ctx context.Context, input adapter.QueuePlanShareInput) error {
	subject := fmt.Sprintf("%s shared %q with you - Business Planner", input.SenderName, input.PlanTitle)

	var narrativeHTML bytes.Buffer
	if err := s.markdown.Convert([]byte(input.Narrative), &narrativeHTML); err != nil {
		return domainerror.NewEmailError(
			domainerror.ErrCodeInvalidTemplate,
			"failed to render plan narrative",
			err,
		)
	}

	templateData := map[string]interface{}{
		"sender_name":    input.SenderName,
		"sender_email":   input.SenderEmail,
		"recipient_name": input.RecipientName,
		"plan_title":     input.PlanTitle,
		"plan_url":       input.PlanURL,
		"message":        input.Message,
		"narrative":      input.Narrative,
		"narrative_html": narrativeHTML.String(),
		"total_revenue":  input.TotalRevenue,
		"total_profit":   input.TotalProfit,
		"average_margin": input.AverageMargin,
		"break_even":     input.BreakEven,
		"competitors":    input.Competitors,
		"roadmap_items":  input.RoadmapItems,
	}

	job := entity.NewEmailJob(
		entity.TemplatePlanShare,
		input.RecipientEmail,
		input.RecipientName,
		subject,
		templateData,
	)

	if err := s.queue.Create(ctx, job); err != nil {
		return domainerror.NewEmailError(
			domainerror.ErrCodeEmailQueueFailed,
			"failed to queue plan share email",
			err,
		)
	}

	return nil
}

// Ensure Service implements adapter.EmailService.
var _ adapter.EmailService = (*Service)(nil)
