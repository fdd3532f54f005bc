// Package email queues, renders and delivers transactional emails.
package email

import (
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"time"

	"github.com/business-planner/backend/internal/application/adapter"
	"github.com/business-planner/backend/internal/domain/entity"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/integration/email/templates"
)

const purgeInterval = time.Hour

// WorkerConfig tunes the queue polling loop.
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// RetainSent is how long sent jobs are kept. Zero keeps them forever.
	RetainSent time.Duration
}

// DefaultWorkerConfig polls every five seconds and keeps sent mail for a month.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: 5 * time.Second,
		BatchSize:    10,
		RetainSent:   30 * 24 * time.Hour,
	}
}

// Worker drains the email queue through an EmailSender.
type Worker struct {
	queue     adapter.EmailQueueRepository
	sender    adapter.EmailSender
	renderer  *templates.Renderer
	cfg       WorkerConfig
	lastPurge time.Time
}

// NewWorker creates a worker. Call Start to run it.
func NewWorker(queue adapter.EmailQueueRepository, sender adapter.EmailSender, renderer *templates.Renderer, cfg WorkerConfig) *Worker {
	return &Worker{queue: queue, sender: sender, renderer: renderer, cfg: cfg}
}

// Start polls the queue until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("Email worker started", "poll_interval", w.cfg.PollInterval, "batch_size", w.cfg.BatchSize)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx)
		w.purgeIfDue(ctx)

		select {
		case <-ctx.Done():
			slog.Info("Email worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessNow delivers every job that is currently due.
func (w *Worker) ProcessNow(ctx context.Context) {
	w.drain(ctx)
}

func (w *Worker) drain(ctx context.Context) {
	jobs, err := w.queue.ClaimPendingJobs(ctx, w.cfg.BatchSize)
	if err != nil {
		slog.Error("Failed to claim email jobs", "error", err)
		return
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}
		w.deliver(ctx, job)
	}
}

func (w *Worker) deliver(ctx context.Context, job *entity.EmailJob) {
	logger := slog.With("job_id", job.ID, "template", job.TemplateType)

	message, err := w.compose(job)
	if err != nil {
		logger.Error("Failed to render email", "error", err)
		w.fail(ctx, job, err, true)
		return
	}

	result, err := w.sender.Send(ctx, message)
	if err != nil {
		var emailErr *domainerror.EmailError
		permanent := errors.As(err, &emailErr) && emailErr.Code == domainerror.ErrCodePermanentEmailFailure
		logger.Error("Failed to send email", "error", err, "permanent", permanent)
		w.fail(ctx, job, err, permanent)
		return
	}

	job.MarkSent(result.ResendID)
	if err := w.queue.Update(ctx, job); err != nil {
		logger.Error("Failed to record sent email", "error", err)
		return
	}
	logger.Info("Email sent", "resend_id", result.ResendID)
}

// compose renders the job's template into a ready-to-send message.
func (w *Worker) compose(job *entity.EmailJob) (adapter.SendEmailInput, error) {
	data, err := templateData(job)
	if err != nil {
		return adapter.SendEmailInput{}, err
	}

	html, text, err := w.renderer.Render(string(job.TemplateType), data)
	if err != nil {
		return adapter.SendEmailInput{}, fmt.Errorf("render %s: %w", job.TemplateType, err)
	}

	return adapter.SendEmailInput{
		To:       job.RecipientEmail,
		Name:     job.RecipientName,
		ReplyTo:  getString(job.TemplateData, "sender_email"),
		Subject:  job.Subject,
		HTML:     html,
		Text:     text,
		Template: string(job.TemplateType),
	}, nil
}

func templateData(job *entity.EmailJob) (any, error) {
	d := job.TemplateData
	switch job.TemplateType {
	case entity.TemplatePasswordReset:
		return templates.PasswordResetData{
			UserName:  getString(d, "user_name"),
			ResetURL:  getString(d, "reset_url"),
			ExpiresIn: getString(d, "expires_in"),
		}, nil
	case entity.TemplatePlanShare:
		return templates.PlanShareData{
			SenderName:    getString(d, "sender_name"),
			SenderEmail:   getString(d, "sender_email"),
			RecipientName: getString(d, "recipient_name"),
			PlanTitle:     getString(d, "plan_title"),
			PlanURL:       getString(d, "plan_url"),
			Message:       getString(d, "message"),
			Narrative:     getString(d, "narrative"),
			// Rendered by the service with raw HTML disabled.
			NarrativeHTML: htmltemplate.HTML(getString(d, "narrative_html")),
			TotalRevenue:  getString(d, "total_revenue"),
			TotalProfit:   getString(d, "total_profit"),
			AverageMargin: getString(d, "average_margin"),
			BreakEven:     getString(d, "break_even"),
			Competitors:   getInt(d, "competitors"),
			RoadmapItems:  getInt(d, "roadmap_items"),
		}, nil
	}
	return nil, domainerror.NewEmailError(
		domainerror.ErrCodeInvalidTemplate,
		fmt.Sprintf("unknown template type %q", job.TemplateType),
		domainerror.ErrInvalidTemplate,
	)
}

func (w *Worker) fail(ctx context.Context, job *entity.EmailJob, cause error, permanent bool) {
	job.MarkFailed(cause, permanent)
	if err := w.queue.Update(ctx, job); err != nil {
		slog.Error("Failed to record email failure", "job_id", job.ID, "error", err)
		return
	}

	if job.Status == entity.EmailStatusFailed {
		slog.Warn("Email job gave up", "job_id", job.ID, "attempts", job.Attempts, "last_error", job.LastError)
		return
	}
	slog.Info("Email job rescheduled", "job_id", job.ID, "attempts", job.Attempts, "scheduled_at", job.ScheduledAt)
}

// purgeIfDue drops old sent jobs at most once per purgeInterval.
func (w *Worker) purgeIfDue(ctx context.Context) {
	if w.cfg.RetainSent <= 0 || time.Since(w.lastPurge) < purgeInterval {
		return
	}
	w.lastPurge = time.Now()

	removed, err := w.queue.PurgeSent(ctx, w.cfg.RetainSent)
	if err != nil {
		slog.Warn("Failed to purge sent email jobs", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("Purged sent email jobs", "count", removed)
	}
}

func getString(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

// getInt reads a count. Values that went through the JSON column come back
// as float64.
func getInt(data map[string]interface{}, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
