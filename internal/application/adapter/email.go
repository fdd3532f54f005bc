package adapter

import (
	"context"
	"time"

	"github.com/business-planner/backend/internal/domain/entity"
)

// EmailService queues outgoing mail. Delivery happens later in the worker.
type EmailService interface {
	QueuePasswordResetEmail(ctx context.Context, input QueuePasswordResetInput) error
	QueuePlanShareEmail(ctx context.Context, input QueuePlanShareInput) error
}

type QueuePasswordResetInput struct {
	UserID    string
	UserEmail string
	UserName  string
	ResetURL  string
	ExpiresIn string
}

// QueuePlanShareInput is a plan summary addressed to someone outside the app.
type QueuePlanShareInput struct {
	SenderName     string
	SenderEmail    string
	RecipientEmail string
	RecipientName  string
	PlanTitle      string
	PlanURL        string
	Message        string
	Narrative      string // markdown
	TotalRevenue   string
	TotalProfit    string
	AverageMargin  string
	BreakEven      string
	Competitors    int
	RoadmapItems   int
}

// EmailQueueRepository persists queued email jobs.
type EmailQueueRepository interface {
	Create(ctx context.Context, job *entity.EmailJob) error
	// ClaimPendingJobs moves up to limit due jobs to processing, oldest
	// schedule first. A job is claimed by at most one caller.
	ClaimPendingJobs(ctx context.Context, limit int) ([]*entity.EmailJob, error)
	Update(ctx context.Context, job *entity.EmailJob) error
	// GetByRecipient lists jobs for an address, newest first.
	GetByRecipient(ctx context.Context, email string) ([]*entity.EmailJob, error)
	// PurgeSent removes jobs sent more than olderThan ago.
	PurgeSent(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SendEmailInput is a rendered message ready for the provider.
type SendEmailInput struct {
	To       string
	Name     string
	ReplyTo  string
	Subject  string
	HTML     string
	Text     string
	Template string // provider-side tag
}

type SendEmailResult struct {
	ResendID string
}

// EmailSender delivers a rendered message. Errors are *domainerror.EmailError
// whose code tells whether a retry can succeed.
type EmailSender interface {
	Send(ctx context.Context, input SendEmailInput) (*SendEmailResult, error)
}
