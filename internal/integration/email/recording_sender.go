package email

import (
	"context"
	"fmt"
	"sync"

	"github.com/business-planner/backend/internal/application/adapter"
	domainerror "github.com/business-planner/backend/internal/domain/error"
)

var _ adapter.EmailSender = (*RecordingSender)(nil)

// RecordingSender keeps emails in memory instead of delivering them. The
// injector falls back to it when no Resend API key is configured.
type RecordingSender struct {
	mu        sync.Mutex
	sent      []adapter.SendEmailInput
	failWith  error
	permanent bool
}

// NewRecordingSender creates an empty recorder.
func NewRecordingSender() *RecordingSender {
	return &RecordingSender{}
}

// Send implements adapter.EmailSender.
func (r *RecordingSender) Send(ctx context.Context, input adapter.SendEmailInput) (*adapter.SendEmailResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		code := domainerror.ErrCodeTemporaryEmailFailure
		if r.permanent {
			code = domainerror.ErrCodePermanentEmailFailure
		}
		return nil, domainerror.NewEmailError(code, "recorded send failure", r.failWith)
	}

	r.sent = append(r.sent, input)
	return &adapter.SendEmailResult{ResendID: fmt.Sprintf("local-%d", len(r.sent))}, nil
}

// SetFailure makes every following Send fail with err. A nil err clears it.
func (r *RecordingSender) SetFailure(err error, permanent bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
	r.permanent = permanent
}

// Sent returns a copy of the recorded emails.
func (r *RecordingSender) Sent() []adapter.SendEmailInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]adapter.SendEmailInput(nil), r.sent...)
}
