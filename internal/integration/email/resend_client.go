package email

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/business-planner/backend/internal/application/adapter"
	domainerror "github.com/business-planner/backend/internal/domain/error"
)

var _ adapter.EmailSender = (*ResendClient)(nil)

// ResendClient delivers email through the Resend API.
type ResendClient struct {
	client *resend.Client
	from   string
}

// NewResendClient creates a client sending as "fromName <fromEmail>".
func NewResendClient(apiKey, fromName, fromEmail string) *ResendClient {
	return &ResendClient{
		client: resend.NewClient(apiKey),
		from:   mailbox(fromName, fromEmail),
	}
}

// NewResendClientWithBaseURL points the client at baseURL instead of the
// public API. An empty baseURL keeps the default.
func NewResendClientWithBaseURL(apiKey, fromName, fromEmail, baseURL string) (*ResendClient, error) {
	c := NewResendClient(apiKey, fromName, fromEmail)
	if baseURL == "" {
		return c, nil
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid resend base url: %w", err)
	}
	c.client.BaseURL = u
	return c, nil
}

// Send implements adapter.EmailSender.
func (c *ResendClient) Send(ctx context.Context, input adapter.SendEmailInput) (*adapter.SendEmailResult, error) {
	req := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{mailbox(input.Name, input.To)},
		ReplyTo: input.ReplyTo,
		Subject: input.Subject,
		Html:    input.HTML,
		Text:    input.Text,
	}
	if input.Template != "" {
		req.Tags = []resend.Tag{{Name: "template", Value: input.Template}}
	}

	resp, err := c.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return nil, classifySendError(err)
	}
	return &adapter.SendEmailResult{ResendID: resp.Id}, nil
}

func mailbox(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}

// permanentPatterns mark provider errors that will fail again on retry.
// Rate limits and 5xx responses are retried.
var permanentPatterns = []string{
	"401", "403", "422",
	"unauthorized", "forbidden", "validation", "invalid", "bad request",
}

func classifySendError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, pattern := range permanentPatterns {
		if strings.Contains(msg, pattern) {
			return domainerror.NewEmailError(domainerror.ErrCodePermanentEmailFailure, "permanent email failure", err)
		}
	}
	return domainerror.NewEmailError(domainerror.ErrCodeTemporaryEmailFailure, "temporary email failure", err)
}
