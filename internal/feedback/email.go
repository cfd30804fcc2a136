package feedback

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ptts/sonuby-api/internal/httputil"
)

// brevoEndpoint is the Brevo transactional email API.
const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// feedbackTemplateID is the Brevo template for in-app feedback mails.
const feedbackTemplateID = 6

// EmailSender delivers feedback as a templated transactional email.
type EmailSender struct {
	client   *httputil.Client
	apiKey   string
	endpoint string
}

// NewEmailSender creates a Brevo-backed email sender.
func NewEmailSender(client *httputil.Client, apiKey string) *EmailSender {
	return &EmailSender{
		client:   client,
		apiKey:   apiKey,
		endpoint: brevoEndpoint,
	}
}

// WithEndpoint overrides the API endpoint. Used in tests.
func (s *EmailSender) WithEndpoint(endpoint string) *EmailSender {
	s.endpoint = endpoint
	return s
}

type emailAddress struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type emailPayload struct {
	Sender     emailAddress           `json:"sender"`
	To         []emailAddress         `json:"to"`
	Subject    string                 `json:"subject"`
	ReplyTo    *emailAddress          `json:"replyTo,omitempty"`
	TemplateID int                    `json:"templateId"`
	Params     map[string]interface{} `json:"params"`
}

// Send delivers the feedback via email. Failures are returned to the caller
// so the notifier can fall back to the next channel.
func (s *EmailSender) Send(ctx context.Context, fb *Feedback) error {
	payload := emailPayload{
		Sender: emailAddress{
			Name:  "Sonuby In-App Feedback",
			Email: "noreply@sonuby.com",
		},
		To: []emailAddress{
			{Name: "Sonuby", Email: "mail@sonuby.com"},
		},
		Subject:    fb.Subject(),
		TemplateID: feedbackTemplateID,
		Params:     templateParams(fb),
	}
	if fb.Email != nil && fb.Name != nil {
		payload.ReplyTo = &emailAddress{Name: *fb.Name, Email: *fb.Email}
	}

	resp, err := s.client.PostJSON(ctx, s.endpoint, map[string]string{
		"accept":  "application/json",
		"api-key": s.apiKey,
	}, payload)
	if err != nil {
		return fmt.Errorf("failed to send feedback via email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _, _ := httputil.ReadAllWithLimit(resp.Body, 4<<10)
		return fmt.Errorf("failed to send feedback via email: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// templateParams maps the feedback fields onto the email template
// parameters, leaving absent optional fields out entirely.
func templateParams(fb *Feedback) map[string]interface{} {
	params := map[string]interface{}{
		"type":            string(fb.Type),
		"operatingSystem": fb.OperatingSystem,
		"device":          fb.Device,
		"appVersion":      fb.AppVersion,
	}
	if fb.Name != nil {
		params["name"] = *fb.Name
	}
	if fb.Message != nil {
		params["message"] = *fb.Message
	}
	if fb.Rating != nil {
		params["rating"] = *fb.Rating
	}
	if fb.Category != "" {
		params["category"] = fb.Category
	}
	if fb.PaymentProviderUserID != "" {
		params["paymentProviderUserId"] = fb.PaymentProviderUserID
	}
	if fb.Type == TypeBug && fb.StackTrace != nil {
		params["stackTrace"] = *fb.StackTrace
	}
	return params
}
