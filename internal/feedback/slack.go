package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ptts/sonuby-api/internal/httputil"
)

const (
	// FeedbackChannel receives user feedback when email delivery fails.
	FeedbackChannel = "#sonuby-in-app-feedback"

	// ErrorsChannel receives operational error events.
	ErrorsChannel = "#sonuby-backend-errors"

	// slackTimeout bounds webhook calls; Slack outages must not stall
	// request handling.
	slackTimeout = 2 * time.Second
)

// SlackClient posts messages to a Slack incoming webhook.
type SlackClient struct {
	client     *httputil.Client
	webhookURL string
}

// NewSlackClient creates a webhook client with a short fixed deadline.
func NewSlackClient(webhookURL string) *SlackClient {
	return &SlackClient{
		client:     httputil.NewClient(slackTimeout),
		webhookURL: webhookURL,
	}
}

type slackMessage struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// SendMessage posts a message to the given channel.
func (c *SlackClient) SendMessage(ctx context.Context, channel, text string) error {
	if c.webhookURL == "" {
		return fmt.Errorf("slack webhook URL is not configured")
	}

	resp, err := c.client.PostJSON(ctx, c.webhookURL, nil, slackMessage{
		Channel: channel,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("failed to send message to Slack: %w", err)
	}

	// The webhook body carries nothing useful on success.
	if err := httputil.DecodeResponse(resp, nil); err != nil {
		return fmt.Errorf("failed to send message to Slack: %w", err)
	}
	return nil
}

// formatFeedback renders the feedback as a Slack message body.
func formatFeedback(fb *Feedback) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "New feedback received:\n\n*Type*: %s", fb.Type)
	fmt.Fprintf(&sb, "\n*Name*: %s", stringOr(fb.Name, "Anonymous"))
	fmt.Fprintf(&sb, "\n*Email*: %s", stringOr(fb.Email, "Anonymous"))
	if fb.Rating != nil {
		fmt.Fprintf(&sb, "\n*Rating*: %d", *fb.Rating)
	} else {
		sb.WriteString("\n*Rating*: (Not provided)")
	}
	if fb.Category != "" {
		fmt.Fprintf(&sb, "\n*Category*: %s", fb.Category)
	}
	fmt.Fprintf(&sb, "\n*OS*: %s", fb.OperatingSystem)
	fmt.Fprintf(&sb, "\n*Device*: %s", fb.Device)
	fmt.Fprintf(&sb, "\n*App Version*: %s", fb.AppVersion)
	if fb.Message != nil && *fb.Message != "" {
		fmt.Fprintf(&sb, "\n*Message*: %s", *fb.Message)
	}
	if fb.Type == TypeBug {
		fmt.Fprintf(&sb, "\n*Stack Trace*: \n```%s```", stringOr(fb.StackTrace, ""))
	}
	return sb.String()
}

func stringOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
