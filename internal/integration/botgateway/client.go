package botgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"applybot/internal/domain/notify"
)

// Client delivers notifications through the chat-gateway service that owns
// the actual Discord/Telegram rendering. Delivery failures are returned to
// the caller, which treats them as best effort.
type Client struct {
	baseURL     string
	internalKey string
	httpClient  *http.Client
}

func NewClient(baseURL, internalKey string, httpClient *http.Client) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:     trimmed,
		internalKey: strings.TrimSpace(internalKey),
		httpClient:  httpClient,
	}
}

type applicantNotification struct {
	ApplicantID string                  `json:"applicant_id"`
	Kind        notify.MessageKind      `json:"kind"`
	Message     notify.ApplicantMessage `json:"message"`
}

type reviewerNotification struct {
	Channel string               `json:"channel"`
	Request notify.ReviewRequest `json:"request"`
}

func (c *Client) NotifyApplicant(ctx context.Context, applicantID string, kind notify.MessageKind, msg notify.ApplicantMessage) error {
	return c.post(ctx, "/notify/applicant", applicantNotification{
		ApplicantID: applicantID,
		Kind:        kind,
		Message:     msg,
	})
}

func (c *Client) NotifyReviewers(ctx context.Context, channelRef string, req notify.ReviewRequest) error {
	return c.post(ctx, "/notify/review", reviewerNotification{
		Channel: channelRef,
		Request: req,
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	if c.baseURL == "" {
		return fmt.Errorf("bot gateway base url is not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.internalKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.internalKey)
		req.Header.Set("X-Internal-Key", c.internalKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bot gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
