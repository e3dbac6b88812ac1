package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kmathenge/powervend/internal/pkg/env"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v18.0"

// Client sends replies through the Meta Graph API messages endpoint.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	token         string
	phoneNumberID string
}

// NewClient builds a client from explicit credentials.
func NewClient(token, phoneNumberID string) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		baseURL:       defaultGraphBaseURL,
		token:         token,
		phoneNumberID: phoneNumberID,
	}
}

// NewClientFromEnv builds a client from WHATSAPP_TOKEN and
// WHATSAPP_PHONE_NUMBER_ID.
func NewClientFromEnv() *Client {
	return NewClient(
		env.GetEnv("WHATSAPP_TOKEN", ""),
		env.GetEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
	)
}

// Configured reports whether credentials are present. Without them inbound
// commands are still processed but replies are only logged.
func (c *Client) Configured() bool {
	return c.token != "" && c.phoneNumberID != ""
}

type sendTextRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// SendText delivers a text reply to the given WhatsApp number. Each send is
// logged under a correlation id so webhook traffic can be traced.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	correlationID := uuid.New().String()

	if !c.Configured() {
		log.Printf("[whatsapp:%s] not configured, dropping reply to %s: %q", correlationID, to, body)
		return nil
	}

	payload, err := json.Marshal(sendTextRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	})
	if err != nil {
		return fmt.Errorf("whatsapp: encoding message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("whatsapp: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Printf("[whatsapp:%s] send to %s failed with %d: %s", correlationID, to, resp.StatusCode, raw)
		return fmt.Errorf("whatsapp: graph api returned %d", resp.StatusCode)
	}

	log.Printf("[whatsapp:%s] reply sent to %s", correlationID, to)
	return nil
}
