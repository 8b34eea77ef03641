/* Copyright (c) 2025 Apollos Project
 * SPDX-License-Identifier: BSD-3-Clause */
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ApollosProject/bug-board/internal/domain"
	"github.com/rs/zerolog"
)

// Client posts messages through an incoming webhook.
type Client struct {
	webhookURL string
	http       *http.Client
	log        zerolog.Logger
}

func NewClient(webhookURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 { timeout = 10 * time.Second }
	return &Client{ webhookURL: webhookURL, http: &http.Client{ Timeout: timeout }, log: log }
}

func (c *Client) Post(ctx context.Context, text string) error {
	if c.webhookURL == "" { return &domain.DeliveryError{Sink: "slack", Err: fmt.Errorf("missing webhook url")} }
	body := map[string]any{"text": text}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewReader(b))
	if err != nil { return &domain.DeliveryError{Sink: "slack", Err: err} }
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil { return &domain.DeliveryError{Sink: "slack", Err: err} }
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &domain.DeliveryError{Sink: "slack", Err: fmt.Errorf("webhook status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))}
	}
	return nil
}
