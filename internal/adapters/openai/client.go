/* Copyright (c) 2025 Apollos Project
 * SPDX-License-Identifier: BSD-3-Clause */
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog"

	"github.com/ApollosProject/bug-board/internal/config"
	"github.com/ApollosProject/bug-board/internal/domain"
)

const changelogSystemPrompt = "You are a release-notes writer for a consumer app. " +
	"Given a JSON list of shipped issues, write one short user-facing line per issue. " +
	"Return JSON only, an object with keys \"New Features\", \"Bug Fixes\" and \"Improvements\", " +
	"each a list of {\"id\", \"summary\"} objects keeping the input ids. " +
	"Skip internal-only items. No marketing fluff."

type Client struct {
	key   string
	model string
	cli   openai.Client
	log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	model := cfg.OpenAIModel
	if strings.TrimSpace(model) == "" { model = "gpt-4.1-mini" }
	cli := openai.NewClient(option.WithAPIKey(cfg.OpenAIKey))
	return &Client{ key: cfg.OpenAIKey, model: model, cli: cli, log: log }
}

// Changelog turns shipped issues into user-facing changelog sections.
func (c *Client) Changelog(ctx context.Context, entries []domain.ChangelogEntry) (map[string][]domain.ChangelogItem, error) {
	if strings.TrimSpace(c.key) == "" { return nil, errors.New("openai: missing key") }
	if len(entries) == 0 { return map[string][]domain.ChangelogItem{}, nil }
	c.log.Info().Str("model", c.model).Int("entries", len(entries)).Msg("openai changelog call")
	payload, err := json.Marshal(entries)
	if err != nil { return nil, err }
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(changelogSystemPrompt),
			openai.UserMessage(string(payload)),
		},
	}
	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil { return nil, err }
	if len(resp.Choices) == 0 { return nil, errors.New("openai: no choices") }
	content := stripFence(resp.Choices[0].Message.Content)
	var out map[string][]domain.ChangelogItem
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("openai: parse changelog response: %w", err)
	}
	return out, nil
}

// stripFence removes a markdown code fence the model sometimes wraps JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") { return s }
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
