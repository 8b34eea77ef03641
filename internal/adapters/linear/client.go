/* Copyright (c) 2025 Apollos Project
 * SPDX-License-Identifier: BSD-3-Clause */
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ApollosProject/bug-board/internal/config"
	"github.com/ApollosProject/bug-board/internal/domain"
	"github.com/rs/zerolog"
)

const apiURL = "https://api.linear.app/graphql"

const issueFields = `
  id identifier title url priority
  createdAt updatedAt startedAt completedAt canceledAt slaBreachesAt
  state { name type }
  assignee { id name displayName }
  labels { nodes { name } }
  project { name url }
  parent { id }
`

// Client talks to the tracker's GraphQL API. Pagination is handled here; the
// caller gets fully materialized pages.
type Client struct {
	apiKey  string
	teamKey string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		apiKey:  cfg.LinearAPIKey,
		teamKey: cfg.LinearTeamKey,
		http:    &http.Client{ Timeout: cfg.HTTPTimeout },
		log:     log,
	}
}

type page struct {
	Nodes    []domain.RawIssue `json:"nodes"`
	PageInfo struct {
		HasNextPage bool   `json:"hasNextPage"`
		EndCursor   string `json:"endCursor"`
	} `json:"pageInfo"`
}

// Issues fetches team issues updated since the given time.
func (c *Client) Issues(ctx context.Context, since time.Time) ([]domain.RawIssue, error) {
	query := fmt.Sprintf(`query($teamKey: String!, $since: DateTimeOrDuration!, $after: String) {
	  issues(
	    first: 100, after: $after,
	    filter: { team: { key: { eq: $teamKey } }, updatedAt: { gt: $since } }
	  ) { nodes { %s } pageInfo { hasNextPage endCursor } }
	}`, issueFields)
	vars := map[string]any{"teamKey": c.teamKey, "since": since.UTC().Format(time.RFC3339)}
	return c.paginate(ctx, query, vars, "issues")
}

// ProjectIssues fetches every issue of the monitored project, children
// flattened alongside their parents.
func (c *Client) ProjectIssues(ctx context.Context, project string) ([]domain.RawIssue, error) {
	query := fmt.Sprintf(`query($project: String!, $after: String) {
	  issues(
	    first: 100, after: $after,
	    filter: { project: { name: { eq: $project } }, parent: { null: true } }
	  ) { nodes { %s children { nodes { %s } } } pageInfo { hasNextPage endCursor } }
	}`, issueFields, issueFields)
	vars := map[string]any{"project": project}
	parents, err := c.paginate(ctx, query, vars, "issues")
	if err != nil { return nil, err }
	out := make([]domain.RawIssue, 0, len(parents))
	for _, p := range parents {
		out = append(out, p)
		for _, ch := range p.Children.Nodes {
			if ch.Parent == nil { ch.Parent = &domain.RawRef{ID: p.ID} }
			out = append(out, ch)
		}
	}
	return out, nil
}

func (c *Client) paginate(ctx context.Context, query string, vars map[string]any, field string) ([]domain.RawIssue, error) {
	var all []domain.RawIssue
	after := ""
	for {
		if after != "" { vars["after"] = after } else { delete(vars, "after") }
		pg, err := c.query(ctx, query, vars, field)
		if err != nil { return nil, err }
		all = append(all, pg.Nodes...)
		if !pg.PageInfo.HasNextPage { return all, nil }
		after = pg.PageInfo.EndCursor
	}
}

func (c *Client) query(ctx context.Context, query string, vars map[string]any, field string) (page, error) {
	if c.apiKey == "" { return page{}, errors.New("linear: empty api key") }
	body, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	if err != nil { return page{}, err }
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
		if err != nil { return page{}, err }
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", c.apiKey)
		resp, err := c.http.Do(req)
		if err != nil { lastErr = err } else {
			pg, retry, err := decodePage(resp, field)
			if err == nil { return pg, nil }
			if !retry { return page{}, err }
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return page{}, ctx.Err()
		case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
		}
	}
	return page{}, lastErr
}

func decodePage(resp *http.Response, field string) (page, bool, error) {
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("linear api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
		// retry on 429/5xx
		return page{}, resp.StatusCode == 429 || resp.StatusCode >= 500, err
	}
	var out struct {
		Data   map[string]json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil { return page{}, false, err }
	if len(out.Errors) > 0 { return page{}, false, fmt.Errorf("linear api: %s", out.Errors[0].Message) }
	raw, ok := out.Data[field]
	if !ok { return page{}, false, fmt.Errorf("linear api: missing %q in response", field) }
	var pg page
	if err := json.Unmarshal(raw, &pg); err != nil { return page{}, false, err }
	return pg, false, nil
}
