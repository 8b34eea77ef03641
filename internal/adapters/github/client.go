/* Copyright (c) 2025 Apollos Project
 * SPDX-License-Identifier: BSD-3-Clause */
package github

import (
	"context"
	"fmt"
	"time"

	gh "github.com/google/go-github/v61/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/ApollosProject/bug-board/internal/config"
	"github.com/ApollosProject/bug-board/internal/domain"
)

// Client reads pull requests across the configured repos.
type Client struct {
	gh    *gh.Client
	owner string
	repos []string
	log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GithubToken})
	tc := oauth2.NewClient(context.Background(), ts)
	return &Client{ gh: gh.NewClient(tc), owner: cfg.GithubOwner, repos: cfg.GithubRepos, log: log }
}

// PullRequests lists PRs updated since the given time across all configured
// repos, newest update first. Listing stops per repo once a page falls fully
// below the cutoff.
func (c *Client) PullRequests(ctx context.Context, since time.Time) ([]domain.RawPullRequest, error) {
	since = since.UTC()
	var out []domain.RawPullRequest
	for _, repo := range c.repos {
		prs, err := c.repoPullRequests(ctx, repo, since)
		if err != nil { return nil, err }
		out = append(out, prs...)
	}
	return out, nil
}

func (c *Client) repoPullRequests(ctx context.Context, repo string, since time.Time) ([]domain.RawPullRequest, error) {
	opts := &gh.PullRequestListOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var out []domain.RawPullRequest
	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, c.owner, repo, opts)
		if err != nil { return nil, fmt.Errorf("github list %s/%s: %w", c.owner, repo, err) }
		done := false
		for _, pr := range prs {
			if pr.GetUpdatedAt().Time.Before(since) { done = true; break }
			out = append(out, toRaw(repo, pr))
		}
		if done || resp.NextPage == 0 { return out, nil }
		opts.Page = resp.NextPage
	}
}

func toRaw(repo string, pr *gh.PullRequest) domain.RawPullRequest {
	raw := domain.RawPullRequest{
		ID:        fmt.Sprintf("%s#%d", repo, pr.GetNumber()),
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		URL:       pr.GetHTMLURL(),
		Author:    pr.GetUser().GetLogin(),
		State:     pr.GetState(),
		Draft:     pr.GetDraft(),
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
	}
	if pr.MergedAt != nil { t := pr.MergedAt.Time; raw.MergedAt = &t }
	if pr.ClosedAt != nil { t := pr.ClosedAt.Time; raw.ClosedAt = &t }
	for _, r := range pr.RequestedReviewers {
		raw.Reviewers = append(raw.Reviewers, r.GetLogin())
	}
	return raw
}
