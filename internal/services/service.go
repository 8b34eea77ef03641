/* Copyright (c) 2025 Apollos Project
 * SPDX-License-Identifier: BSD-3-Clause */

// Package services orchestrates one tick: fetch from collaborators, normalize,
// aggregate, compose and deliver. Collaborator interfaces are declared here,
// on the consumer side; the adapters satisfy them.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ApollosProject/bug-board/internal/config"
	"github.com/ApollosProject/bug-board/internal/digest"
	"github.com/ApollosProject/bug-board/internal/domain"
	"github.com/ApollosProject/bug-board/internal/normalize"
	"github.com/ApollosProject/bug-board/internal/prom"
	"github.com/ApollosProject/bug-board/internal/sla"
	"github.com/ApollosProject/bug-board/internal/stats"
)

// maxChunk is the webhook payload ceiling we chunk digests at.
const maxChunk = 3800

type Tracker interface {
	Issues(ctx context.Context, since time.Time) ([]domain.RawIssue, error)
	ProjectIssues(ctx context.Context, project string) ([]domain.RawIssue, error)
}

type CodeHost interface {
	PullRequests(ctx context.Context, since time.Time) ([]domain.RawPullRequest, error)
}

type Notifier interface {
	Post(ctx context.Context, text string) error
}

type LLM interface {
	Changelog(ctx context.Context, entries []domain.ChangelogEntry) (map[string][]domain.ChangelogItem, error)
}

// LastRun records the most recent job execution for the admin surface.
type LastRun struct {
	ID         uuid.UUID `json:"id"`
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Items      int       `json:"items"`
	Delivered  bool      `json:"delivered"`
	Dry        bool      `json:"dry"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}

type Service struct {
	cfg      config.Config
	log      zerolog.Logger
	tracker  Tracker
	codeHost CodeHost
	notifier Notifier
	manager  Notifier // optional second channel for leaderboard posts
	llm      LLM

	mu   sync.Mutex
	last *LastRun
}

func New(cfg config.Config, log zerolog.Logger, tracker Tracker, codeHost CodeHost, notifier, manager Notifier, llm LLM) *Service {
	if manager == nil { manager = notifier }
	return &Service{cfg: cfg, log: log, tracker: tracker, codeHost: codeHost, notifier: notifier, manager: manager, llm: llm}
}

// LastRun returns the most recent job record, or nil before the first run.
func (s *Service) LastRun() *LastRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil { return nil }
	cp := *s.last
	return &cp
}

func (s *Service) record(run LastRun) {
	s.mu.Lock()
	s.last = &run
	s.mu.Unlock()
	status := "ok"
	if !run.Success { status = "error" }
	prom.JobRuns.WithLabelValues(run.Job, status).Inc()
}

// fetched is one tick's worth of upstream data.
type fetched struct {
	teamIssues    []domain.RawIssue
	projectIssues []domain.RawIssue
	pullRequests  []domain.RawPullRequest
	incomplete    bool
}

// fetchAll pulls from all sources concurrently. A source failure fails the
// tick unless degraded mode is on, in which case the tick proceeds on what
// answered and the result is flagged incomplete.
func (s *Service) fetchAll(ctx context.Context, since time.Time, withProject bool) (fetched, error) {
	var f fetched
	var wg sync.WaitGroup
	errs := make([]error, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		issues, err := s.tracker.Issues(ctx, since)
		if err != nil { errs[0] = &domain.UpstreamFetchError{Source: "tracker", Err: err}; return }
		f.teamIssues = issues
	}()
	if withProject {
		wg.Add(1)
		go func() {
			defer wg.Done()
			issues, err := s.tracker.ProjectIssues(ctx, s.cfg.MonitoredProject)
			if err != nil { errs[1] = &domain.UpstreamFetchError{Source: "tracker", Err: err}; return }
			f.projectIssues = issues
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		prs, err := s.codeHost.PullRequests(ctx, since)
		if err != nil { errs[2] = &domain.UpstreamFetchError{Source: "codehost", Err: err}; return }
		f.pullRequests = prs
	}()
	wg.Wait()

	for i, err := range errs {
		if err == nil { continue }
		source := "tracker"
		if i == 2 { source = "codehost" }
		prom.UpstreamErrors.WithLabelValues(source).Inc()
		if !s.cfg.DegradeOnFetchError { return fetched{}, err }
		s.log.Warn().Err(err).Msg("upstream fetch failed, continuing degraded")
		f.incomplete = true
	}
	return f, nil
}

// deliver posts a composed message, chunked, to the given sink. Delivery
// failures are logged and counted but never fail the tick.
func (s *Service) deliver(ctx context.Context, n Notifier, msg digest.Message, dry bool) bool {
	if msg.Empty() { return false }
	text := msg.Text()
	if dry {
		s.log.Info().Int("chars", len(text)).Str("message", text).Msg("dry run, skipping delivery")
		return false
	}
	delivered := true
	for _, chunk := range digest.Chunk(text, maxChunk) {
		if err := n.Post(ctx, chunk); err != nil {
			s.log.Error().Err(err).Msg("delivery failed")
			prom.Deliveries.WithLabelValues("error").Inc()
			delivered = false
			break
		}
		prom.Deliveries.WithLabelValues("ok").Inc()
	}
	return delivered
}

// RunDigestNow executes the daily SLA digest tick.
func (s *Service) RunDigestNow(ctx context.Context, dry bool) error {
	run := LastRun{ID: uuid.New(), Job: "digest", StartedAt: time.Now().UTC(), Dry: dry}
	err := s.runDigest(ctx, dry, &run)
	run.FinishedAt = time.Now().UTC()
	run.Success = err == nil
	if err != nil { run.Error = err.Error() }
	s.record(run)
	return err
}

func (s *Service) runDigest(ctx context.Context, dry bool, run *LastRun) error {
	now := time.Now().UTC()
	window, err := domain.LastDays(s.cfg.WindowDays, s.cfg.TZ, now)
	if err != nil { return err }

	f, err := s.fetchAll(ctx, window.Start, true)
	if err != nil { return err }
	slugs := s.cfg.Roster.PlatformSlugs()

	items, err := normalize.Items(f.teamIssues, f.pullRequests, slugs)
	if err != nil { return err }
	slaItems, err := normalize.Items(f.projectIssues, nil, slugs)
	if err != nil { return err }
	run.Items = len(items) + len(slaItems)

	snap, err := stats.Compute(items, window, s.weights())
	if err != nil { return err }
	breach := sla.Evaluate(slaItems, now, window.Location(), sla.Thresholds{
		MaxOpenParents: s.cfg.SLAMaxOpenParents,
		MaxOpenAgeDays: s.cfg.SLAMaxOpenAgeDays,
	})

	msg := digest.Daily(snap, breach, digest.Options{
		ProjectName:    s.cfg.MonitoredProject,
		DashboardURL:   s.cfg.AppURL + "/dashboard",
		CC:             s.cfg.CCSlugs,
		StaleDays:      s.cfg.StaleDays,
		DataIncomplete: f.incomplete,
		Now:            now,
	}, s.cfg.Roster)
	run.Delivered = s.deliver(ctx, s.notifier, msg, dry)
	s.log.Info().Int("open_parents", breach.OpenParentCount).Bool("breaching", breach.Breaching).Msg("digest tick complete")
	return nil
}

// RunLeaderboardNow executes the weekly leaderboard tick.
func (s *Service) RunLeaderboardNow(ctx context.Context, dry bool) error {
	run := LastRun{ID: uuid.New(), Job: "leaderboard", StartedAt: time.Now().UTC(), Dry: dry}
	err := s.runLeaderboard(ctx, dry, &run)
	run.FinishedAt = time.Now().UTC()
	run.Success = err == nil
	if err != nil { run.Error = err.Error() }
	s.record(run)
	return err
}

func (s *Service) runLeaderboard(ctx context.Context, dry bool, run *LastRun) error {
	snap, _, err := s.snapshot(ctx, s.cfg.WindowDays)
	if err != nil { return err }
	run.Items = snap.Total
	msg := digest.Leaderboard(snap.Leaderboard, s.weights(), s.cfg.WindowDays)
	run.Delivered = s.deliver(ctx, s.manager, msg, dry)
	return nil
}

// RunChangelogNow executes the weekly changelog tick.
func (s *Service) RunChangelogNow(ctx context.Context, dry bool) error {
	run := LastRun{ID: uuid.New(), Job: "changelog", StartedAt: time.Now().UTC(), Dry: dry}
	err := s.runChangelog(ctx, dry, &run)
	run.FinishedAt = time.Now().UTC()
	run.Success = err == nil
	if err != nil { run.Error = err.Error() }
	s.record(run)
	return err
}

func (s *Service) runChangelog(ctx context.Context, dry bool, run *LastRun) error {
	now := time.Now().UTC()
	window, err := domain.LastDays(s.cfg.WindowDays, s.cfg.TZ, now)
	if err != nil { return err }
	f, err := s.fetchAll(ctx, window.Start, false)
	if err != nil { return err }
	items, err := normalize.Items(f.teamIssues, nil, s.cfg.Roster.PlatformSlugs())
	if err != nil { return err }

	var entries []domain.ChangelogEntry
	urlByID := map[string]string{}
	for _, it := range items {
		if it.State != domain.StateDone || it.ResolvedAt == nil || !window.Contains(*it.ResolvedAt) { continue }
		entries = append(entries, domain.ChangelogEntry{ID: it.ID, Title: it.Title, Kind: it.Kind, Platform: it.Platform})
		urlByID[it.ID] = it.URL
	}
	run.Items = len(entries)
	if len(entries) == 0 {
		s.log.Info().Msg("no shipped work this window, skipping changelog")
		return nil
	}
	sections, err := s.llm.Changelog(ctx, entries)
	if err != nil { return fmt.Errorf("changelog generation: %w", err) }
	msg := digest.Changelog(sections, urlByID)
	run.Delivered = s.deliver(ctx, s.notifier, msg, dry)
	return nil
}

// Dashboard computes an on-demand snapshot for the HTTP surface.
func (s *Service) Dashboard(ctx context.Context, days int) (stats.Snapshot, error) {
	switch days {
	case 1, 7, 30, 90:
	default:
		return stats.Snapshot{}, fmt.Errorf("unsupported window: %d days", days)
	}
	snap, _, err := s.snapshot(ctx, days)
	return snap, err
}

func (s *Service) snapshot(ctx context.Context, days int) (stats.Snapshot, bool, error) {
	now := time.Now().UTC()
	window, err := domain.LastDays(days, s.cfg.TZ, now)
	if err != nil { return stats.Snapshot{}, false, err }
	f, err := s.fetchAll(ctx, window.Start, false)
	if err != nil { return stats.Snapshot{}, false, err }
	items, err := normalize.Items(f.teamIssues, f.pullRequests, s.cfg.Roster.PlatformSlugs())
	if err != nil { return stats.Snapshot{}, false, err }
	snap, err := stats.Compute(items, window, s.weights())
	return snap, f.incomplete, err
}

func (s *Service) weights() stats.Weights {
	return stats.Weights{High: s.cfg.ScoreWeightHigh, Medium: s.cfg.ScoreWeightMedium, Low: s.cfg.ScoreWeightLow}
}
