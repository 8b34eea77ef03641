/* Copyright (c) 2025 Apollos Project
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ApollosProject/bug-board/internal/config"
)

type service interface {
	RunDigestNow(ctx context.Context, dry bool) error
	RunLeaderboardNow(ctx context.Context, dry bool) error
	RunChangelogNow(ctx context.Context, dry bool) error
}

// Cron owns the three schedules. All fire in the configured timezone so a DST
// shift moves wall-clock fire times, not UTC ones. An overlapping run of the
// same job is skipped, not queued.
type Cron struct {
	cfg      config.Config
	log      zerolog.Logger
	svc      service
	c        *cron.Cron
	digestID cron.EntryID
}

func NewCron(cfg config.Config, log zerolog.Logger, svc service) (*Cron, error) {
	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil { return nil, fmt.Errorf("jobs: load timezone %q: %w", cfg.TZ, err) }
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log})),
	)
	cr := &Cron{cfg: cfg, log: log, svc: svc, c: c}

	digestCron, err := DigestSpec(cfg.DigestAt)
	if err != nil { return nil, err }
	id, err := c.AddFunc(digestCron, cr.job("digest", svc.RunDigestNow))
	if err != nil { return nil, fmt.Errorf("jobs: digest schedule: %w", err) }
	cr.digestID = id
	if _, err := c.AddFunc(cfg.LeaderboardCron, cr.job("leaderboard", svc.RunLeaderboardNow)); err != nil {
		return nil, fmt.Errorf("jobs: leaderboard schedule: %w", err)
	}
	if _, err := c.AddFunc(cfg.ChangelogCron, cr.job("changelog", svc.RunChangelogNow)); err != nil {
		return nil, fmt.Errorf("jobs: changelog schedule: %w", err)
	}
	return cr, nil
}

// Start begins the schedules. Immediate mode fires the digest once through
// its wrapped entry so the overlap guard also covers the startup run.
func (cr *Cron) Start() {
	cr.c.Start()
	if cr.cfg.RunImmediately {
		go cr.c.Entry(cr.digestID).WrappedJob.Run()
	}
}

func (cr *Cron) Stop() { <-cr.c.Stop().Done() }

func (cr *Cron) job(name string, run func(context.Context, bool) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), cr.cfg.TickTimeout)
		defer cancel()
		cr.log.Info().Str("job", name).Msg("cron: tick")
		if err := run(ctx, cr.cfg.Dry); err != nil {
			cr.log.Error().Err(err).Str("job", name).Msg("cron: tick failed")
		}
	}
}

// DigestSpec converts a local HH:MM time-of-day into a daily cron spec.
func DigestSpec(at string) (string, error) {
	t, err := time.Parse("15:04", at)
	if err != nil { return "", fmt.Errorf("jobs: invalid digest time %q: %w", at, err) }
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

// cronLogger adapts zerolog to the cron logger interface so skip decisions
// land in the structured log.
type cronLogger struct{ log zerolog.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Info().Fields(kv).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error().Err(err).Fields(kv).Msg("cron: " + msg)
}
