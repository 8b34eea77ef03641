/* Copyright (c) 2025 Apollos Project
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ApollosProject/bug-board/internal/config"
	"github.com/ApollosProject/bug-board/internal/services"
	"github.com/ApollosProject/bug-board/internal/stats"
)

type service interface {
	RunDigestNow(ctx context.Context, dry bool) error
	RunLeaderboardNow(ctx context.Context, dry bool) error
	RunChangelogNow(ctx context.Context, dry bool) error
	Dashboard(ctx context.Context, days int) (stats.Snapshot, error)
	LastRun() *services.LastRun
}

type Handlers struct {
	cfg config.Config
	log zerolog.Logger
	svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc any) *Handlers {
	return &Handlers{cfg: cfg, log: log, svc: svc.(service)}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) Dashboard(c *gin.Context) {
	days := 7
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a number"})
			return
		}
		days = n
	}
	snap, err := h.svc.Dashboard(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handlers) LastRun(c *gin.Context) {
	lr := h.svc.LastRun()
	if lr == nil {
		c.JSON(http.StatusOK, gin.H{"status": "no runs yet"})
		return
	}
	c.JSON(http.StatusOK, lr)
}

// RunNow queues one job in the background, detached from the request context.
// ?job=digest|leaderboard|changelog, ?dry=1 composes without delivering.
func (h *Handlers) RunNow(c *gin.Context) {
	job := c.DefaultQuery("job", "digest")
	dry := c.Query("dry") == "1" || h.cfg.Dry
	var run func(context.Context, bool) error
	switch job {
	case "digest":
		run = h.svc.RunDigestNow
	case "leaderboard":
		run = h.svc.RunLeaderboardNow
	case "changelog":
		run = h.svc.RunChangelogNow
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown job: " + job})
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.TickTimeout)
		defer cancel()
		if err := run(ctx, dry); err != nil { h.log.Error().Err(err).Str("job", job).Msg("manual run failed") }
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "job": job, "dry": dry})
}
