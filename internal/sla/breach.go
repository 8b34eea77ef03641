/* Copyright (c) 2025 Apollos Project
 * SPDX-License-Identifier: BSD-3-Clause */

// Package sla evaluates the engineering-health contract over normalized work
// items: how many parent issues are open, how long the board has been clean,
// and whether any configured limit or per-item deadline is blown.
package sla

import (
	"sort"
	"time"

	"github.com/ApollosProject/bug-board/internal/domain"
)

// Thresholds are the configured limits. A zero value disables that check.
type Thresholds struct {
	MaxOpenParents int
	MaxOpenAgeDays int
}

// State is the SLA evaluation result for one tick.
type State struct {
	// OpenParents are open parent issues, oldest first.
	OpenParents     []domain.WorkItem `json:"open_parents"`
	OpenParentCount int               `json:"open_parent_count"`

	// DaysSinceLastResolvedParent is the clean streak: calendar days in the
	// reporting timezone since the most recent parent resolution. Nil while
	// parents are open, or when nothing was ever resolved.
	DaysSinceLastResolvedParent *int `json:"days_since_last_resolved_parent,omitempty"`

	// DeadlineBreached are open items (parent or child) past their own
	// deadline, oldest deadline first.
	DeadlineBreached []domain.WorkItem `json:"deadline_breached,omitempty"`

	Breaching bool `json:"breaching"`
}

// Evaluate computes the SLA state at now. The streak never makes the board
// breach; only counts, ages and deadlines do.
func Evaluate(items []domain.WorkItem, now time.Time, loc *time.Location, th Thresholds) State {
	now = now.UTC()
	var st State
	var lastResolved *time.Time

	for _, it := range items {
		if it.Open() && it.SLADeadline != nil && it.SLADeadline.Before(now) {
			st.DeadlineBreached = append(st.DeadlineBreached, it)
		}
		if !it.IsParent() {
			continue
		}
		if it.Open() {
			st.OpenParents = append(st.OpenParents, it)
			continue
		}
		if it.State.Terminal() && it.ResolvedAt != nil {
			if lastResolved == nil || it.ResolvedAt.After(*lastResolved) {
				lastResolved = it.ResolvedAt
			}
		}
	}
	st.OpenParentCount = len(st.OpenParents)

	sort.Slice(st.OpenParents, func(i, j int) bool {
		return st.OpenParents[i].CreatedAt.Before(st.OpenParents[j].CreatedAt)
	})
	sort.Slice(st.DeadlineBreached, func(i, j int) bool {
		return st.DeadlineBreached[i].SLADeadline.Before(*st.DeadlineBreached[j].SLADeadline)
	})

	if st.OpenParentCount == 0 && lastResolved != nil {
		d := calendarDays(*lastResolved, now, loc)
		st.DaysSinceLastResolvedParent = &d
	}

	if th.MaxOpenParents > 0 && st.OpenParentCount > th.MaxOpenParents {
		st.Breaching = true
	}
	if th.MaxOpenAgeDays > 0 {
		for _, p := range st.OpenParents {
			if p.DaysOpen(now) > th.MaxOpenAgeDays {
				st.Breaching = true
				break
			}
		}
	}
	if len(st.DeadlineBreached) > 0 {
		st.Breaching = true
	}
	return st
}

// calendarDays counts day boundaries crossed between from and to in loc,
// clamped to zero. The dates are re-anchored in UTC before subtracting so a
// DST transition inside the span cannot shorten a day.
func calendarDays(from, to time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	f := from.In(loc)
	t := to.In(loc)
	fd := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	td := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	d := int(td.Sub(fd).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
