/* Copyright (c) 2025 Apollos Project
 * SPDX-License-Identifier: BSD-3-Clause */
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/ApollosProject/bug-board/internal/domain"
)

// Weights scores completed work by priority bucket.
type Weights struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// DefaultWeights is the house scheme: a high fix is worth two mediums, a
// medium five lows.
var DefaultWeights = Weights{High: 10, Medium: 5, Low: 1}

// For returns the score for one priority bucket. None and unmapped buckets
// score like Low so finished work never counts for nothing.
func (w Weights) For(p domain.Priority) int {
	switch p {
	case domain.PriorityHigh:
		return w.High
	case domain.PriorityMedium:
		return w.Medium
	default:
		return w.Low
	}
}

// DurationStats summarizes a duration sample set. The pointers are nil when
// the sample set is empty: an absent statistic is absent, never zero.
type DurationStats struct {
	Samples int            `json:"samples"`
	Avg     *time.Duration `json:"avg,omitempty"`
	P50     *time.Duration `json:"p50,omitempty"`
	P95     *time.Duration `json:"p95,omitempty"`
}

// AssigneeScore is one leaderboard row.
type AssigneeScore struct {
	Assignee  domain.Person `json:"assignee"`
	Score     int           `json:"score"`
	Completed int           `json:"completed"`
}

// Group is a named slice of items, used for platform/project/assignee cuts.
type Group struct {
	Key   string            `json:"key"`
	Items []domain.WorkItem `json:"items"`
}

// Snapshot is everything the digest and dashboard need from one window of
// work items.
type Snapshot struct {
	Window    domain.Window `json:"window"`
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	OpenCount int           `json:"open_count"`

	// PriorityPercentage is the share of items created in the window that
	// arrived as high or medium priority, rounded to one decimal.
	PriorityPercentage float64 `json:"priority_percentage"`

	Lead          DurationStats `json:"lead"`
	Queue         DurationStats `json:"queue"`
	QueueDegraded bool          `json:"queue_degraded"`

	Leaderboard []AssigneeScore `json:"leaderboard"`

	ByPlatform []Group `json:"by_platform"`
	ByProject  []Group `json:"by_project"`
	ByAssignee []Group `json:"by_assignee"`

	OpenItems []domain.WorkItem `json:"open_items"`
}

// Compute aggregates the items that touch the window: created in it, resolved
// in it, or still open. Items fully outside the window are ignored.
func Compute(items []domain.WorkItem, window domain.Window, weights Weights) (Snapshot, error) {
	if window.Start.After(window.End) {
		return Snapshot{}, domain.ErrInvalidWindow
	}
	snap := Snapshot{Window: window}

	var createdInWindow, priorityCreated int
	var leadSamples, queueSamples []time.Duration
	scores := map[string]*AssigneeScore{}
	byPlatform := map[string][]domain.WorkItem{}
	byProject := map[string][]domain.WorkItem{}
	byAssignee := map[string][]domain.WorkItem{}

	for _, it := range items {
		resolvedIn := it.ResolvedAt != nil && window.Contains(*it.ResolvedAt)
		createdIn := window.Contains(it.CreatedAt)
		if !createdIn && !resolvedIn && !it.Open() {
			continue
		}
		snap.Total++
		if it.Open() {
			snap.OpenCount++
			snap.OpenItems = append(snap.OpenItems, it)
		}
		if createdIn {
			createdInWindow++
			if it.Priority == domain.PriorityHigh || it.Priority == domain.PriorityMedium {
				priorityCreated++
			}
		}
		if it.Platform != "" {
			byPlatform[it.Platform] = append(byPlatform[it.Platform], it)
		}
		if it.Project != "" {
			byProject[it.Project] = append(byProject[it.Project], it)
		}
		if it.Assignee != nil {
			byAssignee[it.Assignee.Name] = append(byAssignee[it.Assignee.Name], it)
		}

		if resolvedIn && it.State == domain.StateDone {
			snap.Completed++
			leadSamples = append(leadSamples, it.ResolvedAt.Sub(it.CreatedAt))
			if it.StartedAt != nil && !it.StartedAt.Before(it.CreatedAt) {
				queueSamples = append(queueSamples, it.StartedAt.Sub(it.CreatedAt))
			} else {
				// No recorded start: fall back to full lead time and flag the
				// queue stats as degraded rather than dropping the sample.
				queueSamples = append(queueSamples, it.ResolvedAt.Sub(it.CreatedAt))
				snap.QueueDegraded = true
			}
			if it.Assignee != nil {
				s, ok := scores[it.Assignee.ID]
				if !ok {
					s = &AssigneeScore{Assignee: *it.Assignee}
					scores[it.Assignee.ID] = s
				}
				s.Score += weights.For(it.Priority)
				s.Completed++
			}
		}
	}

	if createdInWindow > 0 {
		snap.PriorityPercentage = math.Round(float64(priorityCreated)/float64(createdInWindow)*1000) / 10
	}
	snap.Lead = Summarize(leadSamples)
	snap.Queue = Summarize(queueSamples)

	for _, s := range scores {
		snap.Leaderboard = append(snap.Leaderboard, *s)
	}
	sort.Slice(snap.Leaderboard, func(i, j int) bool {
		a, b := snap.Leaderboard[i], snap.Leaderboard[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Assignee.Name < b.Assignee.Name
	})

	snap.ByPlatform = groupsByCount(byPlatform)
	snap.ByProject = groupsByKey(byProject)
	snap.ByAssignee = groupsByKey(byAssignee)

	sort.Slice(snap.OpenItems, func(i, j int) bool {
		return snap.OpenItems[i].CreatedAt.Before(snap.OpenItems[j].CreatedAt)
	})
	return snap, nil
}

// Summarize computes avg/p50/p95 over a duration sample set.
func Summarize(samples []time.Duration) DurationStats {
	st := DurationStats{Samples: len(samples)}
	if len(samples) == 0 {
		return st
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	avg := Average(sorted)
	p50 := Percentile(sorted, 50)
	p95 := Percentile(sorted, 95)
	st.Avg, st.P50, st.P95 = &avg, &p50, &p95
	return st
}

// Average of a non-empty sample set.
func Average(samples []time.Duration) time.Duration {
	var total time.Duration
	for _, s := range samples {
		total += s
	}
	return total / time.Duration(len(samples))
}

// Percentile picks the nearest-rank percentile from an ascending-sorted,
// non-empty sample set.
func Percentile(sorted []time.Duration, p int) time.Duration {
	idx := int(math.Ceil(float64(p)/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// StaleByAssignee buckets open items untouched for at least staleDays,
// keyed by assignee name ("" for unassigned).
func StaleByAssignee(items []domain.WorkItem, staleDays int, now time.Time) map[string][]domain.WorkItem {
	cutoff := now.UTC().Add(-time.Duration(staleDays) * 24 * time.Hour)
	out := map[string][]domain.WorkItem{}
	for _, it := range items {
		if !it.Open() || it.UpdatedAt.After(cutoff) {
			continue
		}
		key := ""
		if it.Assignee != nil {
			key = it.Assignee.Name
		}
		out[key] = append(out[key], it)
	}
	for _, v := range out {
		sort.Slice(v, func(i, j int) bool { return v[i].UpdatedAt.Before(v[j].UpdatedAt) })
	}
	return out
}

func groupsByCount(m map[string][]domain.WorkItem) []Group {
	groups := collect(m)
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].Items) != len(groups[j].Items) {
			return len(groups[i].Items) > len(groups[j].Items)
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}

func groupsByKey(m map[string][]domain.WorkItem) []Group {
	groups := collect(m)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

func collect(m map[string][]domain.WorkItem) []Group {
	groups := make([]Group, 0, len(m))
	for k, v := range m {
		groups = append(groups, Group{Key: k, Items: v})
	}
	return groups
}
