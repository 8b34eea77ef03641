/* Copyright (c) 2025 Apollos Project
 * SPDX-License-Identifier: BSD-3-Clause */

// Package digest renders snapshots and SLA state into chat-ready text.
// Composition is pure: no clocks, no I/O, everything injected.
package digest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ApollosProject/bug-board/internal/config"
	"github.com/ApollosProject/bug-board/internal/domain"
	"github.com/ApollosProject/bug-board/internal/sla"
	"github.com/ApollosProject/bug-board/internal/stats"
)

// Message is a composed digest ready for delivery.
type Message struct {
	Title    string
	Sections []string
}

// Text flattens the message for a webhook payload.
func (m Message) Text() string {
	parts := make([]string, 0, len(m.Sections)+1)
	if m.Title != "" {
		parts = append(parts, m.Title)
	}
	parts = append(parts, m.Sections...)
	return strings.Join(parts, "\n\n")
}

// Empty reports whether there is nothing worth posting.
func (m Message) Empty() bool { return len(m.Sections) == 0 }

// Options carries the per-run composition inputs.
type Options struct {
	ProjectName  string
	ProjectURL   string
	DashboardURL string
	CC           []string // roster slugs to ping at the bottom
	StaleDays    int

	// DataIncomplete flags a degraded tick: one upstream failed and the
	// digest was computed from the sources that answered.
	DataIncomplete bool

	Now time.Time
}

// Mention renders one person as a chat mention, falling back to the roster
// slug when no chat ID is on file.
func Mention(slug string, p config.Person, ok bool) string {
	if ok && p.SlackID != "" {
		return fmt.Sprintf("<@%s>", p.SlackID)
	}
	if ok && p.Name != "" {
		return p.Name
	}
	return slug
}

// ResolveMentions maps roster slugs to mentions, preserving order.
func ResolveMentions(slugs []string, roster config.Roster) []string {
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		p, ok := roster.People[s]
		out = append(out, Mention(s, p, ok))
	}
	return out
}

// Daily composes the daily SLA digest.
func Daily(snap stats.Snapshot, breach sla.State, opts Options, roster config.Roster) Message {
	msg := Message{Title: fmt.Sprintf("*%s — daily digest*", opts.ProjectName)}
	if opts.DataIncomplete {
		msg.Sections = append(msg.Sections, "⚠️ _Partial data: one or more sources were unreachable this run._")
	}

	msg.Sections = append(msg.Sections, slaSection(breach, opts))

	if s := prioritySection(snap.OpenItems, opts, roster); s != "" {
		msg.Sections = append(msg.Sections, s)
	}
	if s := staleSection(snap.OpenItems, opts); s != "" {
		msg.Sections = append(msg.Sections, s)
	}

	msg.Sections = append(msg.Sections, metricsFooter(snap, opts))

	// CC recipients are escalation contacts; they are only pinged on a breach.
	if breach.Breaching && len(opts.CC) > 0 {
		msg.Sections = append(msg.Sections, "cc "+strings.Join(ResolveMentions(opts.CC, roster), " "))
	}
	return msg
}

func slaSection(breach sla.State, opts Options) string {
	var b strings.Builder
	if breach.OpenParentCount == 0 {
		if breach.DaysSinceLastResolvedParent != nil && *breach.DaysSinceLastResolvedParent > 0 {
			fmt.Fprintf(&b, "🎉 No open issues — %d day streak!", *breach.DaysSinceLastResolvedParent)
		} else {
			b.WriteString("🎉 No open issues.")
		}
		return b.String()
	}

	breachedByID := map[string]struct{}{}
	for _, it := range breach.DeadlineBreached {
		breachedByID[it.ID] = struct{}{}
	}

	header := fmt.Sprintf("*%d open issue(s)*", breach.OpenParentCount)
	if breach.Breaching {
		header = "🚨 " + header + " — SLA breached"
	}
	b.WriteString(header)
	for _, it := range breach.OpenParents {
		marker := "•"
		if _, ok := breachedByID[it.ID]; ok {
			marker = "🚨"
		}
		fmt.Fprintf(&b, "\n%s <%s|%s> — %d day(s) open", marker, it.URL, it.Title, it.DaysOpen(opts.Now))
	}
	return b.String()
}

// prioritySection splits open high-urgency work into unassigned, at-risk and
// overdue buckets. Urgent items are due in a day; high items run at risk from
// day five and overdue past day seven.
func prioritySection(open []domain.WorkItem, opts Options, roster config.Roster) string {
	var unassigned, atRisk, overdue []domain.WorkItem
	for _, it := range open {
		if it.Kind == domain.KindPullRequest {
			continue
		}
		if it.Priority != domain.PriorityHigh && !it.Urgent {
			continue
		}
		days := it.DaysOpen(opts.Now)
		switch {
		case it.Assignee == nil:
			unassigned = append(unassigned, it)
		case it.Urgent && days >= 1:
			overdue = append(overdue, it)
		case it.Urgent:
			atRisk = append(atRisk, it)
		case days > 7:
			overdue = append(overdue, it)
		case days >= 5:
			atRisk = append(atRisk, it)
		}
	}
	if len(unassigned)+len(atRisk)+len(overdue) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("*Priority bugs*")
	platforms := map[string]struct{}{}
	bucket := func(name string, items []domain.WorkItem) {
		if len(items) == 0 {
			return
		}
		sort.Slice(items, func(i, j int) bool {
			return items[i].DaysOpen(opts.Now) > items[j].DaysOpen(opts.Now)
		})
		fmt.Fprintf(&b, "\n_%s_", name)
		for _, it := range items {
			marker := "•"
			if it.Urgent { marker = "🚨" }
			fmt.Fprintf(&b, "\n%s <%s|%s> — %d day(s)", marker, it.URL, it.Title, it.DaysOpen(opts.Now))
			if it.Assignee != nil {
				if slug, p, ok := roster.PersonByLinearUsername(it.Assignee.Name); ok {
					fmt.Fprintf(&b, " — %s", Mention(slug, p, true))
				} else {
					fmt.Fprintf(&b, " — %s", it.Assignee.Name)
				}
			}
			if it.Platform != "" { platforms[platformSlug(it.Platform)] = struct{}{} }
		}
	}
	bucket("Unassigned", unassigned)
	bucket("At risk", atRisk)
	bucket("Overdue", overdue)
	if attn := platformLeads(platforms, roster); len(attn) > 0 {
		fmt.Fprintf(&b, "\nattn: %s", strings.Join(attn, " "))
	}
	return b.String()
}

func platformSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// platformLeads resolves the owning leads of the given platform slugs,
// deduplicated and in stable order.
func platformLeads(slugs map[string]struct{}, roster config.Roster) []string {
	leads := map[string]struct{}{}
	for slug := range slugs {
		pl, ok := roster.Platforms[slug]
		if !ok || pl.Lead == "" { continue }
		leads[pl.Lead] = struct{}{}
	}
	ordered := make([]string, 0, len(leads))
	for l := range leads {
		ordered = append(ordered, l)
	}
	sort.Strings(ordered)
	return ResolveMentions(ordered, roster)
}

func staleSection(open []domain.WorkItem, opts Options) string {
	if opts.StaleDays <= 0 {
		return ""
	}
	byAssignee := stats.StaleByAssignee(open, opts.StaleDays, opts.Now)
	if len(byAssignee) == 0 {
		return ""
	}
	names := make([]string, 0, len(byAssignee))
	for n := range byAssignee {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "*Stale (no update in %d+ days)*", opts.StaleDays)
	for _, n := range names {
		label := n
		if label == "" {
			label = "unassigned"
		}
		for _, it := range byAssignee[n] {
			fmt.Fprintf(&b, "\n• <%s|%s> — %s", it.URL, it.Title, label)
		}
	}
	return b.String()
}

func metricsFooter(snap stats.Snapshot, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Last %d days: %d completed, %d open, %.1f%% high/medium intake",
		snap.Window.Days(), snap.Completed, snap.OpenCount, snap.PriorityPercentage)
	if snap.Lead.P50 != nil {
		fmt.Fprintf(&b, " — lead p50 %s / p95 %s", humanDuration(*snap.Lead.P50), humanDuration(*snap.Lead.P95))
	}
	if opts.DashboardURL != "" {
		fmt.Fprintf(&b, "\n<%s|Dashboard>", opts.DashboardURL)
	}
	return b.String()
}

// Leaderboard composes the weekly score post. Top three get medals.
func Leaderboard(scores []stats.AssigneeScore, weights stats.Weights, windowDays int) Message {
	msg := Message{Title: fmt.Sprintf("*Leaderboard — last %d days*", windowDays)}
	if len(scores) == 0 {
		return msg
	}
	medals := []string{"🥇", "🥈", "🥉"}
	var b strings.Builder
	for i, s := range scores {
		prefix := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			prefix = medals[i]
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s — %d pts (%d completed)", prefix, s.Assignee.Name, s.Score, s.Completed)
	}
	msg.Sections = append(msg.Sections, b.String())
	msg.Sections = append(msg.Sections,
		fmt.Sprintf("_Scoring: high %d / medium %d / low %d_", weights.High, weights.Medium, weights.Low))
	return msg
}

// Changelog composes the weekly changelog post from generated sections.
// sectionOrder fixes the heading order; urlByID links each line back to its
// issue when known.
var sectionOrder = []string{"New Features", "Bug Fixes", "Improvements"}

func Changelog(sections map[string][]domain.ChangelogItem, urlByID map[string]string) Message {
	msg := Message{Title: "*Weekly changelog*"}
	seen := map[string]struct{}{}
	emit := func(name string, items []domain.ChangelogItem) {
		if len(items) == 0 {
			return
		}
		var b strings.Builder
		fmt.Fprintf(&b, "*%s*", name)
		for _, it := range items {
			if url, ok := urlByID[it.ID]; ok && url != "" {
				fmt.Fprintf(&b, "\n• <%s|%s>", url, it.Summary)
			} else {
				fmt.Fprintf(&b, "\n• %s", it.Summary)
			}
		}
		msg.Sections = append(msg.Sections, b.String())
	}
	for _, name := range sectionOrder {
		emit(name, sections[name])
		seen[name] = struct{}{}
	}
	extra := make([]string, 0, len(sections))
	for name := range sections {
		if _, ok := seen[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		emit(name, sections[name])
	}
	return msg
}

// Chunk splits text into webhook-sized pieces on line boundaries. A single
// oversized line is split hard.
func Chunk(text string, max int) []string {
	if max <= 0 || len(text) <= max {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > max {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			chunks = append(chunks, line[:max])
			line = line[max:]
		}
		add := len(line)
		if cur.Len() > 0 {
			add++
		}
		if cur.Len()+add > max {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n")
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

func humanDuration(d time.Duration) string {
	if d >= 24*time.Hour {
		return fmt.Sprintf("%.1fd", d.Hours()/24)
	}
	if d >= time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}
