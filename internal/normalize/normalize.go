/* Copyright (c) 2025 Apollos Project
 * SPDX-License-Identifier: BSD-3-Clause */
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/ApollosProject/bug-board/internal/domain"
)

// kindByLabel is the deterministic label→kind table for tracker issues.
// Unmapped labels fall back to KindOther, never an error.
var kindByLabel = map[string]domain.Kind{
	"bug":              domain.KindBug,
	"new feature":      domain.KindFeature,
	"feature":          domain.KindFeature,
	"enhancement":      domain.KindFeature,
	"technical change": domain.KindOther,
}

// priorityByNumber maps the tracker's numeric priority (1 urgent .. 5 very
// low, 0 none) into the normalized buckets. Urgent collapses into High and is
// flagged separately on the item.
var priorityByNumber = map[int]domain.Priority{
	0: domain.PriorityNone,
	1: domain.PriorityHigh,
	2: domain.PriorityHigh,
	3: domain.PriorityMedium,
	4: domain.PriorityLow,
	5: domain.PriorityLow,
}

var issueTimeLayouts = []string{
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339Nano,
	time.RFC3339,
}

// parseIssueTime parses a tracker timestamp strictly: an unparsable value or
// timezone offset is an error, never silently defaulted.
func parseIssueTime(s string) (time.Time, error) {
	var lastErr error
	for _, l := range issueTimeLayouts {
		t, err := time.Parse(l, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseIssueTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func slugify(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "-")
}

// Items converts raw tracker and code-host records into WorkItems.
// platformSlugs is the set of configured platform labels (by slug) used to
// pick an owning platform out of an issue's label set.
func Items(issues []domain.RawIssue, prs []domain.RawPullRequest, platformSlugs map[string]struct{}) ([]domain.WorkItem, error) {
	out := make([]domain.WorkItem, 0, len(issues)+len(prs))
	for _, ri := range issues {
		it, err := Issue(ri, platformSlugs)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	for _, rp := range prs {
		it, err := PullRequest(rp)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

// Issue normalizes one raw tracker issue.
func Issue(ri domain.RawIssue, platformSlugs map[string]struct{}) (domain.WorkItem, error) {
	if ri.ID == "" {
		return domain.WorkItem{}, &domain.NormalizationError{Source: "tracker", Field: "id"}
	}
	if ri.State == nil || (ri.State.Name == "" && ri.State.Type == "") {
		return domain.WorkItem{}, &domain.NormalizationError{Source: "tracker", ID: ri.ID, Field: "state"}
	}
	createdAt, err := parseIssueTime(ri.CreatedAt)
	if err != nil {
		return domain.WorkItem{}, &domain.NormalizationError{Source: "tracker", ID: ri.ID, Field: "createdAt", Err: err}
	}
	updatedAt, err := parseIssueTime(ri.UpdatedAt)
	if err != nil {
		return domain.WorkItem{}, &domain.NormalizationError{Source: "tracker", ID: ri.ID, Field: "updatedAt", Err: err}
	}
	state := mapState(ri.State)

	it := domain.WorkItem{
		ID:        ri.ID,
		Title:     ri.Title,
		URL:       ri.URL,
		Priority:  mapPriority(ri.Priority),
		Urgent:    ri.Priority == 1,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		State:     state,
	}
	if ri.Identifier != "" {
		it.Title = ri.Identifier + ": " + ri.Title
	}
	if ri.Project != nil {
		it.Project = ri.Project.Name
	}
	if ri.Parent != nil {
		it.ParentID = ri.Parent.ID
	}
	if ri.Assignee != nil {
		name := ri.Assignee.DisplayName
		if name == "" {
			name = ri.Assignee.Name
		}
		it.Assignee = &domain.Person{ID: ri.Assignee.ID, Name: name}
	}
	it.Kind, it.Platform = classifyLabels(ri.Labels.Nodes, platformSlugs)

	if it.StartedAt, err = parseOptionalTime(ri.StartedAt); err != nil {
		return domain.WorkItem{}, &domain.NormalizationError{Source: "tracker", ID: ri.ID, Field: "startedAt", Err: err}
	}
	if it.SLADeadline, err = parseOptionalTime(ri.SLABreachesAt); err != nil {
		return domain.WorkItem{}, &domain.NormalizationError{Source: "tracker", ID: ri.ID, Field: "slaBreachesAt", Err: err}
	}

	// ResolvedAt is set iff the state is terminal. The tracker reports
	// completedAt/canceledAt; when a terminal item carries neither, the last
	// update stands in (matching how the source system backfills).
	if state.Terminal() {
		resolved, err := parseOptionalTime(ri.CompletedAt)
		if err != nil {
			return domain.WorkItem{}, &domain.NormalizationError{Source: "tracker", ID: ri.ID, Field: "completedAt", Err: err}
		}
		if resolved == nil {
			if resolved, err = parseOptionalTime(ri.CanceledAt); err != nil {
				return domain.WorkItem{}, &domain.NormalizationError{Source: "tracker", ID: ri.ID, Field: "canceledAt", Err: err}
			}
		}
		if resolved == nil {
			resolved = &updatedAt
		}
		if resolved.Before(createdAt) {
			return domain.WorkItem{}, &domain.NormalizationError{
				Source: "tracker", ID: ri.ID, Field: "completedAt",
				Err: fmt.Errorf("resolved %s before created %s", resolved.Format(time.RFC3339), createdAt.Format(time.RFC3339)),
			}
		}
		it.ResolvedAt = resolved
	}
	return it, nil
}

// PullRequest normalizes one raw code-host record.
func PullRequest(rp domain.RawPullRequest) (domain.WorkItem, error) {
	if rp.ID == "" {
		return domain.WorkItem{}, &domain.NormalizationError{Source: "codehost", Field: "id"}
	}
	if rp.CreatedAt.IsZero() || rp.UpdatedAt.IsZero() {
		return domain.WorkItem{}, &domain.NormalizationError{Source: "codehost", ID: rp.ID, Field: "timestamps"}
	}
	it := domain.WorkItem{
		ID:        rp.ID,
		Title:     rp.Title,
		URL:       rp.URL,
		Kind:      domain.KindPullRequest,
		Priority:  domain.PriorityNone,
		CreatedAt: rp.CreatedAt.UTC(),
		UpdatedAt: rp.UpdatedAt.UTC(),
		State:     domain.StateOpen,
	}
	if rp.Author != "" {
		it.Assignee = &domain.Person{ID: rp.Author, Name: rp.Author}
	}
	for _, r := range rp.Reviewers {
		it.Reviewers = append(it.Reviewers, domain.Person{ID: r, Name: r})
	}
	switch {
	case rp.MergedAt != nil:
		it.State = domain.StateDone
		t := rp.MergedAt.UTC()
		it.ResolvedAt = &t
	case rp.State == "closed":
		it.State = domain.StateCanceled
		if rp.ClosedAt == nil {
			return domain.WorkItem{}, &domain.NormalizationError{Source: "codehost", ID: rp.ID, Field: "closedAt"}
		}
		t := rp.ClosedAt.UTC()
		it.ResolvedAt = &t
	}
	if it.ResolvedAt != nil && it.ResolvedAt.Before(it.CreatedAt) {
		return domain.WorkItem{}, &domain.NormalizationError{
			Source: "codehost", ID: rp.ID, Field: "resolvedAt",
			Err: fmt.Errorf("resolved before created"),
		}
	}
	return it, nil
}

func mapPriority(n int) domain.Priority {
	if p, ok := priorityByNumber[n]; ok {
		return p
	}
	return domain.PriorityNone
}

// mapState prefers the workflow state type (names are customizable in the
// tracker, e.g. "Released"); the name table is the fallback.
func mapState(rs *domain.RawState) domain.State {
	if strings.EqualFold(rs.Name, "Duplicate") {
		return domain.StateDuplicate
	}
	switch strings.ToLower(rs.Type) {
	case "completed":
		return domain.StateDone
	case "canceled":
		return domain.StateCanceled
	case "started":
		return domain.StateInProgress
	case "triage", "backlog", "unstarted":
		return domain.StateOpen
	}
	switch rs.Name {
	case "Done":
		return domain.StateDone
	case "Canceled":
		return domain.StateCanceled
	case "In Progress":
		return domain.StateInProgress
	}
	return domain.StateOpen
}

// classifyLabels picks the item kind from the first mapped label and the
// platform from the first label whose slug is a configured platform.
func classifyLabels(labels []domain.RawLabel, platformSlugs map[string]struct{}) (domain.Kind, string) {
	kind := domain.KindOther
	platform := ""
	for _, l := range labels {
		if k, ok := kindByLabel[strings.ToLower(strings.TrimSpace(l.Name))]; ok && kind == domain.KindOther {
			kind = k
			continue
		}
		if platform == "" {
			if _, ok := platformSlugs[slugify(l.Name)]; ok {
				platform = l.Name
			}
		}
	}
	return kind, platform
}
