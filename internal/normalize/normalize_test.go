package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/ApollosProject/bug-board/internal/domain"
)

func rawIssue() domain.RawIssue {
	return domain.RawIssue{
		ID:         "iss-1",
		Identifier: "APO-12",
		Title:      "Crash on launch",
		URL:        "https://linear.app/apo/issue/APO-12",
		Priority:   2,
		CreatedAt:  "2025-05-01T10:00:00.000Z",
		UpdatedAt:  "2025-05-02T10:00:00.000Z",
		State:      &domain.RawState{Name: "Todo", Type: "unstarted"},
		Labels:     domain.RawLabels{Nodes: []domain.RawLabel{{Name: "Bug"}, {Name: "Mobile App"}}},
	}
}

func TestIssue_MapsFields(t *testing.T) {
	slugs := map[string]struct{}{"mobile-app": {}}
	it, err := Issue(rawIssue(), slugs)
	if err != nil { t.Fatal(err) }
	if it.Kind != domain.KindBug { t.Fatalf("kind = %s", it.Kind) }
	if it.Priority != domain.PriorityHigh { t.Fatalf("priority = %s", it.Priority) }
	if it.Urgent { t.Fatalf("priority 2 is not urgent") }
	if it.Platform != "Mobile App" { t.Fatalf("platform = %q", it.Platform) }
	if it.State != domain.StateOpen { t.Fatalf("state = %s", it.State) }
	if it.Title != "APO-12: Crash on launch" { t.Fatalf("title = %q", it.Title) }
	if it.ResolvedAt != nil { t.Fatalf("open item must not carry resolvedAt") }
	if !it.CreatedAt.Equal(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("createdAt = %v", it.CreatedAt)
	}
}

func TestIssue_UrgentCollapsesIntoHigh(t *testing.T) {
	ri := rawIssue()
	ri.Priority = 1
	it, err := Issue(ri, nil)
	if err != nil { t.Fatal(err) }
	if it.Priority != domain.PriorityHigh || !it.Urgent {
		t.Fatalf("urgent should map to high+urgent, got %s urgent=%v", it.Priority, it.Urgent)
	}
}

func TestIssue_TerminalStateGetsResolvedAt(t *testing.T) {
	ri := rawIssue()
	ri.State = &domain.RawState{Name: "Done", Type: "completed"}
	ri.CompletedAt = "2025-05-03T08:00:00.000Z"
	it, err := Issue(ri, nil)
	if err != nil { t.Fatal(err) }
	if it.State != domain.StateDone { t.Fatalf("state = %s", it.State) }
	if it.ResolvedAt == nil || !it.ResolvedAt.Equal(time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("resolvedAt = %v", it.ResolvedAt)
	}
}

func TestIssue_TerminalWithoutCompletedAtFallsBackToUpdatedAt(t *testing.T) {
	ri := rawIssue()
	ri.State = &domain.RawState{Name: "Done", Type: "completed"}
	it, err := Issue(ri, nil)
	if err != nil { t.Fatal(err) }
	if it.ResolvedAt == nil || !it.ResolvedAt.Equal(it.UpdatedAt) {
		t.Fatalf("expected updatedAt fallback, got %v", it.ResolvedAt)
	}
}

func TestIssue_DuplicateByName(t *testing.T) {
	ri := rawIssue()
	ri.State = &domain.RawState{Name: "Duplicate", Type: "canceled"}
	it, err := Issue(ri, nil)
	if err != nil { t.Fatal(err) }
	if it.State != domain.StateDuplicate { t.Fatalf("state = %s", it.State) }
}

func TestIssue_RejectsResolvedBeforeCreated(t *testing.T) {
	ri := rawIssue()
	ri.State = &domain.RawState{Name: "Done", Type: "completed"}
	ri.CompletedAt = "2025-04-01T00:00:00.000Z"
	_, err := Issue(ri, nil)
	var ne *domain.NormalizationError
	if !errors.As(err, &ne) { t.Fatalf("expected NormalizationError, got %v", err) }
}

func TestIssue_RejectsMissingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.RawIssue)
	}{
		{"missing id", func(ri *domain.RawIssue) { ri.ID = "" }},
		{"missing state", func(ri *domain.RawIssue) { ri.State = nil }},
		{"bad createdAt", func(ri *domain.RawIssue) { ri.CreatedAt = "yesterday" }},
		{"bad updatedAt", func(ri *domain.RawIssue) { ri.UpdatedAt = "2025-13-99" }},
	}
	for _, tc := range cases {
		ri := rawIssue()
		tc.mutate(&ri)
		if _, err := Issue(ri, nil); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestIssue_UnmappedLabelFallsBackToOther(t *testing.T) {
	ri := rawIssue()
	ri.Labels = domain.RawLabels{Nodes: []domain.RawLabel{{Name: "Spike"}}}
	it, err := Issue(ri, nil)
	if err != nil { t.Fatal(err) }
	if it.Kind != domain.KindOther { t.Fatalf("kind = %s", it.Kind) }
}

func TestPullRequest_MergedBecomesDone(t *testing.T) {
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	merged := created.Add(48 * time.Hour)
	it, err := PullRequest(domain.RawPullRequest{
		ID: "repo#7", Title: "Fix crash", URL: "https://github.com/x/y/pull/7",
		Author: "octocat", State: "closed",
		CreatedAt: created, UpdatedAt: merged, MergedAt: &merged,
	})
	if err != nil { t.Fatal(err) }
	if it.Kind != domain.KindPullRequest { t.Fatalf("kind = %s", it.Kind) }
	if it.State != domain.StateDone { t.Fatalf("state = %s", it.State) }
	if it.ResolvedAt == nil || !it.ResolvedAt.Equal(merged) { t.Fatalf("resolvedAt = %v", it.ResolvedAt) }
	if it.Assignee == nil || it.Assignee.Name != "octocat" { t.Fatalf("assignee = %v", it.Assignee) }
}

func TestPullRequest_ClosedUnmergedBecomesCanceled(t *testing.T) {
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	closed := created.Add(time.Hour)
	it, err := PullRequest(domain.RawPullRequest{
		ID: "repo#8", State: "closed",
		CreatedAt: created, UpdatedAt: closed, ClosedAt: &closed,
	})
	if err != nil { t.Fatal(err) }
	if it.State != domain.StateCanceled { t.Fatalf("state = %s", it.State) }
}

func TestItems_FailsClosedOnOneBadRecord(t *testing.T) {
	good := rawIssue()
	bad := rawIssue()
	bad.ID = "iss-2"
	bad.CreatedAt = "not a time"
	if _, err := Items([]domain.RawIssue{good, bad}, nil, nil); err == nil {
		t.Fatalf("expected the batch to fail on the bad record")
	}
}
