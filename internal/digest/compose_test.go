package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/ApollosProject/bug-board/internal/config"
	"github.com/ApollosProject/bug-board/internal/domain"
	"github.com/ApollosProject/bug-board/internal/sla"
	"github.com/ApollosProject/bug-board/internal/stats"
)

var testNow = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

func testRoster() config.Roster {
	return config.Roster{
		People: map[string]config.Person{
			"alice": {Name: "Alice", SlackID: "U123", LinearUsername: "alice"},
			"bob":   {Name: "Bob", LinearUsername: "bob"},
		},
		Platforms: map[string]config.Platform{
			"mobile-app": {Name: "Mobile App", Lead: "alice", Developers: []string{"alice", "bob"}},
		},
	}
}

func testSnapshot(t *testing.T, open ...domain.WorkItem) stats.Snapshot {
	t.Helper()
	w, err := domain.LastDays(7, "UTC", testNow)
	if err != nil { t.Fatal(err) }
	return stats.Snapshot{Window: w, OpenCount: len(open), OpenItems: open}
}

func TestDaily_StreakCelebration(t *testing.T) {
	streak := 12
	msg := Daily(testSnapshot(t), sla.State{DaysSinceLastResolvedParent: &streak},
		Options{ProjectName: "RECON Issues", Now: testNow}, testRoster())
	text := msg.Text()
	if !strings.Contains(text, "12 day streak") { t.Fatalf("missing streak: %q", text) }
	if strings.Contains(text, "🚨") { t.Fatalf("clean board must not alarm: %q", text) }
}

func TestDaily_OpenParentsListedOldestFirstWithDeadlineMarker(t *testing.T) {
	deadline := testNow.Add(-time.Hour)
	old := domain.WorkItem{ID: "old", Title: "Old bug", URL: "http://x/old",
		State: domain.StateOpen, CreatedAt: testNow.Add(-10 * 24 * time.Hour), UpdatedAt: testNow}
	blown := domain.WorkItem{ID: "blown", Title: "Blown bug", URL: "http://x/blown",
		State: domain.StateOpen, CreatedAt: testNow.Add(-2 * 24 * time.Hour), UpdatedAt: testNow, SLADeadline: &deadline}
	breach := sla.State{
		OpenParents:      []domain.WorkItem{old, blown},
		OpenParentCount:  2,
		DeadlineBreached: []domain.WorkItem{blown},
		Breaching:        true,
	}
	text := Daily(testSnapshot(t), breach, Options{ProjectName: "RECON Issues", Now: testNow}, testRoster()).Text()
	if !strings.Contains(text, "SLA breached") { t.Fatalf("missing breach flag: %q", text) }
	if !strings.Contains(text, "🚨 <http://x/blown|Blown bug>") { t.Fatalf("missing deadline marker: %q", text) }
	if strings.Index(text, "Old bug") > strings.Index(text, "Blown bug") {
		t.Fatalf("open list must be oldest first: %q", text)
	}
}

func TestDaily_PriorityBuckets(t *testing.T) {
	alice := &domain.Person{ID: "a", Name: "alice"}
	unassigned := domain.WorkItem{ID: "u", Title: "No owner", URL: "http://x/u", Kind: domain.KindBug,
		Priority: domain.PriorityHigh, State: domain.StateOpen,
		CreatedAt: testNow.Add(-2 * 24 * time.Hour), UpdatedAt: testNow}
	atRisk := domain.WorkItem{ID: "r", Title: "Slipping", URL: "http://x/r", Kind: domain.KindBug,
		Priority: domain.PriorityHigh, State: domain.StateOpen, Assignee: alice,
		CreatedAt: testNow.Add(-5 * 24 * time.Hour), UpdatedAt: testNow}
	overdue := domain.WorkItem{ID: "o", Title: "Ancient", URL: "http://x/o", Kind: domain.KindBug,
		Priority: domain.PriorityHigh, State: domain.StateOpen, Assignee: alice,
		CreatedAt: testNow.Add(-9 * 24 * time.Hour), UpdatedAt: testNow}
	urgentOverdue := domain.WorkItem{ID: "uo", Title: "Urgent slip", URL: "http://x/uo", Kind: domain.KindBug,
		Priority: domain.PriorityHigh, Urgent: true, State: domain.StateOpen, Assignee: alice,
		Platform:  "Mobile App",
		CreatedAt: testNow.Add(-2 * 24 * time.Hour), UpdatedAt: testNow}

	snap := testSnapshot(t, unassigned, atRisk, overdue, urgentOverdue)
	text := Daily(snap, sla.State{}, Options{ProjectName: "P", Now: testNow}, testRoster()).Text()

	for _, want := range []string{"_Unassigned_", "_At risk_", "_Overdue_", "No owner", "Slipping", "Ancient", "Urgent slip"} {
		if !strings.Contains(text, want) { t.Fatalf("missing %q in %q", want, text) }
	}
	// overdue bucket is sorted by age, oldest first
	if strings.Index(text, "Ancient") > strings.Index(text, "Urgent slip") {
		t.Fatalf("overdue should list oldest first: %q", text)
	}
	// alice resolves to a slack mention
	if !strings.Contains(text, "<@U123>") { t.Fatalf("missing mention: %q", text) }
	// the urgent item gets the alarm marker
	if !strings.Contains(text, "🚨 <http://x/uo|Urgent slip>") { t.Fatalf("missing urgent marker: %q", text) }
	// the owning platform lead is pulled in
	if !strings.Contains(text, "attn: <@U123>") { t.Fatalf("missing platform lead escalation: %q", text) }
}

func TestDaily_LowPriorityAndPRsStayOut(t *testing.T) {
	low := domain.WorkItem{ID: "l", Title: "Minor", Priority: domain.PriorityLow,
		State: domain.StateOpen, CreatedAt: testNow.Add(-30 * 24 * time.Hour), UpdatedAt: testNow}
	pr := domain.WorkItem{ID: "p", Title: "Some PR", Kind: domain.KindPullRequest, Priority: domain.PriorityHigh,
		State: domain.StateOpen, CreatedAt: testNow.Add(-30 * 24 * time.Hour), UpdatedAt: testNow}
	text := Daily(testSnapshot(t, low, pr), sla.State{}, Options{ProjectName: "P", Now: testNow}, testRoster()).Text()
	if strings.Contains(text, "Priority bugs") { t.Fatalf("no priority section expected: %q", text) }
}

func TestDaily_IncompleteBannerAndCC(t *testing.T) {
	breach := sla.State{OpenParentCount: 1, Breaching: true,
		OpenParents: []domain.WorkItem{{ID: "p", Title: "Bad", URL: "http://x/p",
			State: domain.StateOpen, CreatedAt: testNow.Add(-24 * time.Hour), UpdatedAt: testNow}}}
	text := Daily(testSnapshot(t), breach,
		Options{ProjectName: "P", CC: []string{"alice", "ghost"}, DataIncomplete: true, Now: testNow},
		testRoster()).Text()
	if !strings.Contains(text, "Partial data") { t.Fatalf("missing banner: %q", text) }
	// known slug becomes a mention, unknown stays a slug
	if !strings.Contains(text, "cc <@U123> ghost") { t.Fatalf("cc line wrong: %q", text) }
}

func TestDaily_NoCCWithoutBreach(t *testing.T) {
	text := Daily(testSnapshot(t), sla.State{},
		Options{ProjectName: "P", CC: []string{"alice"}, Now: testNow}, testRoster()).Text()
	if strings.Contains(text, "cc ") {
		t.Fatalf("escalation cc must only appear on a breach: %q", text)
	}
}

func TestDaily_StaleSection(t *testing.T) {
	stale := domain.WorkItem{ID: "s", Title: "Dusty", URL: "http://x/s", State: domain.StateOpen,
		Assignee:  &domain.Person{Name: "Bob"},
		CreatedAt: testNow.Add(-60 * 24 * time.Hour), UpdatedAt: testNow.Add(-20 * 24 * time.Hour)}
	text := Daily(testSnapshot(t, stale), sla.State{},
		Options{ProjectName: "P", StaleDays: 7, Now: testNow}, testRoster()).Text()
	if !strings.Contains(text, "Stale (no update in 7+ days)") { t.Fatalf("missing stale header: %q", text) }
	if !strings.Contains(text, "Dusty") { t.Fatalf("missing stale item: %q", text) }
}

func TestLeaderboard_MedalsAndLegend(t *testing.T) {
	scores := []stats.AssigneeScore{
		{Assignee: domain.Person{Name: "Alice"}, Score: 30, Completed: 4},
		{Assignee: domain.Person{Name: "Bob"}, Score: 20, Completed: 3},
		{Assignee: domain.Person{Name: "Carol"}, Score: 10, Completed: 2},
		{Assignee: domain.Person{Name: "Dave"}, Score: 1, Completed: 1},
	}
	text := Leaderboard(scores, stats.DefaultWeights, 7).Text()
	for _, want := range []string{"🥇 Alice", "🥈 Bob", "🥉 Carol", "4. Dave", "high 10 / medium 5 / low 1"} {
		if !strings.Contains(text, want) { t.Fatalf("missing %q in %q", want, text) }
	}
}

func TestLeaderboard_EmptyIsEmpty(t *testing.T) {
	if !Leaderboard(nil, stats.DefaultWeights, 7).Empty() {
		t.Fatalf("no scores should compose an empty message")
	}
}

func TestChangelog_SectionOrderAndLinks(t *testing.T) {
	sections := map[string][]domain.ChangelogItem{
		"Bug Fixes":    {{ID: "1", Summary: "Fixed the crash"}},
		"New Features": {{ID: "2", Summary: "Dark mode"}},
		"Other":        {{ID: "3", Summary: "Misc"}},
	}
	text := Changelog(sections, map[string]string{"1": "http://x/1"}).Text()
	if strings.Index(text, "New Features") > strings.Index(text, "Bug Fixes") {
		t.Fatalf("section order wrong: %q", text)
	}
	if !strings.Contains(text, "<http://x/1|Fixed the crash>") { t.Fatalf("missing link: %q", text) }
	if !strings.Contains(text, "• Dark mode") { t.Fatalf("unlinked item wrong: %q", text) }
	if !strings.Contains(text, "Misc") { t.Fatalf("extra section dropped: %q", text) }
}

func TestChunk_SplitsOnLines(t *testing.T) {
	text := strings.Repeat("aaaa\n", 10) // 10 lines of 4 chars
	chunks := Chunk(strings.TrimSuffix(text, "\n"), 12)
	for i, c := range chunks {
		if len(c) > 12 { t.Fatalf("chunk %d too long: %q", i, c) }
	}
	if joined := strings.Join(chunks, "\n"); strings.Count(joined, "aaaa") != 10 {
		t.Fatalf("content lost: %q", joined)
	}
}

func TestChunk_HardSplitsOversizedLine(t *testing.T) {
	chunks := Chunk(strings.Repeat("x", 25), 10)
	if len(chunks) != 3 { t.Fatalf("chunks = %d", len(chunks)) }
}

func TestChunk_ShortTextPassesThrough(t *testing.T) {
	chunks := Chunk("hello", 100)
	if len(chunks) != 1 || chunks[0] != "hello" { t.Fatalf("chunks = %#v", chunks) }
}
