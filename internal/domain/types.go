package domain

import "time"

// Kind classifies a work item by the nature of the change.
type Kind string

const (
	KindBug         Kind = "bug"
	KindFeature     Kind = "feature"
	KindPullRequest Kind = "pull_request"
	KindOther       Kind = "other"
)

// Priority is the normalized priority bucket. Source systems with finer
// levels collapse into these four; Urgent on WorkItem marks the top level.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

type State string

const (
	StateOpen       State = "open"
	StateInProgress State = "in_progress"
	StateDone       State = "done"
	StateCanceled   State = "canceled"
	StateDuplicate  State = "duplicate"
)

// Terminal reports whether the state ends an item's lifecycle.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCanceled || s == StateDuplicate
}

// Person is a stable reference to a teammate in a source system.
type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WorkItem is the uniform representation of one issue or pull request.
// Timestamps are UTC; ResolvedAt is set iff State is terminal.
type WorkItem struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Kind     Kind     `json:"kind"`
	Priority Priority `json:"priority"`
	Platform string   `json:"platform,omitempty"`
	Project  string   `json:"project,omitempty"`
	Assignee *Person  `json:"assignee,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	SLADeadline *time.Time `json:"sla_deadline,omitempty"`

	State     State    `json:"state"`
	ParentID  string   `json:"parent_id,omitempty"`
	Urgent    bool     `json:"urgent,omitempty"`
	Reviewers []Person `json:"reviewers,omitempty"`
}

// Open reports whether the item still counts toward open backlog.
func (w WorkItem) Open() bool { return w.State == StateOpen || w.State == StateInProgress }

// IsParent reports whether the item is a top-level issue (the unit of SLA
// tracking; sub-issues roll up to their parent).
func (w WorkItem) IsParent() bool { return w.ParentID == "" }

// DaysOpen is the whole number of days since the item was created.
func (w WorkItem) DaysOpen(now time.Time) int {
	d := int(now.UTC().Sub(w.CreatedAt).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// ChangelogEntry is the per-issue input handed to the changelog generator.
type ChangelogEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Kind     Kind   `json:"kind"`
	Platform string `json:"platform,omitempty"`
}

// ChangelogItem is one generated changelog line, keyed back to its issue.
type ChangelogItem struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
}
