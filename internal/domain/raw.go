package domain

import "time"

// Raw records mirror the collaborator API responses. The tracker client
// returns them fully materialized (pagination handled internally); the
// normalizer is the only consumer.

type RawIssue struct {
	ID            string      `json:"id"`
	Identifier    string      `json:"identifier"`
	Title         string      `json:"title"`
	URL           string      `json:"url"`
	Priority      int         `json:"priority"` // 0 none, 1 urgent, 2 high, 3 medium, 4 low, 5 very low
	CreatedAt     string      `json:"createdAt"`
	UpdatedAt     string      `json:"updatedAt"`
	StartedAt     string      `json:"startedAt"`
	CompletedAt   string      `json:"completedAt"`
	CanceledAt    string      `json:"canceledAt"`
	SLABreachesAt string      `json:"slaBreachesAt"`
	State         *RawState   `json:"state"`
	Assignee      *RawUser    `json:"assignee"`
	Labels        RawLabels   `json:"labels"`
	Project       *RawProject `json:"project"`
	Parent        *RawRef     `json:"parent"`
	Children      RawChildren `json:"children"`
}

type RawState struct {
	Name string `json:"name"`
	Type string `json:"type"` // triage, backlog, unstarted, started, completed, canceled
}

type RawUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type RawLabels struct {
	Nodes []RawLabel `json:"nodes"`
}

type RawLabel struct {
	Name string `json:"name"`
}

type RawProject struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type RawRef struct {
	ID string `json:"id"`
}

type RawChildren struct {
	Nodes []RawIssue `json:"nodes"`
}

// RawPullRequest carries already-typed timestamps because the code-host SDK
// decodes them before we see the record.
type RawPullRequest struct {
	ID        string
	Number    int
	Title     string
	URL       string
	Author    string
	State     string // open, closed
	Draft     bool
	CreatedAt time.Time
	UpdatedAt time.Time
	MergedAt  *time.Time
	ClosedAt  *time.Time
	Reviewers []string
}
