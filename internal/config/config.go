/* Copyright (c) 2025 Apollos Project
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Person is one roster entry from the team config file.
type Person struct {
	Name                string `yaml:"name"`
	SlackID             string `yaml:"slack_id"`
	LinearUsername      string `yaml:"linear_username"`
	GithubUsername      string `yaml:"github_username"`
	Team                string `yaml:"team"`
	AvailableForSupport bool   `yaml:"available_for_support"`
}

// Platform maps an owning subsystem to its lead and developers (person slugs).
type Platform struct {
	Name       string   `yaml:"name"`
	Lead       string   `yaml:"lead"`
	Developers []string `yaml:"developers"`
}

type Roster struct {
	People    map[string]Person   `yaml:"people"`
	Platforms map[string]Platform `yaml:"platforms"`
}

type Config struct {
	AppEnv   string
	TZ       string
	HTTPAddr string
	AppURL   string

	RosterFile string

	LinearAPIKey     string
	LinearTeamKey    string
	MonitoredProject string

	GithubToken string
	GithubOwner string
	GithubRepos []string

	SlackWebhookURL        string
	ManagerSlackWebhookURL string

	OpenAIKey     string
	OpenAIModel   string
	OpenAITimeout time.Duration

	DigestAt        string // local time-of-day HH:MM in TZ
	LeaderboardCron string
	ChangelogCron   string

	WindowDays int
	StaleDays  int

	SLAMaxOpenParents int
	SLAMaxOpenAgeDays int
	CCSlugs           []string

	ScoreWeightHigh   int
	ScoreWeightMedium int
	ScoreWeightLow    int

	Dry                 bool
	RunImmediately      bool
	DegradeOnFetchError bool

	HTTPTimeout time.Duration
	TickTimeout time.Duration

	Roster Roster
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoi(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func boolenv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
}

func parseStrings(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Load reads env configuration plus the YAML team roster. A missing or
// malformed roster file is the only fatal condition; the caller exits on it.
func Load() (Config, error) {
	cfg := Config{
		AppEnv:   getenv("APP_ENV", "dev"),
		TZ:       getenv("APP_TZ", "America/New_York"),
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		AppURL:   getenv("APP_URL", "http://localhost:8080"),

		RosterFile: getenv("ROSTER_FILE", "config.yml"),

		LinearAPIKey:     getenv("LINEAR_API_KEY", ""),
		LinearTeamKey:    getenv("LINEAR_TEAM_KEY", "APO"),
		MonitoredProject: getenv("MONITORED_PROJECT", "RECON Issues"),

		GithubToken: getenv("GITHUB_TOKEN", ""),
		GithubOwner: getenv("GITHUB_OWNER", "ApollosProject"),
		GithubRepos: parseStrings(getenv("GITHUB_REPOS", "apollos-platforms")),

		SlackWebhookURL:        getenv("SLACK_WEBHOOK_URL", ""),
		ManagerSlackWebhookURL: getenv("MANAGER_SLACK_WEBHOOK_URL", ""),

		OpenAIKey:     getenv("OPENAI_API_KEY", ""),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4.1-mini"),
		OpenAITimeout: dur("OPENAI_TIMEOUT", 30*time.Second),

		DigestAt:        getenv("DIGEST_AT", "09:00"),
		LeaderboardCron: getenv("LEADERBOARD_CRON", "0 16 * * FRI"),
		ChangelogCron:   getenv("CHANGELOG_CRON", "0 15 * * THU"),

		WindowDays: atoi("WINDOW_DAYS", 7),
		StaleDays:  atoi("STALE_DAYS", 7),

		SLAMaxOpenParents: atoi("SLA_MAX_OPEN_PARENTS", 0),
		SLAMaxOpenAgeDays: atoi("SLA_MAX_OPEN_AGE_DAYS", 0),
		CCSlugs:           parseStrings(getenv("SLA_CC_SLUGS", "")),

		ScoreWeightHigh:   atoi("SCORE_WEIGHT_HIGH", 10),
		ScoreWeightMedium: atoi("SCORE_WEIGHT_MEDIUM", 5),
		ScoreWeightLow:    atoi("SCORE_WEIGHT_LOW", 1),

		Dry:                 boolenv("DRY_RUN", false),
		RunImmediately:      boolenv("RUN_IMMEDIATELY", false),
		DegradeOnFetchError: boolenv("DEGRADE_ON_FETCH_ERROR", false),

		HTTPTimeout: dur("HTTP_TIMEOUT", 15*time.Second),
		TickTimeout: dur("TICK_TIMEOUT", 5*time.Minute),
	}
	if _, err := time.LoadLocation(cfg.TZ); err != nil {
		return Config{}, fmt.Errorf("config: invalid APP_TZ %q: %w", cfg.TZ, err)
	}
	roster, err := loadRoster(cfg.RosterFile)
	if err != nil {
		return Config{}, err
	}
	cfg.Roster = roster
	return cfg, nil
}

func loadRoster(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("config: read roster %s: %w", path, err)
	}
	return ParseRoster(data)
}

func ParseRoster(data []byte) (Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("config: parse roster: %w", err)
	}
	if r.People == nil {
		r.People = map[string]Person{}
	}
	if r.Platforms == nil {
		r.Platforms = map[string]Platform{}
	}
	return r, nil
}

// PlatformSlugs is the set of known platform labels, keyed by slug.
func (r Roster) PlatformSlugs() map[string]struct{} {
	out := make(map[string]struct{}, len(r.Platforms))
	for slug := range r.Platforms {
		out[slug] = struct{}{}
	}
	return out
}

// PersonByLinearUsername finds a roster entry by tracker username.
func (r Roster) PersonByLinearUsername(username string) (string, Person, bool) {
	for slug, p := range r.People {
		if p.LinearUsername == username {
			return slug, p, true
		}
	}
	return "", Person{}, false
}

// PersonByGithubUsername finds a roster entry by code-host login.
func (r Roster) PersonByGithubUsername(login string) (string, Person, bool) {
	for slug, p := range r.People {
		if p.GithubUsername == login {
			return slug, p, true
		}
	}
	return "", Person{}, false
}
