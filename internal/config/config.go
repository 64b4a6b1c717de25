// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the optional configuration surface.
const (
	DefaultDeadlineHours   = 48
	DefaultCategory        = "Reviewer notifications"
	DefaultDiscussionTitle = "Pending Reviews"
	DefaultDBPath          = "reviewnudge.db"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken     string
	RepoFullName    string        // "owner/repo".
	Deadline        time.Duration // Turnaround deadline for reviews.
	Category        string        // Discussion category receiving notifications.
	DiscussionTitle string        // Discussion title the comment is posted under.
	DBPath          string
	PollInterval    time.Duration // Zero means run once and exit, unless PollAdaptive is set.
	PollAdaptive    bool          // Schedule runs by repository activity instead of a fixed interval.
}

// Load reads configuration from environment variables, consulting a .env file
// first when one exists. Required: REVIEWNUDGE_GITHUB_TOKEN, REVIEWNUDGE_REPO.
// Optional with defaults: REVIEWNUDGE_DEADLINE_HOURS (48),
// REVIEWNUDGE_CATEGORY ("Reviewer notifications"),
// REVIEWNUDGE_DISCUSSION_TITLE ("Pending Reviews"),
// REVIEWNUDGE_DB_PATH ("reviewnudge.db"). REVIEWNUDGE_POLL_INTERVAL switches
// from run-once to a scheduled loop: a duration gives a fixed schedule, the
// literal "auto" paces runs by repository activity.
func Load() (*Config, error) {
	// A missing .env file is fine; plain env vars still apply.
	_ = godotenv.Load()

	token := os.Getenv("REVIEWNUDGE_GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("REVIEWNUDGE_GITHUB_TOKEN is required")
	}

	repo := os.Getenv("REVIEWNUDGE_REPO")
	if repo == "" {
		return nil, fmt.Errorf("REVIEWNUDGE_REPO is required")
	}
	if parts := strings.SplitN(repo, "/", 2); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("REVIEWNUDGE_REPO has invalid value %q: expected owner/repo", repo)
	}

	deadlineHours := DefaultDeadlineHours
	if v, ok := os.LookupEnv("REVIEWNUDGE_DEADLINE_HOURS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("REVIEWNUDGE_DEADLINE_HOURS must be a positive integer, got %q", v)
		}
		deadlineHours = parsed
	}

	category := DefaultCategory
	if v, ok := os.LookupEnv("REVIEWNUDGE_CATEGORY"); ok && v != "" {
		category = v
	}

	title := DefaultDiscussionTitle
	if v, ok := os.LookupEnv("REVIEWNUDGE_DISCUSSION_TITLE"); ok && v != "" {
		title = v
	}

	dbPath := DefaultDBPath
	if v, ok := os.LookupEnv("REVIEWNUDGE_DB_PATH"); ok && v != "" {
		dbPath = v
	}

	var pollInterval time.Duration
	var pollAdaptive bool
	if v, ok := os.LookupEnv("REVIEWNUDGE_POLL_INTERVAL"); ok && v != "" {
		if v == "auto" {
			pollAdaptive = true
		} else {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("REVIEWNUDGE_POLL_INTERVAL has invalid duration %q: %w", v, err)
			}
			if parsed <= 0 {
				return nil, fmt.Errorf("REVIEWNUDGE_POLL_INTERVAL must be positive, got %q", v)
			}
			pollInterval = parsed
		}
	}

	return &Config{
		GitHubToken:     token,
		RepoFullName:    repo,
		Deadline:        time.Duration(deadlineHours) * time.Hour,
		Category:        category,
		DiscussionTitle: title,
		DBPath:          dbPath,
		PollInterval:    pollInterval,
		PollAdaptive:    pollAdaptive,
	}, nil
}
