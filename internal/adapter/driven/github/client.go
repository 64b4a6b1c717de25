// Package github implements the ReviewSource and Notifier ports using the
// go-github library and the GitHub GraphQL API.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/reviewnudge/reviewnudge/internal/domain/model"
	"github.com/reviewnudge/reviewnudge/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.ReviewSource = (*Client)(nil)
	_ driven.Notifier     = (*Client)(nil)
)

// Client implements the driven.ReviewSource and driven.Notifier ports.
type Client struct {
	gh         *gh.Client
	token      string // Stored for GraphQL Authorization header.
	graphqlURL string // "https://api.github.com/graphql" in production; derived from baseURL in tests.
	target     discussionTarget
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{
		gh:         client,
		token:      token,
		graphqlURL: "https://api.github.com/graphql",
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	// Derive graphqlURL from baseURL so httptest servers can intercept GraphQL requests.
	graphqlU := *u
	graphqlU.Path = "/graphql"

	return &Client{
		gh:         client,
		token:      token,
		graphqlURL: graphqlU.String(),
	}, nil
}

// FetchReviewRequests retrieves all open review requests for the repository
// with per-reviewer assignment and response timestamps resolved from the
// issue timeline and submitted reviews. Any page failure aborts the fetch so
// the caller never sees a truncated set.
func (c *Client) FetchReviewRequests(ctx context.Context, repoFullName string) ([]model.ReviewRequest, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.PullRequestListOptions{
		State: "open",
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	var requests []model.ReviewRequest

	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, classifyError(fmt.Errorf("listing pull requests for %s (page %d): %w", repoFullName, opts.Page, err))
		}

		logRateLimit(resp, repoFullName, opts.Page, len(prs))

		for _, pr := range prs {
			req := mapReviewRequest(pr, repoFullName)
			if len(req.Reviewers) == 0 {
				requests = append(requests, req)
				continue
			}

			if err := c.resolveAssignments(ctx, owner, repo, &req); err != nil {
				return nil, err
			}
			if err := c.resolveResponses(ctx, owner, repo, &req); err != nil {
				return nil, err
			}
			requests = append(requests, req)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if requests == nil {
		requests = []model.ReviewRequest{}
	}

	return requests, nil
}

// resolveAssignments walks the issue timeline and stamps each reviewer with
// the newest review_requested event that names them. Reviewers without a
// timeline event keep the request's creation time as their assignment.
func (c *Client) resolveAssignments(ctx context.Context, owner, repo string, req *model.ReviewRequest) error {
	opts := &gh.ListOptions{PerPage: 100}

	for {
		events, resp, err := c.gh.Issues.ListIssueTimeline(ctx, owner, repo, req.Number, opts)
		if err != nil {
			return classifyError(fmt.Errorf("listing timeline for %s (page %d): %w", req.ID, opts.Page, err))
		}

		for _, ev := range events {
			if ev.GetEvent() != "review_requested" {
				continue
			}
			reviewer := req.Reviewer(ev.GetReviewer().GetLogin())
			if reviewer == nil {
				continue
			}
			at := ev.GetCreatedAt().Time
			if at.After(reviewer.AssignedAt) {
				reviewer.AssignedAt = at
			}
		}

		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

// resolveResponses stamps each reviewer with the submission time of their
// latest review, if any.
func (c *Client) resolveResponses(ctx context.Context, owner, repo string, req *model.ReviewRequest) error {
	opts := &gh.ListOptions{PerPage: 100}

	for {
		reviews, resp, err := c.gh.PullRequests.ListReviews(ctx, owner, repo, req.Number, opts)
		if err != nil {
			return classifyError(fmt.Errorf("listing reviews for %s (page %d): %w", req.ID, opts.Page, err))
		}

		for _, review := range reviews {
			reviewer := req.Reviewer(review.GetUser().GetLogin())
			if reviewer == nil {
				continue
			}
			at := review.GetSubmittedAt().Time
			if at.IsZero() {
				continue // Pending (unsubmitted) review.
			}
			if reviewer.RespondedAt == nil || at.After(*reviewer.RespondedAt) {
				t := at
				reviewer.RespondedAt = &t
			}
		}

		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

// mapReviewRequest converts a go-github PullRequest to a domain ReviewRequest.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapReviewRequest(pr *gh.PullRequest, repoFullName string) model.ReviewRequest {
	status := model.RequestStatusOpen
	if pr.GetState() == "closed" {
		status = model.RequestStatusClosed
	}

	createdAt := pr.GetCreatedAt().Time

	reviewers := make([]model.Reviewer, 0, len(pr.RequestedReviewers))
	for _, r := range pr.RequestedReviewers {
		reviewers = append(reviewers, model.Reviewer{
			Login:      r.GetLogin(),
			AssignedAt: createdAt, // Refined from the timeline afterwards.
		})
	}

	return model.ReviewRequest{
		ID:        model.RequestID(repoFullName, pr.GetNumber()),
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		URL:       pr.GetHTMLURL(),
		Author:    pr.GetUser().GetLogin(),
		Status:    status,
		IsDraft:   pr.GetDraft(),
		Reviewers: reviewers,
		CreatedAt: createdAt,
	}
}

// classifyError maps a fetch failure onto the domain error taxonomy:
// credential problems (HTTP 401/403) are fatal, everything else (network
// errors, 5xx, rate limits) is transient and retryable.
func classifyError(err error) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return model.AuthError(err)
		}
	}

	return model.TransientError(err)
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
