package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "github.com/reviewnudge/reviewnudge/internal/adapter/driven/github"
	"github.com/reviewnudge/reviewnudge/internal/domain/model"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) (*ghAdapter.Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := ghAdapter.NewClientWithHTTPClient(
		server.Client(),
		server.URL+"/",
		"test-token",
	)
	require.NoError(t, err)

	return client, server
}

// Helper structs for building GitHub API responses.

type userJSON struct {
	Login string `json:"login"`
}

type prJSON struct {
	Number             int        `json:"number"`
	Title              string     `json:"title"`
	State              string     `json:"state"`
	Draft              bool       `json:"draft"`
	HTMLURL            string     `json:"html_url"`
	User               userJSON   `json:"user"`
	RequestedReviewers []userJSON `json:"requested_reviewers"`
	Created            string     `json:"created_at"`
}

type timelineJSON struct {
	Event     string    `json:"event"`
	Reviewer  *userJSON `json:"requested_reviewer,omitempty"`
	CreatedAt string    `json:"created_at"`
}

type reviewJSON struct {
	ID          int64    `json:"id"`
	User        userJSON `json:"user"`
	State       string   `json:"state"`
	SubmittedAt string   `json:"submitted_at,omitempty"`
}

func TestFetchReviewRequests_MapsReviewersAndTimestamps(t *testing.T) {
	prs := []prJSON{
		{
			Number:  42,
			Title:   "Add feature X",
			State:   "open",
			HTMLURL: "https://github.com/owner/repo/pull/42",
			User:    userJSON{Login: "author"},
			RequestedReviewers: []userJSON{
				{Login: "alice"},
				{Login: "bob"},
			},
			Created: "2026-01-01T00:00:00Z",
		},
	}

	timeline := []timelineJSON{
		{Event: "committed", CreatedAt: "2026-01-01T00:00:00Z"},
		{Event: "review_requested", Reviewer: &userJSON{Login: "alice"}, CreatedAt: "2026-01-02T00:00:00Z"},
		{Event: "review_requested", Reviewer: &userJSON{Login: "alice"}, CreatedAt: "2026-01-03T00:00:00Z"},
	}

	reviews := []reviewJSON{
		{ID: 1, User: userJSON{Login: "bob"}, State: "COMMENTED", SubmittedAt: "2026-01-04T00:00:00Z"},
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/repos/owner/repo/pulls":
			assert.Equal(t, "open", r.URL.Query().Get("state"))
			_ = json.NewEncoder(w).Encode(prs)
		case "/repos/owner/repo/issues/42/timeline":
			_ = json.NewEncoder(w).Encode(timeline)
		case "/repos/owner/repo/pulls/42/reviews":
			_ = json.NewEncoder(w).Encode(reviews)
		default:
			t.Errorf("unexpected request path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	client, _ := newTestClient(t, handler)
	result, err := client.FetchReviewRequests(context.Background(), "owner/repo")

	require.NoError(t, err)
	require.Len(t, result, 1)

	req := result[0]
	assert.Equal(t, "owner/repo#42", req.ID)
	assert.Equal(t, 42, req.Number)
	assert.Equal(t, "Add feature X", req.Title)
	assert.Equal(t, "author", req.Author)
	assert.Equal(t, model.RequestStatusOpen, req.Status)
	require.Len(t, req.Reviewers, 2)

	// alice: newest review_requested event wins.
	alice := req.Reviewer("alice")
	require.NotNil(t, alice)
	assert.Equal(t, time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC), alice.AssignedAt)
	assert.Nil(t, alice.RespondedAt)

	// bob: no timeline event, assignment falls back to PR creation; his
	// review sets the response timestamp.
	bob := req.Reviewer("bob")
	require.NotNil(t, bob)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), bob.AssignedAt)
	require.NotNil(t, bob.RespondedAt)
	assert.Equal(t, time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC), *bob.RespondedAt)
	assert.True(t, bob.HasResponded())
}

func TestFetchReviewRequests_Pagination(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/repos/owner/repo/pulls" {
			// No reviewers on any PR, so no sub-fetches happen.
			t.Errorf("unexpected request path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}

		page := r.URL.Query().Get("page")
		if page == "" || page == "1" {
			w.Header().Set("Link", fmt.Sprintf(`<%s?page=2>; rel="next"`, "http://"+r.Host+r.URL.Path))
			_ = json.NewEncoder(w).Encode([]prJSON{
				{Number: 1, State: "open", User: userJSON{Login: "author"}, Created: "2026-01-01T00:00:00Z"},
			})
			return
		}

		_ = json.NewEncoder(w).Encode([]prJSON{
			{Number: 2, State: "open", User: userJSON{Login: "author"}, Created: "2026-01-01T00:00:00Z"},
		})
	})

	client, _ := newTestClient(t, handler)
	result, err := client.FetchReviewRequests(context.Background(), "owner/repo")

	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, 1, result[0].Number)
	assert.Equal(t, 2, result[1].Number)
}

func TestFetchReviewRequests_AuthErrorIsFatal(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Bad credentials"}`))
	})

	client, _ := newTestClient(t, handler)
	_, err := client.FetchReviewRequests(context.Background(), "owner/repo")

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAuth)
	assert.NotErrorIs(t, err, model.ErrTransient)
}

func TestFetchReviewRequests_ServerErrorIsTransient(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	client, _ := newTestClient(t, handler)
	_, err := client.FetchReviewRequests(context.Background(), "owner/repo")

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTransient)
}

func TestFetchReviewRequests_PartialPageFailureAbortsRun(t *testing.T) {
	// The PR listing succeeds but the timeline fetch fails; the whole fetch
	// must fail rather than return a truncated result.
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/owner/repo/pulls" {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode([]prJSON{
				{
					Number: 1, State: "open", User: userJSON{Login: "author"},
					RequestedReviewers: []userJSON{{Login: "alice"}},
					Created:            "2026-01-01T00:00:00Z",
				},
			})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	client, _ := newTestClient(t, handler)
	result, err := client.FetchReviewRequests(context.Background(), "owner/repo")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, model.ErrTransient)
}

func TestFetchReviewRequests_InvalidRepoName(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))

	_, err := client.FetchReviewRequests(context.Background(), "not-a-repo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected owner/repo")
}
