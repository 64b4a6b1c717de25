package github_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "github.com/reviewnudge/reviewnudge/internal/adapter/driven/github"
	"github.com/reviewnudge/reviewnudge/internal/domain/model"
)

type gqlCall struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// discussionHandler emulates the three GraphQL round-trips of a notification
// post: category lookup, discussion lookup, comment mutation.
type discussionHandler struct {
	t            *testing.T
	categories   []map[string]string
	discussions  []map[string]string
	postedBodies []string
}

func (h *discussionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	require.Equal(h.t, "/graphql", r.URL.Path)
	require.Equal(h.t, "bearer test-token", r.Header.Get("Authorization"))

	var call gqlCall
	require.NoError(h.t, json.NewDecoder(r.Body).Decode(&call))

	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.Contains(call.Query, "discussionCategories"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"repository": map[string]any{
				"discussionCategories": map[string]any{"nodes": h.categories},
			}},
		})
	case strings.Contains(call.Query, "discussions("):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"repository": map[string]any{
				"discussions": map[string]any{"nodes": h.discussions},
			}},
		})
	case strings.Contains(call.Query, "addDiscussionComment"):
		assert.Equal(h.t, "D_1", call.Variables["discussionId"])
		h.postedBodies = append(h.postedBodies, call.Variables["body"].(string))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"addDiscussionComment": map[string]any{
				"comment": map[string]string{"id": "DC_1"},
			}},
		})
	default:
		h.t.Errorf("unexpected GraphQL query: %s", call.Query)
		w.WriteHeader(http.StatusBadRequest)
	}
}

func notifierClient(t *testing.T, handler http.Handler) *ghAdapter.Client {
	t.Helper()
	client, _ := newTestClient(t, handler)
	require.NoError(t, client.SetNotificationTarget("owner/repo"))
	return client
}

func testNotification() model.Notification {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	findings := []model.OverdueFinding{
		{
			RequestID:    "owner/repo#1",
			Reviewer:     "alice",
			Title:        "Add feature X",
			URL:          "https://github.com/owner/repo/pull/1",
			PendingSince: now.Add(-49 * time.Hour),
			Overdue:      time.Hour,
		},
	}
	return model.BuildNotification("Reviewer notifications", "Pending Reviews", findings, now)
}

func TestPostNotification_PostsCommentToResolvedDiscussion(t *testing.T) {
	handler := &discussionHandler{
		t: t,
		categories: []map[string]string{
			{"id": "CAT_0", "name": "General"},
			{"id": "CAT_1", "name": "Reviewer notifications"},
		},
		discussions: []map[string]string{
			{"id": "D_0", "title": "Welcome"},
			{"id": "D_1", "title": "Pending Reviews"},
		},
	}

	client := notifierClient(t, handler)
	err := client.PostNotification(context.Background(), testNotification())

	require.NoError(t, err)
	require.Len(t, handler.postedBodies, 1)
	assert.Contains(t, handler.postedBodies[0], "@alice")
	assert.Contains(t, handler.postedBodies[0], "2 days, 1 hour")
}

func TestPostNotification_MissingCategoryIsNotRetryable(t *testing.T) {
	handler := &discussionHandler{
		t:          t,
		categories: []map[string]string{{"id": "CAT_0", "name": "General"}},
	}

	client := notifierClient(t, handler)
	err := client.PostNotification(context.Background(), testNotification())

	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrDelivery)
	assert.Contains(t, err.Error(), "Reviewer notifications")
}

func TestPostNotification_MissingDiscussionIsNotRetryable(t *testing.T) {
	handler := &discussionHandler{
		t:           t,
		categories:  []map[string]string{{"id": "CAT_1", "name": "Reviewer notifications"}},
		discussions: []map[string]string{{"id": "D_0", "title": "Welcome"}},
	}

	client := notifierClient(t, handler)
	err := client.PostNotification(context.Background(), testNotification())

	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrDelivery)
	assert.Contains(t, err.Error(), "Pending Reviews")
}

func TestPostNotification_ServerErrorIsDeliveryError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client := notifierClient(t, handler)
	err := client.PostNotification(context.Background(), testNotification())

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDelivery)
}

func TestPostNotification_AuthErrorIsFatal(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client := notifierClient(t, handler)
	err := client.PostNotification(context.Background(), testNotification())

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAuth)
}

func TestPostNotification_GraphQLErrorIsDeliveryError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]string{{"message": "something went sideways"}},
		})
	})

	client := notifierClient(t, handler)
	err := client.PostNotification(context.Background(), testNotification())

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDelivery)
	assert.Contains(t, err.Error(), "something went sideways")
}
