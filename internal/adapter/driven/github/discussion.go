package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/reviewnudge/reviewnudge/internal/domain/model"
)

// graphqlHTTPClient is the HTTP client used for GraphQL requests.
// It enforces a 30-second timeout as a safety net alongside context cancellation.
var graphqlHTTPClient = &http.Client{Timeout: 30 * time.Second}

const discussionCategoriesQuery = `query($owner: String!, $repo: String!) {
	repository(owner: $owner, name: $repo) {
		discussionCategories(first: 25) {
			nodes {
				id
				name
			}
		}
	}
}`

const discussionsInCategoryQuery = `query($owner: String!, $repo: String!, $categoryId: ID!) {
	repository(owner: $owner, name: $repo) {
		discussions(categoryId: $categoryId, first: 50) {
			nodes {
				id
				title
			}
		}
	}
}`

const addDiscussionCommentMutation = `mutation($discussionId: ID!, $body: String!) {
	addDiscussionComment(input: {discussionId: $discussionId, body: $body}) {
		comment {
			id
		}
	}
}`

// graphqlRequest is the JSON body sent to the GitHub GraphQL API.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type discussionNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type categoryNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// graphqlResponse covers every response shape the dispatcher reads. Only the
// fields matching the issued query are populated.
type graphqlResponse struct {
	Data struct {
		Repository struct {
			DiscussionCategories struct {
				Nodes []categoryNode `json:"nodes"`
			} `json:"discussionCategories"`
			Discussions struct {
				Nodes []discussionNode `json:"nodes"`
			} `json:"discussions"`
		} `json:"repository"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// discussionTarget is the repository whose discussions receive notifications.
// Set via SetNotificationTarget before the client is used as a Notifier.
type discussionTarget struct {
	owner string
	repo  string
}

// PostNotification posts the notification body as a comment on the discussion
// identified by category name and title. Three GraphQL round-trips: resolve
// the category, resolve the discussion within it, add the comment.
//
// Network failures and non-2xx responses are model.ErrDelivery (the Runner
// retries them with backoff); HTTP 401/403 is model.ErrAuth; a missing
// category or discussion is a plain error since retrying cannot fix it.
func (c *Client) PostNotification(ctx context.Context, n model.Notification) error {
	if c.target.owner == "" {
		return fmt.Errorf("notification target repository not configured")
	}

	categoryID, err := c.lookupCategory(ctx, n.Category)
	if err != nil {
		return err
	}

	discussionID, err := c.lookupDiscussion(ctx, categoryID, n.Title)
	if err != nil {
		return err
	}

	var resp graphqlResponse
	err = c.doGraphQL(ctx, addDiscussionCommentMutation, map[string]any{
		"discussionId": discussionID,
		"body":         n.Body,
	}, &resp)
	if err != nil {
		return fmt.Errorf("adding discussion comment: %w", err)
	}

	return nil
}

// SetNotificationTarget sets the repository whose discussions receive
// notifications. Called once by the composition root.
func (c *Client) SetNotificationTarget(repoFullName string) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}
	c.target = discussionTarget{owner: owner, repo: repo}
	return nil
}

func (c *Client) lookupCategory(ctx context.Context, name string) (string, error) {
	var resp graphqlResponse
	err := c.doGraphQL(ctx, discussionCategoriesQuery, map[string]any{
		"owner": c.target.owner,
		"repo":  c.target.repo,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("resolving discussion category: %w", err)
	}

	for _, node := range resp.Data.Repository.DiscussionCategories.Nodes {
		if node.Name == name {
			return node.ID, nil
		}
	}

	return "", fmt.Errorf("discussion category %q not found in %s/%s", name, c.target.owner, c.target.repo)
}

func (c *Client) lookupDiscussion(ctx context.Context, categoryID, title string) (string, error) {
	var resp graphqlResponse
	err := c.doGraphQL(ctx, discussionsInCategoryQuery, map[string]any{
		"owner":      c.target.owner,
		"repo":       c.target.repo,
		"categoryId": categoryID,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("resolving discussion: %w", err)
	}

	for _, node := range resp.Data.Repository.Discussions.Nodes {
		if node.Title == title {
			return node.ID, nil
		}
	}

	return "", fmt.Errorf("discussion %q not found in %s/%s", title, c.target.owner, c.target.repo)
}

// doGraphQL issues one GraphQL request and decodes the response into out.
func (c *Client) doGraphQL(ctx context.Context, query string, variables map[string]any, out *graphqlResponse) error {
	reqBody := graphqlRequest{
		Query:     query,
		Variables: variables,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return model.DeliveryError(fmt.Errorf("marshaling request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return model.DeliveryError(fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("bearer %s", c.token))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := graphqlHTTPClient.Do(httpReq)
	if err != nil {
		return model.DeliveryError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return model.AuthError(fmt.Errorf("HTTP %d from GraphQL endpoint", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return model.DeliveryError(fmt.Errorf("HTTP %d from GraphQL endpoint", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.DeliveryError(fmt.Errorf("decoding response: %w", err))
	}

	if len(out.Errors) > 0 {
		return model.DeliveryError(fmt.Errorf("graphql error: %s", out.Errors[0].Message))
	}

	return nil
}
