package gh

import (
	"context"
	"fmt"
	"time"

	"github.com/machinebox/graphql"
)

// searchNode covers both PullRequest and Issue search results.
type searchNode struct {
	Typename   string    `json:"__typename"`
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	State      string    `json:"state"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Additions  int       `json:"additions"`
	Deletions  int       `json:"deletions"`
	BaseRef    string    `json:"baseRefName"`
	HeadRef    string    `json:"headRefName"`
	Repository struct {
		NameWithOwner string `json:"nameWithOwner"`
	} `json:"repository"`
	Author struct {
		Login string `json:"login"`
	} `json:"author"`
}

const searchQuery = `
	query($q: String!, $first: Int!) {
		search(type: ISSUE, query: $q, first: $first) {
			issueCount
			nodes {
				__typename
				... on PullRequest {
					number
					title
					url
					state
					createdAt
					updatedAt
					additions
					deletions
					baseRefName
					headRefName
					repository { nameWithOwner }
					author { login }
				}
				... on Issue {
					number
					title
					url
					state
					createdAt
					updatedAt
					repository { nameWithOwner }
					author { login }
				}
			}
		}
	}
`

// Search runs an issue/PR search and returns the total count and the first page.
func (c *Client) Search(ctx context.Context, q string, first int) (int, []searchNode, error) {
	req := graphql.NewRequest(searchQuery)
	req.Var("q", q)
	req.Var("first", first)

	var resp struct {
		Search struct {
			IssueCount int          `json:"issueCount"`
			Nodes      []searchNode `json:"nodes"`
		} `json:"search"`
	}
	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return 0, nil, fmt.Errorf("failed to search %q: %w", q, err)
	}
	return resp.Search.IssueCount, resp.Search.Nodes, nil
}

// LoginForEmail finds the user whose public email is email.
// It returns "" when nobody matches.
func (c *Client) LoginForEmail(ctx context.Context, email string) (string, error) {
	req := graphql.NewRequest(`
		query($q: String!) {
			search(type: USER, query: $q, first: 1) {
				nodes {
					... on User { login }
				}
			}
		}
	`)
	req.Var("q", email+" in:email")

	var resp struct {
		Search struct {
			Nodes []struct {
				Login string `json:"login"`
			} `json:"nodes"`
		} `json:"search"`
	}
	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return "", fmt.Errorf("failed to resolve user for %s: %w", email, err)
	}
	if len(resp.Search.Nodes) == 0 {
		return "", nil
	}
	return resp.Search.Nodes[0].Login, nil
}

// Viewer returns the authenticated login.
func (c *Client) Viewer(ctx context.Context) (string, error) {
	req := graphql.NewRequest(`
		query {
			viewer { login }
		}
	`)
	var resp struct {
		Viewer struct {
			Login string `json:"login"`
		} `json:"viewer"`
	}
	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return "", fmt.Errorf("failed to get viewer: %w", err)
	}
	return resp.Viewer.Login, nil
}
