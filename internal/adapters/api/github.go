package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/ossdoctor/contribution-service/pkg/config"
	"github.com/sirupsen/logrus"
)

// Contributions for one user since a lower time bound, grouped by repository.
// The contributionsCollection query has no incremental cursor, so we always
// request a fixed recent window and the caller filters by its own since mark.
const contributionsQuery = `
query GetContributions($login: String!, $from: DateTime!) {
  user(login: $login) {
    contributionsCollection(from: $from) {
      pullRequestContributionsByRepository(maxRepositories: 25) {
        repository {
          nameWithOwner
          owner { login }
        }
        contributions(first: 100) {
          nodes {
            pullRequest {
              number
              title
              state
              createdAt
              closedAt
              mergedAt
            }
          }
        }
      }
      issueContributionsByRepository(maxRepositories: 25) {
        repository {
          nameWithOwner
          owner { login }
        }
        contributions(first: 100) {
          nodes {
            issue {
              number
              title
              state
              createdAt
              closedAt
            }
          }
        }
      }
      pullRequestReviewContributionsByRepository(maxRepositories: 25) {
        repository {
          nameWithOwner
          owner { login }
        }
        contributions(first: 100) {
          nodes {
            pullRequestReview {
              state
              submittedAt
              pullRequest {
                number
                title
              }
            }
          }
        }
      }
    }
  }
}
`

// Repository metadata for the score calculator.
const repositoryQuery = `
query GetRepository($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    databaseId
    name
    nameWithOwner
    description
    url
    stargazerCount
    forkCount
    pushedAt
    primaryLanguage { name }
    watchers { totalCount }
    defaultBranchRef {
      target {
        ... on Commit {
          history(first: 1) { totalCount }
        }
      }
    }
    mergedPullRequests: pullRequests(states: [MERGED]) { totalCount }
    closedIssues: issues(states: [CLOSED]) { totalCount }
  }
}
`

// ActivityRepository identifies the repository a contribution bucket belongs to
type ActivityRepository struct {
	NameWithOwner string `json:"nameWithOwner"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// PullRequestNode mirrors one pullRequest node of the GraphQL response.
// Timestamps stay strings so a malformed value degrades per-record during
// normalization instead of failing the whole decode.
type PullRequestNode struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	State     string `json:"state"`
	CreatedAt string `json:"createdAt"`
	ClosedAt  string `json:"closedAt"`
	MergedAt  string `json:"mergedAt"`
}

// IssueNode mirrors one issue node of the GraphQL response
type IssueNode struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	State     string `json:"state"`
	CreatedAt string `json:"createdAt"`
	ClosedAt  string `json:"closedAt"`
}

// ReviewNode mirrors one pullRequestReview node of the GraphQL response
type ReviewNode struct {
	State       string `json:"state"`
	SubmittedAt string `json:"submittedAt"`
	PullRequest struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
	} `json:"pullRequest"`
}

// PullRequestBucket groups PR contributions by repository
type PullRequestBucket struct {
	Repository    ActivityRepository `json:"repository"`
	Contributions struct {
		Nodes []struct {
			PullRequest PullRequestNode `json:"pullRequest"`
		} `json:"nodes"`
	} `json:"contributions"`
}

// IssueBucket groups issue contributions by repository
type IssueBucket struct {
	Repository    ActivityRepository `json:"repository"`
	Contributions struct {
		Nodes []struct {
			Issue IssueNode `json:"issue"`
		} `json:"nodes"`
	} `json:"contributions"`
}

// ReviewBucket groups review contributions by repository
type ReviewBucket struct {
	Repository    ActivityRepository `json:"repository"`
	Contributions struct {
		Nodes []struct {
			PullRequestReview ReviewNode `json:"pullRequestReview"`
		} `json:"nodes"`
	} `json:"contributions"`
}

// RawActivity is the undecoded contribution window for one user
type RawActivity struct {
	Login        string
	PullRequests []PullRequestBucket
	Issues       []IssueBucket
	Reviews      []ReviewBucket
}

// RepositoryInfo is the parsed repository metadata
type RepositoryInfo struct {
	GithubID           int64      `json:"github_id"`
	Owner              string     `json:"owner"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	URL                string     `json:"url"`
	Language           string     `json:"language"`
	Stars              int        `json:"stars"`
	Forks              int        `json:"forks"`
	Watchers           int        `json:"watchers"`
	TotalCommits       int        `json:"total_commits"`
	MergedPullRequests int        `json:"merged_pull_requests"`
	ClosedIssues       int        `json:"closed_issues"`
	PushedAt           *time.Time `json:"pushed_at"`
}

// RateLimit is the core rate-limit window reported by GitHub
type RateLimit struct {
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	ResetAt   string `json:"reset_at"`
}

// GitHubClient talks to GitHub's GraphQL and REST APIs with a per-call
// timeout, bounded retry and a TTL cache for metadata reads
type GitHubClient struct {
	HTTPClient *http.Client

	baseURL    string
	graphqlURL string
	token      string
	maxRetries int
	cache      *metadataCache
	log        *logrus.Logger
}

// NewGitHubClient creates a new instance of GitHubClient from config
func NewGitHubClient(cfg config.Config, log *logrus.Logger) *GitHubClient {
	return &GitHubClient{
		HTTPClient: &http.Client{Timeout: cfg.APITimeout},
		baseURL:    cfg.GithubAPIURL,
		graphqlURL: cfg.GithubGraphQLURL,
		token:      cfg.GithubToken,
		maxRetries: cfg.APIMaxRetries,
		cache:      newMetadataCache(cfg.CacheTTL),
		log:        log,
	}
}

// FetchContributionsSince fetches the PR, issue and review contributions of a
// user. The result always covers the full upstream window; callers filter by
// since. Never served from cache.
func (c *GitHubClient) FetchContributionsSince(ctx context.Context, login string, since time.Time) (*RawActivity, error) {
	variables := map[string]interface{}{
		"login": login,
		"from":  since.UTC().Format(time.RFC3339),
	}

	var tree struct {
		User *struct {
			ContributionsCollection struct {
				PullRequestContributionsByRepository       []PullRequestBucket `json:"pullRequestContributionsByRepository"`
				IssueContributionsByRepository             []IssueBucket       `json:"issueContributionsByRepository"`
				PullRequestReviewContributionsByRepository []ReviewBucket      `json:"pullRequestReviewContributionsByRepository"`
			} `json:"contributionsCollection"`
		} `json:"user"`
	}

	if err := c.executeGraphQL(ctx, contributionsQuery, variables, &tree); err != nil {
		return nil, err
	}
	if tree.User == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, login)
	}

	collection := tree.User.ContributionsCollection
	return &RawActivity{
		Login:        login,
		PullRequests: collection.PullRequestContributionsByRepository,
		Issues:       collection.IssueContributionsByRepository,
		Reviews:      collection.PullRequestReviewContributionsByRepository,
	}, nil
}

// GetRepository fetches repository metadata, cached by owner/name
func (c *GitHubClient) GetRepository(ctx context.Context, owner, name string) (*RepositoryInfo, error) {
	cacheKey := fmt.Sprintf("repo:%s/%s", owner, name)
	if cached, ok := c.cache.get(cacheKey); ok {
		return cached.(*RepositoryInfo), nil
	}

	variables := map[string]interface{}{
		"owner": owner,
		"name":  name,
	}

	var tree struct {
		Repository *struct {
			DatabaseID      int64  `json:"databaseId"`
			Name            string `json:"name"`
			NameWithOwner   string `json:"nameWithOwner"`
			Description     string `json:"description"`
			URL             string `json:"url"`
			StargazerCount  int    `json:"stargazerCount"`
			ForkCount       int    `json:"forkCount"`
			PushedAt        string `json:"pushedAt"`
			PrimaryLanguage *struct {
				Name string `json:"name"`
			} `json:"primaryLanguage"`
			Watchers struct {
				TotalCount int `json:"totalCount"`
			} `json:"watchers"`
			DefaultBranchRef *struct {
				Target struct {
					History struct {
						TotalCount int `json:"totalCount"`
					} `json:"history"`
				} `json:"target"`
			} `json:"defaultBranchRef"`
			MergedPullRequests struct {
				TotalCount int `json:"totalCount"`
			} `json:"mergedPullRequests"`
			ClosedIssues struct {
				TotalCount int `json:"totalCount"`
			} `json:"closedIssues"`
		} `json:"repository"`
	}

	if err := c.executeGraphQL(ctx, repositoryQuery, variables, &tree); err != nil {
		return nil, err
	}
	if tree.Repository == nil {
		return nil, fmt.Errorf("%w: repository %s/%s", ErrNotFound, owner, name)
	}

	repo := tree.Repository
	info := &RepositoryInfo{
		GithubID:           repo.DatabaseID,
		Owner:              owner,
		Name:               repo.Name,
		Description:        repo.Description,
		URL:                repo.URL,
		Stars:              repo.StargazerCount,
		Forks:              repo.ForkCount,
		Watchers:           repo.Watchers.TotalCount,
		MergedPullRequests: repo.MergedPullRequests.TotalCount,
		ClosedIssues:       repo.ClosedIssues.TotalCount,
	}
	if repo.PrimaryLanguage != nil {
		info.Language = repo.PrimaryLanguage.Name
	}
	if repo.DefaultBranchRef != nil {
		info.TotalCommits = repo.DefaultBranchRef.Target.History.TotalCount
	}
	if pushedAt, err := time.Parse(time.RFC3339, repo.PushedAt); err == nil {
		info.PushedAt = &pushedAt
	}

	c.cache.set(cacheKey, info)
	return info, nil
}

var lastPagePattern = regexp.MustCompile(`[?&]page=(\d+)>; rel="last"`)

// GetContributorCount counts contributors through the Link pagination header
// of a one-per-page listing; no Link header means one contributor at most.
// Cached by owner/name.
func (c *GitHubClient) GetContributorCount(ctx context.Context, owner, name string) (int, error) {
	cacheKey := fmt.Sprintf("contributors:%s/%s", owner, name)
	if cached, ok := c.cache.get(cacheKey); ok {
		return cached.(int), nil
	}

	url := fmt.Sprintf("%s/repos/%s/%s/contributors?per_page=1&anon=true", c.baseURL, owner, name)
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	count := 1
	if match := lastPagePattern.FindStringSubmatch(resp.Header.Get("Link")); match != nil {
		if lastPage, err := strconv.Atoi(match[1]); err == nil {
			count = lastPage
		}
	}

	c.cache.set(cacheKey, count)
	return count, nil
}

// GetRateLimit reports the current core rate-limit window
func (c *GitHubClient) GetRateLimit(ctx context.Context) (*RateLimit, error) {
	url := fmt.Sprintf("%s/rate_limit", c.baseURL)
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Resources struct {
			Core struct {
				Limit     int   `json:"limit"`
				Used      int   `json:"used"`
				Remaining int   `json:"remaining"`
				Reset     int64 `json:"reset"`
			} `json:"core"`
		} `json:"resources"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode rate limit: %v", ErrUnknown, err)
	}

	core := body.Resources.Core
	return &RateLimit{
		Limit:     core.Limit,
		Used:      core.Used,
		Remaining: core.Remaining,
		ResetAt:   time.Unix(core.Reset, 0).UTC().Format(time.RFC3339),
	}, nil
}

// executeGraphQL posts a query and decodes the data field into out
func (c *GitHubClient) executeGraphQL(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	payload, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return err
	}

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: decode graphql response: %v", ErrUnknown, err)
	}

	for _, graphQLErr := range body.Errors {
		if graphQLErr.Type == "NOT_FOUND" {
			return fmt.Errorf("%w: %s", ErrNotFound, graphQLErr.Message)
		}
	}
	if len(body.Errors) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknown, body.Errors[0].Message)
	}

	if err := json.Unmarshal(body.Data, out); err != nil {
		return fmt.Errorf("%w: decode graphql data: %v", ErrUnknown, err)
	}
	return nil
}

func (c *GitHubClient) newRequest(ctx context.Context, method, url string, body *bytes.Reader) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// doWithRetry runs a request with exponential backoff on transport errors and
// 5xx responses. 4xx responses are mapped to typed errors and never retried.
func (c *GitHubClient) doWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	backoff := time.Second
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.log.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
			}).Warn("retrying GitHub request")

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			err := mapStatusError(resp)
			resp.Body.Close()
			return nil, err
		}
		return resp, nil
	}

	return nil, fmt.Errorf("%w: retries exhausted: %v", ErrNetwork, lastErr)
}

func mapStatusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden, http.StatusTooManyRequests:
		rateLimitErr := &RateLimitError{}
		if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
			rateLimitErr.ResetAt = time.Unix(reset, 0).UTC()
		}
		return rateLimitErr
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: status %d", ErrUnknown, resp.StatusCode)
	}
}
