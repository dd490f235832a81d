package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v63/github"
)

const (
	// githubAPITimeout bounds individual GitHub API requests
	githubAPITimeout = 30 * time.Second

	// maxRetryAttempts bounds transient-failure retries per call
	maxRetryAttempts = 8

	// lowQuotaThreshold is the remaining-request count below which the
	// client sleeps until the quota resets instead of burning the last
	// requests and failing
	lowQuotaThreshold = 5
)

// retryPolicy returns the shared exponential backoff for remote calls.
func retryPolicy(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetryAttempts-1), ctx)
}

// GitHubClient is the issue tracker side of the sync: issue metadata,
// creation/close timestamps and closed-issue listings.
type GitHubClient struct {
	client *github.Client
	owner  string
	log    *slog.Logger
}

// NewGitHubClient creates a GitHub client for the given owner using a
// personal access token.
func NewGitHubClient(owner, token string, log *slog.Logger) *GitHubClient {
	httpClient := &http.Client{
		Timeout: githubAPITimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &GitHubClient{
		client: github.NewClient(httpClient).WithAuthToken(token),
		owner:  owner,
		log:    log,
	}
}

// GetRepository looks up a repository's external id and canonical name.
func (c *GitHubClient) GetRepository(ctx context.Context, name string) (*RemoteRepository, error) {
	var repo *github.Repository
	err := backoff.Retry(func() error {
		var resp *github.Response
		var err error
		repo, resp, err = c.client.Repositories.Get(ctx, c.owner, name)
		return c.handleResponse(resp, err)
	}, retryPolicy(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s/%s: %w", c.owner, name, err)
	}
	return &RemoteRepository{ID: repo.GetID(), Name: repo.GetName()}, nil
}

// GetIssue fetches one issue's tracker metadata.
func (c *GitHubClient) GetIssue(ctx context.Context, repoName string, number int) (*TrackerIssue, error) {
	var issue *github.Issue
	err := backoff.Retry(func() error {
		var resp *github.Response
		var err error
		issue, resp, err = c.client.Issues.Get(ctx, c.owner, repoName, number)
		return c.handleResponse(resp, err)
	}, retryPolicy(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get issue %s#%d: %w", repoName, number, err)
	}
	return convertIssue(issue), nil
}

// ListClosedIssueNumbers pages through the repository's closed issues and
// returns their numbers. Pull requests are filtered out; the REST API
// reports them as issues.
func (c *GitHubClient) ListClosedIssueNumbers(ctx context.Context, repoName string) ([]int, error) {
	opts := &github.IssueListByRepoOptions{
		State:    "closed",
		Assignee: "*",
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	var numbers []int
	for {
		var issues []*github.Issue
		var resp *github.Response
		err := backoff.Retry(func() error {
			var err error
			issues, resp, err = c.client.Issues.ListByRepo(ctx, c.owner, repoName, opts)
			return c.handleResponse(resp, err)
		}, retryPolicy(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list closed issues for %s: %w", repoName, err)
		}

		for _, issue := range issues {
			if issue.PullRequestLinks == nil {
				numbers = append(numbers, issue.GetNumber())
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return numbers, nil
}

// handleResponse classifies an API result for the retry loop and throttles
// when the remaining quota runs low.
func (c *GitHubClient) handleResponse(resp *github.Response, err error) error {
	if err != nil {
		if rateErr, ok := err.(*github.RateLimitError); ok {
			wait := time.Until(rateErr.Rate.Reset.Time)
			if wait > 0 {
				c.log.Warn("github rate limit exhausted, sleeping",
					"until", rateErr.Rate.Reset.Time, "wait", wait)
				time.Sleep(wait)
			}
			return err // retry after the sleep
		}
		if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err // transient: network failure or 5xx
	}

	if resp != nil && resp.Rate.Limit > 0 && resp.Rate.Remaining <= lowQuotaThreshold {
		wait := time.Until(resp.Rate.Reset.Time)
		c.log.Info("github request quota",
			"used", resp.Rate.Limit-resp.Rate.Remaining, "limit", resp.Rate.Limit)
		if wait > 0 {
			c.log.Warn("github quota nearly exhausted, sleeping", "wait", wait)
			time.Sleep(wait)
		}
	}
	return nil
}

func convertIssue(issue *github.Issue) *TrackerIssue {
	tracker := &TrackerIssue{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		CreatedAt: issue.GetCreatedAt().Time,
	}
	if issue.ClosedAt != nil {
		closedAt := issue.GetClosedAt().Time
		tracker.ClosedAt = &closedAt
	}
	for _, label := range issue.Labels {
		tracker.Labels = append(tracker.Labels, label.GetName())
	}
	return tracker
}
