package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"boardsync/internal/db"
	"boardsync/internal/models"
	"boardsync/internal/remote"
)

// IssueSource is the read-only issue tracker consumed by a sync pass.
type IssueSource interface {
	GetIssue(ctx context.Context, repoName string, number int) (*remote.TrackerIssue, error)
	ListClosedIssueNumbers(ctx context.Context, repoName string) ([]int, error)
}

// BoardSource is the read-only kanban board consumed by a sync pass.
type BoardSource interface {
	GetBoard(ctx context.Context, repoID int64) (*remote.Board, error)
	GetIssueEvents(ctx context.Context, repoID int64, number int) ([]remote.IssueEvent, error)
	GetIssueState(ctx context.Context, repoID int64, number int) (*remote.IssueState, error)
}

// Summary aggregates the outcome of one sync invocation. Per-issue failures
// are counted and listed, not raised; a caller learns everything that went
// wrong in one result.
type Summary struct {
	Repositories       int      `json:"repositories"`
	FailedRepositories int      `json:"failed_repositories"`
	Processed          int      `json:"processed"`
	Skipped            int      `json:"skipped"`
	Failed             int      `json:"failed"`
	NewTransfers       int      `json:"new_transfers"`
	Errors             []string `json:"errors,omitempty"`
}

// Options configures a Fetcher.
type Options struct {
	// Fix enables the interactive fallbacks of a repair run: the closed
	// tracker listing is unioned into the live set and unresolved stage
	// names prompt instead of failing.
	Fix bool
	// InferCloseTime closes a vanished issue at observation time when the
	// tracker reports no close timestamp yet. Off by default: the issue is
	// retried on a later pass instead.
	InferCloseTime bool
	// Resolver handles unresolved stage names. Defaults to FailFast.
	Resolver Resolver
	Log      *slog.Logger
	// Now is the clock used for open-stage accrual. Defaults to time.Now.
	Now func() time.Time
}

// Fetcher drives reconciliation passes over tracked repositories.
type Fetcher struct {
	issues IssueSource
	board  BoardSource
	opts   Options
}

// New creates a Fetcher over the two remote sources.
func New(issues IssueSource, board BoardSource, opts Options) *Fetcher {
	if opts.Resolver == nil {
		opts.Resolver = FailFast{}
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Fetcher{issues: issues, board: board, opts: opts}
}

// Sync runs one reconciliation pass per requested repository, or over every
// tracked repository when repoNames is empty. A repository's failure never
// stops the others.
func (f *Fetcher) Sync(ctx context.Context, repoNames []string) (*Summary, error) {
	summary := &Summary{}

	var repos []models.Repository
	if len(repoNames) == 0 {
		all, err := db.ListRepositories()
		if err != nil {
			return nil, err
		}
		repos = all
	} else {
		for _, name := range repoNames {
			repo, err := db.GetRepositoryByName(name)
			if err != nil {
				summary.FailedRepositories++
				summary.Errors = append(summary.Errors,
					(&PreconditionError{Repo: name, Reason: "repository is not tracked"}).Error())
				continue
			}
			repos = append(repos, *repo)
		}
	}

	for i := range repos {
		repo := &repos[i]
		if err := f.syncRepository(ctx, repo, summary); err != nil {
			f.opts.Log.Error("repository pass aborted", "repo", repo.Name, "error", err)
			summary.FailedRepositories++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", repo.Name, err))
			continue
		}
		summary.Repositories++
	}
	return summary, nil
}

// syncRepository runs one pass: refresh pipelines, walk the live issue set,
// then close what vanished. A returned error aborts this repository only.
func (f *Fetcher) syncRepository(ctx context.Context, repo *models.Repository, summary *Summary) error {
	board, err := f.board.GetBoard(ctx, repo.RepoID)
	if err != nil {
		return err
	}

	pass, err := ReconcilePipelines(repo, board.Pipelines, f.opts.Log)
	if err != nil {
		return err
	}

	knownNumbers, err := db.IssueNumbers(repo.ID)
	if err != nil {
		return err
	}

	var closedNumbers []int
	if f.opts.Fix {
		closedNumbers, err = f.issues.ListClosedIssueNumbers(ctx, repo.Name)
		if err != nil {
			return err
		}
	}

	liveNumbers := append(board.IssueNumbers(), closedNumbers...)

	seen := make(map[int]bool, len(liveNumbers))
	for _, number := range liveNumbers {
		if seen[number] {
			continue
		}
		seen[number] = true

		newTransfers, err := f.syncIssue(ctx, pass, number)
		switch {
		case err == nil:
			summary.Processed++
			summary.NewTransfers += newTransfers
		case isIssueScopedError(err):
			f.opts.Log.Warn("issue skipped", "repo", repo.Name, "issue", number, "error", err)
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s#%d: %v", repo.Name, number, err))
		default:
			// Remote-source failures abort the whole repository; transfers
			// already persisted for earlier issues stay committed.
			return err
		}
	}

	return f.closeVanished(ctx, pass, knownNumbers, liveNumbers, summary)
}

// syncIssue reconciles a single issue: fetch its tracker metadata and board
// events, rebuild its transfer history, and rewrite its duration cache.
func (f *Fetcher) syncIssue(ctx context.Context, pass *PassContext, number int) (int, error) {
	tracker, err := f.issues.GetIssue(ctx, pass.Repo.Name, number)
	if err != nil {
		return 0, err
	}

	events, err := f.board.GetIssueEvents(ctx, pass.Repo.RepoID, number)
	if err != nil {
		return 0, err
	}

	// The board's current placement only matters for detecting closure, so
	// the extra call is spent on closed issues alone.
	currentStage := ""
	if tracker.IsClosed() {
		state, err := f.board.GetIssueState(ctx, pass.Repo.RepoID, number)
		if err != nil {
			return 0, err
		}
		currentStage = state.CurrentStageName()
	}

	issue, created, err := db.GetOrCreateIssue(pass.Repo.ID, number, tracker.Title, tracker.Labels)
	if err != nil {
		return 0, err
	}

	inserted, err := BuildHistory(pass, f.opts.Resolver, issue, created, tracker, events, currentStage, f.opts.Log)
	if err != nil {
		return inserted, err
	}

	if err := f.refreshIssue(issue); err != nil {
		return inserted, err
	}
	return inserted, nil
}

// closeVanished drives previously tracked issues that disappeared from the
// live set through a closing transfer, provided the tracker confirms a
// close timestamp.
func (f *Fetcher) closeVanished(ctx context.Context, pass *PassContext, knownNumbers, liveNumbers []int, summary *Summary) error {
	live := make(map[int]bool, len(liveNumbers))
	for _, number := range liveNumbers {
		live[number] = true
	}

	for _, number := range knownNumbers {
		if live[number] {
			continue
		}

		issue, err := db.GetIssue(pass.Repo.ID, number)
		if err != nil {
			return err
		}
		if issue.IsClosed() {
			continue
		}

		tracker, err := f.issues.GetIssue(ctx, pass.Repo.Name, number)
		if err != nil {
			return err
		}

		closedAt := tracker.ClosedAt
		if closedAt == nil {
			if !f.opts.InferCloseTime {
				// No close timestamp yet; never fabricate one. The issue
				// stays open and is retried on a later pass.
				f.opts.Log.Warn("vanished issue has no close timestamp yet",
					"repo", pass.Repo.Name, "issue", number)
				summary.Skipped++
				continue
			}
			now := f.opts.Now()
			closedAt = &now
		}

		latest, err := db.LatestTransfer(issue.ID)
		if err != nil {
			return err
		}
		var fromID *uint
		var from *models.Pipeline
		if latest != nil && latest.ToPipeline != nil {
			from = latest.ToPipeline
			fromID = &from.ID
		}
		if from != nil && from.IsClosed() {
			continue
		}

		closed := pass.Closed()
		transfer, isNew, err := db.GetOrCreateTransfer(issue.ID, fromID, &closed.ID, *closedAt)
		if err != nil {
			return err
		}
		if isNew {
			transfer.FromPipeline = from
			transfer.ToPipeline = closed
			f.opts.Log.Info("closed vanished issue",
				"repo", pass.Repo.Name, "issue", number, "transfer", transfer.String())
			summary.NewTransfers++
		}

		if err := f.refreshIssue(issue); err != nil {
			if isIssueScopedError(err) {
				summary.Failed++
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s#%d: %v", pass.Repo.Name, number, err))
				continue
			}
			return err
		}
		summary.Processed++
	}
	return nil
}

// refreshIssue rewrites the issue's denormalized read caches (durations,
// latest pipeline, latest transfer date) from its full transfer log.
func (f *Fetcher) refreshIssue(issue *models.Issue) error {
	transfers, err := db.TransfersForIssue(issue.ID)
	if err != nil {
		return err
	}

	durations, err := AccumulateDurations(transfers, issue.Number, f.opts.Now())
	if err != nil {
		return err
	}

	issue.Durations = durations
	if len(transfers) > 0 {
		final := transfers[len(transfers)-1]
		if final.ToPipeline != nil {
			issue.LatestPipelineName = final.ToPipeline.Name
		}
		issue.LatestTransferDate = final.TransferedAt
	}
	return db.GetDB().Save(issue).Error
}

// isIssueScopedError reports whether an error fails only the issue being
// processed rather than the whole repository pass.
func isIssueScopedError(err error) bool {
	var notFound *PipelineNotFoundError
	var inconsistent *DataInconsistencyError
	return errors.As(err, &notFound) || errors.As(err, &inconsistent)
}
