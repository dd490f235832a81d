package fetcher

import (
	"log/slog"
	"sort"
	"time"

	"boardsync/internal/db"
	"boardsync/internal/models"
	"boardsync/internal/remote"
)

// transferFact is one resolved entry of an issue's history before it is
// persisted. A nil from pipeline means the issue entered from outside the
// board.
type transferFact struct {
	from *models.Pipeline
	to   *models.Pipeline
	at   time.Time
}

// BuildHistory merges an issue's raw board events with the tracker's
// creation and close timestamps into the persisted transfer log, and
// returns the number of newly recorded transfers.
//
// The board API guarantees neither event order nor any "entered the board"
// or "moved to Closed" events, so the builder sorts (stably, oldest first)
// and synthesizes both ends: an initial transfer into the board's first
// pipeline at the tracker creation time, recorded only the first time the
// issue is seen, and a terminal transfer into Closed at the tracker close
// time once the board stops placing the issue in any live stage.
//
// Every surviving fact is upserted by its (issue, from, to, transfered_at)
// key, which makes re-running the builder over an overlapping event window
// a no-op.
func BuildHistory(pass *PassContext, resolver Resolver, issue *models.Issue, created bool,
	tracker *remote.TrackerIssue, events []remote.IssueEvent, currentStageName string,
	log *slog.Logger) (int, error) {

	var facts []transferFact

	var resolved []remote.IssueEvent
	for _, event := range events {
		if event.Type == remote.EventTypeTransfer {
			resolved = append(resolved, event)
		}
	}
	// The upstream API does not guarantee order; ties keep their original
	// relative order so equal timestamps stay deterministic.
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].CreatedAt.Before(resolved[j].CreatedAt)
	})

	if created {
		facts = append(facts, transferFact{
			to: pass.First,
			at: tracker.CreatedAt,
		})
	}

	for _, event := range resolved {
		var from *models.Pipeline
		if event.FromPipeline != nil {
			p, err := ResolvePipeline(pass, event.FromPipeline.Name, resolver)
			if err != nil {
				return 0, err
			}
			from = p
		}
		if event.ToPipeline == nil {
			continue
		}
		to, err := ResolvePipeline(pass, event.ToPipeline.Name, resolver)
		if err != nil {
			return 0, err
		}
		facts = append(facts, transferFact{from: from, to: to, at: event.CreatedAt})
	}

	// The board never emits an explicit "moved to Closed" event; compensate
	// once the tracker reports a close time and the board agrees the issue
	// no longer occupies a live stage.
	if tracker.IsClosed() && currentStageName == models.ClosedPipelineName {
		last := lastKnownPipeline(facts, issue)
		facts = append(facts, transferFact{
			from: last,
			to:   pass.Closed(),
			at:   *tracker.ClosedAt,
		})
	}

	inserted := 0
	for _, fact := range facts {
		// Self-transfers carry no information and are never recorded
		if fact.from != nil && fact.to != nil && fact.from.ID == fact.to.ID {
			continue
		}
		var fromID, toID *uint
		if fact.from != nil {
			fromID = &fact.from.ID
		}
		if fact.to != nil {
			toID = &fact.to.ID
		}
		transfer, isNew, err := db.GetOrCreateTransfer(issue.ID, fromID, toID, fact.at)
		if err != nil {
			return inserted, err
		}
		if isNew {
			inserted++
			transfer.FromPipeline = fact.from
			transfer.ToPipeline = fact.to
			log.Info("created transfer",
				"repo", pass.Repo.Name, "issue", issue.Number, "transfer", transfer.String())
		}
	}
	return inserted, nil
}

// lastKnownPipeline returns the pipeline the issue most recently moved to:
// the tail of the facts being built, or the persisted history when this
// pass produced no new facts.
func lastKnownPipeline(facts []transferFact, issue *models.Issue) *models.Pipeline {
	if len(facts) > 0 {
		return facts[len(facts)-1].to
	}
	latest, err := db.LatestTransfer(issue.ID)
	if err != nil || latest == nil {
		return nil
	}
	return latest.ToPipeline
}
