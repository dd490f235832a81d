package fetcher

import (
	"fmt"
	"time"

	"boardsync/internal/models"
)

// AccumulateDurations walks an issue's ordered transfer history and returns
// the seconds it spent in each pipeline, including the still-accruing tail
// for the stage it currently occupies. An issue whose final transfer landed
// in Closed contributes no open time; its clock has stopped.
//
// The computation is wholesale on purpose: recomputing from the full log on
// every sync keeps it trivially idempotent and lets retroactive corrections
// (a rename resolved after the fact) flow into the totals.
//
// Negative deltas mean the remote APIs handed us out-of-order timestamps;
// they are reported, never silently summed.
func AccumulateDurations(transfers []models.Transfer, issueNumber int, now time.Time) (models.DurationMap, error) {
	durations := models.DurationMap{}
	if len(transfers) == 0 {
		return durations, nil
	}

	for i := 1; i < len(transfers); i++ {
		previous := &transfers[i-1]
		current := &transfers[i]
		if previous.ToPipeline == nil {
			continue
		}
		delta := current.TransferedAt.Sub(previous.TransferedAt)
		if delta < 0 {
			return nil, &DataInconsistencyError{
				Issue: issueNumber,
				Reason: fmt.Sprintf("transfer at %s precedes the one before it",
					current.TransferedAt.Format(models.DateTimeFormat)),
			}
		}
		durations[previous.ToPipeline.Name] += delta.Seconds()
	}

	final := &transfers[len(transfers)-1]
	if final.ToPipeline == nil || final.ToPipeline.IsClosed() {
		return durations, nil
	}
	open := now.Sub(final.TransferedAt)
	if open < 0 {
		return nil, &DataInconsistencyError{
			Issue:  issueNumber,
			Reason: "final transfer is in the future",
		}
	}
	durations[final.ToPipeline.Name] += open.Seconds()
	return durations, nil
}
