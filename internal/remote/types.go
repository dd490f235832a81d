package remote

import (
	"time"
)

// EventTypeTransfer is the board event type describing a pipeline move.
// All other event types (estimates, epics) are ignored by the sync.
const EventTypeTransfer = "transferIssue"

// TrackerIssue is the issue metadata reported by the issue tracker.
type TrackerIssue struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Labels    []string   `json:"labels"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// IsClosed reports whether the tracker considers the issue closed.
func (i *TrackerIssue) IsClosed() bool {
	return i.ClosedAt != nil
}

// Board is the current layout of a repository's board: its stages in
// display order, each listing the issues it currently contains.
type Board struct {
	Pipelines []Stage `json:"pipelines"`
}

// Stage is one live board column.
type Stage struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Issues []StageIssue `json:"issues"`
}

// StageIssue is an issue reference inside a board column.
type StageIssue struct {
	IssueNumber int `json:"issue_number"`
}

// IssueNumbers flattens a board into the set of live issue numbers.
func (b *Board) IssueNumbers() []int {
	var numbers []int
	for _, stage := range b.Pipelines {
		for _, issue := range stage.Issues {
			numbers = append(numbers, issue.IssueNumber)
		}
	}
	return numbers
}

// StageRef names a stage as it appeared when an event was recorded. The
// name may be stale if the stage was renamed since.
type StageRef struct {
	Name string `json:"name"`
}

// IssueEvent is one entry of an issue's board event history. FromPipeline
// is absent when the issue entered the board from outside.
type IssueEvent struct {
	Type         string    `json:"type"`
	CreatedAt    time.Time `json:"created_at"`
	FromPipeline *StageRef `json:"from_pipeline,omitempty"`
	ToPipeline   *StageRef `json:"to_pipeline,omitempty"`
}

// IssueState is the board's view of where an issue currently sits.
type IssueState struct {
	Pipeline *StageRef `json:"pipeline,omitempty"`
}

// CurrentStageName returns the issue's current pipeline name. The board
// reports no pipeline for issues it no longer shows, which is its way of
// saying the issue is closed.
func (s *IssueState) CurrentStageName() string {
	if s == nil || s.Pipeline == nil {
		return "Closed"
	}
	return s.Pipeline.Name
}

// RemoteRepository identifies a repository on the issue tracker.
type RemoteRepository struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
