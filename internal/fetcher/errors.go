package fetcher

import (
	"fmt"
)

// PipelineNotFoundError reports a stage name that resolves to no current
// pipeline and no recorded rename. Fatal for the issue being processed in
// unattended mode; recoverable via operator choice in fix mode.
type PipelineNotFoundError struct {
	Repo string
	Name string
}

func (e *PipelineNotFoundError) Error() string {
	return fmt.Sprintf("pipeline (%s) not found on the %s board", e.Name, e.Repo)
}

// PreconditionError reports invalid input state that makes a repository's
// pass impossible: an unknown repository or a malformed stage list. Aborts
// the repository's pass; other repositories continue.
type PreconditionError struct {
	Repo   string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition violated for %s: %s", e.Repo, e.Reason)
}

// DataInconsistencyError reports remote data that cannot be accounted
// honestly, such as out-of-order timestamps producing a negative duration.
// The affected issue is skipped for the pass, never papered over.
type DataInconsistencyError struct {
	Issue  int
	Reason string
}

func (e *DataInconsistencyError) Error() string {
	return fmt.Sprintf("inconsistent data for issue #%d: %s", e.Issue, e.Reason)
}
