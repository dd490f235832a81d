package fetcher

import (
	"errors"
	"math"
	"testing"
	"time"

	"boardsync/internal/models"
)

func testPipeline(id uint, name string, order int) *models.Pipeline {
	pipelineID := name
	if name == models.ClosedPipelineName {
		pipelineID = models.ClosedPipelineID
	}
	return &models.Pipeline{ID: id, PipelineID: pipelineID, Name: name, Order: order}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestAccumulateDurationsScenario(t *testing.T) {
	backlog := testPipeline(1, "Backlog", 0)
	inProgress := testPipeline(2, "In Progress", 1)
	done := testPipeline(3, "Done", 2)

	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	transfers := []models.Transfer{
		{ToPipeline: backlog, TransferedAt: t0},
		{FromPipeline: backlog, ToPipeline: inProgress, TransferedAt: t0.Add(time.Hour)},
		{FromPipeline: inProgress, ToPipeline: done, TransferedAt: t0.Add(5 * time.Hour)},
	}

	durations, err := AccumulateDurations(transfers, 1, t0.Add(6*time.Hour))
	if err != nil {
		t.Fatalf("AccumulateDurations() error: %v", err)
	}

	want := map[string]float64{
		"Backlog":     3600,
		"In Progress": 14400,
		"Done":        3600,
	}
	if len(durations) != len(want) {
		t.Fatalf("AccumulateDurations() buckets = %v, want %v", durations, want)
	}
	for name, seconds := range want {
		if !approxEqual(durations[name], seconds) {
			t.Errorf("AccumulateDurations() %s = %f, want %f", name, durations[name], seconds)
		}
	}
}

func TestAccumulateDurationsClosedConservation(t *testing.T) {
	backlog := testPipeline(1, "Backlog", 0)
	inProgress := testPipeline(2, "In Progress", 1)
	closed := testPipeline(3, models.ClosedPipelineName, models.ClosedPipelineOrder)

	createdAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	closedAt := createdAt.Add(72 * time.Hour)
	transfers := []models.Transfer{
		{ToPipeline: backlog, TransferedAt: createdAt},
		{FromPipeline: backlog, ToPipeline: inProgress, TransferedAt: createdAt.Add(24 * time.Hour)},
		{FromPipeline: inProgress, ToPipeline: closed, TransferedAt: closedAt},
	}

	// A closed issue's clock has stopped; the reference time must not
	// contribute anything
	durations, err := AccumulateDurations(transfers, 1, closedAt.Add(1000*time.Hour))
	if err != nil {
		t.Fatalf("AccumulateDurations() error: %v", err)
	}

	if !approxEqual(durations.Total(), closedAt.Sub(createdAt).Seconds()) {
		t.Errorf("AccumulateDurations() total = %f, want %f (closed_at - created_at)",
			durations.Total(), closedAt.Sub(createdAt).Seconds())
	}
	if _, ok := durations[models.ClosedPipelineName]; ok {
		t.Error("AccumulateDurations() must not account time inside Closed")
	}
}

func TestAccumulateDurationsOpenAccrual(t *testing.T) {
	backlog := testPipeline(1, "Backlog", 0)

	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	transfers := []models.Transfer{
		{ToPipeline: backlog, TransferedAt: t0},
	}

	t1 := t0.Add(time.Hour)
	t2 := t0.Add(3 * time.Hour)

	first, err := AccumulateDurations(transfers, 1, t1)
	if err != nil {
		t.Fatalf("AccumulateDurations() at t1 error: %v", err)
	}
	second, err := AccumulateDurations(transfers, 1, t2)
	if err != nil {
		t.Fatalf("AccumulateDurations() at t2 error: %v", err)
	}

	grown := second["Backlog"] - first["Backlog"]
	if !approxEqual(grown, t2.Sub(t1).Seconds()) {
		t.Errorf("open-stage bucket grew by %f, want %f", grown, t2.Sub(t1).Seconds())
	}
}

func TestAccumulateDurationsNegativeDelta(t *testing.T) {
	backlog := testPipeline(1, "Backlog", 0)
	inProgress := testPipeline(2, "In Progress", 1)

	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	transfers := []models.Transfer{
		{ToPipeline: backlog, TransferedAt: t0},
		{FromPipeline: backlog, ToPipeline: inProgress, TransferedAt: t0.Add(-time.Hour)},
	}

	_, err := AccumulateDurations(transfers, 9, t0.Add(time.Hour))
	if err == nil {
		t.Fatal("AccumulateDurations() should reject out-of-order timestamps")
	}
	var inconsistent *DataInconsistencyError
	if !errors.As(err, &inconsistent) {
		t.Errorf("AccumulateDurations() error = %v, want DataInconsistencyError", err)
	}
	if inconsistent.Issue != 9 {
		t.Errorf("DataInconsistencyError issue = %d, want 9", inconsistent.Issue)
	}
}

func TestAccumulateDurationsEmpty(t *testing.T) {
	durations, err := AccumulateDurations(nil, 1, time.Now())
	if err != nil {
		t.Fatalf("AccumulateDurations() error: %v", err)
	}
	if len(durations) != 0 {
		t.Errorf("AccumulateDurations() of empty history = %v, want empty", durations)
	}
}
