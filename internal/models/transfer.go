package models

import (
	"fmt"
	"time"
)

// Transfer is an immutable fact that an issue moved between two pipelines at
// a specific instant. FromPipelineID is nil for the synthetic "entered the
// board" transfer. (issue, from, to, transfered_at) is the natural uniqueness
// key; re-recording an already-known transition is a no-op, which is what
// makes re-running a sync idempotent.
type Transfer struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	IssueID        uint      `gorm:"not null;index;uniqueIndex:idx_transfer_key" json:"issue_id"`
	FromPipelineID *uint     `gorm:"uniqueIndex:idx_transfer_key" json:"from_pipeline_id,omitempty"`
	FromPipeline   *Pipeline `json:"-"`
	ToPipelineID   *uint     `gorm:"uniqueIndex:idx_transfer_key" json:"to_pipeline_id,omitempty"`
	ToPipeline     *Pipeline `json:"-"`
	TransferedAt   time.Time `gorm:"not null;index;uniqueIndex:idx_transfer_key" json:"transfered_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for Transfer
func (Transfer) TableName() string {
	return "transfers"
}

// String renders the transfer for logs and the durations command.
func (t *Transfer) String() string {
	from := "(outside)"
	if t.FromPipeline != nil {
		from = t.FromPipeline.Name
	}
	to := "(none)"
	if t.ToPipeline != nil {
		to = t.ToPipeline.Name
	}
	return fmt.Sprintf("%s -> %s @ %s", from, to, t.TransferedAt.Format(DateTimeFormat))
}
