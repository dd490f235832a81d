package models

import (
	"time"
)

const (
	// ClosedPipelineName is the synthetic pipeline issues move to when closed.
	// It never appears on the live board; the sync creates it per repository.
	ClosedPipelineName = "Closed"

	// ClosedPipelineID is the synthetic external id of the Closed pipeline.
	ClosedPipelineID = "closed"

	// ClosedPipelineOrder sorts the Closed pipeline after every real stage.
	// Assumes no board has 10000 columns.
	ClosedPipelineOrder = 10000
)

// Pipeline is a named stage on a repository's board. The external pipeline id
// is stable across renames; only the display name changes upstream.
type Pipeline struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RepositoryID uint      `gorm:"not null;index;uniqueIndex:idx_repo_pipeline" json:"repository_id"`
	PipelineID   string    `gorm:"size:255;not null;uniqueIndex:idx_repo_pipeline" json:"pipeline_id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Order        int       `gorm:"column:display_order" json:"order"` // display/tie-break only
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Pipeline
func (Pipeline) TableName() string {
	return "pipelines"
}

// IsClosed reports whether this is the synthetic Closed pipeline.
func (p *Pipeline) IsClosed() bool {
	return p.PipelineID == ClosedPipelineID
}

// PipelineRename records that a pipeline was renamed upstream. Old transfer
// events still carry the old name, so the log is kept forever and used as a
// lookup table when resolving historical event names. Append-only; never the
// source of truth for a pipeline's current name.
type PipelineRename struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RepositoryID uint      `gorm:"not null;index" json:"repository_id"`
	OldName      string    `gorm:"size:255;not null" json:"old_name"`
	NewName      string    `gorm:"size:255;not null" json:"new_name"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for PipelineRename
func (PipelineRename) TableName() string {
	return "pipeline_renames"
}
