package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Date format constants
const (
	DateTimeFormat      = "2006-01-02 15:04:05"
	DateTimeShortFormat = "2006-01-02 15:04"
)

// Issue is a tracked issue on a repository's board.
//
// LatestPipelineName, LatestTransferDate and Durations are denormalized read
// caches derived from the transfer log. They are rewritten wholesale on every
// sync that touches the issue and must never be hand-edited.
type Issue struct {
	ID                 uint        `gorm:"primaryKey" json:"id"`
	RepositoryID       uint        `gorm:"not null;index;uniqueIndex:idx_repo_number" json:"repository_id"`
	Repository         *Repository `json:"-"`
	Number             int         `gorm:"not null;uniqueIndex:idx_repo_number" json:"number"`
	Title              string      `gorm:"size:255" json:"title"`
	Labels             StringSlice `gorm:"type:text" json:"labels,omitempty"`
	Durations          DurationMap `gorm:"type:text" json:"durations"`
	LatestPipelineName string      `gorm:"size:255;index" json:"latest_pipeline_name"`
	LatestTransferDate time.Time   `json:"latest_transfer_date"`
	CreatedAt          time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Issue
func (Issue) TableName() string {
	return "issues"
}

// IsClosed reports whether the issue's latest transfer landed in Closed.
func (i *Issue) IsClosed() bool {
	return i.LatestPipelineName == ClosedPipelineName
}

// StringSlice is a custom type for storing string slices as JSON in the database
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("StringSlice.Scan: unexpected type %T", value)
		}
		bytes = []byte(str)
	}
	if len(bytes) == 0 {
		*s = []string{}
		return nil
	}
	if err := json.Unmarshal(bytes, s); err != nil {
		return fmt.Errorf("StringSlice.Scan: invalid JSON: %w", err)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// DurationMap stores accumulated seconds per pipeline name as JSON.
type DurationMap map[string]float64

// Scan implements the sql.Scanner interface
func (m *DurationMap) Scan(value interface{}) error {
	if value == nil {
		*m = DurationMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("DurationMap.Scan: unexpected type %T", value)
		}
		bytes = []byte(str)
	}
	if len(bytes) == 0 {
		*m = DurationMap{}
		return nil
	}
	if err := json.Unmarshal(bytes, m); err != nil {
		return fmt.Errorf("DurationMap.Scan: invalid JSON: %w", err)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (m DurationMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Total returns the sum of all duration buckets in seconds.
func (m DurationMap) Total() float64 {
	total := 0.0
	for _, v := range m {
		total += v
	}
	return total
}
