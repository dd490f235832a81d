package models

import (
	"time"
)

// Repository is a tracked GitHub repository whose board is synced.
type Repository struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RepoID    int64     `gorm:"uniqueIndex;not null" json:"repo_id"` // external GitHub repository id
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Repository
func (Repository) TableName() string {
	return "repositories"
}
