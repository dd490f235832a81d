package models

import (
	"time"
)

// Config stores key-value configuration for the installation
type Config struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Config
func (Config) TableName() string {
	return "config"
}

// Common config keys
const (
	ConfigSchemaVersion  = "schema_version"
	ConfigInitializedAt  = "initialized_at"
	ConfigGitHubOwner    = "github_owner"
	ConfigGitHubTokenSet = "github_token_set"
	ConfigZenhubTokenSet = "zenhub_token_set"
)

// Keyring constants for secure token storage
const (
	KeyringServiceName    = "boardsync"
	KeyringGitHubTokenKey = "github_token"
	KeyringZenhubTokenKey = "zenhub_token"
)
