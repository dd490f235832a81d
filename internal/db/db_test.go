package db

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"boardsync/internal/models"
)

func setupTestDB(t *testing.T) func() {
	t.Helper()

	// Create temp directory
	tmpDir, err := os.MkdirTemp("", "boardsync-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	_, err = InitDB(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to init test DB: %v", err)
	}

	// Return cleanup function
	return func() {
		CloseDB()
		os.RemoveAll(tmpDir)
	}
}

func createTestRepo(t *testing.T) *models.Repository {
	t.Helper()
	repo := &models.Repository{RepoID: 4242, Name: "web"}
	if err := GetDB().Create(repo).Error; err != nil {
		t.Fatalf("Failed to create test repo: %v", err)
	}
	return repo
}

func TestInitDB(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	db := GetDB()
	if db == nil {
		t.Fatal("GetDB() returned nil after InitDB")
	}
}

func TestGetRepositoryByName(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	createTestRepo(t)

	found, err := GetRepositoryByName("web")
	if err != nil {
		t.Fatalf("GetRepositoryByName() error: %v", err)
	}
	if found.RepoID != 4242 {
		t.Errorf("GetRepositoryByName() repo id = %d, want 4242", found.RepoID)
	}

	_, err = GetRepositoryByName("missing")
	if err == nil {
		t.Error("GetRepositoryByName() should error for unknown repository")
	}
}

func TestGetOrCreateIssue(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	repo := createTestRepo(t)

	issue, created, err := GetOrCreateIssue(repo.ID, 7, "Fix login", []string{"bug"})
	if err != nil {
		t.Fatalf("GetOrCreateIssue() error: %v", err)
	}
	if !created {
		t.Error("GetOrCreateIssue() should report creation on first call")
	}

	// Second call finds the same row and refreshes the title
	again, created, err := GetOrCreateIssue(repo.ID, 7, "Fix login flow", []string{"bug", "auth"})
	if err != nil {
		t.Fatalf("GetOrCreateIssue() second call error: %v", err)
	}
	if created {
		t.Error("GetOrCreateIssue() should not report creation on second call")
	}
	if again.ID != issue.ID {
		t.Errorf("GetOrCreateIssue() returned a different row: %d != %d", again.ID, issue.ID)
	}
	if again.Title != "Fix login flow" {
		t.Errorf("GetOrCreateIssue() title = %s, want refreshed title", again.Title)
	}
	if len(again.Labels) != 2 {
		t.Errorf("GetOrCreateIssue() labels = %v, want 2 labels", again.Labels)
	}
}

func TestGetOrCreateTransferIdempotent(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	repo := createTestRepo(t)
	issue, _, err := GetOrCreateIssue(repo.ID, 1, "First", nil)
	if err != nil {
		t.Fatalf("GetOrCreateIssue() error: %v", err)
	}

	backlog := &models.Pipeline{RepositoryID: repo.ID, PipelineID: "p1", Name: "Backlog"}
	if err := GetDB().Create(backlog).Error; err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// Initial transfer has no from pipeline; NULLs defeat the unique
	// index, so the helper has to dedupe these itself
	_, created, err := GetOrCreateTransfer(issue.ID, nil, &backlog.ID, at)
	if err != nil {
		t.Fatalf("GetOrCreateTransfer() error: %v", err)
	}
	if !created {
		t.Error("GetOrCreateTransfer() should create on first call")
	}

	_, created, err = GetOrCreateTransfer(issue.ID, nil, &backlog.ID, at)
	if err != nil {
		t.Fatalf("GetOrCreateTransfer() second call error: %v", err)
	}
	if created {
		t.Error("GetOrCreateTransfer() should be a no-op for an identical fact")
	}

	transfers, err := TransfersForIssue(issue.ID)
	if err != nil {
		t.Fatalf("TransfersForIssue() error: %v", err)
	}
	if len(transfers) != 1 {
		t.Errorf("TransfersForIssue() count = %d, want 1", len(transfers))
	}
}

func TestTransfersForIssueOrdering(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	repo := createTestRepo(t)
	issue, _, err := GetOrCreateIssue(repo.ID, 2, "Ordered", nil)
	if err != nil {
		t.Fatalf("GetOrCreateIssue() error: %v", err)
	}

	backlog := &models.Pipeline{RepositoryID: repo.ID, PipelineID: "p1", Name: "Backlog"}
	doing := &models.Pipeline{RepositoryID: repo.ID, PipelineID: "p2", Name: "Doing"}
	for _, p := range []*models.Pipeline{backlog, doing} {
		if err := GetDB().Create(p).Error; err != nil {
			t.Fatalf("Failed to create pipeline: %v", err)
		}
	}

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// Insert newest first; reads must still come back oldest first
	if _, _, err := GetOrCreateTransfer(issue.ID, &backlog.ID, &doing.ID, base.Add(time.Hour)); err != nil {
		t.Fatalf("GetOrCreateTransfer() error: %v", err)
	}
	if _, _, err := GetOrCreateTransfer(issue.ID, nil, &backlog.ID, base); err != nil {
		t.Fatalf("GetOrCreateTransfer() error: %v", err)
	}

	transfers, err := TransfersForIssue(issue.ID)
	if err != nil {
		t.Fatalf("TransfersForIssue() error: %v", err)
	}
	if len(transfers) != 2 {
		t.Fatalf("TransfersForIssue() count = %d, want 2", len(transfers))
	}
	if !transfers[0].TransferedAt.Equal(base) {
		t.Errorf("TransfersForIssue() first transfer at %v, want %v", transfers[0].TransferedAt, base)
	}
	if transfers[1].ToPipeline == nil || transfers[1].ToPipeline.Name != "Doing" {
		t.Error("TransfersForIssue() should preload pipeline associations")
	}

	latest, err := LatestTransfer(issue.ID)
	if err != nil {
		t.Fatalf("LatestTransfer() error: %v", err)
	}
	if latest == nil || latest.ToPipeline.Name != "Doing" {
		t.Error("LatestTransfer() should return the newest transfer")
	}
}

func TestSetGetConfig(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	err := SetConfig("test_key", "test_value")
	if err != nil {
		t.Fatalf("SetConfig() error: %v", err)
	}

	value, err := GetConfig("test_key")
	if err != nil {
		t.Fatalf("GetConfig() error: %v", err)
	}
	if value != "test_value" {
		t.Errorf("GetConfig() = %s, want test_value", value)
	}

	err = SetConfig("test_key", "updated_value")
	if err != nil {
		t.Fatalf("SetConfig() update error: %v", err)
	}

	value, err = GetConfig("test_key")
	if err != nil {
		t.Fatalf("GetConfig() after update error: %v", err)
	}
	if value != "updated_value" {
		t.Errorf("GetConfig() after update = %s, want updated_value", value)
	}

	_, err = GetConfig("nonexistent")
	if err == nil {
		t.Error("GetConfig() should error for non-existent key")
	}
}

func TestCloseDB(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	err := CloseDB()
	if err != nil {
		t.Fatalf("CloseDB() error: %v", err)
	}

	if GetDB() != nil {
		t.Error("GetDB() should return nil after CloseDB()")
	}

	err = CloseDB()
	if err != nil {
		t.Errorf("CloseDB() second call error: %v", err)
	}
}
