package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"boardsync/internal/models"
)

// GetRepositoryByName returns a tracked repository by its unique name
func GetRepositoryByName(name string) (*models.Repository, error) {
	var repo models.Repository
	if err := GetDB().Where("name = ?", name).First(&repo).Error; err != nil {
		return nil, fmt.Errorf("repository '%s' not found: %w", name, err)
	}
	return &repo, nil
}

// ListRepositories returns all tracked repositories ordered by name
func ListRepositories() ([]models.Repository, error) {
	var repos []models.Repository
	if err := GetDB().Order("name").Find(&repos).Error; err != nil {
		return nil, err
	}
	return repos, nil
}

// GetIssue returns an issue by repository and external number
func GetIssue(repositoryID uint, number int) (*models.Issue, error) {
	var issue models.Issue
	err := GetDB().Where("repository_id = ? AND number = ?", repositoryID, number).First(&issue).Error
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// GetOrCreateIssue finds an issue by (repository, number) or creates it.
// Title and labels are refreshed from the tracker either way. The created
// flag tells the history builder whether to synthesize the initial transfer.
func GetOrCreateIssue(repositoryID uint, number int, title string, labels []string) (*models.Issue, bool, error) {
	database := GetDB()

	var issue models.Issue
	err := database.Where("repository_id = ? AND number = ?", repositoryID, number).First(&issue).Error
	if err == nil {
		issue.Title = title
		issue.Labels = labels
		if err := database.Save(&issue).Error; err != nil {
			return nil, false, fmt.Errorf("failed to update issue #%d: %w", number, err)
		}
		return &issue, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	issue = models.Issue{
		RepositoryID: repositoryID,
		Number:       number,
		Title:        title,
		Labels:       labels,
		Durations:    models.DurationMap{},
	}
	if err := database.Create(&issue).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create issue #%d: %w", number, err)
	}
	return &issue, true, nil
}

// ListIssues returns a repository's issues ordered by number
func ListIssues(repositoryID uint) ([]models.Issue, error) {
	var issues []models.Issue
	if err := GetDB().Where("repository_id = ?", repositoryID).Order("number").Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

// IssueNumbers returns the external numbers of all tracked issues of a repository
func IssueNumbers(repositoryID uint) ([]int, error) {
	var numbers []int
	err := GetDB().Model(&models.Issue{}).
		Where("repository_id = ?", repositoryID).
		Order("number").
		Pluck("number", &numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

// TransfersForIssue returns an issue's transfers ordered oldest-first with
// both pipeline associations loaded
func TransfersForIssue(issueID uint) ([]models.Transfer, error) {
	var transfers []models.Transfer
	err := GetDB().
		Preload("FromPipeline").
		Preload("ToPipeline").
		Where("issue_id = ?", issueID).
		Order("transfered_at, id").
		Find(&transfers).Error
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

// LatestTransfer returns an issue's most recent transfer with its target
// pipeline loaded, or nil if the issue has none yet
func LatestTransfer(issueID uint) (*models.Transfer, error) {
	var transfer models.Transfer
	err := GetDB().
		Preload("ToPipeline").
		Where("issue_id = ?", issueID).
		Order("transfered_at DESC, id DESC").
		First(&transfer).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// GetOrCreateTransfer records a transfer unless the same (issue, from, to,
// transfered_at) fact already exists. SQLite treats NULLs as distinct in
// unique indexes, so the lookup has to match NULL columns explicitly instead
// of relying on the index alone.
func GetOrCreateTransfer(issueID uint, fromPipelineID, toPipelineID *uint, transferedAt time.Time) (*models.Transfer, bool, error) {
	database := GetDB()

	query := database.Where("issue_id = ? AND transfered_at = ?", issueID, transferedAt)
	if fromPipelineID == nil {
		query = query.Where("from_pipeline_id IS NULL")
	} else {
		query = query.Where("from_pipeline_id = ?", *fromPipelineID)
	}
	if toPipelineID == nil {
		query = query.Where("to_pipeline_id IS NULL")
	} else {
		query = query.Where("to_pipeline_id = ?", *toPipelineID)
	}

	var transfer models.Transfer
	err := query.First(&transfer).Error
	if err == nil {
		return &transfer, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	transfer = models.Transfer{
		IssueID:        issueID,
		FromPipelineID: fromPipelineID,
		ToPipelineID:   toPipelineID,
		TransferedAt:   transferedAt,
	}
	if err := database.Create(&transfer).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create transfer: %w", err)
	}
	return &transfer, true, nil
}
