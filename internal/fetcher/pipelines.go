package fetcher

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"gorm.io/gorm"

	"boardsync/internal/db"
	"boardsync/internal/models"
	"boardsync/internal/remote"
)

// PassContext carries one repository's resolved pipeline state through a
// single sync pass: the current name -> pipeline map, the historical rename
// dictionary and the board's first pipeline. Each pass builds a fresh one;
// nothing is cached across passes.
type PassContext struct {
	Repo      *models.Repository
	Pipelines map[string]*models.Pipeline
	Renames   map[string]string
	First     *models.Pipeline
}

// Closed returns the repository's synthetic Closed pipeline.
func (pc *PassContext) Closed() *models.Pipeline {
	return pc.Pipelines[models.ClosedPipelineName]
}

// OrderedNames returns the current pipeline names sorted by board order.
// Used for the interactive resolution prompt.
func (pc *PassContext) OrderedNames() []string {
	pipelines := make([]*models.Pipeline, 0, len(pc.Pipelines))
	for _, p := range pc.Pipelines {
		pipelines = append(pipelines, p)
	}
	sort.Slice(pipelines, func(i, j int) bool {
		if pipelines[i].Order != pipelines[j].Order {
			return pipelines[i].Order < pipelines[j].Order
		}
		return pipelines[i].Name < pipelines[j].Name
	})
	names := make([]string, len(pipelines))
	for i, p := range pipelines {
		names[i] = p.Name
	}
	return names
}

// ReconcilePipelines brings the stored pipelines of a repository in line
// with the live board and returns the pass context for it.
//
// A stage whose external id is already known but whose name differs was
// renamed upstream: the old name is recorded in the rename log and the
// stored pipeline is relabeled in place, preserving its identity. Unknown
// stages are created; the synthetic Closed pipeline is created on first
// contact.
func ReconcilePipelines(repo *models.Repository, stages []remote.Stage, log *slog.Logger) (*PassContext, error) {
	if repo == nil || repo.ID == 0 {
		return nil, &PreconditionError{Repo: "?", Reason: "repository is not tracked"}
	}
	for _, stage := range stages {
		if stage.ID == "" {
			return nil, &PreconditionError{
				Repo:   repo.Name,
				Reason: fmt.Sprintf("live stage %q has no external id", stage.Name),
			}
		}
	}

	database := db.GetDB()

	closed := models.Pipeline{
		RepositoryID: repo.ID,
		PipelineID:   models.ClosedPipelineID,
		Name:         models.ClosedPipelineName,
		Order:        models.ClosedPipelineOrder,
	}
	err := database.
		Where("repository_id = ? AND pipeline_id = ?", repo.ID, models.ClosedPipelineID).
		FirstOrCreate(&closed).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure Closed pipeline: %w", err)
	}

	for order, stage := range stages {
		var existing models.Pipeline
		err := database.
			Where("repository_id = ? AND pipeline_id = ?", repo.ID, stage.ID).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			pipeline := models.Pipeline{
				RepositoryID: repo.ID,
				PipelineID:   stage.ID,
				Name:         stage.Name,
				Order:        order,
			}
			if err := database.Create(&pipeline).Error; err != nil {
				return nil, fmt.Errorf("failed to create pipeline %q: %w", stage.Name, err)
			}
		case err != nil:
			return nil, err
		case existing.Name != stage.Name:
			rename := models.PipelineRename{
				RepositoryID: repo.ID,
				OldName:      existing.Name,
				NewName:      stage.Name,
			}
			if err := database.Create(&rename).Error; err != nil {
				return nil, fmt.Errorf("failed to record rename: %w", err)
			}
			log.Info("pipeline renamed upstream",
				"repo", repo.Name, "old", existing.Name, "new", stage.Name)
			existing.Name = stage.Name
			existing.Order = order
			if err := database.Save(&existing).Error; err != nil {
				return nil, fmt.Errorf("failed to relabel pipeline: %w", err)
			}
		default:
			if existing.Order != order {
				existing.Order = order
				if err := database.Save(&existing).Error; err != nil {
					return nil, fmt.Errorf("failed to reorder pipeline %q: %w", stage.Name, err)
				}
			}
		}
	}

	return loadPassContext(repo)
}

// loadPassContext reads the repository's full pipeline and rename state
// back out of the store.
func loadPassContext(repo *models.Repository) (*PassContext, error) {
	database := db.GetDB()

	var pipelines []models.Pipeline
	if err := database.Where("repository_id = ?", repo.ID).Find(&pipelines).Error; err != nil {
		return nil, err
	}

	pass := &PassContext{
		Repo:      repo,
		Pipelines: make(map[string]*models.Pipeline, len(pipelines)),
		Renames:   make(map[string]string),
	}
	for i := range pipelines {
		p := &pipelines[i]
		pass.Pipelines[p.Name] = p
		if pass.First == nil || p.Order < pass.First.Order {
			pass.First = p
		}
	}

	var renames []models.PipelineRename
	if err := database.Where("repository_id = ?", repo.ID).Order("id").Find(&renames).Error; err != nil {
		return nil, err
	}
	for _, r := range renames {
		pass.Renames[r.OldName] = r.NewName
	}

	return pass, nil
}
