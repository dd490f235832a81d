package fetcher

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"boardsync/internal/db"
	"boardsync/internal/models"
)

// Resolver decides what happens when a stage name from a historical event
// matches neither a current pipeline nor a recorded rename.
type Resolver interface {
	Resolve(pass *PassContext, rawName string) (*models.Pipeline, error)
}

// ResolvePipeline translates a raw stage name into a current pipeline:
// exact match first, then through the rename log, then via the injected
// strategy.
func ResolvePipeline(pass *PassContext, rawName string, resolver Resolver) (*models.Pipeline, error) {
	if p, ok := pass.Pipelines[rawName]; ok {
		return p, nil
	}
	if mapped, ok := pass.Renames[rawName]; ok {
		if p, ok := pass.Pipelines[mapped]; ok {
			return p, nil
		}
	}
	return resolver.Resolve(pass, rawName)
}

// FailFast is the unattended strategy: an unresolved name fails the issue
// immediately. Periodic runs must never block on input.
type FailFast struct{}

// Resolve implements Resolver.
func (FailFast) Resolve(pass *PassContext, rawName string) (*models.Pipeline, error) {
	return nil, &PipelineNotFoundError{Repo: pass.Repo.Name, Name: rawName}
}

// PromptOperator is the interactive strategy for fix runs: it shows the
// current pipelines, asks the operator to pick one, and records the answer
// as a rename so the same name never prompts again.
type PromptOperator struct {
	In  io.Reader
	Out io.Writer
}

// Resolve implements Resolver.
func (r *PromptOperator) Resolve(pass *PassContext, rawName string) (*models.Pipeline, error) {
	names := pass.OrderedNames()

	fmt.Fprintf(r.Out, "\nCould not find %q on the %q board. These are the options:\n",
		rawName, pass.Repo.Name)
	for index, name := range names {
		fmt.Fprintf(r.Out, "[%d]: %s\n", index, name)
	}

	scanner := bufio.NewScanner(r.In)
	for {
		fmt.Fprint(r.Out, "Select one: ")
		if !scanner.Scan() {
			// Input exhausted; fall back to the unattended behavior
			return nil, &PipelineNotFoundError{Repo: pass.Repo.Name, Name: rawName}
		}
		index, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil {
			fmt.Fprintln(r.Out, "Input an integer value")
			continue
		}
		if index < 0 || index >= len(names) {
			fmt.Fprintln(r.Out, "Pipeline not in the list")
			continue
		}

		newName := names[index]
		rename := models.PipelineRename{
			RepositoryID: pass.Repo.ID,
			OldName:      rawName,
			NewName:      newName,
		}
		if err := db.GetDB().Create(&rename).Error; err != nil {
			return nil, fmt.Errorf("failed to record rename: %w", err)
		}
		pass.Renames[rawName] = newName
		return pass.Pipelines[newName], nil
	}
}
