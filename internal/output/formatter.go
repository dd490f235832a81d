package output

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"boardsync/internal/models"
)

// Formatter defines the interface for output formatting
type Formatter interface {
	Repository(r *models.Repository)
	RepositoryList(repos []models.Repository)
	Issue(i *models.Issue)
	IssueList(issues []models.Issue, title string)
	Transfers(transfers []models.Transfer)
	Durations(durations models.DurationMap)
	Success(msg string)
	Error(err error)
	Info(msg string)
	JSON(v interface{})
}

// TextFormatter outputs human-readable text
type TextFormatter struct{}

// JSONFormatter outputs JSON
type JSONFormatter struct{}

// New returns the appropriate formatter based on json flag
func New(jsonOutput bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &TextFormatter{}
}

// TextFormatter implementations

func (f *TextFormatter) Repository(r *models.Repository) {
	fmt.Printf("Name:    %s\n", r.Name)
	fmt.Printf("Repo ID: %d\n", r.RepoID)
}

func (f *TextFormatter) RepositoryList(repos []models.Repository) {
	for _, r := range repos {
		fmt.Printf("%s (id %d)\n", r.Name, r.RepoID)
	}
}

func (f *TextFormatter) Issue(i *models.Issue) {
	fmt.Printf("Issue:    #%d\n", i.Number)
	fmt.Printf("Title:    %s\n", i.Title)
	fmt.Printf("Pipeline: %s\n", i.LatestPipelineName)
	if len(i.Labels) > 0 {
		fmt.Printf("Labels:   %s\n", strings.Join(i.Labels, ", "))
	}
	if !i.LatestTransferDate.IsZero() {
		fmt.Printf("Moved:    %s\n", i.LatestTransferDate.Format(models.DateTimeShortFormat))
	}
	f.Durations(i.Durations)
}

func (f *TextFormatter) IssueList(issues []models.Issue, title string) {
	if title != "" {
		fmt.Printf("%s (%d):\n", title, len(issues))
	}
	for _, i := range issues {
		total := time.Duration(i.Durations.Total()) * time.Second
		fmt.Printf("#%-5d %-20s %-10s %s\n", i.Number, i.LatestPipelineName, total.Round(time.Minute), i.Title)
	}
}

func (f *TextFormatter) Transfers(transfers []models.Transfer) {
	for _, t := range transfers {
		fmt.Println(t.String())
	}
}

func (f *TextFormatter) Durations(durations models.DurationMap) {
	if len(durations) == 0 {
		return
	}
	names := make([]string, 0, len(durations))
	for name := range durations {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("Durations:")
	for _, name := range names {
		d := time.Duration(durations[name]) * time.Second
		fmt.Printf("  %-20s %s\n", name, d.Round(time.Second))
	}
}

func (f *TextFormatter) Success(msg string) {
	fmt.Println(msg)
}

func (f *TextFormatter) Error(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func (f *TextFormatter) Info(msg string) {
	fmt.Println(msg)
}

func (f *TextFormatter) JSON(v interface{}) {
	// TextFormatter doesn't output JSON, but provide fallback
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		f.Error(err)
		return
	}
	fmt.Println(string(data))
}

// JSONFormatter implementations

func (f *JSONFormatter) Repository(r *models.Repository) {
	f.JSON(r)
}

func (f *JSONFormatter) RepositoryList(repos []models.Repository) {
	f.JSON(map[string]interface{}{
		"count":        len(repos),
		"repositories": repos,
	})
}

func (f *JSONFormatter) Issue(i *models.Issue) {
	f.JSON(i)
}

func (f *JSONFormatter) IssueList(issues []models.Issue, title string) {
	f.JSON(map[string]interface{}{
		"count":  len(issues),
		"issues": issues,
	})
}

func (f *JSONFormatter) Transfers(transfers []models.Transfer) {
	f.JSON(map[string]interface{}{
		"count":     len(transfers),
		"transfers": transfers,
	})
}

func (f *JSONFormatter) Durations(durations models.DurationMap) {
	f.JSON(durations)
}

func (f *JSONFormatter) Success(msg string) {
	f.JSON(map[string]interface{}{"success": true, "message": msg})
}

func (f *JSONFormatter) Error(err error) {
	f.JSON(map[string]interface{}{"error": true, "message": err.Error()})
}

func (f *JSONFormatter) Info(msg string) {
	f.JSON(map[string]interface{}{"message": msg})
}

func (f *JSONFormatter) JSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, `{"error": true, "message": "JSON marshal error: %s"}`+"\n", err.Error())
		return
	}
	fmt.Println(string(data))
}
