// Package seed loads issue reports from a JSONL file into a development store.
package seed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/MikeSquared-Agency/civixity/internal/model"
)

type IssueWriter interface {
	InsertIssue(ctx context.Context, r model.IssueReport) error
}

// Result counts what a Load run did.
type Result struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// ParseFile reads one IssueReport per line. Blank lines are ignored;
// malformed lines and reports without a title are counted as skipped.
func ParseFile(path string) ([]model.IssueReport, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var (
		issues  []model.IssueReport
		skipped int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var r model.IssueReport
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			skipped++
			continue
		}
		if strings.TrimSpace(r.Title) == "" || r.Upvotes < 0 || r.Downvotes < 0 {
			skipped++
			continue
		}
		issues = append(issues, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan: %w", err)
	}
	return issues, skipped, nil
}

// Load parses path and writes every valid report. It stops at the first
// write failure.
func Load(ctx context.Context, w IssueWriter, path string, logger *slog.Logger) (Result, error) {
	issues, skipped, err := ParseFile(path)
	if err != nil {
		return Result{}, err
	}

	res := Result{Skipped: skipped}
	for _, r := range issues {
		if err := w.InsertIssue(ctx, r); err != nil {
			return res, fmt.Errorf("insert %q: %w", r.Title, err)
		}
		res.Loaded++
	}
	logger.Info("seed loaded", "path", path, "loaded", res.Loaded, "skipped", res.Skipped)
	return res, nil
}
