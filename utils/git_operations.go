package utils

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// GitOperations handles git-related operations
type GitOperations struct {
	workingDir string
}

// VCSStatus groups the paths reported by `git status`, normalized to the working directory.
type VCSStatus struct {
	Modified  []string `json:"modified"`
	Added     []string `json:"added"`
	Untracked []string `json:"untracked"`
	Deleted   []string `json:"deleted"`
}

// Changed returns every path that still exists and differs from HEAD.
func (s *VCSStatus) Changed() []string {
	var all []string
	all = append(all, s.Modified...)
	all = append(all, s.Added...)
	all = append(all, s.Untracked...)
	sort.Strings(all)
	return all
}

// NewGitOperations creates a new GitOperations instance
func NewGitOperations(workingDir string) *GitOperations {
	return &GitOperations{workingDir: workingDir}
}

// CheckGitRepo checks if the working directory is a git repository
func (g *GitOperations) CheckGitRepo(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	cmd.Dir = g.workingDir
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("not a git repository: %s", g.workingDir)
	}
	return nil
}

// GetGitStatus returns the raw porcelain status output
func (g *GitOperations) GetGitStatus(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain", "--untracked-files=all")
	cmd.Dir = g.workingDir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get git status: %w", err)
	}
	return string(output), nil
}

// ChangedFiles runs a one-shot status query and classifies the reported paths.
func (g *GitOperations) ChangedFiles(ctx context.Context) (*VCSStatus, error) {
	if err := g.CheckGitRepo(ctx); err != nil {
		return nil, err
	}
	output, err := g.GetGitStatus(ctx)
	if err != nil {
		return nil, err
	}
	return ParsePorcelainStatus(g.workingDir, output), nil
}

// ParsePorcelainStatus classifies `git status --porcelain` (v1) output.
// Renames are reported as additions of the new path.
func ParsePorcelainStatus(root string, output string) *VCSStatus {
	status := &VCSStatus{}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		filePath := line[3:]
		if idx := strings.Index(filePath, " -> "); idx >= 0 {
			filePath = filePath[idx+len(" -> "):]
		}
		filePath = strings.Trim(filePath, `"`)

		rel, err := NormalizePath(root, filePath)
		if err != nil || rel == "" {
			continue
		}

		switch {
		case code == "??":
			status.Untracked = append(status.Untracked, rel)
		case code[0] == 'D' || code[1] == 'D':
			status.Deleted = append(status.Deleted, rel)
		case code[0] == 'A' || code[0] == 'R' || code[0] == 'C':
			status.Added = append(status.Added, rel)
		default:
			status.Modified = append(status.Modified, rel)
		}
	}
	return status
}
