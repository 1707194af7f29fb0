// Package analysis inspects project directories and produces analysis
// snapshots. The directory walk is real; the scoring is a fixed placeholder
// until assistant-driven analysis lands.
package analysis

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dailyinspo/inspo/pkg/models"
)

// Placeholder scores and findings. TODO: replace with assistant-driven
// comparison of the project tree against its connected ideas.
const (
	placeholderAlignmentScore  = 0.7
	placeholderDebtScore       = 0.3
	placeholderCompletionScore = 0.6
)

var (
	placeholderImplemented = []string{"Basic structure", "Core functionality"}
	placeholderMissing     = []string{"User authentication", "Advanced features"}
	placeholderDivergent   = []string{"Extra utilities"}
	placeholderRecs        = []string{
		"Add comprehensive testing",
		"Improve error handling",
		"Add documentation",
	}
)

// codeSuffixes are the file types counted toward the line total.
var codeSuffixes = map[string]bool{
	".go":   true,
	".py":   true,
	".js":   true,
	".ts":   true,
	".html": true,
	".css":  true,
	".md":   true,
}

// DirectoryReport summarizes a project directory walk.
type DirectoryReport struct {
	FileCount    int
	LineCount    int
	CodeFiles    []string
	Technologies []string
}

// AnalyzeDirectory walks a project tree, counting files and code lines and
// detecting technologies from well-known filenames. Unreadable files are
// skipped, a missing root is an error.
func AnalyzeDirectory(root string) (*DirectoryReport, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to analyze %s: not a directory", root)
	}

	report := &DirectoryReport{}
	techs := make(map[string]bool)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		report.FileCount++

		switch d.Name() {
		case "package.json":
			techs["Node.js"] = true
		case "requirements.txt":
			techs["Python"] = true
		case "go.mod":
			techs["Go"] = true
		}

		ext := filepath.Ext(d.Name())
		switch ext {
		case ".py":
			techs["Python"] = true
		case ".js", ".ts":
			techs["JavaScript"] = true
		case ".go":
			techs["Go"] = true
		}

		if codeSuffixes[ext] {
			data, readErr := os.ReadFile(path)
			if readErr != nil {
				return nil
			}
			report.LineCount += countLines(data)
			if rel, relErr := filepath.Rel(root, path); relErr == nil {
				report.CodeFiles = append(report.CodeFiles, rel)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	for tech := range techs {
		report.Technologies = append(report.Technologies, tech)
	}
	sort.Strings(report.Technologies)
	sort.Strings(report.CodeFiles)
	return report, nil
}

// Snapshot produces the analysis record stored for a project. The scores
// and findings are fixed placeholders regardless of the walk result.
func Snapshot(projectID int64) *models.ProjectAnalysis {
	return &models.ProjectAnalysis{
		ProjectID:           projectID,
		IdeaAlignmentScore:  placeholderAlignmentScore,
		ImplementedFeatures: append([]string{}, placeholderImplemented...),
		MissingFeatures:     append([]string{}, placeholderMissing...),
		DivergentFeatures:   append([]string{}, placeholderDivergent...),
		TechnicalDebtScore:  placeholderDebtScore,
		CompletionEstimate:  placeholderCompletionScore,
		Recommendations:     append([]string{}, placeholderRecs...),
	}
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := strings.Count(string(data), "\n")
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}
