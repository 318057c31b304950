// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperscout/pkg/types"
)

// RunFile is the on-disk representation of a completed retrieval run. The
// researcher can save a run to a file and reload the selection later
// without re-querying arXiv.
type RunFile struct {
	Query    string          `yaml:"query"`
	Request  types.Request   `yaml:"request"`
	Metadata Metadata        `yaml:"metadata"`
	Papers   []types.Paper   `yaml:"papers"`
	Summary  RunSummaryBlock `yaml:"summary"`
}

// RunSummaryBlock stores run statistics and a timestamp.
type RunSummaryBlock struct {
	TotalFetched  int               `yaml:"total_fetched"`
	FilteredCount int               `yaml:"filtered_count"`
	SelectedCount int               `yaml:"selected_count"`
	Errors        map[string]string `yaml:"errors,omitempty"`
	Timestamp     time.Time         `yaml:"timestamp"`
}

// WriteRunFile saves a pipeline result to a YAML file.
func WriteRunFile(path string, res Result) error {
	rf := RunFile{
		Query:    res.Query,
		Request:  res.Request,
		Metadata: res.Metadata,
		Papers:   res.Papers,
		Summary: RunSummaryBlock{
			TotalFetched:  res.TotalFetched,
			FilteredCount: res.FilteredCount,
			SelectedCount: res.SelectedCount,
			Errors:        res.Errors,
			Timestamp:     time.Now(),
		},
	}
	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling run file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadRunFile loads a previously saved run file from disk.
func ReadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}
	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing run file: %w", err)
	}
	return &rf, nil
}

// ToResult converts a loaded run file back into a Result for display.
func (rf *RunFile) ToResult() Result {
	return Result{
		Query:         rf.Query,
		Request:       rf.Request,
		Papers:        rf.Papers,
		Metadata:      rf.Metadata,
		Errors:        rf.Summary.Errors,
		TotalFetched:  rf.Summary.TotalFetched,
		FilteredCount: rf.Summary.FilteredCount,
		SelectedCount: rf.Summary.SelectedCount,
	}
}
