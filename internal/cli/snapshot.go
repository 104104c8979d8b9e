package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
	"github.com/PeterJemley/bridget-sub000/pkg/intelligence/pipeline"
)

// snapshotFile is the on-disk snapshot format. Tier is flag-driven and
// deliberately absent so the same file serves every command.
type snapshotFile struct {
	Events    []domain.SpanEvent      `yaml:"events" json:"events"`
	Locations []domain.EntityLocation `yaml:"locations,omitempty" json:"locations,omitempty"`
	Now       time.Time               `yaml:"now,omitempty" json:"now,omitempty"`
}

// loadSnapshot reads a snapshot file (YAML by default, JSON by extension)
// and assembles the pipeline input for the requested compute tier.
func loadSnapshot(path string, tier domain.ComputeTier) (pipeline.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Snapshot{}, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var file snapshotFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &file)
	default:
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return pipeline.Snapshot{}, fmt.Errorf("failed to parse snapshot file: %w", err)
	}

	if len(file.Events) == 0 {
		return pipeline.Snapshot{}, fmt.Errorf("snapshot %s contains no events", path)
	}

	return pipeline.Snapshot{
		Events:    file.Events,
		Locations: file.Locations,
		Now:       file.Now,
		Tier:      tier,
	}, nil
}
