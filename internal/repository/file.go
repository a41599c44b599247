package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"parkfinder/internal/model"
)

// FileRepository reads the facility catalog from a JSON or YAML file.
// Either a top-level list of facilities or a document with a "carparks" list is accepted.
type FileRepository struct {
	path string
}

// NewFileRepository creates a loader for path
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// LoadFacilities reads the catalog file
func (r *FileRepository) LoadFacilities(ctx context.Context) ([]model.Facility, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(r.path))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("unsupported catalog file type %q", ext)
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	// JSON is a subset of YAML, so one decoder serves both
	facilities, err := decodeFacilities(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", r.path, err)
	}
	return facilities, nil
}

func decodeFacilities(data []byte) ([]model.Facility, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return []model.Facility{}, nil
	}

	var facilities []model.Facility
	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&facilities); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var wrapped struct {
			Carparks []model.Facility `yaml:"carparks"`
		}
		if err := doc.Decode(&wrapped); err != nil {
			return nil, err
		}
		facilities = wrapped.Carparks
	default:
		return nil, fmt.Errorf("expected a list of carparks")
	}

	if facilities == nil {
		facilities = []model.Facility{}
	}
	return facilities, nil
}

// validateFacilities rejects rows without an id and duplicate ids.
// Rows without coordinates are kept.
func validateFacilities(facilities []model.Facility) error {
	seen := make(map[string]int, len(facilities))
	for i, f := range facilities {
		if strings.TrimSpace(f.ID) == "" {
			return fmt.Errorf("carpark #%d has no id", i+1)
		}
		if first, dup := seen[f.ID]; dup {
			return fmt.Errorf("carpark id %q appears at #%d and #%d", f.ID, first+1, i+1)
		}
		seen[f.ID] = i
		if (f.Lat == nil) != (f.Lng == nil) {
			return fmt.Errorf("carpark %q has only one of lat/lng", f.ID)
		}
		if p, ok := f.Point(); ok && !p.Valid() {
			return fmt.Errorf("carpark %q has out-of-range coordinates %s", f.ID, p)
		}
	}
	return nil
}
