package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"llmapi/internal/common/fsutil"
	"llmapi/pkg/types"
)

// LoadDir scans a directory for *.gguf files and builds a registry from filenames.
// ID is the full filename (including extension); Path is the absolute file path.
// Models are sorted by ID.
func LoadDir(dir string) ([]types.Model, error) {
	abs, err := fsutil.Abs(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		models = append(models, types.Model{ID: name, Path: filepath.Join(abs, name)})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Resolve turns a configured model location into a single model file. path may
// name a file directly or a directory; for a directory, id selects the file by
// name and may be empty only when the directory holds exactly one model.
func Resolve(path, id string) (types.Model, error) {
	if strings.TrimSpace(path) == "" {
		return types.Model{}, fmt.Errorf("model path is empty")
	}
	expanded, err := fsutil.Abs(path)
	if err != nil {
		return types.Model{}, err
	}
	if fsutil.IsFile(expanded) {
		return types.Model{ID: filepath.Base(expanded), Path: expanded}, nil
	}
	fi, err := os.Stat(expanded)
	if err != nil {
		return types.Model{}, fmt.Errorf("stat model path: %w", err)
	}
	if !fi.IsDir() {
		return types.Model{}, fmt.Errorf("model path %s is neither a file nor a directory", expanded)
	}
	models, err := LoadDir(expanded)
	if err != nil {
		return types.Model{}, err
	}
	if id != "" {
		for _, m := range models {
			if m.ID == id {
				return m, nil
			}
		}
		return types.Model{}, fmt.Errorf("model not found: %s", id)
	}
	switch len(models) {
	case 0:
		return types.Model{}, fmt.Errorf("no *.gguf models in %s", expanded)
	case 1:
		return models[0], nil
	default:
		return types.Model{}, fmt.Errorf("%d models in %s: set a model id", len(models), expanded)
	}
}
