// Package fsjson stores capture files as per-city JSON documents on disk,
// named {cityID}_data.json inside one directory.
package fsjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/user/metroverse-pipeline/internal/entity"
	"github.com/user/metroverse-pipeline/pkg/utils"
)

// StoreImpl provides a concrete implementation of the CaptureStore interface
// backed by a directory of JSON files.
type StoreImpl struct {
	dir string
}

// NewStore creates a capture store rooted at dir. The directory is created
// lazily on the first Save.
func NewStore(dir string) *StoreImpl {
	return &StoreImpl{dir: dir}
}

// Path returns the stable location of a city's capture file.
func (s *StoreImpl) Path(cityID string) string {
	return filepath.Join(s.dir, cityID+"_data.json")
}

// Save writes the capture file for its city, replacing any earlier capture.
func (s *StoreImpl) Save(_ context.Context, capture *entity.CaptureFile) (string, error) {
	if capture.CityID == "" {
		return "", errors.New("capture file has no city id")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating capture directory %s: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(capture, "", "  ")
	if err != nil {
		return "", err
	}

	path := s.Path(capture.CityID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing capture file %s: %w", path, err)
	}
	return path, nil
}

// Load reads and decodes one capture file. Missing city ids fall back to the
// file name, which encodes the city identifier.
func (s *StoreImpl) Load(_ context.Context, path string) (*entity.CaptureFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading capture file %s: %w", path, err)
	}

	var capture entity.CaptureFile
	if err := json.Unmarshal(data, &capture); err != nil {
		return nil, fmt.Errorf("parsing capture file %s: %w", path, err)
	}
	if capture.CityID == "" {
		capture.CityID = utils.CityIDFromPath(path)
	}
	return &capture, nil
}

// List returns every JSON file in the store directory, sorted for stable
// processing order. A missing directory is an empty store, not an error.
func (s *StoreImpl) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing capture directory %s: %w", s.dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Exists reports whether a capture file is present for a city.
func (s *StoreImpl) Exists(_ context.Context, cityID string) (bool, error) {
	_, err := os.Stat(s.Path(cityID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
