package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// ErrMissing is returned when a requested artifact file does not exist.
var ErrMissing = errors.New("artifact: file not found")

// Store reads and writes the artifact set of one asset data directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at the given directory, creating it if
// needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: creating data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// WriteControllers, WriteTransforms and WriteCVs persist the per-category
// snapshot files.
func (s *Store) WriteControllers(data ControllerData) error {
	return s.writeJSON(ControllersFile, data)
}

func (s *Store) WriteTransforms(data TransformData) error {
	return s.writeJSON(TransformsFile, data)
}

func (s *Store) WriteCVs(data CVData) error {
	return s.writeJSON(CVsFile, data)
}

// ReadControllers, ReadTransforms and ReadCVs load the snapshot files.
func (s *Store) ReadControllers() (ControllerData, error) {
	var data ControllerData
	return data, s.readJSON(ControllersFile, &data)
}

func (s *Store) ReadTransforms() (TransformData, error) {
	var data TransformData
	return data, s.readJSON(TransformsFile, &data)
}

func (s *Store) ReadCVs() (CVData, error) {
	var data CVData
	return data, s.readJSON(CVsFile, &data)
}

// WriteWeightMap persists one weight-map artifact under its canonical name.
func (s *Store) WriteWeightMap(w WeightMap) error {
	return s.writeJSON(w.FileName(), w)
}

var weightFilePattern = regexp.MustCompile(`^(.+)_deformer_(\d+)\.json$`)

// ListWeightMaps loads every weight map exported for a mesh, sorted by stack
// index. Duplicate or gapped indices are corrupt exports and are rejected.
func (s *Store) ListWeightMaps(mesh string) ([]WeightMap, error) {
	var maps []WeightMap
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		match := weightFilePattern.FindStringSubmatch(d.Name())
		if match == nil || match[1] != mesh {
			return nil
		}
		var w WeightMap
		if err := s.readJSONPath(path, &w); err != nil {
			return err
		}
		fileIndex, _ := strconv.Atoi(match[2])
		if w.Index != fileIndex {
			return fmt.Errorf("artifact: %s: embedded index %d disagrees with file name", d.Name(), w.Index)
		}
		maps = append(maps, w)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(maps, func(i, j int) bool { return maps[i].Index < maps[j].Index })
	for i, w := range maps {
		if w.Index != i {
			return nil, fmt.Errorf("artifact: weight maps for %s have a duplicate or gap at index %d", mesh, w.Index)
		}
	}
	return maps, nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("artifact: encoding %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("artifact: writing %s: %w", name, err)
	}
	return nil
}

func (s *Store) readJSON(name string, v any) error {
	return s.readJSONPath(filepath.Join(s.dir, name), v)
}

func (s *Store) readJSONPath(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissing, filepath.Base(path))
		}
		return fmt.Errorf("artifact: reading %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("artifact: decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}
