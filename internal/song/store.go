package song

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const stampLayout = "2006-01-02_15-04-05"

// SaveInfo describes one timestamped save.
type SaveInfo struct {
	Path      string
	Name      string
	Timestamp time.Time
}

// Store keeps timestamped saves of projects under Dir/<project>/.
type Store struct {
	Dir string
	Now func() time.Time
}

// DefaultDir is ~/.config/groovebox/projects.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "groovebox", "projects"), nil
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Projects lists project folder names, sorted.
func (s *Store) Projects() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Save writes d as <timestamp>[_name].json in the project folder.
func (s *Store) Save(project, name string, d Document) (string, error) {
	if project == "" {
		project = "untitled"
	}
	file := s.now().Format(stampLayout)
	if name != "" {
		file += "_" + name
	}
	path := filepath.Join(s.Dir, project, file+".json")
	if err := Save(path, d); err != nil {
		return "", err
	}
	return path, nil
}

// Saves lists a project's saves, newest first.
func (s *Store) Saves(project string) ([]SaveInfo, error) {
	dir := filepath.Join(s.Dir, project)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []SaveInfo{}, nil
	}
	if err != nil {
		return nil, err
	}
	var saves []SaveInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ".json")
		if len(base) < len(stampLayout) {
			continue
		}
		ts, err := time.Parse(stampLayout, base[:len(stampLayout)])
		if err != nil {
			continue
		}
		info := SaveInfo{Path: filepath.Join(dir, e.Name()), Timestamp: ts}
		if rest := base[len(stampLayout):]; strings.HasPrefix(rest, "_") {
			info.Name = rest[1:]
		}
		saves = append(saves, info)
	}
	sort.Slice(saves, func(i, j int) bool {
		return saves[i].Timestamp.After(saves[j].Timestamp)
	})
	return saves, nil
}

// Latest loads the newest save of a project.
func (s *Store) Latest(project string) (Document, error) {
	saves, err := s.Saves(project)
	if err != nil {
		return Document{}, err
	}
	if len(saves) == 0 {
		return Document{}, os.ErrNotExist
	}
	return Load(saves[0].Path)
}
