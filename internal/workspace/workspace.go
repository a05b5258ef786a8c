// Package workspace inspects the local workspace: where its root is, which
// projects it holds, and which shared skills revision is installed.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// MarkerDir identifies a workspace root
	MarkerDir   = ".agent"
	projectsDir = "projects"
)

// DetectRoot returns the nearest ancestor of start holding MarkerDir, or
// start itself when there is none
func DetectRoot(start string) string {
	abs, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for dir := abs; ; {
		if fi, err := os.Stat(filepath.Join(dir, MarkerDir)); err == nil && fi.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs
		}
		dir = parent
	}
}

// ProjectsDir returns the directory projects live in under root
func ProjectsDir(root string) string {
	return filepath.Join(root, projectsDir)
}

// DetectProjects lists the non-hidden directories under root/projects,
// sorted by name. A missing projects directory holds no projects.
func DetectProjects(root string) ([]string, error) {
	entries, err := os.ReadDir(ProjectsDir(root))
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read projects dir: %w", err)
	}

	projects := []string{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		projects = append(projects, e.Name())
	}
	sort.Strings(projects)
	return projects, nil
}

// Info summarizes the local workspace
type Info struct {
	Root          string   `json:"root" yaml:"root"`
	Projects      []string `json:"projects" yaml:"projects"`
	SkillsVersion string   `json:"skills_version" yaml:"skills_version"`
	Machine       string   `json:"machine" yaml:"machine"`
	OS            string   `json:"os" yaml:"os"`
}

// Describe collects Info for root
func Describe(root string) (*Info, error) {
	projects, err := DetectProjects(root)
	if err != nil {
		return nil, err
	}
	m := CurrentMachine()
	return &Info{
		Root:          root,
		Projects:      projects,
		SkillsVersion: SkillsVersion(root),
		Machine:       m.Hostname,
		OS:            m.OS,
	}, nil
}
