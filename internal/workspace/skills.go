package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Sentinel skills versions
const (
	SkillsNotInstalled = "not-installed"
	SkillsUnknown      = "unknown"
)

// SkillsDir returns where shared skills are installed under root
func SkillsDir(root string) string {
	return filepath.Join(root, MarkerDir, "skills")
}

// SkillsVersion returns the short HEAD hash of the installed skills
// repository, SkillsNotInstalled when absent, or SkillsUnknown when it
// cannot be read.
func SkillsVersion(root string) string {
	dir := SkillsDir(root)
	if _, err := os.Stat(dir); err != nil {
		return SkillsNotInstalled
	}
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return SkillsUnknown
	}
	head, err := repo.Head()
	if err != nil {
		return SkillsUnknown
	}
	return head.Hash().String()[:7]
}

// RepoURL expands an "owner/name" skills repository to its GitHub clone URL
func RepoURL(repo string) string {
	if strings.Contains(repo, "://") || strings.Contains(repo, "@") {
		return repo
	}
	return "https://github.com/" + strings.TrimSuffix(repo, ".git") + ".git"
}

// SyncResult tells what SyncSkills did
type SyncResult string

const (
	SkillsInstalled SyncResult = "installed"
	SkillsUpdated   SyncResult = "updated"
	SkillsUpToDate  SyncResult = "up-to-date"
)

// SyncSkills pulls target when it is a git repository and clones repoURL
// into it otherwise. token, when set, authenticates HTTPS remotes.
func SyncSkills(ctx context.Context, target, repoURL, token string, progress io.Writer) (SyncResult, error) {
	var auth transport.AuthMethod
	if token != "" && strings.HasPrefix(repoURL, "https://") {
		auth = &http.BasicAuth{Username: "x-access-token", Password: token}
	}

	if _, err := os.Stat(filepath.Join(target, ".git")); err == nil {
		repo, err := git.PlainOpen(target)
		if err != nil {
			return "", fmt.Errorf("open skills repo: %w", err)
		}
		wt, err := repo.Worktree()
		if err != nil {
			return "", fmt.Errorf("open skills worktree: %w", err)
		}
		err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin", Auth: auth, Progress: progress})
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			return SkillsUpToDate, nil
		}
		if err != nil {
			return "", fmt.Errorf("pull skills: %w", err)
		}
		return SkillsUpdated, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create skills parent: %w", err)
	}
	_, err := git.PlainCloneContext(ctx, target, false, &git.CloneOptions{URL: repoURL, Auth: auth, Progress: progress})
	if err != nil {
		_ = os.RemoveAll(target)
		return "", fmt.Errorf("clone skills: %w", err)
	}
	return SkillsInstalled, nil
}

// InstallSkillsFrom copies the skills tree at src into target. An existing
// target is moved aside to target.backup.<timestamp> first, and that path is
// returned. The source's .git directory is not copied.
func InstallSkillsFrom(src, target string, now time.Time) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("skills source: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("skills source %s is not a directory", src)
	}

	var backup string
	if _, err := os.Stat(target); err == nil {
		backup = target + ".backup." + now.Format("20060102_150405")
		if err := os.Rename(target, backup); err != nil {
			return "", fmt.Errorf("back up skills: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := copyTree(src, target); err != nil {
		_ = os.RemoveAll(target)
		if backup != "" {
			_ = os.Rename(backup, target)
		}
		return "", fmt.Errorf("copy skills: %w", err)
	}
	return backup, nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		out := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(out, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, out, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Skill is one installed skill, described by its SKILL.md frontmatter
type Skill struct {
	Dir         string `json:"dir" yaml:"dir"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// ListSkills reads SKILL.md in every subdirectory of dir. A skill without
// a frontmatter name is listed under its directory name.
func ListSkills(dir string) ([]Skill, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read skills dir: %w", err)
	}

	var skills []Skill
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		skill, err := readSkill(filepath.Join(dir, e.Name()))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		skills = append(skills, skill)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills, nil
}

func readSkill(dir string) (Skill, error) {
	f, err := os.Open(filepath.Join(dir, "SKILL.md"))
	if err != nil {
		return Skill{}, err
	}
	defer f.Close()

	var meta struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	}
	if _, err := frontmatter.Parse(f, &meta); err != nil {
		return Skill{}, fmt.Errorf("parse %s/SKILL.md: %w", filepath.Base(dir), err)
	}
	s := Skill{Dir: filepath.Base(dir), Name: meta.Name, Description: strings.TrimSpace(meta.Description)}
	if s.Name == "" {
		s.Name = s.Dir
	}
	return s, nil
}
