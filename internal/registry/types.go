package registry

import "path/filepath"

// Machine describes the host a workspace was registered from
type Machine struct {
	Hostname     string `json:"hostname" yaml:"hostname"`
	OS           string `json:"os" yaml:"os"`
	OSVersion    string `json:"os_version" yaml:"os_version"`
	Architecture string `json:"architecture" yaml:"architecture"`
}

// Workspace is one entry of the workspace registry
type Workspace struct {
	Name          string   `json:"name" yaml:"name"`
	Location      string   `json:"location" yaml:"location"`
	Description   string   `json:"description" yaml:"description"`
	RegisteredAt  string   `json:"registered_at" yaml:"registered_at"` // RFC 3339
	Machine       Machine  `json:"machine" yaml:"machine"`
	Projects      []string `json:"projects" yaml:"projects"`
	SkillsVersion string   `json:"skills_version" yaml:"skills_version"`
}

// WorkspaceRef tells where a project lives
type WorkspaceRef struct {
	WorkspaceName     string `json:"workspace_name"`
	WorkspaceLocation string `json:"workspace_location"`
	ProjectName       string `json:"project_name"`
	ProjectPath       string `json:"project_path"`
}

func refFor(ws Workspace, project string) *WorkspaceRef {
	return &WorkspaceRef{
		WorkspaceName:     ws.Name,
		WorkspaceLocation: ws.Location,
		ProjectName:       project,
		ProjectPath:       filepath.Join(ws.Location, "projects", project),
	}
}
