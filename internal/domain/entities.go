package domain

import (
	"encoding/json"
	"fmt"
)

// Identity is the content-derived key of a project. It is computed once at
// discovery time and used for de-duplication for the project's whole lifetime.
type Identity string

// ProjectType is the build ecosystem a project belongs to.
type ProjectType string

const (
	ProjectCargo  ProjectType = "Cargo"
	ProjectNode   ProjectType = "Node"
	ProjectUnity  ProjectType = "Unity"
	ProjectStack  ProjectType = "Stack"
	ProjectSBT    ProjectType = "SBT"
	ProjectMaven  ProjectType = "Maven"
	ProjectUnreal ProjectType = "Unreal"
)

// ProjectTypes lists every known project type in display order.
var ProjectTypes = []ProjectType{
	ProjectCargo, ProjectNode, ProjectUnity, ProjectStack, ProjectSBT, ProjectMaven, ProjectUnreal,
}

// Valid reports whether t is one of the enumerated project types.
func (t ProjectType) Valid() bool {
	for _, known := range ProjectTypes {
		if t == known {
			return true
		}
	}
	return false
}

// UnmarshalJSON rejects unknown project types.
func (t *ProjectType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	pt := ProjectType(s)
	if !pt.Valid() {
		return fmt.Errorf("unknown project type %q", s)
	}
	*t = pt
	return nil
}

// ProjectDir is one top-level entry of a project directory.
type ProjectDir struct {
	FileName   string `json:"fileName"`
	Size       uint64 `json:"size"`
	IsArtifact bool   `json:"isArtifact"`
}

// ProjectSize is the size breakdown of a project.
type ProjectSize struct {
	ArtifactSize    uint64       `json:"artifactSize"`
	NonArtifactSize uint64       `json:"nonArtifactSize"`
	Dirs            []ProjectDir `json:"dirs"`
}

// Project is a discovered directory containing build artifacts.
type Project struct {
	Path         string      `json:"path"`
	ProjectType  ProjectType `json:"projectType"`
	Size         ProjectSize `json:"size"`
	Selected     bool        `json:"selected"`
	HasArtifacts bool        `json:"hasArtifacts"`
	Identity     Identity    `json:"identity"`
}

// ReclaimableSize returns the artifact size, or -1 when nothing is left to clean.
func (p Project) ReclaimableSize() int64 {
	if !p.HasArtifacts {
		return -1
	}
	return int64(p.Size.ArtifactSize)
}

// RawProject is a project as reported by a backend, before the client-side
// fields (selection, derived flags, identity) have been attached.
type RawProject struct {
	Path        string      `json:"path"`
	ProjectType ProjectType `json:"projectType"`
	Size        ProjectSize `json:"size"`
}

// NewProject attaches the derived fields to a backend project.
func NewProject(raw RawProject, id Identity) Project {
	return Project{
		Path:         raw.Path,
		ProjectType:  raw.ProjectType,
		Size:         raw.Size,
		Selected:     false,
		HasArtifacts: raw.Size.ArtifactSize != 0,
		Identity:     id,
	}
}

// Raw strips the client-side fields.
func (p Project) Raw() RawProject {
	return RawProject{Path: p.Path, ProjectType: p.ProjectType, Size: p.Size}
}

// DiscoverResult is the payload of a discovery call and of the
// add_items/fulfilled notification.
type DiscoverResult struct {
	Projects    []RawProject `json:"projects"`
	SearchPaths []string     `json:"searchPaths"`
}

// Batch is a set of identified projects ready to be merged.
type Batch struct {
	Projects    []Project `json:"projects"`
	SearchPaths []string  `json:"searchPaths"`
}
