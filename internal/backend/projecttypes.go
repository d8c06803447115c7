package backend

import (
	"io/fs"
	"path/filepath"

	"github.com/mmcdole/kondo/internal/domain"
)

// projectKind describes how a project type is recognised and which of its
// top-level directories are build artifacts.
type projectKind struct {
	Type      domain.ProjectType
	Markers   []string // glob patterns matched against entry names
	Artifacts []string
}

// projectKinds is checked in order; the first matching kind wins.
var projectKinds = []projectKind{
	{Type: domain.ProjectCargo, Markers: []string{"Cargo.toml"}, Artifacts: []string{"target", ".xwin-cache"}},
	{Type: domain.ProjectNode, Markers: []string{"package.json"}, Artifacts: []string{"node_modules", ".angular"}},
	{Type: domain.ProjectUnity, Markers: []string{"Assembly-CSharp.csproj"},
		Artifacts: []string{"Library", "Temp", "Obj", "Logs", "MemoryCaptures", "Build", "Builds"}},
	{Type: domain.ProjectStack, Markers: []string{"stack.yaml"}, Artifacts: []string{".stack-work"}},
	{Type: domain.ProjectSBT, Markers: []string{"build.sbt"}, Artifacts: []string{"target"}},
	{Type: domain.ProjectMaven, Markers: []string{"pom.xml"}, Artifacts: []string{"target"}},
	{Type: domain.ProjectUnreal, Markers: []string{"*.uproject"},
		Artifacts: []string{"Binaries", "Build", "Saved", "DerivedDataCache", "Intermediate"}},
}

// detect returns the kind of the directory whose entries are given.
func detect(entries []fs.DirEntry) (projectKind, bool) {
	for _, kind := range projectKinds {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			for _, m := range kind.Markers {
				if ok, _ := filepath.Match(m, e.Name()); ok {
					return kind, true
				}
			}
		}
	}
	return projectKind{}, false
}

func (k projectKind) isArtifact(name string) bool {
	for _, a := range k.Artifacts {
		if a == name {
			return true
		}
	}
	return false
}

func kindOf(t domain.ProjectType) (projectKind, bool) {
	for _, k := range projectKinds {
		if k.Type == t {
			return k, true
		}
	}
	return projectKind{}, false
}
