// Package resolver detects conflicts between a package about to be installed,
// together with the dependencies its build recorded, and the installed tree.
//
// Resolution is conflict detection only: exactly one version of a package can be
// installed, and the first incompatibility found is reported.
package resolver

import (
	"fmt"
	"strings"

	"github.com/glorpus-work/depot/pkg/model"
)

// Resolver checks candidates against one installed tree. It never mutates the tree,
// so concurrent FindConflicts calls are safe as long as the tree is not modified
// while they run.
type Resolver struct {
	installed model.Dependencies
}

// New creates a resolver over installed.
func New(installed model.Dependencies) *Resolver {
	return &Resolver{installed: installed}
}

// FindConflicts checks candidate and, recursively, every dependency recorded in its
// metadata against the installed tree. It returns "" when there is no conflict.
func (r *Resolver) FindConflicts(candidate *model.MetadataDescription) string {
	if candidate == nil {
		return ""
	}
	visited := make(map[string]struct{})
	return r.find(candidate.Name(), candidate, visited)
}

func (r *Resolver) find(name string, candidate *model.MetadataDescription, visited map[string]struct{}) string {
	if msg := conflictWithInstalled(name, candidate, r.installed); msg != "" {
		return msg
	}
	visited[name] = struct{}{}

	for _, depName := range candidate.Dependencies.Names() {
		if _, seen := visited[depName]; seen {
			continue
		}
		dep := candidate.Dependencies[depName]
		if dep == nil {
			continue
		}
		if msg := r.find(depName, dep, visited); msg != "" {
			return fmt.Sprintf("dependency `%s` %s", depName, msg)
		}
	}
	return ""
}

// ConflictWithInstalled compares candidate with the entry of the same name among the
// direct children of installed, and searches the dependency subtrees of the other
// children for it. The first mismatch found is returned; "" means no conflict.
func ConflictWithInstalled(candidate *model.MetadataDescription, installed model.Dependencies) string {
	if candidate == nil {
		return ""
	}
	return conflictWithInstalled(candidate.Name(), candidate, installed)
}

func conflictWithInstalled(name string, candidate *model.MetadataDescription, installed model.Dependencies) string {
	for _, childName := range installed.Names() {
		child := installed[childName]
		if child == nil {
			continue
		}
		if childName == name {
			if msg := compare(name, child, candidate); msg != "" {
				return msg
			}
			continue
		}
		if msg := conflictWithInstalled(name, candidate, child.Dependencies); msg != "" {
			return fmt.Sprintf("used by `%s` version `%s` build `%s`: %s",
				childName, child.PackageVersion(), child.BuildID, msg)
		}
	}
	return ""
}

// compare lists every differing field of two records of the same package.
func compare(name string, installed, requested *model.MetadataDescription) string {
	var diffs []string
	add := func(field, have, want string) {
		diffs = append(diffs, fmt.Sprintf("%s: installed `%s`, requested `%s`", field, have, want))
	}

	if have, want := installed.Archive.Basename(), requested.Archive.Basename(); have != want {
		add("archive", have, want)
	}
	if have, want := installed.Archive.Hash, requested.Archive.Hash; !strings.EqualFold(have, want) {
		add("hash", have, want)
	}
	if installed.Configuration != requested.Configuration {
		add("configuration", installed.Configuration, requested.Configuration)
	}
	if have, want := installed.PackageVersion(), requested.PackageVersion(); have != want {
		add("version", have, want)
	}
	if installed.BuildID != requested.BuildID {
		add("build_id", installed.BuildID, requested.BuildID)
	}

	if len(diffs) == 0 {
		return ""
	}
	return fmt.Sprintf("`%s` %s", name, strings.Join(diffs, "; "))
}
