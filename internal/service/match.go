package service

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/kondo/internal/domain"
)

// MatchProjects returns the projects whose path or type fuzzily contains
// every whitespace-separated term of query, in collection order. An empty
// query matches everything.
func MatchProjects(projects []domain.Project, query string) []domain.Project {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return projects
	}

	var out []domain.Project
	for _, p := range projects {
		if matchesAll(terms, p) {
			out = append(out, p)
		}
	}
	return out
}

func matchesAll(terms []string, p domain.Project) bool {
	for _, term := range terms {
		if !fuzzy.MatchNormalizedFold(term, p.Path) && !strings.EqualFold(term, string(p.ProjectType)) {
			return false
		}
	}
	return true
}

// IdentitiesOf returns the identities of projects in order
func IdentitiesOf(projects []domain.Project) []domain.Identity {
	ids := make([]domain.Identity, len(projects))
	for i, p := range projects {
		ids[i] = p.Identity
	}
	return ids
}
