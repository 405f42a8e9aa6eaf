// Package usecases - assemble.go builds grounding context from retrieved matches.
package usecases

import (
	"strings"

	"github.com/edgarchat/edgarchat/internal/domain/entities"
)

// AssembleContext turns ranked matches into a grounding context and a source list.
// Pure function, never fails: worst case is an empty context and nil sources,
// which downstream treats as "no grounding available".
//
// The context is the non-empty match texts joined by a blank line, in retrieval
// rank order. Matches with empty text contribute nothing, their URL included.
// Sources are the surviving matches' non-empty source URLs, deduplicated by
// exact string equality with first occurrence winning. Sources is nil (not an
// empty slice) when no URLs survive, so the response can omit the key entirely.
func AssembleContext(matches []entities.RetrievedMatch) (string, []string) {
	texts := make([]string, 0, len(matches))
	var sources []string
	seen := make(map[string]struct{}, len(matches))

	for _, m := range matches {
		if m.Text == "" {
			continue
		}
		texts = append(texts, m.Text)
		if m.SourceURL == "" {
			continue
		}
		if _, ok := seen[m.SourceURL]; ok {
			continue
		}
		seen[m.SourceURL] = struct{}{}
		sources = append(sources, m.SourceURL)
	}

	return strings.Join(texts, "\n\n"), sources
}
