package combiner

import (
	"slices"

	"github.com/stacklok/toolhive-transform-registry/internal/transform"
)

// SortEntries orders entries so that every transformer named by a pipeline step or a
// failover list comes before the entries referencing it, where that is possible.
//
// Entries are placed in passes over the ones still waiting. An entry is placed once all
// of its references are placed; names placed earlier in the same pass count. Sorting stops
// when a pass places nothing. Entries left over, because they reference a transformer that
// is never defined or take part in a cycle, are appended in their input order and their
// number is returned as unresolved.
//
// The result is a permutation of entries; entries itself is not modified.
func SortEntries(entries []transform.Entry) (sorted []transform.Entry, unresolved int) {
	sorted = make([]transform.Entry, 0, len(entries))
	remaining := slices.Clone(entries)
	placed := make(map[string]struct{}, len(entries))

	for len(remaining) > 0 {
		deferred := remaining[:0]
		for _, entry := range remaining {
			if !referencesPlaced(&entry.Transformer, placed) {
				deferred = append(deferred, entry)
				continue
			}
			sorted = append(sorted, entry)
			if !entry.Transformer.IsAnonymous() {
				placed[entry.Transformer.TransformerName] = struct{}{}
			}
		}

		if len(deferred) == len(remaining) {
			break
		}
		remaining = deferred
	}

	return append(sorted, remaining...), len(remaining)
}

func referencesPlaced(t *transform.Transformer, placed map[string]struct{}) bool {
	for _, name := range t.References() {
		if _, ok := placed[name]; !ok {
			return false
		}
	}
	return true
}
