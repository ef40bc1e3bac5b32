// Package matcher assigns torrent titles to catalog shows by substring
// matching of normalized names. The policy is heuristic on purpose: a missed
// match costs an unmatched row that an alias fixes later, a wrong match
// pollutes the relation table.
package matcher

import (
	"log/slog"
	"strings"

	"tosho/internal/logging"
	"tosho/internal/store"
	"tosho/internal/textnorm"
)

// Snapshot is an immutable, normalized view of the catalog names. Build one
// per classification pass; it is cheap relative to the pass itself and safe
// for concurrent readers.
type Snapshot struct {
	entries []entry
}

type entry struct {
	name    string
	showID  int64
	curated bool
}

// BuildSnapshot normalizes every show name. Shows whose names all normalize
// to nothing can never match and are logged as catalog inconsistencies.
func BuildSnapshot(shows []store.ShowWithNames, logger *slog.Logger) *Snapshot {
	if logger == nil {
		logger = logging.NewNop()
	}
	snapshot := &Snapshot{}
	for _, show := range shows {
		usable := 0
		for _, name := range show.Names {
			normalized := textnorm.Normalize(name.Name)
			if normalized == "" {
				continue
			}
			usable++
			snapshot.entries = append(snapshot.entries, entry{
				name:    normalized,
				showID:  show.Show.ID,
				curated: name.Kind == store.NameAdditional,
			})
		}
		if usable == 0 {
			logger.Warn("show has no usable names",
				logging.Int64(logging.FieldShowID, show.Show.ID))
		}
	}
	return snapshot
}

// Len returns the number of usable names in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Classify matches a torrent title against the snapshot. The second return
// value is false when no show matches or the match is ambiguous.
//
// Disambiguation between multiple candidate shows: a curated alias match
// beats catalog name matches, then the longest matching name wins, and a
// remaining tie between different shows stays unmatched rather than guessing.
func (s *Snapshot) Classify(title string) (int64, bool) {
	normalized := textnorm.Normalize(title)
	if normalized == "" {
		return 0, false
	}

	var best entry
	bestLen := -1
	ambiguous := false
	for _, e := range s.entries {
		if !strings.Contains(normalized, e.name) {
			continue
		}
		switch {
		case bestLen < 0:
		case e.curated != best.curated:
			if !e.curated {
				continue
			}
		case len(e.name) < bestLen:
			continue
		case len(e.name) == bestLen:
			if e.showID != best.showID {
				ambiguous = true
			}
			continue
		}
		best = e
		bestLen = len(e.name)
		ambiguous = false
	}

	if bestLen < 0 || ambiguous {
		return 0, false
	}
	return best.showID, true
}
