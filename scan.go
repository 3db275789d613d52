package repoindex

import (
	"io"
	"strings"

	"github.com/meigma/repoindex/internal/cachefile"
	"github.com/meigma/repoindex/internal/tarblock"
)

// scanArchive drives one full pass over the archive, classifying every
// entry and accumulating ordered cache records with their block offsets.
//
// All-or-nothing: the first stream error aborts the pass, because a
// half-read archive cannot be trusted. Package metadata payloads are never
// read during the scan; only preference files are small enough to read
// eagerly.
func scanArchive(src tarblock.ByteSource, extractPrefs bool) ([]cachefile.Entry, error) {
	var entries []cachefile.Entry
	r := tarblock.NewReader(src)
	for {
		e, err := r.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}

		it, ok := classifyEntry(e, extractPrefs)
		if !ok {
			continue
		}
		switch it.kind {
		case intentPackage:
			entries = append(entries, cachefile.Package{
				Name:        it.id.Name,
				Version:     it.id.Version.String(),
				BlockOffset: e.BlockOffset,
			})
		case intentBuildTreeRef:
			entries = append(entries, cachefile.BuildTreeRef{BlockOffset: e.BlockOffset})
		case intentPreference:
			prefs, err := preferenceRecords(e)
			if err != nil {
				return nil, err
			}
			entries = append(entries, prefs...)
		}
	}
}

// preferenceRecords reads one preference file and turns each parseable
// constraint line into a preference record. Unparseable lines are skipped.
func preferenceRecords(e *tarblock.Entry) ([]cachefile.Entry, error) {
	content, err := e.Content()
	if err != nil {
		return nil, err
	}
	var out []cachefile.Entry
	for line := range strings.Lines(string(content)) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if _, err := ParseConstraint(line); err != nil {
			continue
		}
		out = append(out, cachefile.Preference{Constraint: line})
	}
	return out, nil
}
