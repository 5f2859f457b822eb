package storage

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var nameFolder = cases.Fold()

// FoldName canonicalises a subject name for lookup so "DJ_Nova", "dj_nova",
// and width/compatibility variants all key the same record. Stored display
// names keep their original form; only the lookup key is folded.
func FoldName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	return nameFolder.String(norm.NFKC.String(trimmed))
}
