package spec

import (
	"mime"
	"strings"

	"golang.org/x/text/cases"
)

// MediaTypeKey folds a Content-Type value into the key used by Content:
// parameters dropped, whitespace trimmed, case folded.
func MediaTypeKey(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	// Casers are not safe for concurrent use.
	return cases.Fold().String(strings.TrimSpace(mt))
}
