// Package retrieval reassembles retrieved chunks into source passages.
package retrieval

import (
	"strings"
	"unicode/utf8"
)

// FindOverlap returns the longest suffix of prefixSource that is also a prefix
// of suffixCandidate, or "" when there is none. Matches never split a UTF-8
// sequence of suffixCandidate.
func FindOverlap(prefixSource, suffixCandidate string) string {
	return suffixCandidate[:overlapLen(prefixSource, suffixCandidate)]
}

// overlapLen is the byte length of FindOverlap's result. Lengths are tried
// longest first so the first hit is the maximal overlap.
func overlapLen(a, b string) int {
	for k := min(len(a), len(b)); k > 0; k-- {
		if k < len(b) && !utf8.RuneStart(b[k]) {
			continue
		}
		if strings.HasSuffix(a, b[:k]) {
			return k
		}
	}
	return 0
}
