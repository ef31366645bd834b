package xhs

import "regexp"

// noteIDPattern captures the identifier segment after the explore marker,
// e.g. https://www.xiaohongshu.com/explore/abc123?xsec_token=... -> abc123.
var noteIDPattern = regexp.MustCompile(`/explore/([A-Za-z0-9]+)`)

// ExtractNoteID derives the note identifier embedded in a note URL. It
// returns the empty string when the URL carries no explore segment; at most
// one identifier is ever derived.
func ExtractNoteID(rawURL string) string {
	m := noteIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}
