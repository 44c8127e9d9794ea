package issue

import "golang.org/x/text/unicode/norm"

// CanonicalDedupID normalizes an externally supplied deduplication
// identifier to NFC before it is used for grouping.
//
// Sources are independent reporters; two of them can emit the same logical
// identifier in different Unicode normalization forms. Grouping on the raw
// bytes would silently break deduplication, so all comparisons go through
// this normalization.
func CanonicalDedupID(id string) string {
	if id == "" {
		return ""
	}
	return norm.NFC.String(id)
}
