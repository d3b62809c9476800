package advice

import (
	"regexp"
	"strings"
)

var (
	zeroWidth = regexp.MustCompile(`[\x{200b}\x{200c}\x{200d}\x{feff}]+`)
	cjkSep    = regexp.MustCompile(`([\x{4e00}-\x{9fff}])[\x{200b}\s,，;；、·]+([\x{4e00}-\x{9fff}])`)
	blanks    = regexp.MustCompile(`[ \t]{2,}`)
	newlines  = regexp.MustCompile(`\n{3,}`)
)

// CleanText strips zero-width characters, removes separators wedged between
// CJK ideographs and squeezes runs of blanks.
func CleanText(s string) string {
	if s == "" {
		return s
	}
	s = zeroWidth.ReplaceAllString(s, "")
	// Matches consume the trailing ideograph, so chains need several passes.
	for {
		next := cjkSep.ReplaceAllString(s, "$1$2")
		if next == s {
			break
		}
		s = next
	}
	s = blanks.ReplaceAllString(s, " ")
	s = newlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
