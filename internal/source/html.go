package source

import (
	"regexp"
	"strings"
)

var (
	tagRe   = regexp.MustCompile(`<[^>]+>`)
	spaceRe = regexp.MustCompile(`\s+`)
	hrefRe  = regexp.MustCompile(`(?i)href="([^"]+)"`)
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

// htmlText strips tags, decodes common entities, and collapses
// whitespace in an HTML fragment.
func htmlText(fragment string) string {
	s := tagRe.ReplaceAllString(fragment, " ")
	s = entityReplacer.Replace(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// firstGroup returns the first capture group of re in s, or "".
func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) > 1 {
		return m[1]
	}
	return ""
}
