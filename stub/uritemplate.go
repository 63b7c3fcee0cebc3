package stub

import (
	"net/url"
	"regexp"
	"strings"
)

// uriTemplateMatcher implements a minimal RFC 6570 level-1 subset: each
// {name} placeholder matches one segment's worth of non-'/' characters. No
// example repo in the reference pack carries a URI-template dependency
// (see SPEC_FULL.md §3), so this is hand-rolled on stdlib regexp rather than
// pulled in from the ecosystem.
type uriTemplateMatcher struct {
	re *regexp.Regexp
}

// NewURITemplateMatcher compiles tpl into a matcher. Match succeeds
// against either the full URL or the path component alone (spec §4.4:
// "match succeeds iff either the absolute URL or the path alone is
// extractable").
func NewURITemplateMatcher(tpl string) (Matcher, error) {
	re, err := regexp.Compile("^" + templateToPattern(tpl) + "$")
	if err != nil {
		return nil, err
	}
	return &uriTemplateMatcher{re: re}, nil
}

func templateToPattern(tpl string) string {
	var b strings.Builder
	i := 0
	for i < len(tpl) {
		if tpl[i] == '{' {
			if end := strings.IndexByte(tpl[i:], '}'); end != -1 {
				b.WriteString(`[^/]+`)
				i += end + 1
				continue
			}
		}
		b.WriteString(regexp.QuoteMeta(string(tpl[i])))
		i++
	}
	return b.String()
}

func (m *uriTemplateMatcher) Match(req Request) bool {
	if m.re.MatchString(req.URL) {
		return true
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return false
	}
	return m.re.MatchString(u.Path)
}
