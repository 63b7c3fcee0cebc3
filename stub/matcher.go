// Package stub implements the request-interception engine (components C9
// and C10): a rule set matched against outgoing requests, synthesizing
// responses without reaching the network.
package stub

import (
	"encoding/json"
	"net/url"
	"reflect"
	"regexp"

	"github.com/google/go-cmp/cmp"
)

// Request is the minimal view of an outgoing request the matcher set
// needs. The root wirehttp package adapts a WireRequest into this shape at
// the package boundary, keeping stub free of a dependency back on it.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// RegexField selects which part of a request a regex matcher inspects.
type RegexField int

const (
	FieldURLString RegexField = iota
	FieldBody
	FieldHeaderKey
	FieldHeaderValue
)

// Matcher is a single predicate a stub rule ANDs together with its peers
// (spec §4.4 "Matchers").
type Matcher interface {
	Match(req Request) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(req Request) bool

func (f MatcherFunc) Match(req Request) bool { return f(req) }

// URLMode selects how much of the URL an exact-URL matcher compares.
type URLMode int

const (
	URLExact URLMode = iota
	URLIgnoreQuery
	URLIgnorePath
)

type urlMatcher struct {
	expected string
	mode     URLMode
}

// NewURLMatcher builds a URL matcher. With URLIgnoreQuery the path and
// below is compared; with URLIgnorePath only scheme+host are compared.
func NewURLMatcher(expected string, mode URLMode) Matcher {
	return &urlMatcher{expected: expected, mode: mode}
}

func (m *urlMatcher) Match(req Request) bool {
	want, err1 := url.Parse(m.expected)
	got, err2 := url.Parse(req.URL)
	if err1 != nil || err2 != nil {
		return req.URL == m.expected
	}
	switch m.mode {
	case URLIgnoreQuery:
		return want.Scheme == got.Scheme && want.Host == got.Host && want.Path == got.Path
	case URLIgnorePath:
		return want.Scheme == got.Scheme && want.Host == got.Host
	default:
		return want.String() == got.String()
	}
}

// regexMatcher applies an NSRegularExpression-equivalent pattern to one of
// {url-string, body, header-key, header-value}. For the header fields it
// inspects only the first header entry returned during map iteration —
// an intentionally preserved limitation (spec §9 Open Questions).
type regexMatcher struct {
	re    *regexp.Regexp
	field RegexField
}

// NewRegexMatcher compiles pattern for matching against field.
func NewRegexMatcher(pattern string, field RegexField) (Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &regexMatcher{re: re, field: field}, nil
}

func (m *regexMatcher) Match(req Request) bool {
	switch m.field {
	case FieldURLString:
		return m.re.MatchString(req.URL)
	case FieldBody:
		return m.re.Match(req.Body)
	case FieldHeaderKey:
		for k := range req.Headers {
			return m.re.MatchString(k)
		}
		return false
	case FieldHeaderValue:
		for _, v := range req.Headers {
			return m.re.MatchString(v)
		}
		return false
	default:
		return false
	}
}

// jsonEqualityMatcher decodes the request body into a fresh value shaped
// like expected and compares structurally with cmp.Equal (spec §4.4 "JSON
// equality"); an undecodable body never matches.
type jsonEqualityMatcher struct {
	expected any
}

// NewJSONEqualityMatcher builds a matcher comparing the request body,
// decoded into the same shape as expected, against expected itself.
func NewJSONEqualityMatcher(expected any) Matcher {
	return &jsonEqualityMatcher{expected: expected}
}

func (m *jsonEqualityMatcher) Match(req Request) bool {
	target := reflect.New(reflect.TypeOf(m.expected)).Interface()
	if err := json.Unmarshal(req.Body, target); err != nil {
		return false
	}
	return cmp.Equal(reflect.ValueOf(target).Elem().Interface(), m.expected)
}

// bodyBytesMatcher requires byte-exact equality with an expected payload.
type bodyBytesMatcher struct {
	expected []byte
}

// NewBodyBytesMatcher builds a matcher requiring an exact byte match.
func NewBodyBytesMatcher(expected []byte) Matcher {
	return &bodyBytesMatcher{expected: expected}
}

func (m *bodyBytesMatcher) Match(req Request) bool {
	if len(req.Body) != len(m.expected) {
		return false
	}
	for i := range req.Body {
		if req.Body[i] != m.expected[i] {
			return false
		}
	}
	return true
}

// NewCustomMatcher adapts an arbitrary predicate over (request) to Matcher.
func NewCustomMatcher(fn func(req Request) bool) Matcher {
	return MatcherFunc(fn)
}
