package stub

import (
	"net/http"
	"net/url"
	"strings"
)

// ParseSetCookie parses a single Set-Cookie header value into a Cookie,
// returning nil if it doesn't parse. StubResponse.Headers is a flat
// map[string]string, so only one Set-Cookie value per synthesized response
// is representable; a rule needing several should register them under a
// custom Responder that talks to cookie storage directly.
func ParseSetCookie(headerValue string) *http.Cookie {
	resp := http.Response{Header: http.Header{"Set-Cookie": {headerValue}}}
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return nil
	}
	return cookies[0]
}

// BuildCookieHeader renders jar's stored cookies for rawURL as a single
// Cookie header value, the form outgoing requests attach per spec §6
// ("outgoing requests add the standard Cookie header from storage").
func BuildCookieHeader(jar http.CookieJar, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	cookies := jar.Cookies(u)
	if len(cookies) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; "), nil
}
