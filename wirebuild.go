package wirehttp

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// defaultAcceptLanguageRanks lists languages offered a descending quality
// weight in the default Accept-Language header, per RFC 7231 §5.3.5's
// q=1..0.1 ranking scheme (spec §4.1 step 3). Entries past the tenth are
// clamped to the minimum weight.
var defaultAcceptLanguageRanks = []string{"en-US", "en"}

// buildDefaultAcceptLanguage renders an Accept-Language header value with
// descending q-values: the first language is implicitly q=1 (omitted), each
// subsequent one steps down by 0.1, clamped to a minimum of 0.1.
func buildDefaultAcceptLanguage(langs []string) string {
	if len(langs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(langs))
	parts = append(parts, langs[0])
	for i := 1; i < len(langs); i++ {
		q := 1.0 - 0.1*float64(i)
		if q < 0.1 {
			q = 0.1
		}
		parts = append(parts, fmt.Sprintf("%s;q=%.1f", langs[i], q))
	}
	return strings.Join(parts, ", ")
}

const defaultUserAgent = "wirehttp/1.0"

// buildDefaultHeaders returns the library's baseline headers, applied
// before client defaults and request/body headers are merged on top (spec
// §4.1 step 3: "header merge order client-defaults -> body-headers ->
// request-headers").
func buildDefaultHeaders() *HeaderSet {
	h := NewHeaderSet()
	h.Set("Accept-Encoding", "gzip, deflate")
	h.Set("Accept-Language", buildDefaultAcceptLanguage(defaultAcceptLanguageRanks))
	h.Set("User-Agent", defaultUserAgent)
	return h
}

// joinURL concatenates base and route the way a browser resolves a
// relative reference against a document URL: an absolute route is used
// verbatim, otherwise route is resolved against base. The result is
// required to be an absolute, parseable URL (spec §4.1 step 1); any other
// outcome, including a relative route with no usable base, is an error.
func joinURL(base, route string) (string, error) {
	var joined string
	switch {
	case route == "":
		joined = base
	default:
		if u, err := url.Parse(route); err == nil && u.IsAbs() {
			joined = route
			break
		}
		if base == "" {
			joined = route
			break
		}
		baseURL, err := url.Parse(base)
		if err != nil {
			return "", err
		}
		refURL, err := url.Parse(route)
		if err != nil {
			return "", err
		}
		joined = baseURL.ResolveReference(refURL).String()
	}

	u, err := url.Parse(joined)
	if err != nil {
		return "", fmt.Errorf("%q is not a parseable URL: %w", joined, err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("%q is not an absolute URL", joined)
	}
	return joined, nil
}

// appendQueryParams adds params (sorted lexicographically by key, matching
// the form encoder's determinism) onto rawURL's query string, percent
// encoding with the same RFC 3986 §3.4 rules body.go's form encoder uses.
func appendQueryParams(rawURL string, params map[string]Value, order []string, boolStyle BoolStyle, arrayStyle ArrayStyle) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	encoded := encodeForm(params, order, boolStyle, arrayStyle)
	if encoded == "" {
		return rawURL, nil
	}
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + encoded, nil
	}
	return rawURL + "?" + encoded, nil
}

// resolveParamDestination decides whether a request's Params land on the
// query string or in the body, honoring ParamAuto's method-based default
// (spec §4.1 step 5: query string for GET/HEAD/DELETE, body otherwise).
func resolveParamDestination(method string, dest ParamDestination) ParamDestination {
	if dest != ParamAuto {
		return dest
	}
	switch strings.ToUpper(method) {
	case "GET", "HEAD", "DELETE":
		return ParamQueryString
	default:
		return ParamHTTPBody
	}
}

// BuildWireRequest materializes req against client into a WireRequest:
// resolves the absolute URL, merges headers in the spec's fixed order,
// resolves parameter destination, serializes the body, and finally invokes
// the request's URLRequestModifier, if any (spec §4.1 "Request Execution
// Pipeline", steps 1-4).
func BuildWireRequest(c *Client, req *Request) (*WireRequest, error) {
	absoluteURL, err := joinURL(c.cfg.baseURL, req.Route)
	if err != nil {
		return nil, newRequestError("build", req.Route, 0, KindInvalidURL, err)
	}

	dest := resolveParamDestination(req.Method, req.ParamDestination)

	body := req.Body
	if dest == ParamHTTPBody && len(req.Params) > 0 {
		body = FormBody(req.Params, req.ParamOrder, req.BoolStyle, req.ArrayStyle)
	}
	if dest == ParamQueryString && len(req.Params) > 0 {
		absoluteURL, err = appendQueryParams(absoluteURL, req.Params, sortedCopy(req.ParamOrder), req.BoolStyle, req.ArrayStyle)
		if err != nil {
			return nil, newRequestError("build", req.Route, 0, KindInvalidURL, err)
		}
	}

	ser, err := body.Serialize()
	if err != nil {
		return nil, err
	}

	headers := buildDefaultHeaders()
	headers.Merge(c.cfg.defaultHeaders)
	headers.Merge(ser.headers)
	headers.Merge(req.Headers)

	wire := &WireRequest{
		Method:  req.Method,
		URL:     absoluteURL,
		Headers: headers,
		Body:    ser,
	}

	if req.Modifier != nil {
		if err := req.Modifier(wire); err != nil {
			return nil, newRequestError("build", absoluteURL, 0, KindInvalidParameter, err)
		}
	}

	return wire, nil
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
