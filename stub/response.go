package stub

import (
	"time"

	"github.com/lucasjones/reggen"
)

// StubResponse is the synthesized answer to a matched request (spec §4.4
// "Stub response"). When Err is set, the pipeline completes with that
// error instead of a status/body pair.
type StubResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Err        error
	Delay      time.Duration
}

// Responder builds a StubResponse for a matched request, the `adapt`
// hook from spec §3 that lets a rule specialize its answer per request.
type Responder interface {
	Respond(req Request) StubResponse
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(req Request) StubResponse

func (f ResponderFunc) Respond(req Request) StubResponse { return f(req) }

// Static returns a Responder that always answers the same response
// regardless of the matched request.
func Static(resp StubResponse) Responder {
	return ResponderFunc(func(Request) StubResponse { return resp })
}

// EchoRegex builds a Responder whose body is synthesized by reggen to
// conform to pattern — useful for rules that need to hand back a
// plausible generated value (a resource id, a token) without hard-coding
// one. maxRepeat bounds how long an unbounded repetition (`+`, `*`, `{n,}`)
// in the pattern may generate.
func EchoRegex(statusCode int, headers map[string]string, pattern string, maxRepeat int) (Responder, error) {
	if maxRepeat <= 0 {
		maxRepeat = 10
	}
	if _, err := reggen.Generate(pattern, maxRepeat); err != nil {
		return nil, err
	}
	return ResponderFunc(func(Request) StubResponse {
		body, err := reggen.Generate(pattern, maxRepeat)
		if err != nil {
			body = ""
		}
		return StubResponse{
			StatusCode: statusCode,
			Headers:    headers,
			Body:       []byte(body),
		}
	}), nil
}
