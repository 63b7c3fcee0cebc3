package wirehttp

import (
	"errors"
	"net"
	"strings"
	"time"
)

// OutcomeKind tags the reaction a Validator assigns to a completed attempt
// (spec §4.3 "Validator Chain").
type OutcomeKind int

const (
	OutcomePass OutcomeKind = iota
	OutcomeFail
	OutcomeRetryIfPossible
	OutcomeRetryAfter
	OutcomeRetryWithAlt
)

// Outcome is the sum type a Validator returns. Only the fields relevant to
// Kind are meaningful.
type Outcome struct {
	Kind       OutcomeKind
	Err        error          // OutcomeFail
	After      time.Duration  // OutcomeRetryAfter
	Alt        *Request       // OutcomeRetryWithAlt
}

func Pass() Outcome                         { return Outcome{Kind: OutcomePass} }
func Fail(err error) Outcome                { return Outcome{Kind: OutcomeFail, Err: err} }
func RetryIfPossible() Outcome              { return Outcome{Kind: OutcomeRetryIfPossible} }
func RetryAfter(d time.Duration) Outcome    { return Outcome{Kind: OutcomeRetryAfter, After: d} }
func RetryWithAlt(alt *Request) Outcome     { return Outcome{Kind: OutcomeRetryWithAlt, Alt: alt} }

// Validator inspects a completed attempt (the request as sent and the
// response as received, including transport-level errors surfaced via
// resp.Error) and decides how the pipeline should react. Validators run in
// chain order; the first non-pass outcome wins (spec §4.3).
type Validator interface {
	Validate(req *WireRequest, resp *Response) Outcome
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(req *WireRequest, resp *Response) Outcome

func (f ValidatorFunc) Validate(req *WireRequest, resp *Response) Outcome { return f(req, resp) }

// RunValidators evaluates chain in order, returning the first outcome whose
// Kind is not OutcomePass, or Pass() if every validator passes.
func RunValidators(chain []Validator, req *WireRequest, resp *Response) Outcome {
	for _, v := range chain {
		if v == nil {
			continue
		}
		out := v.Validate(req, resp)
		if out.Kind != OutcomePass {
			return out
		}
	}
	return Pass()
}

// isTransientNetError reports whether err is one of the classes of
// transport failure that the default validator treats as retry-if-possible rather than terminal
// failures (spec §4.3: "timed-out/cannot-find-host/cannot-connect/
// connection-lost/dns-failure -> retry-if-possible").
func isTransientNetError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	msg := err.Error()
	for _, needle := range []string{
		"connection reset", "connection refused", "broken pipe",
		"no such host", "connection lost", "EOF",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// defaultValidator is the validator built by NewDefaultValidator;
// allowEmptyResponse controls whether a 2xx response with a zero-length
// body is acceptable.
type defaultValidator struct {
	allowEmptyResponse bool
}

// NewDefaultValidator builds the baseline validator described in spec
// §4.3: transient network failures are retry-if-possible; an empty 2xx
// body fails with EmptyResponse unless allowEmptyResponse is set.
func NewDefaultValidator(allowEmptyResponse bool) Validator {
	return &defaultValidator{allowEmptyResponse: allowEmptyResponse}
}

func (d *defaultValidator) Validate(req *WireRequest, resp *Response) Outcome {
	if resp.Error != nil {
		if isTransientNetError(resp.Error) {
			return RetryIfPossible()
		}
		return Fail(resp.Error)
	}
	if !d.allowEmptyResponse && resp.StatusCode >= 200 && resp.StatusCode < 300 && len(resp.Data) == 0 && resp.Location == BodyInMemory {
		return Fail(newRequestError("validate", req.URL, resp.StatusCode, KindEmptyResponse, ErrEmptyResponse))
	}
	return Pass()
}

// AltRequestProvider builds a replacement request in reaction to a
// challenge status code (e.g. re-authentication on 401/403).
type AltRequestProvider func(req *WireRequest, resp *Response) (*Request, error)

// alternateRequestValidator implements the "retry-with-alt" reaction: on a
// trigger status code it asks provider for a substitute request, capping
// how many times it will do so (spec §4.3). The count lives on the
// validator instance, so the cap is shared by every request whose chain
// includes the same validator.
type alternateRequestValidator struct {
	triggerCodes map[int]bool
	provider     AltRequestProvider
	maxAlts      int
	used         int
}

// NewAlternateRequestValidator builds a validator that reacts to
// triggerCodes (defaulting to {401, 403} when empty) by asking provider for
// a substitute request, at most maxAlts times.
func NewAlternateRequestValidator(triggerCodes []int, provider AltRequestProvider, maxAlts int) Validator {
	if len(triggerCodes) == 0 {
		triggerCodes = []int{401, 403}
	}
	set := make(map[int]bool, len(triggerCodes))
	for _, c := range triggerCodes {
		set[c] = true
	}
	if maxAlts <= 0 {
		maxAlts = 1
	}
	return &alternateRequestValidator{triggerCodes: set, provider: provider, maxAlts: maxAlts}
}

func (a *alternateRequestValidator) Validate(req *WireRequest, resp *Response) Outcome {
	if resp.Error != nil || !a.triggerCodes[resp.StatusCode] {
		return Pass()
	}
	if a.used >= a.maxAlts {
		return Fail(newRequestError("validate", req.URL, resp.StatusCode, KindMaxRetryAttemptsReached, ErrMaxRetryAttemptsReached))
	}
	alt, err := a.provider(req, resp)
	if err != nil || alt == nil {
		return Pass()
	}
	a.used++
	return RetryWithAlt(alt)
}
