package wirehttp

import (
	"sync"
	"time"
)

// ParamDestination controls where query/form parameters are placed on the
// wire (spec §4.1 step 5).
type ParamDestination int

const (
	// ParamAuto sends query-string parameters for GET/HEAD/DELETE and body
	// parameters otherwise.
	ParamAuto ParamDestination = iota
	ParamQueryString
	ParamHTTPBody
)

// CachePolicy mirrors the handful of caching intents the pipeline needs to
// resolve per-request vs per-client (spec §4.1 step 2, §6).
type CachePolicy int

const (
	CacheUseProtocolPolicy CachePolicy = iota
	CacheReloadIgnoringCache
	CacheReturnCacheElseLoad
	CacheNotAllowed
)

// URLRequestModifier is an opaque transform applied to the materialized
// wire request just before dispatch (spec §4.1 step 4).
type URLRequestModifier func(*WireRequest) error

// Request is the immutable-once-built description of a logical request.
// It is mutable while CurrentRetry == 0 and before submission; a retry
// resets response-bound state and reuses or increments the retry counter
// (spec §3 "Request" lifecycle).
type Request struct {
	Method string
	// Route is resolved against the client's base URL as a relative
	// reference (joinURL): a route starting with '/' replaces any path on
	// the base URL instead of being appended to it.
	Route string
	Body  Body

	Modifier URLRequestModifier
	// CachePolicy is stored on the request only; no stage of the pipeline
	// reads it, and no cache policy is applied to the wire request.
	CachePolicy *CachePolicy
	// Timeout is stored on the request only; the transport applies the
	// client's timeout to every attempt and does not read this field.
	Timeout *time.Duration

	Headers *HeaderSet

	MaxRetries   int
	currentRetry int

	ParamDestination ParamDestination
	Params           map[string]Value
	ParamOrder       []string
	BoolStyle        BoolStyle
	ArrayStyle       ArrayStyle

	// Security is stored on the request only; TLS trust comes from the
	// client's http.Client, which is configured once from the client's
	// policy, so this field does not change how any connection is verified.
	Security SecurityPolicy

	// ValidatorsOverride, if non-nil, replaces the client's validator chain
	// for this request only.
	ValidatorsOverride []Validator

	// ResumeDataURL is stored on the request only; BuildWireRequest does not
	// read it, so it adds no resume offset to the wire request.
	ResumeDataURL string

	observers *observerSet
	mu        sync.Mutex
}

// NewRequest builds a Request for method+route with no body.
func NewRequest(method, route string) *Request {
	return &Request{
		Method:     method,
		Route:      route,
		Body:       EmptyBody(),
		Headers:    NewHeaderSet(),
		MaxRetries: 0,
		observers:  newObserverSet(),
	}
}

// WithBody sets the request body.
func (r *Request) WithBody(b Body) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Body = b
	return r
}

// WithHeader sets a single header.
func (r *Request) WithHeader(name, value string) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Headers.Set(name, value)
	return r
}

// WithParam adds a named parameter, encoded to query string or body per
// ParamDestination.
func (r *Request) WithParam(key string, v Value) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Params == nil {
		r.Params = make(map[string]Value)
	}
	if _, exists := r.Params[key]; !exists {
		r.ParamOrder = append(r.ParamOrder, key)
	}
	r.Params[key] = v
	return r
}

// WithParamDestination sets where parameters are encoded.
func (r *Request) WithParamDestination(d ParamDestination) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ParamDestination = d
	return r
}

// WithMaxRetries sets the maximum number of retry attempts after the first.
func (r *Request) WithMaxRetries(n int) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MaxRetries = n
	return r
}

// WithTimeout records a timeout on the request. The transport does not read
// it; every attempt runs under the client's timeout.
func (r *Request) WithTimeout(d time.Duration) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Timeout = &d
	return r
}

// WithCachePolicy records a cache policy on the request. No stage of the
// pipeline reads it.
func (r *Request) WithCachePolicy(p CachePolicy) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CachePolicy = &p
	return r
}

// WithSecurity records a TLS trust policy on the request. Connections are
// still verified under the client's policy; this value is not consulted.
func (r *Request) WithSecurity(s SecurityPolicy) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Security = s
	return r
}

// WithValidators replaces the effective validator chain for this request.
func (r *Request) WithValidators(v ...Validator) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ValidatorsOverride = v
	return r
}

// WithModifier sets the opaque url-request-modifier (spec §4.1 step 4).
func (r *Request) WithModifier(m URLRequestModifier) *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Modifier = m
	return r
}

// Observers exposes the request's observer set for progress/raw-response/
// decoded-object registration (spec §4.5).
func (r *Request) Observers() *observerSet {
	return r.observers
}

// CurrentRetry returns the zero-based attempt index (0 on first attempt).
func (r *Request) CurrentRetry() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentRetry
}

// resetForRetry clears per-attempt state and advances the retry counter,
// per spec §3 "reset-on-retry clears response state and increments/reuses
// retry counter".
func (r *Request) resetForRetry() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentRetry++
}

// resetForAltReplay reuses the counter (does not increment) when replaying
// the original request after a successful alt-request, per spec §4.3
// "retry-with-alt" reaction, which re-executes the original without
// counting it as a standard retry attempt.
func (r *Request) resetForAltReplay() {
	// Intentionally a no-op on currentRetry; present for readability at call
	// sites and to mirror the two distinct reset paths named in spec §3.
}

// Clone returns a shallow copy suitable for building an alt-request from an
// existing one (new route/headers typically replace the cloned fields).
func (r *Request) Clone() *Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := &Request{
		Method:           r.Method,
		Route:            r.Route,
		Body:             r.Body,
		Modifier:         r.Modifier,
		CachePolicy:      r.CachePolicy,
		Timeout:          r.Timeout,
		Headers:          r.Headers.Clone(),
		MaxRetries:       r.MaxRetries,
		ParamDestination: r.ParamDestination,
		Security:         r.Security,
		observers:        newObserverSet(),
	}
	if r.Params != nil {
		clone.Params = make(map[string]Value, len(r.Params))
		for k, v := range r.Params {
			clone.Params[k] = v
		}
		clone.ParamOrder = append([]string(nil), r.ParamOrder...)
	}
	return clone
}
