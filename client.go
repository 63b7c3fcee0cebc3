package wirehttp

import (
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.uber.org/zap"

	"github.com/wirehttp/wirehttp/stub"
)

// FollowMode controls how the transport adapter reacts to a redirect
// response (spec §4.2 "Auth challenge" / redirect callback).
type FollowMode int

const (
	// FollowRedirects honors the standard redirect semantics a browser
	// would: 301/302/303 downgrade a non-GET request to GET with no body,
	// 307/308 preserve method and body (spec §4.2 "follow").
	FollowRedirects FollowMode = iota
	// FollowCopy always copies method, headers, and body from the prior
	// request onto the new URL regardless of status code (spec §4.2
	// "follow-copy").
	FollowCopy
	// RefuseRedirects treats a redirect response as a final response
	// instead of following it.
	RefuseRedirects
)

// UnhandledMode controls what happens when the stub engine is enabled but
// no rule matches an outgoing request (spec §5 "Stub Interception Engine").
type UnhandledMode int

const (
	// UnhandledOptIn lets unmatched requests fall through to the real
	// transport; stubbing only intercepts requests with a matching rule.
	UnhandledOptIn UnhandledMode = iota
	// UnhandledOptOut fails unmatched requests with ErrMatchStubNotFound
	// instead of letting them reach the network.
	UnhandledOptOut
)

// clientConfig holds the resolved configuration built by ClientOptions,
// mirroring the functional-options layout used throughout this codebase's
// configuration surfaces.
type clientConfig struct {
	baseURL        string
	defaultHeaders *HeaderSet
	timeout        time.Duration
	cachePolicy    CachePolicy
	followMode     FollowMode
	unhandledMode  UnhandledMode
	validators     []Validator
	security       SecurityPolicy
	maxRetries     int
	logger         *zap.Logger
	httpClient     *http.Client
	stubEngine     *stub.Engine
	sessionMetrics *SessionMetrics
	cookieJar      http.CookieJar
}

// ClientOption configures a Client at construction time.
type ClientOption func(*clientConfig)

// WithBaseURL sets the URL every request's route is resolved against.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithDefaultHeader adds a header applied to every request unless
// overridden by the body or the request itself (spec §4.1 step 3).
func WithDefaultHeader(name, value string) ClientOption {
	return func(c *clientConfig) { c.defaultHeaders.Set(name, value) }
}

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = d }
}

// WithCachePolicy stores a default cache policy on the client. The
// transport does not apply a cache policy to requests.
func WithCachePolicy(p CachePolicy) ClientOption {
	return func(c *clientConfig) { c.cachePolicy = p }
}

// WithFollowMode sets the default redirect-following behavior.
func WithFollowMode(m FollowMode) ClientOption {
	return func(c *clientConfig) { c.followMode = m }
}

// WithUnhandledMode sets how the stub engine treats unmatched requests.
func WithUnhandledMode(m UnhandledMode) ClientOption {
	return func(c *clientConfig) { c.unhandledMode = m }
}

// WithValidators sets the default validator chain, run in order.
func WithValidators(v ...Validator) ClientOption {
	return func(c *clientConfig) { c.validators = v }
}

// WithSecurity sets the default TLS trust policy.
func WithSecurity(p SecurityPolicy) ClientOption {
	return func(c *clientConfig) { c.security = p }
}

// WithMaxRetries sets the default retry ceiling for requests that don't
// set their own.
func WithMaxRetries(n int) ClientOption {
	return func(c *clientConfig) { c.maxRetries = n }
}

// WithLogger sets the zap.Logger used for diagnostic logging. A nil
// logger is replaced with zap.NewNop() so callers never need a nil check.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *clientConfig) {
		if l == nil {
			l = zap.NewNop()
		}
		c.logger = l
	}
}

// WithHTTPClient overrides the underlying *http.Client used for non-stubbed
// traffic.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithH2C switches the client to cleartext HTTP/2, useful against internal
// services that don't terminate TLS.
func WithH2C() ClientOption {
	return func(c *clientConfig) { c.httpClient = newH2CClient() }
}

// WithStubEngine attaches a stub.Engine; when enabled, matching requests
// are answered without reaching the network (spec §5).
func WithStubEngine(e *stub.Engine) ClientOption {
	return func(c *clientConfig) { c.stubEngine = e }
}

// WithCookieJar overrides the client's cookie storage. By default every
// Client gets its own in-memory jar (spec §4.4/§6: "outgoing requests add
// the standard Cookie header from storage"), shared between real network
// traffic and stub-synthesized responses.
func WithCookieJar(jar http.CookieJar) ClientOption {
	return func(c *clientConfig) { c.cookieJar = jar }
}

// Client executes Requests against a configured transport, optionally
// intercepted by a stub engine, running retries and validators per attempt.
type Client struct {
	cfg       clientConfig
	transport *transportAdapter
}

// NewClient builds a Client with sensible production defaults: system TLS
// trust, opt-in unhandled stubbing, a default validator chain, and an
// http.Transport tuned for connection reuse (mirrors the teacher's default
// http.Client wiring: bounded idle connections, HTTP/2 attempted by
// default).
func NewClient(opts ...ClientOption) *Client {
	cfg := clientConfig{
		defaultHeaders: NewHeaderSet(),
		timeout:        30 * time.Second,
		followMode:     FollowRedirects,
		unhandledMode:  UnhandledOptIn,
		security:       DefaultSecurityPolicy(),
		maxRetries:     0,
		logger:         zap.NewNop(),
		sessionMetrics: NewSessionMetrics(),
	}
	cfg.validators = []Validator{NewDefaultValidator(false)}
	if jar, err := cookiejar.New(nil); err == nil {
		cfg.cookieJar = jar
	}

	for _, o := range opts {
		o(&cfg)
	}

	if cfg.httpClient == nil {
		cfg.httpClient = newDefaultHTTPClient(cfg.security)
	}
	if cfg.httpClient.Jar == nil {
		cfg.httpClient.Jar = cfg.cookieJar
	}

	c := &Client{cfg: cfg}
	c.transport = newTransportAdapter(c)
	return c
}

// Metrics returns the client's session-level latency aggregator.
func (c *Client) Metrics() *SessionMetrics { return c.cfg.sessionMetrics }

// Logger returns the client's configured logger.
func (c *Client) Logger() *zap.Logger { return c.cfg.logger }
