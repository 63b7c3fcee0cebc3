package config

import (
	"fmt"
	"time"

	"github.com/wirehttp/wirehttp"
	"github.com/wirehttp/wirehttp/stub"
)

// ClientOptions translates a ResolvedConfig into the ClientOptions needed
// to construct a wirehttp.Client, letting a deployment swap client
// behavior by editing a YAML file instead of Go code. CachePolicy and
// PinnedCertFiles are not translated into any option, and SecurityMode
// accepts only "auto-accept-self-signed" and "system-default"; any other
// non-empty mode is an error.
func (c *ResolvedConfig) ClientOptions() ([]wirehttp.ClientOption, error) {
	var opts []wirehttp.ClientOption

	if c.BaseURL != "" {
		opts = append(opts, wirehttp.WithBaseURL(c.BaseURL))
	}
	for k, v := range c.DefaultHeaders {
		opts = append(opts, wirehttp.WithDefaultHeader(k, v))
	}
	if c.Timeout > 0 {
		opts = append(opts, wirehttp.WithTimeout(c.Timeout))
	}
	if c.MaxRetries > 0 {
		opts = append(opts, wirehttp.WithMaxRetries(c.MaxRetries))
	}

	switch c.FollowMode {
	case "follow-copy":
		opts = append(opts, wirehttp.WithFollowMode(wirehttp.FollowCopy))
	case "refuse":
		opts = append(opts, wirehttp.WithFollowMode(wirehttp.RefuseRedirects))
	}

	switch c.UnhandledMode {
	case "opt-out":
		opts = append(opts, wirehttp.WithUnhandledMode(wirehttp.UnhandledOptOut))
	case "opt-in":
		opts = append(opts, wirehttp.WithUnhandledMode(wirehttp.UnhandledOptIn))
	}

	if c.SecurityMode != "" {
		policy, err := c.resolveSecurity()
		if err != nil {
			return nil, err
		}
		opts = append(opts, wirehttp.WithSecurity(policy))
	}

	if len(c.Stubs) > 0 {
		engine := stub.New()
		if err := registerStubRules(engine, c.Stubs); err != nil {
			return nil, err
		}
		engine.Enable()
		opts = append(opts, wirehttp.WithStubEngine(engine))
	}

	return opts, nil
}

func (c *ResolvedConfig) resolveSecurity() (wirehttp.SecurityPolicy, error) {
	policy := wirehttp.DefaultSecurityPolicy()
	policy.ValidatedDomainName = c.ValidatedDomainName
	switch c.SecurityMode {
	case "auto-accept-self-signed":
		policy.Mode = wirehttp.TrustAutoAcceptSelfSigned
	case "system-default":
		policy.Mode = wirehttp.TrustSystemDefault
	default:
		return policy, fmt.Errorf("wirehttp/config: unsupported security mode %q", c.SecurityMode)
	}
	return policy, nil
}

// registerStubRules builds a stub.Rule per YAMLStubRule and registers it
// with engine.
func registerStubRules(engine *stub.Engine, rules []YAMLStubRule) error {
	for _, r := range rules {
		matchers, err := buildMatchers(r)
		if err != nil {
			return err
		}
		responder := stub.Static(stub.StubResponse{
			StatusCode: r.StatusCode,
			Headers:    r.Headers,
			Body:       []byte(r.Body),
			Delay:      time.Duration(r.DelayMillis) * time.Millisecond,
		})
		rule := stub.NewRule(matchers...).OnMethod(r.Method, responder)
		engine.AddRule(rule)
	}
	return nil
}

func buildMatchers(r YAMLStubRule) ([]stub.Matcher, error) {
	var matchers []stub.Matcher

	if r.URL != "" {
		mode := stub.URLExact
		switch r.URLIgnore {
		case "query":
			mode = stub.URLIgnoreQuery
		case "path":
			mode = stub.URLIgnorePath
		}
		matchers = append(matchers, stub.NewURLMatcher(r.URL, mode))
	}

	if r.Regex != "" {
		field := stub.FieldURLString
		switch r.RegexField {
		case "body":
			field = stub.FieldBody
		case "header-key":
			field = stub.FieldHeaderKey
		case "header-value":
			field = stub.FieldHeaderValue
		}
		m, err := stub.NewRegexMatcher(r.Regex, field)
		if err != nil {
			return nil, fmt.Errorf("wirehttp/config: compile regex %q: %w", r.Regex, err)
		}
		matchers = append(matchers, m)
	}

	return matchers, nil
}
