package stub

import (
	"net/url"
	"sync"

	"go.uber.org/zap"
)

type ruleEntry struct {
	id   int
	rule *Rule
}

type ignoreEntry struct {
	id   int
	rule *IgnoreRule
}

// Engine is the registry of stub rules and ignore rules (spec §4.4
// "Stub Engine"). It starts disabled; Enable/Disable toggle whether the
// transport consults it at all. The design notes call the engine a
// "process-wide singleton gated by enable/disable" but also ask for
// injectable instances so tests never share state — Engine satisfies both:
// construct one with New and wire it into exactly one Client, or share a
// package-level instance across a process if that's the desired topology.
type Engine struct {
	mu          sync.RWMutex
	enabled     bool
	nextID      int
	rules       []ruleEntry
	ignoreRules []ignoreEntry
	logger      *zap.Logger
}

// New builds a disabled Engine with no rules registered.
func New(opts ...Option) *Engine {
	e := &Engine{logger: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger sets the engine's diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l == nil {
			l = zap.NewNop()
		}
		e.logger = l
	}
}

// Enable installs the engine ahead of the transport. Idempotent.
func (e *Engine) Enable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = true
}

// Disable removes the engine from the request path. Idempotent.
func (e *Engine) Disable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = false
}

// Enabled reports the engine's current state.
func (e *Engine) Enabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

// AddRule registers rule, returning a token for later removal. Rules are
// consulted in insertion order; the first whose matchers all pass and
// which has a responder for the request's method wins (spec invariant:
// "the earlier-inserted rule wins").
func (e *Engine) AddRule(rule *Rule) RuleToken {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.rules = append(e.rules, ruleEntry{id: id, rule: rule})
	return RuleToken{id: id}
}

// RemoveRule unregisters the rule identified by tok, if still present.
func (e *Engine) RemoveRule(tok RuleToken) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, entry := range e.rules {
		if entry.id == tok.id {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			return
		}
	}
}

// AddIgnoreRule registers an ignore rule: a matching request bypasses the
// stub engine entirely, as if stubbing were disabled for that request.
func (e *Engine) AddIgnoreRule(rule *IgnoreRule) RuleToken {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.ignoreRules = append(e.ignoreRules, ignoreEntry{id: id, rule: rule})
	return RuleToken{id: id}
}

// RemoveIgnoreRule unregisters the ignore rule identified by tok.
func (e *Engine) RemoveIgnoreRule(tok RuleToken) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, entry := range e.ignoreRules {
		if entry.id == tok.id {
			e.ignoreRules = append(e.ignoreRules[:i], e.ignoreRules[i+1:]...)
			return
		}
	}
}

// Dispatch matches method/rawURL/headers/body against the engine's rule
// set and returns the synthesized response. The second return value
// reports whether a rule handled the request; when false the caller must
// decide, per its own unhandled-mode configuration, whether to fall
// through to the real transport or fail (spec §4.4 step 4 — that policy
// knob lives on the client, not the engine, since it's a pipeline-level
// configuration concern).
func (e *Engine) Dispatch(method, rawURL string, headers map[string]string, body []byte) (StubResponse, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return StubResponse{}, false
	}

	req := Request{Method: method, URL: rawURL, Headers: headers, Body: body}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, entry := range e.ignoreRules {
		if entry.rule.matches(req) {
			return StubResponse{}, false
		}
	}

	for _, entry := range e.rules {
		if !entry.rule.matches(req) {
			continue
		}
		responder, ok := entry.rule.responderFor(method)
		if !ok {
			continue
		}
		e.logger.Debug("stub: rule matched", zap.String("method", method), zap.String("url", rawURL))
		return responder.Respond(req), true
	}

	return StubResponse{}, false
}
