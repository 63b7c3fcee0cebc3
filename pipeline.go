package wirehttp

import (
	"context"
	"time"
)

// effectiveMaxRetries returns req's retry ceiling, falling back to the
// client's default when req didn't set one explicitly.
func (c *Client) effectiveMaxRetries(req *Request) int {
	if req.MaxRetries > 0 {
		return req.MaxRetries
	}
	return c.cfg.maxRetries
}

func (c *Client) effectiveValidators(req *Request) []Validator {
	if req.ValidatorsOverride != nil {
		return req.ValidatorsOverride
	}
	return c.cfg.validators
}

// Execute runs req through the full pipeline: build the wire request,
// dispatch it to the transport (network or stub), run the validator
// chain, and react to the outcome per spec §4.3 ("pass / fail /
// retry-if-possible / retry-after / retry-with-alt").
func (c *Client) Execute(ctx context.Context, req *Request) *Response {
	maxRetries := c.effectiveMaxRetries(req)
	var history []*Transaction

	for {
		wire, err := BuildWireRequest(c, req)
		if err != nil {
			return &Response{Error: err}
		}

		resp := c.transport.execute(ctx, wire, req.observers)
		if resp.Metrics != nil {
			history = append(history, resp.Metrics)
		}
		resp.History = history
		logAttempt(c.cfg.logger, wire, req.CurrentRetry(), resp)

		outcome := RunValidators(c.effectiveValidators(req), wire, resp)
		logOutcome(c.cfg.logger, outcome)

		switch outcome.Kind {
		case OutcomePass:
			req.observers.dispatchDecodedObject(resp)
			return resp

		case OutcomeFail:
			resp.Error = outcome.Err
			return resp

		case OutcomeRetryIfPossible:
			if req.CurrentRetry() >= maxRetries {
				resp.Error = newRequestError("execute", wire.URL, resp.StatusCode, KindMaxRetryAttemptsReached, ErrMaxRetryAttemptsReached)
				return resp
			}
			req.resetForRetry()
			select {
			case <-ctx.Done():
				resp.Error = newRequestError("execute", wire.URL, resp.StatusCode, KindCancelled, ctx.Err())
				return resp
			case <-time.After(jitteredBackoff(backoffForAttempt(req.CurrentRetry()))):
			}
			continue

		case OutcomeRetryAfter:
			if req.CurrentRetry() >= maxRetries {
				resp.Error = newRequestError("execute", wire.URL, resp.StatusCode, KindMaxRetryAttemptsReached, ErrMaxRetryAttemptsReached)
				return resp
			}
			req.resetForRetry()
			select {
			case <-ctx.Done():
				resp.Error = newRequestError("execute", wire.URL, resp.StatusCode, KindCancelled, ctx.Err())
				return resp
			case <-time.After(outcome.After):
			}
			continue

		case OutcomeRetryWithAlt:
			altResp := c.Execute(ctx, outcome.Alt)
			if altResp.Error != nil {
				return altResp
			}
			history = append(history, altResp.History...)
			req.resetForAltReplay()
			continue

		default:
			return resp
		}
	}
}

// backoffForAttempt computes the base delay (before jitter) for the given
// attempt number using exponential growth capped at 30 seconds, mirroring
// the backoff shape used elsewhere in this codebase's lineage.
func backoffForAttempt(attempt int) time.Duration {
	base := 100 * time.Millisecond
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > 30*time.Second {
			return 30 * time.Second
		}
	}
	return delay
}
