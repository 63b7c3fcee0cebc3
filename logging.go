package wirehttp

import "go.uber.org/zap"

// logAttempt emits a debug-level record for one pipeline attempt; kept as
// a thin wrapper so call sites stay readable and the field list stays
// consistent.
func logAttempt(logger *zap.Logger, wire *WireRequest, attempt int, resp *Response) {
	fields := []zap.Field{
		zap.String("method", wire.Method),
		zap.String("url", wire.URL),
		zap.Int("attempt", attempt),
	}
	if resp.Error != nil {
		logger.Debug("wirehttp: attempt failed", append(fields, zap.Error(resp.Error))...)
		return
	}
	logger.Debug("wirehttp: attempt completed", append(fields, zap.Int("status", resp.StatusCode))...)
}

func logOutcome(logger *zap.Logger, outcome Outcome) {
	switch outcome.Kind {
	case OutcomeFail:
		logger.Debug("wirehttp: validator failed request", zap.Error(outcome.Err))
	case OutcomeRetryIfPossible:
		logger.Debug("wirehttp: validator requested retry")
	case OutcomeRetryAfter:
		logger.Debug("wirehttp: validator requested delayed retry", zap.Duration("after", outcome.After))
	case OutcomeRetryWithAlt:
		logger.Debug("wirehttp: validator requested alternate request")
	}
}
