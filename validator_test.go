package wirehttp

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeTimeoutError implements net.Error with Timeout() == true, standing in
// for the "timed-out" transport failure named in spec scenario 3 without
// depending on an actual network call.
type fakeTimeoutError struct{}

func (fakeTimeoutError) Error() string   { return "i/o timeout" }
func (fakeTimeoutError) Timeout() bool   { return true }
func (fakeTimeoutError) Temporary() bool { return true }

var _ net.Error = fakeTimeoutError{}

func TestIsTransientNetError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", fakeTimeoutError{}, true},
		{"dns error", &net.DNSError{Err: "no such host", Name: "example.invalid"}, true},
		{"connection reset substring", errors.New("read: connection reset by peer"), true},
		{"unrelated error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isTransientNetError(tt.err))
		})
	}
}

func TestDefaultValidatorTransientRetriesAndEmptyResponseFails(t *testing.T) {
	v := NewDefaultValidator(false)
	req := &WireRequest{URL: "https://api.example.com/x"}

	out := v.Validate(req, &Response{Error: newRequestError("execute", req.URL, 0, KindTransportError, fakeTimeoutError{})})
	require.Equal(t, OutcomeRetryIfPossible, out.Kind)

	out = v.Validate(req, &Response{StatusCode: 200, Location: BodyInMemory, Data: nil})
	require.Equal(t, OutcomeFail, out.Kind)
	require.True(t, errors.Is(out.Err, ErrEmptyResponse))

	out = v.Validate(req, &Response{StatusCode: 200, Location: BodyInMemory, Data: []byte("ok")})
	require.Equal(t, OutcomePass, out.Kind)
}

func TestDefaultValidatorAllowsEmptyResponseWhenConfigured(t *testing.T) {
	v := NewDefaultValidator(true)
	req := &WireRequest{URL: "https://api.example.com/x"}
	out := v.Validate(req, &Response{StatusCode: 204, Location: BodyInMemory})
	require.Equal(t, OutcomePass, out.Kind)
}

func TestDefaultValidatorNonTransientTransportErrorFails(t *testing.T) {
	v := NewDefaultValidator(false)
	req := &WireRequest{URL: "https://api.example.com/x"}
	out := v.Validate(req, &Response{Error: newRequestError("execute", req.URL, 0, KindTransportError, errors.New("tls: bad certificate"))})
	require.Equal(t, OutcomeFail, out.Kind)
}

func TestRunValidatorsFirstNonPassWins(t *testing.T) {
	chain := []Validator{
		ValidatorFunc(func(*WireRequest, *Response) Outcome { return Pass() }),
		ValidatorFunc(func(*WireRequest, *Response) Outcome { return RetryAfter(5 * time.Millisecond) }),
		ValidatorFunc(func(*WireRequest, *Response) Outcome { return Fail(errors.New("never reached")) }),
	}
	out := RunValidators(chain, &WireRequest{}, &Response{})
	require.Equal(t, OutcomeRetryAfter, out.Kind)
	require.Equal(t, 5*time.Millisecond, out.After)
}

func TestRunValidatorsAllPassYieldsPass(t *testing.T) {
	chain := []Validator{
		ValidatorFunc(func(*WireRequest, *Response) Outcome { return Pass() }),
		nil,
		ValidatorFunc(func(*WireRequest, *Response) Outcome { return Pass() }),
	}
	out := RunValidators(chain, &WireRequest{}, &Response{})
	require.Equal(t, OutcomePass, out.Kind)
}

// TestAlternateRequestValidatorScenario4 covers spec's literal scenario 4:
// alt cap = 1, so a second 401 after the alt was already spent surfaces
// MaxRetryAttemptsReached instead of retrying again.
func TestAlternateRequestValidatorScenario4(t *testing.T) {
	altReq := NewRequest("GET", "/refresh-token")
	provider := func(req *WireRequest, resp *Response) (*Request, error) {
		return altReq, nil
	}
	v := NewAlternateRequestValidator([]int{401}, provider, 1)
	req := &WireRequest{URL: "https://api.example.com/protected"}

	out := v.Validate(req, &Response{StatusCode: 401})
	require.Equal(t, OutcomeRetryWithAlt, out.Kind)
	require.Same(t, altReq, out.Alt)

	out = v.Validate(req, &Response{StatusCode: 401})
	require.Equal(t, OutcomeFail, out.Kind)
	require.True(t, errors.Is(out.Err, ErrMaxRetryAttemptsReached))
}

func TestAlternateRequestValidatorIgnoresNonTriggerCodes(t *testing.T) {
	called := false
	provider := func(req *WireRequest, resp *Response) (*Request, error) {
		called = true
		return NewRequest("GET", "/refresh"), nil
	}
	v := NewAlternateRequestValidator([]int{401}, provider, 1)
	out := v.Validate(&WireRequest{}, &Response{StatusCode: 500})
	require.Equal(t, OutcomePass, out.Kind)
	require.False(t, called)
}

func TestAlternateRequestValidatorDefaultTriggerCodes(t *testing.T) {
	v := NewAlternateRequestValidator(nil, func(*WireRequest, *Response) (*Request, error) {
		return NewRequest("GET", "/refresh"), nil
	}, 2)

	out := v.Validate(&WireRequest{}, &Response{StatusCode: 403})
	require.Equal(t, OutcomeRetryWithAlt, out.Kind)
}
