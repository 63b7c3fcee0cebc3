package wirehttp

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"time"

	"golang.org/x/net/http2"

	"github.com/wirehttp/wirehttp/stub"
)

// maxStubRedirects bounds how many synthesized redirect hops the stub path
// will chase before giving up, mirroring a browser's own redirect ceiling.
const maxStubRedirects = 10

// newDefaultHTTPClient builds the production *http.Client used for
// non-stubbed traffic: connection pooling tuned for reuse, HTTP/2 attempted
// automatically, and the security policy's TLS configuration applied.
func newDefaultHTTPClient(security SecurityPolicy) *http.Client {
	transport := &http.Transport{
		TLSClientConfig:     security.tlsConfig(),
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	_ = http2.ConfigureTransport(transport)
	return &http.Client{Transport: transport}
}

// newH2CClient builds a client that speaks HTTP/2 in cleartext (h2c),
// bypassing TLS negotiation entirely; useful against local or
// internal-network stub targets that don't terminate TLS.
func newH2CClient() *http.Client {
	return &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext(ctx, network, addr)
			},
		},
	}
}

// transportAdapter executes a single materialized WireRequest, choosing
// between the stub engine and the live network, and assembling the
// resulting Response plus its Transaction metrics (spec §4.2 "Transport
// Adapter").
type transportAdapter struct {
	client *Client
}

func newTransportAdapter(c *Client) *transportAdapter {
	return &transportAdapter{client: c}
}

// execute runs one attempt of wire against the network or the stub
// engine, returning a Response with StatusCode/Headers/body/Error/Metrics
// populated, never returning a non-nil error itself (all failure modes are
// reported via Response.Error so the validator chain can see them).
func (t *transportAdapter) execute(ctx context.Context, wire *WireRequest, obs *observerSet) *Response {
	if t.client.cfg.stubEngine != nil && t.client.cfg.stubEngine.Enabled() {
		return t.executeStub(ctx, wire, obs, 0)
	}
	return t.executeNetwork(ctx, wire, obs)
}

func bodyBytesOf(wire *WireRequest) []byte {
	if wire.Body.data != nil {
		return wire.Body.data
	}
	return nil
}

// executeStub dispatches wire through the stub engine, following
// stub-synthesized redirects per the client's follow_mode up to
// maxStubRedirects hops, and falling through to the live network on a
// non-match per unhandled_mode (spec §4.4).
func (t *transportAdapter) executeStub(ctx context.Context, wire *WireRequest, obs *observerSet, redirectCount int) *Response {
	t.addCookieHeader(wire)

	data, handled := t.client.cfg.stubEngine.Dispatch(wire.Method, wire.URL, wire.Headers.Flat(), bodyBytesOf(wire))
	if !handled {
		if t.client.cfg.unhandledMode == UnhandledOptOut {
			return &Response{
				Error:           newRequestError("execute", wire.URL, 0, KindMatchStubNotFound, ErrMatchStubNotFound),
				OriginalRequest: wire,
				CurrentRequest:  wire,
			}
		}
		return t.executeNetwork(ctx, wire, obs)
	}

	if data.Delay > 0 {
		select {
		case <-ctx.Done():
			return &Response{
				Error:           newRequestError("execute", wire.URL, 0, KindCancelled, ctx.Err()),
				OriginalRequest: wire,
				CurrentRequest:  wire,
			}
		case <-time.After(data.Delay):
		}
	}

	if data.Err != nil {
		resp := &Response{
			Error:           newRequestError("execute", wire.URL, 0, KindTransportError, data.Err),
			OriginalRequest: wire,
			CurrentRequest:  wire,
			Metrics: &Transaction{
				Request:       wire,
				FetchType:     FetchStub,
				RedirectCount: redirectCount,
			},
		}
		resp.Metrics.Response = resp
		return resp
	}

	headers := NewHeaderSet()
	for k, v := range data.Headers {
		headers.Set(k, v)
	}
	t.storeCookiesFromHeaders(wire.URL, headers)

	if isRedirectStatus(data.StatusCode) && t.client.cfg.followMode != RefuseRedirects {
		if location, ok := headers.Get("Location"); ok && redirectCount < maxStubRedirects {
			nextWire, err := t.buildRedirectRequest(wire, location, data.StatusCode)
			if err == nil {
				return t.executeStub(ctx, nextWire, obs, redirectCount+1)
			}
		}
	}

	resp := &Response{
		StatusCode:      data.StatusCode,
		Headers:         headers,
		Location:        BodyInMemory,
		Data:            data.Body,
		OriginalRequest: wire,
		CurrentRequest:  wire,
		Metrics: &Transaction{
			Request:       wire,
			FetchType:     FetchStub,
			RedirectCount: redirectCount,
		},
	}
	resp.Metrics.Response = resp
	if obs != nil {
		obs.dispatchRawResponse(resp)
	}
	return resp
}

// isRedirectStatus reports whether code is a redirection that the
// transport should follow; 304 and 305 are explicitly excluded (spec §6:
// "304 and 305 are never treated as redirects").
func isRedirectStatus(code int) bool {
	switch code {
	case 301, 302, 303, 307, 308:
		return true
	default:
		return false
	}
}

// buildRedirectRequest resolves location against wire's URL and applies
// follow_mode: FollowCopy preserves method/headers/body on the new URL
// regardless of status; the default FollowRedirects downgrades to a
// bodyless GET on 301/302/303, matching standard browser redirect
// semantics, and preserves method/body on 307/308.
func (t *transportAdapter) buildRedirectRequest(wire *WireRequest, location string, statusCode int) (*WireRequest, error) {
	absolute, err := joinURL(wire.URL, location)
	if err != nil {
		return nil, err
	}
	method := wire.Method
	body := wire.Body
	if t.client.cfg.followMode != FollowCopy {
		switch statusCode {
		case 301, 302, 303:
			if method != http.MethodGet && method != http.MethodHead {
				method = http.MethodGet
				body = serialized{}
			}
		}
	}
	return &WireRequest{
		Method:  method,
		URL:     absolute,
		Headers: wire.Headers.Clone(),
		Body:    body,
	}, nil
}

func (t *transportAdapter) addCookieHeader(wire *WireRequest) {
	if t.client.cfg.cookieJar == nil {
		return
	}
	header, err := stub.BuildCookieHeader(t.client.cfg.cookieJar, wire.URL)
	if err != nil || header == "" {
		return
	}
	wire.Headers.Set("Cookie", header)
}

func (t *transportAdapter) storeCookiesFromHeaders(rawURL string, headers *HeaderSet) {
	if t.client.cfg.cookieJar == nil {
		return
	}
	value, ok := headers.Get("Set-Cookie")
	if !ok {
		return
	}
	cookie := stub.ParseSetCookie(value)
	if cookie == nil {
		return
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return
	}
	t.client.cfg.cookieJar.SetCookies(u, []*http.Cookie{cookie})
}

func (t *transportAdapter) executeNetwork(ctx context.Context, wire *WireRequest, obs *observerSet) *Response {
	httpReq, err := http.NewRequestWithContext(ctx, wire.Method, wire.URL, nil)
	if err != nil {
		return &Response{Error: newRequestError("execute", wire.URL, 0, KindInvalidURL, err), OriginalRequest: wire, CurrentRequest: wire}
	}
	for _, hdr := range wire.Headers.Iterate() {
		httpReq.Header.Set(hdr.Name, hdr.Value)
	}

	attemptStart := time.Now()
	collector := &traceCollector{attemptStart: attemptStart}
	httpReq = httpReq.WithContext(httptrace.WithClientTrace(httpReq.Context(), collector.clientTrace()))

	if wire.Body.stream != nil {
		httpReq.Body = wire.Body.stream
		httpReq.ContentLength = wire.Body.length
	} else if wire.Body.data != nil {
		data := wire.Body.data
		httpReq.Body = io.NopCloser(bytes.NewReader(data))
		httpReq.ContentLength = int64(len(data))
		httpReq.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}

	client := t.client.cfg.httpClient
	client.CheckRedirect = t.checkRedirectFunc()
	if d := t.requestTimeout(wire); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
		httpReq = httpReq.WithContext(ctx)
	}

	if obs != nil {
		obs.dispatchProgress(0, httpReq.ContentLength)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		total := time.Since(attemptStart)
		t.client.cfg.sessionMetrics.Record(total, true)
		return &Response{
			Error:           newRequestError("execute", wire.URL, 0, KindTransportError, err),
			OriginalRequest: wire,
			CurrentRequest:  wire,
			Metrics: &Transaction{
				Request:   wire,
				FetchType: FetchNetwork,
				Stages:    collector.resolve(time.Now()),
			},
		}
	}
	defer httpResp.Body.Close()

	data, readErr := io.ReadAll(httpResp.Body)
	responseEnd := time.Now()
	t.client.cfg.sessionMetrics.Record(responseEnd.Sub(attemptStart), readErr != nil)

	respHeaders := NewHeaderSet()
	for k, vs := range httpResp.Header {
		if len(vs) > 0 {
			respHeaders.Set(k, vs[0])
		}
	}

	resp := &Response{
		StatusCode:      httpResp.StatusCode,
		Headers:         respHeaders,
		Location:        BodyInMemory,
		Data:            data,
		OriginalRequest: wire,
		CurrentRequest:  wire,
		Metrics: &Transaction{
			Request:            wire,
			Protocol:           httpResp.Proto,
			IsReusedConnection: collector.reused,
			FetchType:          FetchNetwork,
			Stages:             collector.resolve(responseEnd),
		},
	}
	resp.Metrics.Response = resp

	if readErr != nil {
		resp.Error = newRequestError("execute", wire.URL, resp.StatusCode, KindInvalidResponse, readErr)
	}

	if obs != nil {
		obs.dispatchProgress(int64(len(data)), httpResp.ContentLength)
		obs.dispatchRawResponse(resp)
	}

	return resp
}

func (t *transportAdapter) requestTimeout(wire *WireRequest) time.Duration {
	return t.client.cfg.timeout
}

// checkRedirectFunc maps FollowMode onto http.Client's CheckRedirect hook.
// FollowRedirects returns nil and lets net/http's own default policy run
// (which already implements the standard 301/302/303-downgrades-to-GET,
// 307/308-preserve-method behavior); FollowCopy restores the original
// method/headers/body that net/http would otherwise have altered.
func (t *transportAdapter) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	switch t.client.cfg.followMode {
	case RefuseRedirects:
		return func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	case FollowCopy:
		return func(req *http.Request, via []*http.Request) error {
			if len(via) == 0 {
				return nil
			}
			prev := via[len(via)-1]
			req.Method = prev.Method
			req.Header = prev.Header.Clone()
			req.ContentLength = prev.ContentLength
			if prev.GetBody != nil {
				body, err := prev.GetBody()
				if err == nil {
					req.Body = body
				}
			}
			return nil
		}
	default:
		return nil
	}
}

// jitteredBackoff returns delay scaled by a uniform random factor in
// [0, 1), matching the retry jitter strategy used elsewhere in this
// codebase's lineage to avoid synchronized retry storms.
func jitteredBackoff(delay time.Duration) time.Duration {
	return time.Duration(rand.Float64() * float64(delay))
}
