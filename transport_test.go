package wirehttp

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wirehttp/wirehttp/stub"
	"github.com/wirehttp/wirehttp/wirehttptest"
)

func TestExecuteNetworkGETAgainstFixtureServer(t *testing.T) {
	server := wirehttptest.NewServer()
	defer server.Close()
	server.Handle("GET", "/widgets/1", wirehttptest.JSONResponse(200, `{"id":1,"name":"widget"}`))

	c := NewClient(WithBaseURL(server.URL()), WithHTTPClient(server.HTTPClient()))
	resp := c.Execute(context.Background(), NewRequest("GET", "/widgets/1"))

	require.True(t, resp.Succeeded())
	require.Equal(t, `{"id":1,"name":"widget"}`, string(resp.Data))
	require.Equal(t, FetchNetwork, resp.Metrics.FetchType)
}

func TestExecuteNetworkFollowRedirectsDowngradesPostToGet(t *testing.T) {
	server := wirehttptest.NewServer()
	defer server.Close()
	server.Handle("POST", "/old", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/new")
		w.WriteHeader(http.StatusFound)
	})
	server.Handle("GET", "/new", wirehttptest.StaticResponse(200, "text/plain", "ok"))

	c := NewClient(
		WithBaseURL(server.URL()),
		WithHTTPClient(server.HTTPClient()),
		WithFollowMode(FollowRedirects),
	)
	resp := c.Execute(context.Background(), NewRequest("POST", "/old").WithBody(TextBody("payload", "text/plain")))

	require.True(t, resp.Succeeded())
	require.Equal(t, "ok", string(resp.Data))

	requests := server.Requests()
	require.Len(t, requests, 2)
	require.Equal(t, "GET", requests[1].Method, "302 must downgrade a POST to GET under follow_mode=follow")
}

func TestExecuteNetworkRefuseRedirectsReturnsRedirectResponse(t *testing.T) {
	server := wirehttptest.NewServer()
	defer server.Close()
	server.Handle("GET", "/old", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/new")
		w.WriteHeader(http.StatusFound)
	})
	server.Handle("GET", "/new", wirehttptest.StaticResponse(200, "text/plain", "ok"))

	c := NewClient(
		WithBaseURL(server.URL()),
		WithHTTPClient(server.HTTPClient()),
		WithFollowMode(RefuseRedirects),
	)
	resp := c.Execute(context.Background(), NewRequest("GET", "/old"))

	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Len(t, server.Requests(), 1)
}

func TestExecuteNetworkCookieJarRoundTrip(t *testing.T) {
	server := wirehttptest.NewServer()
	defer server.Close()
	server.Handle("GET", "/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc123"})
		w.WriteHeader(200)
	})
	server.Handle("GET", "/me", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		if err != nil {
			w.WriteHeader(401)
			return
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte(cookie.Value))
	})

	c := NewClient(WithBaseURL(server.URL()), WithHTTPClient(server.HTTPClient()))

	loginResp := c.Execute(context.Background(), NewRequest("GET", "/login"))
	require.True(t, loginResp.Succeeded())

	meResp := c.Execute(context.Background(), NewRequest("GET", "/me"))
	require.True(t, meResp.Succeeded())
	require.Equal(t, "abc123", string(meResp.Data))
}

// TestExecuteStubRedirectChainScenario5 covers spec's literal scenario 5: a
// stub-synthesized 301 chained into a 200, under follow_mode=follow-copy,
// reporting redirect count 1 in the final transaction.
func TestExecuteStubRedirectChainScenario5(t *testing.T) {
	engine := stub.New()
	engine.Enable()
	engine.AddRule(stub.NewRule(stub.NewURLMatcher("https://api.example.com/old", stub.URLExact)).
		OnMethod("GET", stub.Static(stub.StubResponse{
			StatusCode: 301,
			Headers:    map[string]string{"Location": "/new"},
		})))
	engine.AddRule(stub.NewRule(stub.NewURLMatcher("https://api.example.com/new", stub.URLExact)).
		OnMethod("GET", stub.Static(stub.StubResponse{StatusCode: 200, Body: []byte("ok")})))

	c := NewClient(
		WithBaseURL("https://api.example.com"),
		WithStubEngine(engine),
		WithFollowMode(FollowCopy),
	)

	var observed *Response
	req := NewRequest("GET", "/old")
	req.Observers().AddRawResponse(func(resp *Response) { observed = resp })

	resp := c.Execute(context.Background(), req)

	require.True(t, resp.Succeeded())
	require.Equal(t, "ok", string(resp.Data))
	require.NotNil(t, observed)
	require.Equal(t, 200, observed.StatusCode)
	require.Equal(t, 1, resp.Metrics.RedirectCount)
}

func TestExecuteStubUnhandledOptOutFails(t *testing.T) {
	engine := stub.New()
	engine.Enable()

	c := NewClient(
		WithBaseURL("https://api.example.com"),
		WithStubEngine(engine),
		WithUnhandledMode(UnhandledOptOut),
	)
	resp := c.Execute(context.Background(), NewRequest("GET", "/unmatched"))

	require.NotNil(t, resp.Error)
	var reqErr *RequestError
	require.ErrorAs(t, resp.Error, &reqErr)
	require.Equal(t, KindMatchStubNotFound, reqErr.Kind)
}

func TestExecuteStubUnhandledOptInFallsThroughToNetwork(t *testing.T) {
	server := wirehttptest.NewServer()
	defer server.Close()
	server.Handle("GET", "/real", wirehttptest.StaticResponse(200, "text/plain", "network-answer"))

	engine := stub.New()
	engine.Enable()

	c := NewClient(
		WithBaseURL(server.URL()),
		WithHTTPClient(server.HTTPClient()),
		WithStubEngine(engine),
		WithUnhandledMode(UnhandledOptIn),
	)
	resp := c.Execute(context.Background(), NewRequest("GET", "/real"))

	require.True(t, resp.Succeeded())
	require.Equal(t, "network-answer", string(resp.Data))
}

func TestIsRedirectStatusExcludes304And305(t *testing.T) {
	require.False(t, isRedirectStatus(304))
	require.False(t, isRedirectStatus(305))
	require.True(t, isRedirectStatus(301))
	require.True(t, isRedirectStatus(307))
	require.True(t, isRedirectStatus(308))
}
