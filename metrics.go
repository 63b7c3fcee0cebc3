package wirehttp

import (
	"crypto/tls"
	"net/http/httptrace"
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// StageKind names one phase of a single attempt's lifecycle (spec §4.4
// "Metrics Collector").
type StageKind int

const (
	StageDomainLookup StageKind = iota
	StageConnect
	StageSecureConnect
	StageRequest
	StageServer
	StageResponse
	StageTotal
)

func (k StageKind) String() string {
	switch k {
	case StageDomainLookup:
		return "domain-lookup"
	case StageConnect:
		return "connect"
	case StageSecureConnect:
		return "secure-connect"
	case StageRequest:
		return "request"
	case StageServer:
		return "server"
	case StageResponse:
		return "response"
	case StageTotal:
		return "total"
	default:
		return "unknown"
	}
}

// Stage is a single (start, end) timing span. Construction always orders
// start before end; this deliberately does not reproduce the inverted
// (start: endDate, end: startDate) construction called out as a defect
// elsewhere, so Duration is never negative by construction.
type Stage struct {
	Kind  StageKind
	Start time.Time
	End   time.Time
}

// Duration returns End.Sub(Start).
func (s Stage) Duration() time.Duration { return s.End.Sub(s.Start) }

func newStage(kind StageKind, start, end time.Time) Stage {
	return Stage{Kind: kind, Start: start, End: end}
}

// Transaction is the per-attempt record the pipeline attaches to a
// Response (spec §4.4). FetchType distinguishes how the response was
// produced (network, stub) for observability.
type FetchType string

const (
	FetchNetwork FetchType = "network"
	FetchStub    FetchType = "stub"
)

type Transaction struct {
	Request            *WireRequest
	Response           *Response
	Protocol           string // "HTTP/1.1", "HTTP/2", etc; empty for stubbed responses
	IsProxy            bool
	IsReusedConnection bool
	FetchType          FetchType
	Stages             []Stage
	RedirectCount      int
}

// StageDuration looks up the duration of kind, returning 0 if absent.
func (t *Transaction) StageDuration(kind StageKind) time.Duration {
	for _, s := range t.Stages {
		if s.Kind == kind {
			return s.Duration()
		}
	}
	return 0
}

// traceCollector accumulates httptrace callback timestamps for one attempt
// and resolves them into Stages once the round trip completes.
type traceCollector struct {
	mu sync.Mutex

	attemptStart time.Time

	dnsStart, dnsDone           time.Time
	connectStart, connectDone   time.Time
	tlsStart, tlsDone           time.Time
	wroteRequest                time.Time
	firstResponseByte           time.Time
	reused                      bool
}

// clientTrace builds an *httptrace.ClientTrace wired to record into c, in
// the manner of per-phase tracers built on net/http/httptrace elsewhere in
// this codebase's lineage.
func (c *traceCollector) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			c.mu.Lock()
			c.dnsStart = time.Now()
			c.mu.Unlock()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			c.mu.Lock()
			c.dnsDone = time.Now()
			c.mu.Unlock()
		},
		ConnectStart: func(string, string) {
			c.mu.Lock()
			if c.connectStart.IsZero() {
				c.connectStart = time.Now()
			}
			c.mu.Unlock()
		},
		ConnectDone: func(string, string, error) {
			c.mu.Lock()
			c.connectDone = time.Now()
			c.mu.Unlock()
		},
		TLSHandshakeStart: func() {
			c.mu.Lock()
			c.tlsStart = time.Now()
			c.mu.Unlock()
		},
		TLSHandshakeDone: func(tls.ConnectionState, error) {
			c.mu.Lock()
			c.tlsDone = time.Now()
			c.mu.Unlock()
		},
		GotConn: func(info httptrace.GotConnInfo) {
			c.mu.Lock()
			c.reused = info.Reused
			c.mu.Unlock()
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			c.mu.Lock()
			c.wroteRequest = time.Now()
			c.mu.Unlock()
		},
		GotFirstResponseByte: func() {
			c.mu.Lock()
			c.firstResponseByte = time.Now()
			c.mu.Unlock()
		},
	}
}

// resolve builds the Stage slice for one attempt. responseEnd is the time
// the full body finished being read. The server stage approximates
// time-to-first-byte minus request-write time when both are known, per
// spec §4.4: "server stage = response.start - request.end when
// request-duration > 0".
func (c *traceCollector) resolve(responseEnd time.Time) []Stage {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stages []Stage
	if !c.dnsStart.IsZero() && !c.dnsDone.IsZero() {
		stages = append(stages, newStage(StageDomainLookup, c.dnsStart, c.dnsDone))
	}
	if !c.connectStart.IsZero() && !c.connectDone.IsZero() {
		stages = append(stages, newStage(StageConnect, c.connectStart, c.connectDone))
	}
	if !c.tlsStart.IsZero() && !c.tlsDone.IsZero() {
		stages = append(stages, newStage(StageSecureConnect, c.tlsStart, c.tlsDone))
	}
	if !c.attemptStart.IsZero() && !c.wroteRequest.IsZero() {
		stages = append(stages, newStage(StageRequest, c.attemptStart, c.wroteRequest))
		if !c.firstResponseByte.IsZero() {
			requestDuration := c.wroteRequest.Sub(c.attemptStart)
			if requestDuration > 0 {
				stages = append(stages, newStage(StageServer, c.wroteRequest, c.firstResponseByte))
			}
		}
	}
	if !c.firstResponseByte.IsZero() && !responseEnd.IsZero() {
		stages = append(stages, newStage(StageResponse, c.firstResponseByte, responseEnd))
	}
	if !c.attemptStart.IsZero() && !responseEnd.IsZero() {
		stages = append(stages, newStage(StageTotal, c.attemptStart, responseEnd))
	}
	return stages
}

// SessionMetrics aggregates per-attempt latencies across a Client's
// lifetime into a single HdrHistogram, giving callers percentile queries
// without retaining every Transaction (spec §4.4 "Supplemented features").
type SessionMetrics struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram

	requests int64
	failures int64
}

// NewSessionMetrics builds a recorder covering 1 microsecond to 5 minutes
// at 3 significant figures, wide enough for both sub-millisecond cache
// hits and slow upstream calls.
func NewSessionMetrics() *SessionMetrics {
	return &SessionMetrics{
		hist: hdrhistogram.New(1, (5 * time.Minute).Microseconds(), 3),
	}
}

// Record adds one completed attempt's total latency to the histogram.
func (m *SessionMetrics) Record(total time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	if failed {
		m.failures++
	}
	_ = m.hist.RecordValue(total.Microseconds())
}

// Snapshot reports request/failure counts and selected latency
// percentiles, in microseconds.
type MetricsSnapshot struct {
	Requests int64
	Failures int64
	P50Micro int64
	P95Micro int64
	P99Micro int64
}

func (m *SessionMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Requests: m.requests,
		Failures: m.failures,
		P50Micro: m.hist.ValueAtQuantile(50),
		P95Micro: m.hist.ValueAtQuantile(95),
		P99Micro: m.hist.ValueAtQuantile(99),
	}
}
