package wirehttp

import (
	"encoding/json"
	"os"
)

// BodyLocation reports where a response's payload ended up (spec §3
// "Response"): buffered in memory, or spooled to a file. The transport
// adapter in this package always buffers the whole body in memory and
// never produces BodySpool.
type BodyLocation int

const (
	BodyInMemory BodyLocation = iota
	BodySpool
)

// WireRequest is the materialized, wire-ready form of a Request: an
// absolute URL, method, final header set, and serialized body. It is what
// URLRequestModifier is given the chance to edit (spec §4.1 step 4) and
// what the transport adapter actually dispatches.
type WireRequest struct {
	Method  string
	URL     string
	Headers *HeaderSet
	Body    serialized
}

// Response is the result of executing a Request (spec §3 "Response").
// Exactly one of Data/SpoolPath is meaningful, selected by Location.
type Response struct {
	StatusCode int
	Headers    *HeaderSet
	Location   BodyLocation
	Data       []byte // valid when Location == BodyInMemory
	SpoolPath  string // valid when Location == BodySpool

	Error   error
	Metrics *Transaction

	// History holds the Transaction for every attempt the pipeline made
	// while producing this Response, in order, including the final one
	// already referenced by Metrics. A request that succeeds on its first
	// attempt has a single-element History.
	History []*Transaction

	// OriginalRequest and CurrentRequest let callers distinguish the
	// request as first built from the one actually sent after retries or
	// redirects rewrote it (spec §3).
	OriginalRequest *WireRequest
	CurrentRequest  *WireRequest
}

// Succeeded reports whether the response represents a 2xx outcome with no
// pipeline-level error attached.
func (r *Response) Succeeded() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Bytes returns the full response body regardless of where it was buffered,
// reading a spooled file from disk on demand.
func (r *Response) Bytes() ([]byte, error) {
	if r.Location == BodyInMemory {
		return r.Data, nil
	}
	return os.ReadFile(r.SpoolPath)
}

// DecodeJSON reads the response body and unmarshals it into v, per spec
// §4.4 "decoded-object" observer payloads.
func (r *Response) DecodeJSON(v any) error {
	data, err := r.Bytes()
	if err != nil {
		return newRequestError("decode", "", r.StatusCode, KindObjectDecodeFailed, err)
	}
	if len(data) == 0 {
		return newRequestError("decode", "", r.StatusCode, KindEmptyResponse, ErrEmptyResponse)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return newRequestError("decode", "", r.StatusCode, KindObjectDecodeFailed, err)
	}
	return nil
}
