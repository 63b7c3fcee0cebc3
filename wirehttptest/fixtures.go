package wirehttptest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

// JSONResponse builds a Handler that answers status with body written
// verbatim under Content-Type application/json, for the common case of a table-driven fixture that only
// needs to name its response literally.
func JSONResponse(status int, body string) Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// StaticResponse builds a Handler that answers status with a raw body and
// the given content type.
func StaticResponse(status int, contentType, body string) Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// HeaderEchoResponse answers status with a JSON body reporting the request
// method, path, and headers it received, letting a test assert on what a
// Client actually sent without needing Server.Requests().
func HeaderEchoResponse(status int) Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		headers := make(map[string]string, len(r.Header))
		for k := range r.Header {
			headers[k] = r.Header.Get(k)
		}
		body, _ := json.Marshal(map[string]any{
			"method":  r.Method,
			"path":    r.URL.Path,
			"query":   r.URL.RawQuery,
			"headers": headers,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}
}

// RequestBody reads and returns r's full body, for a Handler that needs to
// inspect what was sent.
func RequestBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	data, _ := io.ReadAll(r.Body)
	return data
}

// JSONField extracts path from a JSON document using gjson's dotted path
// syntax, for table tests that want to assert on one field of a response
// or request body without unmarshaling into a concrete type.
func JSONField(document []byte, path string) gjson.Result {
	return gjson.GetBytes(document, path)
}
