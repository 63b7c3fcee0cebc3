package wirehttp

import "sync"

// ObserverToken identifies a registered callback for later removal
// (spec §9 design note on identity-based removal). Each registration on an
// observer set yields a token with a fresh id, so two tokens from the same
// set are equal only if they come from the same registration call; tokens
// from different sets can compare equal.
type ObserverToken struct {
	id int
}

// ProgressFunc is invoked as response bytes arrive, before the body is
// fully assembled (spec §4.4 "progress").
type ProgressFunc func(bytesReceived, bytesExpected int64)

// RawResponseFunc is invoked with the fully assembled Response of every
// attempt the transport completes with a status, including attempts the
// pipeline later retries, before the validator chain runs (spec §4.4
// "raw-response").
type RawResponseFunc func(resp *Response)

// DecodedObjectFunc is invoked with the Response once the validator chain
// passes it, after RawResponseFunc; decoding the body (for example with
// Response.DecodeJSON) is left to the callback (spec §4.4 "decoded-object").
type DecodedObjectFunc func(resp *Response)

// observerSet holds a request's progress/raw-response/decoded-object
// callbacks. Dispatch order is progress < raw-response < decoded-object <
// completion, per spec §4.4. A priority token (used by the alt-request
// mechanism to guarantee its own observer runs first) is threaded through
// AddRawResponsePriority.
type observerSet struct {
	mu sync.Mutex

	nextID int

	progress      map[int]ProgressFunc
	progressOrder []int // insertion order of progress's keys

	rawResponse    map[int]RawResponseFunc
	rawOrder       []int // insertion order of rawResponse's keys
	rawPriority    []int // ids in rawResponse that must dispatch before the rest

	decodedObject      map[int]DecodedObjectFunc
	decodedObjectOrder []int // insertion order of decodedObject's keys
}

func newObserverSet() *observerSet {
	return &observerSet{
		progress:      make(map[int]ProgressFunc),
		rawResponse:   make(map[int]RawResponseFunc),
		decodedObject: make(map[int]DecodedObjectFunc),
	}
}

func (o *observerSet) nextToken() ObserverToken {
	o.nextID++
	return ObserverToken{id: o.nextID}
}

// AddProgress registers a progress callback and returns its removal token.
func (o *observerSet) AddProgress(fn ProgressFunc) ObserverToken {
	o.mu.Lock()
	defer o.mu.Unlock()
	tok := o.nextToken()
	o.progress[tok.id] = fn
	o.progressOrder = append(o.progressOrder, tok.id)
	return tok
}

// AddRawResponse registers a raw-response callback.
func (o *observerSet) AddRawResponse(fn RawResponseFunc) ObserverToken {
	o.mu.Lock()
	defer o.mu.Unlock()
	tok := o.nextToken()
	o.rawResponse[tok.id] = fn
	o.rawOrder = append(o.rawOrder, tok.id)
	return tok
}

// AddRawResponsePriority registers a raw-response callback that dispatches
// before any callback added via AddRawResponse, used by the alt-request
// validator to inspect a challenge response ahead of user observers.
func (o *observerSet) AddRawResponsePriority(fn RawResponseFunc) ObserverToken {
	o.mu.Lock()
	defer o.mu.Unlock()
	tok := o.nextToken()
	o.rawResponse[tok.id] = fn
	o.rawOrder = append(o.rawOrder, tok.id)
	o.rawPriority = append(o.rawPriority, tok.id)
	return tok
}

// AddDecodedObject registers a decoded-object callback.
func (o *observerSet) AddDecodedObject(fn DecodedObjectFunc) ObserverToken {
	o.mu.Lock()
	defer o.mu.Unlock()
	tok := o.nextToken()
	o.decodedObject[tok.id] = fn
	o.decodedObjectOrder = append(o.decodedObjectOrder, tok.id)
	return tok
}

// Remove unregisters the callback identified by tok from whichever
// dispatch queue it belongs to.
func (o *observerSet) Remove(tok ObserverToken) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.progress, tok.id)
	delete(o.rawResponse, tok.id)
	delete(o.decodedObject, tok.id)
	o.progressOrder = removeID(o.progressOrder, tok.id)
	o.rawOrder = removeID(o.rawOrder, tok.id)
	o.rawPriority = removeID(o.rawPriority, tok.id)
	o.decodedObjectOrder = removeID(o.decodedObjectOrder, tok.id)
}

// removeID returns ids with the first occurrence of id excised, preserving
// the relative order of everything else.
func removeID(ids []int, id int) []int {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

func (o *observerSet) dispatchProgress(received, expected int64) {
	o.mu.Lock()
	fns := make([]ProgressFunc, 0, len(o.progressOrder))
	for _, id := range o.progressOrder {
		fns = append(fns, o.progress[id])
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(received, expected)
	}
}

func (o *observerSet) dispatchRawResponse(resp *Response) {
	o.mu.Lock()
	isPriority := make(map[int]bool, len(o.rawPriority))
	for _, id := range o.rawPriority {
		isPriority[id] = true
	}
	priority := make([]RawResponseFunc, 0, len(o.rawPriority))
	for _, id := range o.rawPriority {
		priority = append(priority, o.rawResponse[id])
	}
	rest := make([]RawResponseFunc, 0, len(o.rawOrder))
	for _, id := range o.rawOrder {
		if !isPriority[id] {
			rest = append(rest, o.rawResponse[id])
		}
	}
	o.mu.Unlock()
	for _, fn := range priority {
		fn(resp)
	}
	for _, fn := range rest {
		fn(resp)
	}
}

func (o *observerSet) dispatchDecodedObject(resp *Response) {
	o.mu.Lock()
	fns := make([]DecodedObjectFunc, 0, len(o.decodedObjectOrder))
	for _, id := range o.decodedObjectOrder {
		fns = append(fns, o.decodedObject[id])
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(resp)
	}
}
