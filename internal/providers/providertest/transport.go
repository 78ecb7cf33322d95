// Package providertest fakes provider HTTP APIs for adapter tests.
package providertest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
)

// Response is a canned reply.
type Response struct {
	Status int
	Body   string
	Header http.Header
}

// Recorded is a request seen by the transport, with its body read out.
type Recorded struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// JSON decodes the recorded request body into a generic map.
func (r Recorded) JSON() map[string]any {
	out := map[string]any{}
	_ = json.Unmarshal(r.Body, &out)
	return out
}

// Transport answers by matching "METHOD path" first and then bare path.
// Unknown routes get a 404.
type Transport struct {
	mu        sync.Mutex
	Responses map[string][]Response
	Requests  []Recorded
	hits      map[string]int
}

func NewTransport() *Transport {
	return &Transport{Responses: map[string][]Response{}, hits: map[string]int{}}
}

// On queues responses for a route. The last one repeats once the queue runs
// out.
func (t *Transport) On(route string, responses ...Response) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Responses[route] = append(t.Responses[route], responses...)
	return t
}

// Client returns an http.Client using the transport.
func (t *Transport) Client() *http.Client { return &http.Client{Transport: t} }

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Requests = append(t.Requests, Recorded{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})

	route := req.Method + " " + req.URL.Path
	queue, ok := t.Responses[route]
	if !ok {
		route = req.URL.Path
		queue, ok = t.Responses[route]
	}
	if !ok || len(queue) == 0 {
		return reply(req, Response{Status: http.StatusNotFound, Body: `{"error":"not found"}`}), nil
	}
	idx := t.hits[route]
	if idx >= len(queue) {
		idx = len(queue) - 1
	}
	t.hits[route]++
	return reply(req, queue[idx]), nil
}

// Last returns the most recent request.
func (t *Transport) Last() Recorded {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Requests) == 0 {
		return Recorded{}
	}
	return t.Requests[len(t.Requests)-1]
}

// Func adapts a function to http.RoundTripper.
type Func func(*http.Request) (*http.Response, error)

func (f Func) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func reply(req *http.Request, r Response) *http.Response {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	header := r.Header
	if header == nil {
		header = http.Header{"Content-Type": []string{"application/json"}}
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewBufferString(r.Body)),
		Request:    req,
	}
}
