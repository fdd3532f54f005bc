package mock

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Request is one call recorded by ApiMock.
type Request struct {
	Headers map[string]string
	Queries map[string]string
	Body    map[string]any
}

type scriptedResponse struct {
	status int
	body   any
}

// ApiMock is a scripted HTTP server standing in for third-party APIs.
// Routes are keyed by method and path; a path segment of "*" matches any
// value. Responses can be scripted per call index or as a route default.
type ApiMock struct {
	mu        sync.Mutex
	server    *httptest.Server
	received  map[string][]Request
	responses map[string]map[int]scriptedResponse
	defaults  map[string]scriptedResponse
}

func NewApiServer() *ApiMock {
	return &ApiMock{
		received:  map[string][]Request{},
		responses: map[string]map[int]scriptedResponse{},
		defaults:  map[string]scriptedResponse{},
	}
}

func (a *ApiMock) Start() {
	a.server = httptest.NewServer(http.HandlerFunc(a.handle))
}

func (a *ApiMock) Close() {
	if a.server != nil {
		a.server.Close()
	}
}

func (a *ApiMock) GetUrl() string {
	if a.server == nil {
		return ""
	}
	return a.server.URL
}

func (a *ApiMock) handle(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	body := map[string]any{}
	_ = json.Unmarshal(raw, &body)

	req := Request{
		Headers: flatten(r.Header),
		Queries: flatten(r.URL.Query()),
		Body:    body,
	}

	a.mu.Lock()
	key := r.Method + r.URL.Path
	index := len(a.received[key])
	a.received[key] = append(a.received[key], req)
	resp := a.responseFor(r.Method, r.URL.Path, index)
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	payload, _ := json.Marshal(resp.body)
	_, _ = w.Write(payload)
}

// SetResponse scripts the response for the index-th call of a route. An
// index of -1 sets the route default.
func (a *ApiMock) SetResponse(index int, method, path string, status int, response map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := method + path
	scripted := scriptedResponse{status: status, body: response}
	if index == -1 {
		a.defaults[key] = scripted
		return
	}
	if a.responses[key] == nil {
		a.responses[key] = map[int]scriptedResponse{}
	}
	a.responses[key][index] = scripted
}

// ClearResponses forgets scripted responses and recorded calls for every
// route whose key starts with method+path.
func (a *ApiMock) ClearResponses(method, path string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prefix := method + path
	for key := range a.received {
		if strings.HasPrefix(key, prefix) {
			delete(a.received, key)
		}
	}
	for key := range a.responses {
		if strings.HasPrefix(key, prefix) {
			delete(a.responses, key)
		}
	}
	for key := range a.defaults {
		if strings.HasPrefix(key, prefix) {
			delete(a.defaults, key)
		}
	}
}

// Calls returns how many requests a route received.
func (a *ApiMock) Calls(method, path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for key, reqs := range a.received {
		if routeMatches(key, method, path) {
			n += len(reqs)
		}
	}
	return n
}

func (a *ApiMock) GetRequestBody(method, path string, index int) map[string]any {
	if req, ok := a.request(method, path, index); ok {
		return req.Body
	}
	return nil
}

func (a *ApiMock) GetRequestHeaders(method, path string, index int) map[string]string {
	if req, ok := a.request(method, path, index); ok {
		return req.Headers
	}
	return nil
}

func (a *ApiMock) GetRequestQueries(method, path string, index int) map[string]string {
	if req, ok := a.request(method, path, index); ok {
		return req.Queries
	}
	return nil
}

func (a *ApiMock) request(method, path string, index int) (Request, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, reqs := range a.received {
		if routeMatches(key, method, path) && index < len(reqs) {
			return reqs[index], true
		}
	}
	return Request{}, false
}

// responseFor must be called with a.mu held.
func (a *ApiMock) responseFor(method, path string, index int) scriptedResponse {
	for key, byIndex := range a.responses {
		if resp, ok := byIndex[index]; ok && routeMatches(key, method, path) {
			return resp
		}
	}
	for key, resp := range a.defaults {
		if routeMatches(key, method, path) {
			return resp
		}
	}
	return scriptedResponse{status: http.StatusOK, body: map[string]any{}}
}

func routeMatches(key, method, path string) bool {
	pattern, ok := strings.CutPrefix(key, method)
	if !ok {
		return false
	}
	if pattern == path {
		return true
	}

	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")
	if len(patternParts) != len(pathParts) {
		return false
	}
	for i := range patternParts {
		if patternParts[i] != "*" && pathParts[i] != "*" && patternParts[i] != pathParts[i] {
			return false
		}
	}
	return true
}

func flatten(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for key, v := range values {
		if len(v) > 0 {
			out[key] = v[0]
		}
	}
	return out
}
