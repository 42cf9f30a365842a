package providertest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Response is a scripted HTTP response.
type Response struct {
	Status int
	Body   string
}

// Request is a recorded request.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Raw    []byte
	// Body is Raw decoded as a JSON object, nil if decoding failed.
	Body map[string]any
}

// Server is an httptest server that replays scripted responses in order.
// Once the script is exhausted it serves the default response if one is set,
// and HTTP 500 otherwise. It is safe for concurrent use.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	responses []Response
	fallback  *Response
	idx       int
	requests  []Request
}

// NewServer starts a Server that serves responses in order. The server is
// closed when the test finishes.
func NewServer(t testing.TB, responses ...Response) *Server {
	t.Helper()
	s := &Server{responses: responses}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// SetDefault sets the response served after the script is exhausted.
func (s *Server) SetDefault(r Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = &r
}

// Requests returns a copy of all recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls returns the number of requests received.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	rec := Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Raw:    raw,
	}
	var body map[string]any
	if json.Unmarshal(raw, &body) == nil {
		rec.Body = body
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	var resp Response
	switch {
	case s.idx < len(s.responses):
		resp = s.responses[s.idx]
		s.idx++
	case s.fallback != nil:
		resp = *s.fallback
	default:
		resp = Response{
			Status: http.StatusInternalServerError,
			Body:   fmt.Sprintf(`{"error":{"message":"providertest: no more responses (consumed %d)"}}`, s.idx),
		}
	}
	s.mu.Unlock()

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, resp.Body)
}

// OK returns a 200 response carrying a well-formed chat completion.
func OK(content string, promptTokens, completionTokens int) Response {
	return Response{
		Status: http.StatusOK,
		Body:   ChatCompletion(content, promptTokens, completionTokens),
	}
}

// Error returns a response with the given status and raw body.
func Error(status int, body string) Response {
	return Response{Status: status, Body: body}
}

// ChatCompletion builds a Chat Completions response body.
func ChatCompletion(content string, promptTokens, completionTokens int) string {
	body := map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
		},
	}
	out, _ := json.Marshal(body)
	return string(out)
}
