package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/orb-chat/orb/internal/provider"
)

// fakeUpstream serves scripted chat-completion responses and records
// every request body it receives.
type fakeUpstream struct {
	mu        sync.Mutex
	responses []string
	status    int
	calls     int
	bodies    []apiRequest
}

func (f *fakeUpstream) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var req apiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		f.bodies = append(f.bodies, req)

		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded"}}`))
			return
		}

		idx := f.calls
		if idx >= len(f.responses) {
			idx = len(f.responses) - 1
		}
		f.calls++
		_, _ = w.Write([]byte(f.responses[idx]))
	}
}

func textResponse(content string) string {
	return `{"choices":[{"message":{"role":"assistant","content":` + jsonString(content) + `},"finish_reason":"stop"}]}`
}

func toolCallResponse(id, name, args string) string {
	return `{"choices":[{"message":{"role":"assistant","content":"","tool_calls":[` +
		`{"id":"` + id + `","type":"function","function":{"name":"` + name + `","arguments":` + jsonString(args) + `}}` +
		`]},"finish_reason":"tool_calls"}]}`
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func newTestClient(t *testing.T, up *fakeUpstream) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(up.handler(t))
	t.Cleanup(srv.Close)

	c := New(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test/model",
		Referer: "https://example.test",
		Title:   "orb-test",
	}, nil, nil)
	return c, srv
}

func memoryTools() []provider.ToolDefinition {
	return []provider.ToolDefinition{
		{Name: "editUserMemory", Parameters: json.RawMessage(`{"type":"object"}`)},
		{Name: "editServerMemory", Parameters: json.RawMessage(`{"type":"object"}`)},
	}
}

func TestText_ReturnsContent(t *testing.T) {
	t.Parallel()

	up := &fakeUpstream{responses: []string{textResponse("  hello  ")}}
	c, _ := newTestClient(t, up)

	got, err := c.Text(context.Background(), []provider.Message{provider.UserMessage("hi")})
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "hello" {
		t.Errorf("Text = %q, want trimmed %q", got, "hello")
	}
	if up.bodies[0].ToolChoice != "none" {
		t.Errorf("tool_choice = %q, want none", up.bodies[0].ToolChoice)
	}
}

func TestText_ModelOverride(t *testing.T) {
	t.Parallel()

	up := &fakeUpstream{responses: []string{textResponse("ok")}}
	c, _ := newTestClient(t, up)

	_, err := c.Text(context.Background(),
		[]provider.Message{provider.UserMessage("hi")},
		provider.WithModel("cheap/model"))
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if up.bodies[0].Model != "cheap/model" {
		t.Errorf("model = %q, want override", up.bodies[0].Model)
	}
}

func TestText_EmptyContentIsError(t *testing.T) {
	t.Parallel()

	up := &fakeUpstream{responses: []string{`{"choices":[{"message":{"role":"assistant","content":""}}]}`}}
	c, _ := newTestClient(t, up)

	_, err := c.Text(context.Background(), []provider.Message{provider.UserMessage("hi")})
	if !errors.Is(err, provider.ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestText_UpstreamStatusError(t *testing.T) {
	t.Parallel()

	up := &fakeUpstream{status: http.StatusBadGateway}
	c, _ := newTestClient(t, up)

	_, err := c.Text(context.Background(), []provider.Message{provider.UserMessage("hi")})
	if !errors.Is(err, provider.ErrUpstreamStatus) {
		t.Fatalf("err = %v, want ErrUpstreamStatus", err)
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error should include the status code: %v", err)
	}
	if !strings.Contains(err.Error(), "upstream exploded") {
		t.Errorf("error should include a body excerpt: %v", err)
	}
}

func TestWithTools_NoCallsReturnsImmediately(t *testing.T) {
	t.Parallel()

	up := &fakeUpstream{responses: []string{textResponse("direct answer")}}
	c, _ := newTestClient(t, up)

	var ran int
	c.SetToolRunner(provider.ToolRunnerFunc(func(context.Context, provider.ToolCall) string {
		ran++
		return "unused"
	}))

	got, err := c.WithTools(context.Background(), []provider.Message{provider.UserMessage("hi")}, memoryTools())
	if err != nil {
		t.Fatalf("WithTools: %v", err)
	}
	if got != "direct answer" {
		t.Errorf("WithTools = %q", got)
	}
	if ran != 0 {
		t.Errorf("tool runner invoked %d times, want 0", ran)
	}
	if up.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", up.calls)
	}
}

func TestWithTools_SingleToolRound(t *testing.T) {
	t.Parallel()

	up := &fakeUpstream{responses: []string{
		toolCallResponse("call-1", "editUserMemory", `{"userId":"u1","memory":"likes go"}`),
		textResponse("done remembering"),
	}}
	c, _ := newTestClient(t, up)

	var calls []provider.ToolCall
	c.SetToolRunner(provider.ToolRunnerFunc(func(_ context.Context, call provider.ToolCall) string {
		calls = append(calls, call)
		return "OK: user memory updated (20/1200 chars)."
	}))

	got, err := c.WithTools(context.Background(), []provider.Message{provider.UserMessage("remember this")}, memoryTools())
	if err != nil {
		t.Fatalf("WithTools: %v", err)
	}
	if got != "done remembering" {
		t.Errorf("WithTools = %q", got)
	}
	if len(calls) != 1 || calls[0].Name != "editUserMemory" || calls[0].ID != "call-1" {
		t.Fatalf("tool calls = %+v", calls)
	}

	// Second request must carry the assistant tool-call turn and the
	// correlated tool result, in that order.
	second := up.bodies[1].Messages
	if len(second) != 3 {
		t.Fatalf("second request has %d messages, want 3", len(second))
	}
	if second[1].Role != "assistant" || len(second[1].ToolCalls) != 1 {
		t.Errorf("second[1] = %+v, want assistant tool-call turn", second[1])
	}
	if second[2].Role != "tool" || second[2].ToolCallID != "call-1" {
		t.Errorf("second[2] = %+v, want correlated tool turn", second[2])
	}
	if !strings.Contains(second[2].Content, "OK: user memory updated") {
		t.Errorf("tool turn content = %q", second[2].Content)
	}
}

func TestWithTools_MultipleCallsKeepRequestOrder(t *testing.T) {
	t.Parallel()

	up := &fakeUpstream{responses: []string{
		`{"choices":[{"message":{"role":"assistant","content":"","tool_calls":[` +
			`{"id":"a","type":"function","function":{"name":"editUserMemory","arguments":"{}"}},` +
			`{"id":"b","type":"function","function":{"name":"editServerMemory","arguments":"{}"}}` +
			`]}}]}`,
		textResponse("both done"),
	}}
	c, _ := newTestClient(t, up)

	var order []string
	c.SetToolRunner(provider.ToolRunnerFunc(func(_ context.Context, call provider.ToolCall) string {
		order = append(order, call.ID)
		return "ok"
	}))

	if _, err := c.WithTools(context.Background(), []provider.Message{provider.UserMessage("x")}, memoryTools()); err != nil {
		t.Fatalf("WithTools: %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("execution order = %v, want [a b]", order)
	}

	second := up.bodies[1].Messages
	if second[2].ToolCallID != "a" || second[3].ToolCallID != "b" {
		t.Errorf("tool turns out of order: %+v", second[2:])
	}
}

func TestWithTools_ExhaustionReturnsSentinel(t *testing.T) {
	t.Parallel()

	// Every round requests another tool call; the loop must stop at
	// MaxRounds and return the sentinel without error.
	up := &fakeUpstream{responses: []string{
		toolCallResponse("c", "editUserMemory", `{}`),
	}}
	c, _ := newTestClient(t, up)

	var ran int
	c.SetToolRunner(provider.ToolRunnerFunc(func(context.Context, provider.ToolCall) string {
		ran++
		return "ok"
	}))

	got, err := c.WithTools(context.Background(), []provider.Message{provider.UserMessage("x")}, memoryTools())
	if err != nil {
		t.Fatalf("WithTools: %v", err)
	}
	if got != Sentinel {
		t.Errorf("WithTools = %q, want sentinel", got)
	}
	if up.calls != DefaultMaxRounds {
		t.Errorf("upstream calls = %d, want %d", up.calls, DefaultMaxRounds)
	}
	if ran != DefaultMaxRounds {
		t.Errorf("tool executions = %d, want %d", ran, DefaultMaxRounds)
	}
}

func TestWithTools_EmptyFinalTextBecomesPlaceholder(t *testing.T) {
	t.Parallel()

	up := &fakeUpstream{responses: []string{`{"choices":[{"message":{"role":"assistant","content":"  "}}]}`}}
	c, _ := newTestClient(t, up)

	got, err := c.WithTools(context.Background(), []provider.Message{provider.UserMessage("x")}, nil)
	if err != nil {
		t.Fatalf("WithTools: %v", err)
	}
	if got != "(no content)" {
		t.Errorf("WithTools = %q, want placeholder", got)
	}
}

func TestAuthAndAttributionHeaders(t *testing.T) {
	t.Parallel()

	var gotAuth, gotReferer, gotTitle string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		_, _ = w.Write([]byte(textResponse("hi")))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "secret", Model: "m", Referer: "https://r", Title: "orb"}, nil, nil)
	if _, err := c.Text(context.Background(), []provider.Message{provider.UserMessage("x")}); err != nil {
		t.Fatalf("Text: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReferer != "https://r" || gotTitle != "orb" {
		t.Errorf("attribution headers = %q, %q", gotReferer, gotTitle)
	}
}
