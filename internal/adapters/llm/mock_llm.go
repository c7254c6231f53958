package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockLLM is a scripted Completer for local mode and tests. Queued replies
// are returned in order; once they run out it echoes the prompt.
type MockLLM struct {
	mu      sync.Mutex
	replies []mockReply
	calls   []MockCall
}

type mockReply struct {
	text string
	err  error
}

// MockCall records one Complete invocation.
type MockCall struct {
	System string
	User   string
}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Reply queues a successful completion.
func (m *MockLLM) Reply(text string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, mockReply{text: text})
	return m
}

// Fail queues a failed completion.
func (m *MockLLM) Fail(err error) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, mockReply{err: err})
	return m
}

// Calls returns every prompt seen so far.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

func (m *MockLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{System: systemPrompt, User: userPrompt})

	if len(m.replies) > 0 {
		r := m.replies[0]
		m.replies = m.replies[1:]
		return r.text, r.err
	}

	// Not JSON, so task extraction exercises the fallback path in local mode.
	last := userPrompt
	if i := strings.LastIndex(userPrompt, "\n"); i >= 0 {
		last = userPrompt[i+1:]
	}
	return fmt.Sprintf("I hear you. You said %q. Try \"add task: ...\" or \"weekly report\" when you're ready.", last), nil
}
