package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/taskpilot/internal/config"
)

func TestMockLLMQueue(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	m := NewMockLLM().Reply("first").Fail(boom)

	got, err := m.Complete(ctx, "sys", "one")
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	_, err = m.Complete(ctx, "sys", "two")
	assert.ErrorIs(t, err, boom)

	got, err = m.Complete(ctx, "sys", "earlier line\nhello there")
	require.NoError(t, err)
	assert.Contains(t, got, `"hello there"`)

	calls := m.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "two", calls[1].User)
}

func TestMockLLMHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockLLM().Reply("never").Complete(ctx, "", "")
	assert.ErrorIs(t, err, context.Canceled)
}

type deadlineProbe struct {
	deadline time.Time
	ok       bool
}

func (p *deadlineProbe) Complete(ctx context.Context, _, _ string) (string, error) {
	p.deadline, p.ok = ctx.Deadline()
	return "ok", nil
}

func TestWithTimeout(t *testing.T) {
	probe := &deadlineProbe{}
	start := time.Now()

	out, err := WithTimeout(probe, time.Minute).Complete(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	require.True(t, probe.ok)
	assert.WithinDuration(t, start.Add(time.Minute), probe.deadline, 5*time.Second)
}

func TestNew(t *testing.T) {
	c, err := New(context.Background(), config.LLMConfig{Provider: config.ProviderMock})
	require.NoError(t, err)
	assert.IsType(t, &MockLLM{}, c)

	_, err = New(context.Background(), config.LLMConfig{Provider: "llama"})
	assert.Error(t, err)

	c, err = New(context.Background(), config.LLMConfig{
		Provider: config.ProviderAnthropic,
		APIKey:   "test",
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	assert.IsType(t, &timeoutCompleter{}, c)

	c, err = New(context.Background(), config.LLMConfig{Provider: config.ProviderOpenAI, APIKey: "test"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)
}
