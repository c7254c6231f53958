package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassifyUpstreamError(t *testing.T) {
	cases := []struct {
		err       error
		want      ErrorType
		retryable bool
	}{
		{errors.New("googleapi: Error 429: Resource has been exhausted (e.g. check quota)."), ErrorQuotaExceeded, false},
		{errors.New(`POST "https://api.openai.com/v1/responses": 429 Too Many Requests`), ErrorQuotaExceeded, false},
		{errors.New("insufficient_quota"), ErrorQuotaExceeded, false},
		{errors.New("401 Unauthorized: invalid x-api-key"), ErrorServiceUnavailable, false},
		{errors.New("anthropic: 529 overloaded_error: Overloaded"), ErrorServiceUnavailable, false},
		{errors.New("model not found: gemini-9"), ErrorServiceUnavailable, false},
		{context.DeadlineExceeded, ErrorNetwork, true},
		{fmt.Errorf("generate: %w", context.DeadlineExceeded), ErrorNetwork, true},
		{errors.New("dial tcp 10.0.0.1:443: connect: connection refused"), ErrorNetwork, true},
		{errors.New("unexpected EOF"), ErrorNetwork, true},
		{errors.New("something odd happened"), ErrorUnknown, true},
		{status.Error(codes.ResourceExhausted, "slow down"), ErrorQuotaExceeded, false},
		{status.Error(codes.Unauthenticated, "bad token"), ErrorServiceUnavailable, false},
		{fmt.Errorf("firestore: %w", status.Error(codes.DeadlineExceeded, "late")), ErrorNetwork, true},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			ue := ClassifyUpstreamError(tc.err)
			require.NotNil(t, ue)
			assert.Equal(t, tc.want, ue.Type)
			assert.Equal(t, tc.retryable, ue.Retryable)
			assert.NotEmpty(t, ue.Message)
			assert.False(t, HasMarker(ue.Message))
			assert.ErrorIs(t, ue, tc.err)
		})
	}
}

func TestClassifyUpstreamErrorPassesThrough(t *testing.T) {
	assert.Nil(t, ClassifyUpstreamError(nil))

	orig := &UpstreamError{Type: ErrorQuotaExceeded, Message: "x"}
	assert.Same(t, orig, ClassifyUpstreamError(fmt.Errorf("wrapped: %w", orig)))
}
