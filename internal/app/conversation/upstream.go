package conversation

import (
	"context"
	"errors"
	"net"
	"regexp"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorType classifies a failure of the language-model provider.
type ErrorType string

const (
	ErrorQuotaExceeded      ErrorType = "quota_exceeded"
	ErrorServiceUnavailable ErrorType = "service_unavailable"
	ErrorNetwork            ErrorType = "network_error"
	ErrorUnknown            ErrorType = "unknown"
)

// UpstreamError is a provider failure mapped onto a fixed user-facing
// message. It never carries dialogue markers.
type UpstreamError struct {
	Type      ErrorType
	Retryable bool
	Message   string
	Err       error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return string(e.Type) + ": " + e.Message
	}
	return string(e.Type) + ": " + e.Message + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

var (
	quotaPattern       = regexp.MustCompile(`(?i)quota|rate.?limit|resource.?exhausted|too many requests|\b429\b|insufficient_quota`)
	unavailablePattern = regexp.MustCompile(`(?i)api.?key|unauthori[sz]ed|permission|forbidden|credential|not configured|\b40[13]\b|\b503\b|unavailable|overloaded|model not found`)
	networkPattern     = regexp.MustCompile(`(?i)timeout|timed out|deadline exceeded|connection (refused|reset)|no such host|network|broken pipe|\beof\b`)
)

var upstreamMessages = map[ErrorType]string{
	ErrorQuotaExceeded:      "The AI service is out of quota right now. Please wait a while before trying again.",
	ErrorServiceUnavailable: "The AI service is unavailable or misconfigured. Please contact support if this keeps happening.",
	ErrorNetwork:            "I couldn't reach the AI service. Please try again.",
	ErrorUnknown:            "Something went wrong while talking to the AI service. Please try again.",
}

// ClassifyUpstreamError maps a provider error onto the error taxonomy by
// inspecting its type and message. Quota and configuration failures are
// not retryable; network and unknown failures are.
func ClassifyUpstreamError(err error) *UpstreamError {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue
	}

	typ := grpcErrorType(err)
	var netErr net.Error
	msg := err.Error()
	switch {
	case typ != ErrorUnknown:
	case quotaPattern.MatchString(msg):
		typ = ErrorQuotaExceeded
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr), networkPattern.MatchString(msg):
		typ = ErrorNetwork
	case unavailablePattern.MatchString(msg):
		typ = ErrorServiceUnavailable
	}

	return &UpstreamError{
		Type:      typ,
		Retryable: typ == ErrorNetwork || typ == ErrorUnknown,
		Message:   upstreamMessages[typ],
		Err:       err,
	}
}

// grpcErrorType maps gRPC status codes returned by the Google clients.
func grpcErrorType(err error) ErrorType {
	st, ok := status.FromError(err)
	if !ok {
		return ErrorUnknown
	}
	switch st.Code() {
	case codes.ResourceExhausted:
		return ErrorQuotaExceeded
	case codes.DeadlineExceeded:
		return ErrorNetwork
	case codes.Unavailable, codes.PermissionDenied, codes.Unauthenticated, codes.NotFound:
		return ErrorServiceUnavailable
	}
	return ErrorUnknown
}
