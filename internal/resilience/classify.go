package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// ErrorClass groups failures by how they should be handled.
type ErrorClass int

const (
	ClassUnknown     ErrorClass = iota
	ClassNetwork                // transport-level failure, retryable
	ClassServer                 // status >= 500, retryable
	ClassClient                 // validation or request issues, never retried
	ClassCircuitOpen            // fast failure from an open breaker
	ClassInProgress             // a guarded operation is already running
	ClassCanceled               // caller gave up
)

// String returns a human-readable class name.
func (c ErrorClass) String() string {
	switch c {
	case ClassNetwork:
		return "network"
	case ClassServer:
		return "server"
	case ClassClient:
		return "client"
	case ClassCircuitOpen:
		return "circuit_open"
	case ClassInProgress:
		return "in_progress"
	case ClassCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ErrInProgress is returned when a guarded operation is already running.
var ErrInProgress = errors.New("operation already in progress")

// StatusCoder is implemented by errors that carry an HTTP-like status code.
type StatusCoder interface {
	StatusCode() int
}

// networkPatterns match transport failures that lost their typed error.
var networkPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"unexpected eof",
	": eof",
	"failed to fetch",
	"network error",
}

// Classify determines the class of err.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return ClassCircuitOpen
	case errors.Is(err, ErrInProgress):
		return ClassInProgress
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		switch {
		case code >= 500:
			return ClassServer
		case code >= 400:
			return ClassClient
		case code > 0:
			return ClassClient
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassNetwork
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return ClassNetwork
	}

	lower := strings.ToLower(err.Error())
	for _, p := range networkPatterns {
		if strings.Contains(lower, p) {
			return ClassNetwork
		}
	}

	return ClassUnknown
}

// IsNetworkError reports whether err is a transport-level failure.
func IsNetworkError(err error) bool {
	return Classify(err) == ClassNetwork
}

// IsRetryableGraphQLError reports whether a GraphQL call failing with err
// may succeed on retry: network failures and server errors only.
func IsRetryableGraphQLError(err error) bool {
	switch Classify(err) {
	case ClassNetwork, ClassServer:
		return true
	default:
		return false
	}
}
