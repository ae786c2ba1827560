package retry

import (
	"context"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/pkg/errors"
)

// Class tells the invoker whether a failed attempt may be retried.
type Class int

const (
	Fatal Class = iota
	Transient
)

func (c Class) String() string {
	if c == Transient {
		return "transient"
	}
	return "fatal"
}

// Classifier maps an error returned by a call to its retry class.
type Classifier func(error) Class

// TransientStatusCodes are the upstream status codes retried by default.
var TransientStatusCodes = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// DefaultClassifier retries rate limiting, temporary backend failures and
// connection level errors. Everything else, including malformed responses and
// caller cancellation, is fatal.
func DefaultClassifier(err error) Class {
	if err == nil {
		return Fatal
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return Transient
	}

	var status *StatusError
	if errors.As(err, &status) {
		if TransientStatusCodes[status.StatusCode] {
			return Transient
		}
		return Fatal
	}

	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return Fatal
	}

	if errors.Is(err, context.Canceled) {
		return Fatal
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient
	}

	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return Transient
	}

	return Fatal
}
