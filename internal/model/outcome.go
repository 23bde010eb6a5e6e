package model

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"syscall"
	"time"
)

// Outcome is the result of a single fetch. A fetch either produced an HTTP
// response (StatusCode is set) or failed at the transport level (Err is set).
// Outcomes are ephemeral: the crawler consumes each one as soon as it arrives.
type Outcome struct {
	// URL is the normalized URL that was requested.
	URL string

	// StatusCode is the HTTP status of the response. Zero when Err is set.
	StatusCode int

	// ContentType is the raw Content-Type response header.
	ContentType string

	// Body holds the response body for text-like content types, capped at
	// the configured maximum. Nil for binary resources and failures.
	Body []byte

	// Err is the transport error, if any.
	Err error

	// Elapsed is the wall time of the request.
	Elapsed time.Duration
}

// Healthy reports whether the fetch returned exactly 200 OK.
// Redirects and every other status count as broken.
func (o Outcome) Healthy() bool {
	return o.Err == nil && o.StatusCode == http.StatusOK
}

// Code returns the error code recorded for a broken outcome: the status
// code for HTTP responses, or a short transport error code.
func (o Outcome) Code() string {
	if o.Err != nil {
		return ErrorCode(o.Err)
	}
	return strconv.Itoa(o.StatusCode)
}

// ErrorCode maps a transport error to a stable, short code such as
// ECONNREFUSED or ETIMEDOUT. Unknown errors map to their message.
func ErrorCode(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &dnsErr):
		return "ENOTFOUND"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED"
	case errors.Is(err, syscall.ECONNRESET):
		return "ECONNRESET"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return "ETIMEDOUT"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "ETIMEDOUT"
	default:
		return err.Error()
	}
}
