package probe

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// classify maps a transport error to a kind and a readable message.
func classify(err error) (ErrorKind, string) {
	var dnsErr *net.DNSError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorKindTimeout, "request timed out"
	case errors.As(err, &dnsErr):
		return ErrorKindDNS, "DNS lookup failed"
	case errors.Is(err, syscall.ECONNREFUSED):
		return ErrorKindConnectionRefused, "connection refused"
	case errors.Is(err, syscall.ECONNRESET):
		return ErrorKindConnectionReset, "connection reset"
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrorKindConnectionClosed, "connection closed before response"
	case errors.As(err, &netErr) && netErr.Timeout():
		return ErrorKindTimeout, "request timed out"
	default:
		return ErrorKindNetwork, err.Error()
	}
}
