package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
)

// Network failure classes reported by Classify.
const (
	ClassTimeout = "timeout"
	ClassDNS     = "dns"
	ClassDial    = "dial"
	ClassTLS     = "tls"
	ClassNetwork = "network"
)

// Classify names the transport failure behind err, or returns "" when err
// did not come from the network (API errors, encoding errors, nil).
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ClassTimeout
		}
		return ClassDNS
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}
	var alert tls.AlertError
	if errors.As(err, &alert) {
		return ClassTLS
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return ClassDial
		}
		return ClassNetwork
	}
	return ""
}

// ShouldRetry reports whether a request that failed with err may be sent
// again: timeouts and refused dials only. A request that reached the
// server and failed mid-flight is not retried.
func ShouldRetry(err error) bool {
	switch Classify(err) {
	case ClassTimeout, ClassDial:
		return true
	}
	return false
}
