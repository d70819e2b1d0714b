package metrics

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"syscall"
)

// ErrorKind is a coarse classification of a transport-level failure, used
// as the key of the error histogram in reports.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindConnection ErrorKind = "connection"
	KindDNS        ErrorKind = "dns"
	KindTLS        ErrorKind = "tls"
	KindCanceled   ErrorKind = "canceled"
	KindOther      ErrorKind = "other"
)

// ClassifyError maps a request error to its ErrorKind. Classification is
// structural (errors.As / net.Error), never based on error strings.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindDNS
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return KindTLS
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return KindTLS
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return KindConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}

	return KindOther
}
