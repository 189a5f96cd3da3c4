package notify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/textproto"
	"strings"

	"github.com/wneessen/go-mail"
)

// FailureKind classifies a failed delivery for diagnostics.
type FailureKind string

const (
	FailureNone         FailureKind = ""
	FailureAuth         FailureKind = "auth"
	FailureTransport    FailureKind = "transport"
	FailureUnclassified FailureKind = "unclassified"
)

// SMTP reply codes that mean the server rejected our credentials.
var authCodes = map[int]bool{
	530: true, // authentication required
	534: true, // authentication mechanism too weak / app password required
	535: true, // credentials invalid
	538: true, // encryption required for requested mechanism
}

// go-mail reports these capability mismatches as bare strings.
var unsupportedSnippets = []string{
	"does not support STARTTLS",
	"does not support SMTP AUTH",
}

// Classify maps a delivery error onto a FailureKind. Any SMTP reply error
// that is not an authentication rejection counts as a transport fault, as do
// refused MAIL/RCPT/DATA commands, missing server capabilities and network,
// TLS or timeout errors.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		if authCodes[tpErr.Code] {
			return FailureAuth
		}
		return FailureTransport
	}

	// SendError does not unwrap to the server reply.
	var sendErr *mail.SendError
	if errors.As(err, &sendErr) {
		return FailureTransport
	}

	var (
		netErr    net.Error
		recordErr tls.RecordHeaderError
		certErr   *tls.CertificateVerificationError
		unknownCA x509.UnknownAuthorityError
		hostErr   x509.HostnameError
		protoErr  textproto.ProtocolError
	)
	switch {
	case errors.As(err, &netErr),
		errors.As(err, &recordErr),
		errors.As(err, &certErr),
		errors.As(err, &unknownCA),
		errors.As(err, &hostErr),
		errors.As(err, &protoErr),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, mail.ErrPlainAuthNotSupported),
		errors.Is(err, mail.ErrLoginAuthNotSupported),
		errors.Is(err, mail.ErrCramMD5AuthNotSupported),
		errors.Is(err, mail.ErrXOauth2AuthNotSupported),
		errors.Is(err, mail.ErrNoActiveConnection),
		errors.Is(err, mail.ErrServerNoUnencoded):
		return FailureTransport
	}
	msg := err.Error()
	for _, snippet := range unsupportedSnippets {
		if strings.Contains(msg, snippet) {
			return FailureTransport
		}
	}
	return FailureUnclassified
}
