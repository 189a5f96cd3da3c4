// Package notify delivers operator notifications by email on a best-effort
// basis. Delivery failures are classified and logged, and the intended
// message is written to a fallback logger so it is never silently lost.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no mail transport is configured.
var ErrNotConfigured = errors.New("mail transport not configured")

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message or reports why it could not.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Observer is told the outcome of every delivery attempt. kind is
// FailureNone on success.
type Observer interface {
	ObserveNotification(kind FailureKind)
}

// Dispatcher wraps a Sender with a timeout, failure classification and
// fallback logging. Notify never returns the underlying fault.
type Dispatcher struct {
	sender   Sender
	timeout  time.Duration
	logger   *zap.Logger
	fallback *zap.Logger
	observer Observer
}

type Option func(*Dispatcher)

// WithObserver reports every delivery outcome to o.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithFallbackLogger overrides where undelivered messages are written.
func WithFallbackLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.fallback = l }
}

// NewDispatcher returns a dispatcher sending through sender. A nil sender
// makes every attempt fail with ErrNotConfigured.
func NewDispatcher(sender Sender, timeout time.Duration, logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		sender:   sender,
		timeout:  timeout,
		logger:   logger,
		fallback: logger.Named("fallback"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify attempts delivery and reports whether it succeeded.
func (d *Dispatcher) Notify(ctx context.Context, subject, body, recipient string) bool {
	msg := Message{To: recipient, Subject: subject, Body: body}

	err := d.send(ctx, msg)
	if err == nil {
		d.logger.Info("email sent", zap.String("to", recipient), zap.String("subject", subject))
		d.observe(FailureNone)
		return true
	}

	kind := Classify(err)
	fields := []zap.Field{zap.String("failure", string(kind)), zap.String("to", recipient), zap.Error(err)}
	switch kind {
	case FailureAuth:
		d.logger.Warn("email authentication failed; check SMTP_USERNAME and SMTP_PASSWORD (an app password is required for Gmail)", fields...)
	case FailureTransport:
		d.logger.Warn("email transport error", fields...)
	default:
		d.logger.Warn("email sending failed", fields...)
	}

	d.fallback.Warn("EMAIL NOTIFICATION (FALLBACK)",
		zap.String("to", recipient),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	d.observe(kind)
	return false
}

func (d *Dispatcher) send(ctx context.Context, msg Message) (err error) {
	if d.sender == nil {
		return ErrNotConfigured
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()
	return d.sender.Send(ctx, msg)
}

func (d *Dispatcher) observe(kind FailureKind) {
	if d.observer != nil {
		d.observer.ObserveNotification(kind)
	}
}
