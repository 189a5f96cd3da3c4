package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parisxmas/lodgeforms/internal/metrics"
	"github.com/parisxmas/lodgeforms/internal/models"
	"github.com/parisxmas/lodgeforms/internal/repository"
)

// ErrUnknownForm is returned for a path that no form is registered under.
var ErrUnknownForm = errors.New("unknown form")

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the JSON body answered for every recognised submission.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Notifier delivers an email on a best-effort basis and reports whether it
// went out.
type Notifier interface {
	Notify(ctx context.Context, subject, body, recipient string) bool
}

type SubmissionService struct {
	store     repository.RecordStore
	notifier  Notifier
	recipient string
	confirm   bool
	forms     map[string]Form
	metrics   *metrics.Metrics
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

type SubmissionOption func(*SubmissionService)

// WithCustomerConfirmation also mails the submitter of a booking.
func WithCustomerConfirmation(on bool) SubmissionOption {
	return func(s *SubmissionService) { s.confirm = on }
}

func WithMetrics(m *metrics.Metrics) SubmissionOption {
	return func(s *SubmissionService) { s.metrics = m }
}

func WithLogger(l *zap.Logger) SubmissionOption {
	return func(s *SubmissionService) { s.logger = l }
}

// WithClock replaces the time source used for record timestamps.
func WithClock(now func() time.Time) SubmissionOption {
	return func(s *SubmissionService) { s.now = now }
}

// WithIDGenerator replaces the record id source.
func WithIDGenerator(gen func() string) SubmissionOption {
	return func(s *SubmissionService) { s.newID = gen }
}

func WithForms(forms map[string]Form) SubmissionOption {
	return func(s *SubmissionService) { s.forms = forms }
}

func NewSubmissionService(store repository.RecordStore, notifier Notifier, recipient string, opts ...SubmissionOption) *SubmissionService {
	s := &SubmissionService{
		store:     store,
		notifier:  notifier,
		recipient: recipient,
		forms:     DefaultForms(),
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     shortID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func shortID() string {
	return uuid.NewString()[:8]
}

// Submit validates fields against the form registered for path, appends the
// resulting record and notifies the operator.
//
// The returned error is ErrUnknownForm, a *MissingFieldError or a
// *repository.PersistenceError. Only ErrUnknownForm comes without a Result;
// the others are already reflected in the Result's message. A failed
// notification is not an error.
func (s *SubmissionService) Submit(ctx context.Context, path string, fields map[string]string) (Result, error) {
	form, ok := s.forms[path]
	if !ok {
		return Result{}, ErrUnknownForm
	}
	log := s.logger.With(zap.String("form", form.Kind))

	if err := ValidateRequired(fields, form.Required); err != nil {
		var mf *MissingFieldError
		errors.As(err, &mf)
		log.Info("submission rejected", zap.String("missing", mf.Field))
		s.metrics.ObserveSubmission(form.Kind, "invalid")
		return Result{
			Status:  StatusError,
			Message: "Please fill in all required fields. Missing: " + mf.Field,
		}, err
	}

	d := form.build(fields, s.newID(), s.now().Format(models.TimestampLayout))

	// A validated record is stored, and the operator told, even if the
	// client goes away.
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	err := s.store.Append(ctx, form.Collection, d.record)
	s.metrics.ObserveAppend(form.Collection, time.Since(start))
	if err != nil {
		log.Error("saving submission", zap.Error(err))
		s.metrics.ObserveSubmission(form.Kind, "error")
		return Result{
			Status:  StatusError,
			Message: form.SaveFailed + ": " + cause(err).Error(),
		}, err
	}
	log.Info("submission saved", zap.String("collection", form.Collection))
	s.metrics.ObserveSubmission(form.Kind, "success")

	msg := form.Success
	if !s.notifier.Notify(ctx, d.subject, d.body, s.recipient) {
		msg += notifyFailedNote
	}
	if s.confirm && d.confirm != nil {
		if !s.notifier.Notify(ctx, d.confirm.Subject, d.confirm.Body, d.confirm.To) {
			log.Warn("customer confirmation not delivered", zap.String("to", d.confirm.To))
		}
	}
	return Result{Status: StatusSuccess, Message: msg}, nil
}

func cause(err error) error {
	var pe *repository.PersistenceError
	if errors.As(err, &pe) && pe.Err != nil {
		return pe.Err
	}
	return err
}
