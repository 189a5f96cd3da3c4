package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/parisxmas/lodgeforms/internal/models"
	"github.com/parisxmas/lodgeforms/internal/notify"
	"github.com/parisxmas/lodgeforms/internal/repository"
)

type sent struct {
	subject, body, to string
}

type fakeNotifier struct {
	mu   sync.Mutex
	ok   bool
	sent []sent
}

func (f *fakeNotifier) Notify(_ context.Context, subject, body, to string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{subject, body, to})
	return f.ok
}

type failingStore struct {
	repository.RecordStore
}

func (failingStore) Append(_ context.Context, collection string, _ any) error {
	return &repository.PersistenceError{Collection: collection, Op: "append", Err: errors.New("disk full")}
}

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)

func validBooking() map[string]string {
	return map[string]string{
		"name":      "Ama Mensah",
		"email":     "ama@example.com",
		"phone":     "0244000000",
		"checkin":   "2025-04-01",
		"checkout":  "2025-04-03",
		"room-type": "executive",
		"adults":    "2",
	}
}

func validContact() map[string]string {
	return map[string]string{
		"contact-name":    "Kofi",
		"contact-email":   "kofi@example.com",
		"subject":         "Directions",
		"contact-message": "How do I get there?",
	}
}

func newService(t *testing.T, n Notifier, opts ...SubmissionOption) (*SubmissionService, *repository.FileStore) {
	t.Helper()
	store, err := repository.NewFileStore(t.TempDir())
	require.NoError(t, err)
	opts = append([]SubmissionOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewSubmissionService(store, n, "owner@example.com", opts...), store
}

func readBookings(t *testing.T, s repository.RecordStore) []models.Booking {
	t.Helper()
	raws, err := s.Read(context.Background(), repository.BookingsCollection)
	require.NoError(t, err)
	out := make([]models.Booking, len(raws))
	for i, r := range raws {
		require.NoError(t, json.Unmarshal(r, &out[i]))
	}
	return out
}

func TestSubmit_Booking(t *testing.T) {
	n := &fakeNotifier{ok: true}
	svc, store := newService(t, n)

	res, err := svc.Submit(context.Background(), BookingPath, validBooking())
	require.NoError(t, err)
	assert.Equal(t, Result{
		Status:  StatusSuccess,
		Message: "Booking request submitted successfully! We will contact you shortly to confirm your reservation.",
	}, res)

	bookings := readBookings(t, store)
	require.Len(t, bookings, 1)
	b := bookings[0]
	assert.Len(t, b.ID, 8)
	assert.Equal(t, "2025-03-14 09:26:53", b.Timestamp)
	assert.Equal(t, "Ama Mensah", b.Name)
	assert.Equal(t, "ama@example.com", b.Email)
	assert.Equal(t, "0244000000", b.Phone)
	assert.Equal(t, "2025-04-01", b.Checkin)
	assert.Equal(t, "2025-04-03", b.Checkout)
	assert.Equal(t, "2", b.Adults)
	assert.Equal(t, "", b.Children)
	assert.Equal(t, "executive", b.RoomType)
	assert.Equal(t, "", b.Message)

	require.Len(t, n.sent, 1)
	assert.Equal(t, "New Booking Request from Ankes Lodge Website", n.sent[0].subject)
	assert.Equal(t, "owner@example.com", n.sent[0].to)
	assert.Contains(t, n.sent[0].body, "Room Type: Executive Room (₵299/night)")
	assert.Contains(t, n.sent[0].body, "Timestamp: 2025-03-14 09:26:53")
	assert.Contains(t, n.sent[0].body, "Name: Ama Mensah")
}

func TestSubmit_Contact(t *testing.T) {
	n := &fakeNotifier{ok: true}
	svc, store := newService(t, n)

	res, err := svc.Submit(context.Background(), ContactPath, validContact())
	require.NoError(t, err)
	assert.Equal(t, "Thank you for your message! We will get back to you soon.", res.Message)

	raws, err := store.Read(context.Background(), repository.ContactsCollection)
	require.NoError(t, err)
	require.Len(t, raws, 1)
	var c models.Contact
	require.NoError(t, json.Unmarshal(raws[0], &c))
	assert.Equal(t, "Kofi", c.Name)
	assert.Equal(t, "kofi@example.com", c.Email)
	assert.Equal(t, "Directions", c.Subject)
	assert.Equal(t, "How do I get there?", c.Message)

	require.Len(t, n.sent, 1)
	assert.Equal(t, "Contact Form: Directions", n.sent[0].subject)
	assert.Contains(t, n.sent[0].body, "Message: How do I get there?")
}

func TestSubmit_MissingFieldPersistsNothing(t *testing.T) {
	for _, field := range DefaultForms()[BookingPath].Required {
		t.Run(field, func(t *testing.T) {
			n := &fakeNotifier{ok: true}
			svc, store := newService(t, n)
			fields := validBooking()
			delete(fields, field)

			res, err := svc.Submit(context.Background(), BookingPath, fields)

			var mf *MissingFieldError
			require.True(t, errors.As(err, &mf))
			assert.Equal(t, field, mf.Field)
			assert.Equal(t, Result{Status: StatusError, Message: "Please fill in all required fields. Missing: " + field}, res)
			assert.Empty(t, readBookings(t, store))
			contacts, err := store.Read(context.Background(), repository.ContactsCollection)
			require.NoError(t, err)
			assert.Empty(t, contacts)
			assert.Empty(t, n.sent)
		})
	}
}

func TestSubmit_ReportsFirstMissingFieldOnly(t *testing.T) {
	svc, _ := newService(t, &fakeNotifier{ok: true})

	res, _ := svc.Submit(context.Background(), ContactPath, map[string]string{"subject": "hi"})
	assert.Equal(t, "Please fill in all required fields. Missing: contact-name", res.Message)
}

func TestSubmit_DistinctIDsInOrder(t *testing.T) {
	svc, store := newService(t, &fakeNotifier{ok: true})
	ctx := context.Background()

	first := validBooking()
	first["name"] = "First"
	second := validBooking()
	second["name"] = "Second"
	_, err := svc.Submit(ctx, BookingPath, first)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, BookingPath, second)
	require.NoError(t, err)

	bookings := readBookings(t, store)
	require.Len(t, bookings, 2)
	assert.NotEqual(t, bookings[0].ID, bookings[1].ID)
	assert.Equal(t, "First", bookings[0].Name)
	assert.Equal(t, "Second", bookings[1].Name)
}

func byLogger(logs *observer.ObservedLogs, name string) *observer.ObservedLogs {
	return logs.Filter(func(e observer.LoggedEntry) bool { return e.LoggerName == name })
}

func TestSubmit_NotificationFailureStillPersists(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := notify.NewDispatcher(nil, time.Second, zap.New(core).Named("notify"))
	svc, store := newService(t, d)

	res, err := svc.Submit(context.Background(), BookingPath, validBooking())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.True(t, strings.HasSuffix(res.Message, " (Note: Email notification failed)"))
	assert.Len(t, readBookings(t, store), 1)

	fb := byLogger(logs, "notify.fallback").All()
	require.Len(t, fb, 1)
	assert.Equal(t, "New Booking Request from Ankes Lodge Website", fb[0].ContextMap()["subject"])
	assert.Contains(t, fb[0].ContextMap()["body"], "Ama Mensah")
	assert.Equal(t, "owner@example.com", fb[0].ContextMap()["to"])
}

func TestSubmit_PersistenceFailure(t *testing.T) {
	n := &fakeNotifier{ok: true}
	svc := NewSubmissionService(failingStore{}, n, "owner@example.com")

	res, err := svc.Submit(context.Background(), BookingPath, validBooking())
	var pe *repository.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, Result{Status: StatusError, Message: "Failed to save booking: disk full"}, res)
	assert.Empty(t, n.sent, "no notification after a failed save")

	res, _ = svc.Submit(context.Background(), ContactPath, validContact())
	assert.Equal(t, "Failed to save message: disk full", res.Message)
}

func TestSubmit_UnknownPath(t *testing.T) {
	n := &fakeNotifier{ok: true}
	svc, store := newService(t, n)

	_, err := svc.Submit(context.Background(), "/process-payment", validBooking())
	assert.ErrorIs(t, err, ErrUnknownForm)
	assert.Empty(t, readBookings(t, store))
	_, statErr := os.Stat(store.Path(repository.ContactsCollection))
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, n.sent)
}

func TestSubmit_CanceledRequestStillSaves(t *testing.T) {
	svc, store := newService(t, &fakeNotifier{ok: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.Submit(ctx, BookingPath, validBooking())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Len(t, readBookings(t, store), 1)
}

func TestSubmit_CustomerConfirmation(t *testing.T) {
	n := &fakeNotifier{ok: true}
	svc, _ := newService(t, n,
		WithCustomerConfirmation(true),
		WithIDGenerator(func() string { return "abcd1234" }),
	)

	_, err := svc.Submit(context.Background(), BookingPath, validBooking())
	require.NoError(t, err)
	require.Len(t, n.sent, 2)
	assert.Equal(t, "ama@example.com", n.sent[1].to)
	assert.Equal(t, "Booking Confirmation - Ankes Lodge (Booking ID: abcd1234)", n.sent[1].subject)
	assert.Contains(t, n.sent[1].body, "Special Requests: None")

	// Contacts get no confirmation.
	_, err = svc.Submit(context.Background(), ContactPath, validContact())
	require.NoError(t, err)
	assert.Len(t, n.sent, 3)
}

func TestSubmit_ConfirmationFailureDoesNotChangeResult(t *testing.T) {
	n := &fakeNotifier{ok: false}
	svc, _ := newService(t, n, WithCustomerConfirmation(true))

	res, err := svc.Submit(context.Background(), BookingPath, validBooking())
	require.NoError(t, err)
	assert.Equal(t, "Booking request submitted successfully! We will contact you shortly to confirm your reservation. (Note: Email notification failed)", res.Message)
}

func TestSubmit_ConcurrentSubmissionsLoseNothing(t *testing.T) {
	svc, store := newService(t, &fakeNotifier{ok: true})
	const n = 40

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f := validBooking()
			f["name"] = fmt.Sprintf("guest-%d", i)
			res, err := svc.Submit(context.Background(), BookingPath, f)
			assert.NoError(t, err)
			assert.Equal(t, StatusSuccess, res.Status)
		}(i)
	}
	wg.Wait()

	bookings := readBookings(t, store)
	require.Len(t, bookings, n)
	names := make(map[string]bool, n)
	for _, b := range bookings {
		names[b.Name] = true
	}
	assert.Len(t, names, n)
}

func TestValidateRequired(t *testing.T) {
	assert.NoError(t, ValidateRequired(map[string]string{"a": "1", "b": "2"}, []string{"a", "b"}))
	assert.NoError(t, ValidateRequired(nil, nil))

	err := ValidateRequired(map[string]string{"a": "", "b": ""}, []string{"a", "b"})
	var mf *MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, "a", mf.Field)

	err = ValidateRequired(map[string]string{"a": "1"}, []string{"a", "b"})
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, "b", mf.Field)
}

func TestRender_UnknownRoomTypePassesThrough(t *testing.T) {
	f := validBooking()
	f["room-type"] = "tent"
	d := buildBooking(f, "id", "ts")
	assert.Contains(t, d.body, "Room Type: tent")
	assert.Equal(t, "tent", d.record.(models.Booking).RoomType)
}
