package service

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/parisxmas/lodgeforms/internal/models"
	"github.com/parisxmas/lodgeforms/internal/notify"
	"github.com/parisxmas/lodgeforms/internal/repository"
)

// Submission paths.
const (
	BookingPath = "/process-booking"
	ContactPath = "/process-contact"
)

const notifyFailedNote = " (Note: Email notification failed)"

// Form describes one kind of submission: what it requires, where it is
// stored and how the operator is told about it.
type Form struct {
	Kind       string
	Collection string
	// Required is checked in order; only the first missing field is reported.
	Required []string
	// Success is the response message once the record is stored.
	Success string
	// SaveFailed prefixes the cause of a persistence failure.
	SaveFailed string

	build func(fields map[string]string, id, ts string) draft
}

// draft is a record ready to append plus the notifications it triggers.
type draft struct {
	record  any
	subject string
	body    string
	// confirm is sent to the submitter when customer confirmation is on.
	confirm *notify.Message
}

// DefaultForms returns the booking and contact forms keyed by path.
func DefaultForms() map[string]Form {
	return map[string]Form{
		BookingPath: {
			Kind:       "booking",
			Collection: repository.BookingsCollection,
			Required:   []string{"name", "email", "phone", "checkin", "checkout", "room-type"},
			Success:    "Booking request submitted successfully! We will contact you shortly to confirm your reservation.",
			SaveFailed: "Failed to save booking",
			build:      buildBooking,
		},
		ContactPath: {
			Kind:       "contact",
			Collection: repository.ContactsCollection,
			Required:   []string{"contact-name", "contact-email", "subject", "contact-message"},
			Success:    "Thank you for your message! We will get back to you soon.",
			SaveFailed: "Failed to save message",
			build:      buildContact,
		},
	}
}

var (
	bookingTmpl = template.Must(template.New("booking").Funcs(tmplFuncs).Parse(`New Booking Request:

Name: {{.Name}}
Email: {{.Email}}
Phone: {{.Phone}}
Check-in Date: {{.Checkin}}
Check-out Date: {{.Checkout}}
Adults: {{.Adults}}
Children: {{.Children}}
Room Type: {{roomType .RoomType}}
Special Requests: {{.Message}}
Timestamp: {{.Timestamp}}
`))

	confirmTmpl = template.Must(template.New("confirm").Funcs(tmplFuncs).Parse(`Dear {{.Name}},

Thank you for booking with Ankes Lodge. Your booking details are as follows:

Booking ID: {{.ID}}
Name: {{.Name}}
Check-in Date: {{.Checkin}}
Check-out Date: {{.Checkout}}
Adults: {{.Adults}}
Children: {{.Children}}
Room Type: {{roomType .RoomType}}
Special Requests: {{or .Message "None"}}

We will contact you shortly to confirm your reservation and provide payment details.

Best regards,
Ankes Lodge Team
`))

	contactTmpl = template.Must(template.New("contact").Parse(`New Contact Form Submission:

Name: {{.Name}}
Email: {{.Email}}
Subject: {{.Subject}}
Message: {{.Message}}
Timestamp: {{.Timestamp}}
`))

	tmplFuncs = template.FuncMap{"roomType": models.RoomTypeName}
)

func buildBooking(f map[string]string, id, ts string) draft {
	b := models.Booking{
		ID:        id,
		Timestamp: ts,
		Name:      f["name"],
		Email:     f["email"],
		Phone:     f["phone"],
		Checkin:   f["checkin"],
		Checkout:  f["checkout"],
		Adults:    f["adults"],
		Children:  f["children"],
		RoomType:  f["room-type"],
		Message:   f["message"],
	}
	return draft{
		record:  b,
		subject: "New Booking Request from Ankes Lodge Website",
		body:    render(bookingTmpl, b),
		confirm: &notify.Message{
			To:      b.Email,
			Subject: fmt.Sprintf("Booking Confirmation - Ankes Lodge (Booking ID: %s)", b.ID),
			Body:    render(confirmTmpl, b),
		},
	}
}

func buildContact(f map[string]string, id, ts string) draft {
	c := models.Contact{
		ID:        id,
		Timestamp: ts,
		Name:      f["contact-name"],
		Email:     f["contact-email"],
		Subject:   f["subject"],
		Message:   f["contact-message"],
	}
	return draft{
		record:  c,
		subject: "Contact Form: " + c.Subject,
		body:    render(contactTmpl, c),
	}
}

// render executes t, falling back to a plain dump of data so a notification
// body is always produced.
func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Sprintf("%+v", data)
	}
	return buf.String()
}
