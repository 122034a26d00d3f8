package domain

import (
	"context"
	"time"
)

// EmailMessage is one outgoing email. At least one of HTML and Text is set.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers rendered emails.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// TicketEmailData holds data for the ticket email sent once a seat is paid.
type TicketEmailData struct {
	Email          string
	FirstName      string
	GatheringTitle string
	GatheringDate  time.Time
	Address        string
	Link           string
	Token          string
	CheckInURL     string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendTicket(ctx context.Context, data *TicketEmailData) error
}
