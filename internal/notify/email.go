package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"eventcheckin/internal/attendance"
)

// Attachment is a file sent with an email.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Email is a rendered message ready for a Sender.
type Email struct {
	ToName      string
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

var registrationHTML = template.Must(template.New("registration").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>Welcome to {{.EventName}}!</h2>
<p>Dear {{.Name}},</p>
<p>Your registration for {{.EventName}} ({{.StartDay}} to {{.EndDay}}) is confirmed.</p>
<p>Present the attached QR code each day of the event for check-in, lunch and kit collection.</p>
{{if .ImageURL}}<img src="{{.ImageURL}}" alt="QR Code" width="200" height="200"/>{{end}}
<p>This QR code is unique to you. Please don't share it.</p>
</div>`))

var confirmationHTML = template.Must(template.New("confirmation").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>{{.Title}}</h2>
<p>Dear {{.Name}},</p>
<p>{{.Line}}</p>
</div>`))

func registrationEmail(r Registered, png []byte, imageURL string) (Email, error) {
	var html bytes.Buffer
	err := registrationHTML.Execute(&html, struct {
		Registered
		ImageURL string
	}{r, imageURL})
	if err != nil {
		return Email{}, fmt.Errorf("render registration: %w", err)
	}
	return Email{
		ToName:  r.Name,
		To:      r.Email,
		Subject: "Your Event Registration Confirmation - " + r.EventName,
		Text: fmt.Sprintf("Dear %s,\n\nYour registration for %s (%s to %s) is confirmed. "+
			"Present the attached QR code each day of the event.\n", r.Name, r.EventName, r.StartDay, r.EndDay),
		HTML:        html.String(),
		Attachments: []Attachment{{Filename: "event-qrcode.png", ContentType: "image/png", Content: png}},
	}, nil
}

func confirmationEmail(c Confirmed) (Email, error) {
	var title, line, subject string
	switch c.Kind {
	case attendance.KindCheckIn:
		title = "Check-in Successful!"
		line = fmt.Sprintf("Your check-in for %s has been confirmed.", c.Day)
		subject = fmt.Sprintf("Check-in Confirmed for %s - %s", c.Day, c.EventName)
	case attendance.KindLunch:
		title = "Lunch Collected"
		line = fmt.Sprintf("Your lunch for %s has been recorded. Enjoy!", c.Day)
		subject = fmt.Sprintf("Lunch Collected on %s - %s", c.Day, c.EventName)
	case attendance.KindKit:
		title = "Kit Collected"
		line = fmt.Sprintf("Your event kit was handed over on %s.", c.Day)
		subject = fmt.Sprintf("Kit Collected on %s - %s", c.Day, c.EventName)
	default:
		return Email{}, fmt.Errorf("unknown activity kind %q", c.Kind)
	}
	var html bytes.Buffer
	err := confirmationHTML.Execute(&html, map[string]string{"Title": title, "Name": c.Name, "Line": line})
	if err != nil {
		return Email{}, fmt.Errorf("render confirmation: %w", err)
	}
	return Email{
		ToName:  c.Name,
		To:      c.Email,
		Subject: subject,
		Text:    fmt.Sprintf("Dear %s,\n\n%s\n", c.Name, line),
		HTML:    html.String(),
	}, nil
}
