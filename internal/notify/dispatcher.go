package notify

import (
	"context"
	"fmt"
	"log"

	"eventcheckin/internal/cloudinary"
	"eventcheckin/internal/metrics"
	"eventcheckin/internal/queue"
)

// ImageHost publishes QR images so mail clients that strip attachments can
// still show them inline.
type ImageHost interface {
	Configured() bool
	UploadPNG(ctx context.Context, data []byte, publicID string) (cloudinary.UploadResult, error)
}

// Dispatcher renders queued notices and hands them to a Sender.
type Dispatcher struct {
	sender Sender
	images ImageHost
}

// NewDispatcher creates a dispatcher. images may be nil.
func NewDispatcher(sender Sender, images ImageHost) *Dispatcher {
	return &Dispatcher{sender: sender, images: images}
}

// Handle processes one message.
func (d *Dispatcher) Handle(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		status := "sent"
		if err != nil {
			status = "failed"
		}
		metrics.Notifications.WithLabelValues(msg.Type, status).Inc()
	}()

	var email Email
	switch msg.Type {
	case TypeRegistered:
		var r Registered
		if err := msg.Decode(&r); err != nil {
			return err
		}
		if email, err = d.registration(ctx, r); err != nil {
			return err
		}
	case TypeConfirmed:
		var c Confirmed
		if err := msg.Decode(&c); err != nil {
			return err
		}
		if email, err = confirmationEmail(c); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return d.sender.Send(ctx, email)
}

func (d *Dispatcher) registration(ctx context.Context, r Registered) (Email, error) {
	png, err := QRCodePNG(QRPayload{Secret: r.Secret, EventID: r.EventID, ParticipantID: r.ParticipantID})
	if err != nil {
		return Email{}, err
	}
	var imageURL string
	if d.images != nil && d.images.Configured() {
		res, err := d.images.UploadPNG(ctx, png, r.ParticipantID)
		if err != nil {
			log.Printf("qr upload for %s failed, sending attachment only: %v", r.ParticipantID, err)
		} else {
			imageURL = res.SecureURL
		}
	}
	return registrationEmail(r, png, imageURL)
}

// Run consumes q until ctx is done. Failed messages are logged and dropped.
func (d *Dispatcher) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		if err := d.Handle(ctx, msg); err != nil {
			log.Printf("notification %s failed: %v", msg.Type, err)
			continue
		}
	}
	return ctx.Err()
}
