package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

// Sender delivers composed messages. *gomail.Dialer implements it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// UserDirectory resolves recipients.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
}

// MailNotifier mails the host when a booking is requested and the guest when
// its status changes. Delivery failures are logged and dropped.
type MailNotifier struct {
	sender Sender
	users  UserDirectory
	from   string
	log    logrus.FieldLogger
}

func NewMailNotifier(sender Sender, users UserDirectory, from string, log logrus.FieldLogger) *MailNotifier {
	return &MailNotifier{
		sender: sender,
		users:  users,
		from:   from,
		log:    log,
	}
}

// NewSMTPDialer builds the gomail dialer used as the production Sender.
func NewSMTPDialer(host string, port int, user, password string) *gomail.Dialer {
	return gomail.NewDialer(host, port, user, password)
}

func (n *MailNotifier) BookingRequested(ctx context.Context, b domain.Booking, hostID string) {
	subject := fmt.Sprintf("New booking request for %s to %s", b.Stay.StartDate(), b.Stay.EndDate())
	body := fmt.Sprintf(
		"A guest has requested %d night(s) from %s to %s.\nTotal: INR %d\nBooking: %s\n",
		b.Nights, b.Stay.StartDate(), b.Stay.EndDate(), b.Price.Total, b.ID,
	)
	if b.Note != "" {
		body += "\nNote from the guest:\n" + b.Note + "\n"
	}
	n.send(ctx, b, hostID, subject, body)
}

func (n *MailNotifier) BookingStatusChanged(ctx context.Context, b domain.Booking, from domain.BookingStatus) {
	subject := fmt.Sprintf("Your booking is %s", b.Status)
	body := fmt.Sprintf(
		"Your booking %s for %s to %s moved from %s to %s.\n",
		b.ID, b.Stay.StartDate(), b.Stay.EndDate(), from, b.Status,
	)
	n.send(ctx, b, b.GuestID, subject, body)
}

func (n *MailNotifier) send(ctx context.Context, b domain.Booking, recipientID, subject, body string) {
	log := n.log.WithFields(logrus.Fields{
		"booking_id":   b.ID,
		"recipient_id": recipientID,
	})

	user, err := n.users.GetUser(ctx, recipientID)
	if err != nil {
		log.WithError(err).Warn("notification recipient lookup failed")
		return
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", user.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.sender.DialAndSend(m); err != nil {
		log.WithError(err).Error("failed to send booking notification")
		return
	}
	log.WithField("subject", subject).Debug("booking notification sent")
}
