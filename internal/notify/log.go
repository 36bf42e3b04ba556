package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

// LogNotifier records booking events as log entries. It is used when no SMTP
// server is configured.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) BookingRequested(_ context.Context, b domain.Booking, hostID string) {
	n.log.WithFields(bookingFields(b)).WithField("host_id", hostID).Info("booking requested")
}

func (n *LogNotifier) BookingStatusChanged(_ context.Context, b domain.Booking, from domain.BookingStatus) {
	n.log.WithFields(bookingFields(b)).WithField("from", string(from)).Info("booking status changed")
}

func bookingFields(b domain.Booking) logrus.Fields {
	return logrus.Fields{
		"booking_id": b.ID,
		"listing_id": b.ListingID,
		"guest_id":   b.GuestID,
		"status":     string(b.Status),
		"start_date": b.Stay.StartDate(),
		"end_date":   b.Stay.EndDate(),
		"total":      b.Price.Total,
	}
}
