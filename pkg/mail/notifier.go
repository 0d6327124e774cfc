package mail

import (
	"context"
	"fmt"
	"html"
	"time"

	"atelier/pkg/logger"
	"atelier/pkg/model"
)

// Notifier renders and sends every notification kind the system produces.
// Each method is fire-and-forget: failures are logged and swallowed, never
// propagated to the caller, so a mail outage cannot fail a request whose
// primary write already succeeded.
type Notifier struct {
	sender      Sender
	adminEmail  string
	frontendURL string
	log         *logger.Logger
}

func NewNotifier(sender Sender, adminEmail, frontendURL string, log *logger.Logger) *Notifier {
	return &Notifier{
		sender:      sender,
		adminEmail:  adminEmail,
		frontendURL: frontendURL,
		log:         log,
	}
}

func (n *Notifier) deliver(ctx context.Context, kind string, msg Message) {
	if msg.To == "" {
		n.log.Warn("Email skipped: no recipient", "kind", kind, "subject", msg.Subject)
		return
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.log.Error("Failed to send email",
			"kind", kind,
			"to", msg.To,
			"subject", msg.Subject,
			"error", err,
		)
		return
	}
	n.log.Info("Email sent", "kind", kind, "to", msg.To, "subject", msg.Subject)
}

func (n *Notifier) send(ctx context.Context, kind, to, subject, message string, opts templateOptions) {
	n.deliver(ctx, kind, Message{
		To:       to,
		Subject:  subject,
		HTMLBody: renderToast(subject, message, opts),
		TextBody: renderText(subject, message, opts),
	})
}

func formatBookingTime(t time.Time) string {
	return t.Format("Monday, January 2, 2006 at 3:04 PM")
}

// Welcome greets a freshly registered user.
func (n *Notifier) Welcome(ctx context.Context, user *model.User) {
	n.send(ctx, "welcome", user.Email,
		"Welcome to our platform!",
		fmt.Sprintf("Hi %s, thank you for registering with us. We're excited to have you on board!",
			html.EscapeString(firstName(user.Name))),
		templateOptions{tone: toneSuccess},
	)
}

// BookingConfirmation acknowledges a new booking to the customer.
func (n *Notifier) BookingConfirmation(ctx context.Context, b *model.Booking) {
	n.send(ctx, "booking_confirmation", b.Customer.Email,
		"Booking Confirmation",
		fmt.Sprintf("Hi %s, your booking for %s has been received. Status: %s.",
			html.EscapeString(firstName(b.Customer.Name)),
			formatBookingTime(b.ScheduledAt), b.Status),
		templateOptions{
			tone:       toneSuccess,
			actionURL:  fmt.Sprintf("%s/bookings/%s", n.frontendURL, b.ID),
			actionText: "View Booking Details",
		},
	)
}

// BookingStatus notifies the customer after a status change.
func (n *Notifier) BookingStatus(ctx context.Context, b *model.Booking) {
	messages := map[string]string{
		model.BookingStatusConfirmed: "Your booking has been confirmed!",
		model.BookingStatusCancelled: "Your booking has been cancelled.",
		model.BookingStatusCompleted: "Your booking has been marked as completed.",
	}
	message, ok := messages[b.Status]
	if !ok {
		message = "Your booking status has been updated."
	}

	tone := toneInfo
	if b.Status == model.BookingStatusCancelled {
		tone = toneError
	}

	n.send(ctx, "booking_status", b.Customer.Email,
		"Booking Updated",
		fmt.Sprintf("Hi %s, %s Scheduled date: %s.",
			html.EscapeString(firstName(b.Customer.Name)),
			message, formatBookingTime(b.ScheduledAt)),
		templateOptions{
			tone:       tone,
			actionURL:  fmt.Sprintf("%s/bookings/%s", n.frontendURL, b.ID),
			actionText: "View Booking Details",
		},
	)
}

// BookingCancelled confirms a deletion to the customer.
func (n *Notifier) BookingCancelled(ctx context.Context, b *model.Booking) {
	n.send(ctx, "booking_cancelled", b.Customer.Email,
		"Booking Cancelled",
		fmt.Sprintf("Hi %s, your booking for %s has been cancelled.",
			html.EscapeString(firstName(b.Customer.Name)),
			formatBookingTime(b.ScheduledAt)),
		templateOptions{tone: toneError},
	)
}

// OrderConfirmation sends the order receipt to the customer.
func (n *Notifier) OrderConfirmation(ctx context.Context, o *model.Order) {
	n.send(ctx, "order_confirmation", o.Customer.Email,
		"Order Confirmation",
		fmt.Sprintf("Hi %s, your order %s has been placed. Total: %s.",
			html.EscapeString(firstName(o.Customer.Name)),
			html.EscapeString(o.Reference),
			formatAmount(o.TotalPrice)),
		templateOptions{tone: toneSuccess},
	)
}

// ContactConfirmation acknowledges a contact-form submission.
func (n *Notifier) ContactConfirmation(ctx context.Context, c *model.Contact) {
	n.send(ctx, "contact_confirmation", c.Email,
		"We Received Your Message",
		fmt.Sprintf("Hi %s, thank you for contacting us. We've received your message and will get back to you soon.",
			html.EscapeString(firstName(c.Name))),
		templateOptions{tone: toneInfo},
	)
}

// SubscriptionVerification carries the double-opt-in link.
func (n *Notifier) SubscriptionVerification(ctx context.Context, s *model.Subscription, verificationURL string) {
	n.send(ctx, "subscription_verification", s.Email,
		"Please confirm your subscription",
		fmt.Sprintf("Hi %s, thank you for subscribing to our newsletter! Please confirm your email address to start receiving updates.",
			html.EscapeString(firstName(s.Name))),
		templateOptions{
			tone:       toneSuccess,
			actionURL:  verificationURL,
			actionText: "Confirm Subscription",
		},
	)
}

// PaymentStatus notifies the customer about a payment event on a booking.
func (n *Notifier) PaymentStatus(ctx context.Context, b *model.Booking, event string) {
	if b.Payment == nil {
		return
	}
	tones := map[string]tone{
		"created":  toneInfo,
		"updated":  toneInfo,
		"refunded": toneWarning,
		"failed":   toneError,
	}
	t, ok := tones[event]
	if !ok {
		t = toneInfo
	}

	n.send(ctx, "payment_status", b.Customer.Email,
		"Payment "+event,
		fmt.Sprintf("Hi %s, the payment of %s for your booking on %s is now %s.",
			html.EscapeString(firstName(b.Customer.Name)),
			formatAmount(b.Payment.Amount),
			formatBookingTime(b.ScheduledAt),
			b.Payment.Status),
		templateOptions{tone: t},
	)
}

// AdminAlert is the generic back-office notification used by the event
// worker and by in-process admin side effects.
func (n *Notifier) AdminAlert(ctx context.Context, subject, message string) {
	if n.adminEmail == "" {
		n.log.Warn("Admin alert skipped: no admin email configured", "subject", subject)
		return
	}
	n.send(ctx, "admin_alert", n.adminEmail, subject, html.EscapeString(message),
		templateOptions{tone: toneInfo})
}

func formatAmount(minor int64) string {
	return fmt.Sprintf("$%d.%02d", minor/100, minor%100)
}
