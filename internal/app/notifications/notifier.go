package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hostelhunt/internal/app/policies"
	domainbooking "hostelhunt/internal/domain/booking"
	domainhostels "hostelhunt/internal/domain/hostels"
	domainpayments "hostelhunt/internal/domain/payments"
	"hostelhunt/internal/domain/shared/daterange"
	"hostelhunt/internal/domain/shared/money"
	domainuser "hostelhunt/internal/domain/user"
)

const defaultSendTimeout = 10 * time.Second

var errNoRecipient = errors.New("notifications: recipient address missing")

// Notifier renders and sends transactional emails. Every method reports success
// and never returns an error: failures are logged.
type Notifier struct {
	Mailer  policies.Mailer
	Logger  *slog.Logger
	BaseURL string
	Timeout time.Duration
}

func (n *Notifier) Welcome(ctx context.Context, user *domainuser.User, verificationToken string) bool {
	msg := message{
		Subject:  "Welcome to Hostel Hunt!",
		Title:    "Welcome to Hostel Hunt!",
		Greeting: "Dear " + user.Name + ",",
		Intro: []string{
			"Thank you for joining Hostel Hunt! We're excited to help you find the perfect accommodation.",
			"Please confirm your email address to finish setting up your account.",
		},
		Outro: []string{"Get started by exploring our hostel listings!"},
	}
	if verificationToken != "" {
		msg.Action = &action{Label: "Verify Email", URL: n.link("/verify-email", verificationToken)}
	}
	return n.send(ctx, user.Email, msg)
}

func (n *Notifier) PasswordReset(ctx context.Context, user *domainuser.User, resetToken string) bool {
	return n.send(ctx, user.Email, message{
		Subject: "Password Reset Request",
		Title:   "Password Reset Request",
		Intro: []string{
			"You requested a password reset for your Hostel Hunt account.",
			"Click the link below to reset your password:",
		},
		Action: &action{Label: "Reset Password", URL: n.link("/reset-password", resetToken)},
		Outro: []string{
			"This link will expire in 1 hour.",
			"If you didn't request this reset, please ignore this email.",
		},
	})
}

func (n *Notifier) BookingConfirmed(ctx context.Context, user *domainuser.User, b *domainbooking.Booking, h *domainhostels.Hostel) bool {
	return n.send(ctx, user.Email, message{
		Subject:  "Booking Confirmed - " + h.Name,
		Title:    "Booking Confirmation",
		Greeting: "Dear " + user.Name + ",",
		Intro:    []string{"Your booking has been confirmed! Here are the details:"},
		Heading:  h.Name,
		Details: append([]detail{{Label: "Location", Value: h.Location}},
			stayDetails(b)...),
		Outro: []string{"Please arrive on time for check-in. Contact the landlord if you need to make changes."},
	})
}

func (n *Notifier) LandlordNewBooking(ctx context.Context, to string, guest *domainuser.User, b *domainbooking.Booking, h *domainhostels.Hostel) bool {
	return n.send(ctx, to, message{
		Subject: "New Booking - " + h.Name,
		Title:   "New Booking Notification",
		Intro:   []string{"You have a new booking for your hostel!"},
		Heading: h.Name,
		Details: append([]detail{{Label: "Guest", Value: fmt.Sprintf("%s (%s)", guest.Name, guest.Email)}},
			stayDetails(b)...),
		Outro: []string{"Please confirm the booking and prepare for the guest's arrival."},
	})
}

func (n *Notifier) BookingCancelled(ctx context.Context, user *domainuser.User, b *domainbooking.Booking, h *domainhostels.Hostel) bool {
	details := []detail{
		{Label: "Booking ID", Value: string(b.ID)},
		{Label: "Check-in", Value: b.Range.CheckIn.Format(daterange.Layout)},
		{Label: "Check-out", Value: b.Range.CheckOut.Format(daterange.Layout)},
	}
	if b.CancelReason != "" {
		details = append(details, detail{Label: "Reason", Value: b.CancelReason})
	}
	return n.send(ctx, user.Email, message{
		Subject:  "Booking Cancelled - " + h.Name,
		Title:    "Booking Cancellation",
		Greeting: "Dear " + user.Name + ",",
		Intro:    []string{"Your booking has been cancelled. Here are the details:"},
		Heading:  h.Name,
		Details:  details,
		Outro:    []string{"If this was a mistake or you need assistance, please contact us."},
	})
}

func (n *Notifier) RefundProcessed(ctx context.Context, user *domainuser.User, b *domainbooking.Booking, h *domainhostels.Hostel, amount money.Money) bool {
	return n.send(ctx, user.Email, message{
		Subject:  "Refund Processed - " + h.Name,
		Title:    "Refund Processed",
		Greeting: "Dear " + user.Name + ",",
		Intro:    []string{"Your refund has been processed."},
		Heading:  h.Name,
		Details: []detail{
			{Label: "Booking ID", Value: string(b.ID)},
			{Label: "Refund Amount", Value: amount.String()},
		},
		Outro: []string{"The funds should reflect in your account within a few business days."},
	})
}

func (n *Notifier) PaymentConfirmed(ctx context.Context, user *domainuser.User, p *domainpayments.Payment, h *domainhostels.Hostel) bool {
	return n.send(ctx, user.Email, message{
		Subject:  "Payment Confirmed - Booking " + string(p.BookingID),
		Title:    "Payment Confirmed",
		Greeting: "Dear " + user.Name + ",",
		Intro:    []string{"We have received your payment. Your booking is confirmed."},
		Heading:  h.Name,
		Details:  paymentDetails(p),
	})
}

func (n *Notifier) LandlordPaymentReceived(ctx context.Context, to string, p *domainpayments.Payment, h *domainhostels.Hostel) bool {
	return n.send(ctx, to, message{
		Subject: "Payment Received - " + h.Name,
		Title:   "Payment Received",
		Intro:   []string{"A guest has paid for a booking at your hostel."},
		Heading: h.Name,
		Details: paymentDetails(p),
	})
}

func (n *Notifier) HostelApproved(ctx context.Context, to string, h *domainhostels.Hostel) bool {
	return n.send(ctx, to, message{
		Subject: "Your hostel has been approved - " + h.Name,
		Title:   "Hostel Approved",
		Intro: []string{
			"Good news! " + h.Name + " has been verified and now shows the verified badge in search results.",
		},
	})
}

func (n *Notifier) CheckInReminder(ctx context.Context, user *domainuser.User, b *domainbooking.Booking, h *domainhostels.Hostel) bool {
	return n.send(ctx, user.Email, message{
		Subject:  "Check-in Reminder - " + h.Name,
		Title:    "Check-in Reminder",
		Greeting: "Dear " + user.Name + ",",
		Intro:    []string{"This is a reminder that your stay starts tomorrow."},
		Heading:  h.Name,
		Details: append([]detail{{Label: "Location", Value: h.Location}},
			stayDetails(b)...),
	})
}

func (n *Notifier) CheckOutReminder(ctx context.Context, user *domainuser.User, b *domainbooking.Booking, h *domainhostels.Hostel) bool {
	return n.send(ctx, user.Email, message{
		Subject:  "Check-out Reminder - " + h.Name,
		Title:    "Check-out Reminder",
		Greeting: "Dear " + user.Name + ",",
		Intro:    []string{"Your stay ends today. We hope you enjoyed it!"},
		Heading:  h.Name,
		Details:  stayDetails(b),
	})
}

func (n *Notifier) ReviewNudge(ctx context.Context, user *domainuser.User, b *domainbooking.Booking, h *domainhostels.Hostel) bool {
	return n.send(ctx, user.Email, message{
		Subject:  "How was your stay at " + h.Name + "?",
		Title:    "Tell us about your stay",
		Greeting: "Dear " + user.Name + ",",
		Intro:    []string{"Your feedback helps other students find the right place. It only takes a minute."},
		Action:   &action{Label: "Write a Review", URL: n.link("/hostels/"+string(h.ID)+"/review", "")},
	})
}

func (n *Notifier) send(ctx context.Context, to string, msg message) bool {
	if n == nil || n.Mailer == nil {
		return false
	}
	err := n.deliver(ctx, strings.TrimSpace(to), msg)
	if err != nil {
		if n.Logger != nil {
			n.Logger.Error("email not sent", "subject", msg.Subject, "to", to, "error", err)
		}
		return false
	}
	if n.Logger != nil {
		n.Logger.Info("email sent", "subject", msg.Subject, "to", to)
	}
	return true
}

func (n *Notifier) deliver(ctx context.Context, to string, msg message) error {
	if to == "" {
		return errNoRecipient
	}
	html, text, err := render(msg)
	if err != nil {
		return fmt.Errorf("render %q: %w", msg.Subject, err)
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return n.Mailer.Send(ctx, policies.Email{To: to, Subject: msg.Subject, HTML: html, Text: text})
}

func (n *Notifier) link(path, token string) string {
	base := strings.TrimRight(n.BaseURL, "/")
	if token == "" {
		return base + path
	}
	return base + path + "?token=" + url.QueryEscape(token)
}

func stayDetails(b *domainbooking.Booking) []detail {
	return []detail{
		{Label: "Check-in", Value: b.Range.CheckIn.Format(daterange.Layout)},
		{Label: "Check-out", Value: b.Range.CheckOut.Format(daterange.Layout)},
		{Label: "Guests", Value: strconv.Itoa(b.Guests)},
		{Label: "Total Price", Value: b.Total().String()},
		{Label: "Booking ID", Value: string(b.ID)},
	}
}

func paymentDetails(p *domainpayments.Payment) []detail {
	details := []detail{
		{Label: "Booking ID", Value: string(p.BookingID)},
		{Label: "Amount", Value: p.Amount.String()},
	}
	if p.ReceiptNumber != "" {
		details = append(details, detail{Label: "M-Pesa Receipt", Value: p.ReceiptNumber})
	}
	return details
}
