package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/KeithOmondi/kian-optics/internal/config"
)

// Message carries a recipient, subject and both plain-text and HTML bodies.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender is what handlers depend on; the SMTP mailer implements it and tests
// substitute a stub.
type Sender interface {
	Send(msg Message) error
}

type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		Host:     cfg.SMTP_HOST,
		Port:     cfg.SMTP_PORT,
		Username: cfg.SMTP_USER,
		Password: cfg.SMTP_PASSWORD,
		From:     cfg.SMTP_FROM,
	}
}

func (m *SMTPMailer) Send(msg Message) error {
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	addr := m.Host + ":" + m.Port

	if err := smtp.SendMail(addr, auth, m.From, []string{msg.To}, buildMIME(m.From, msg)); err != nil {
		return fmt.Errorf("mailer: send to %s failed: %w", msg.To, err)
	}
	return nil
}

// buildMIME assembles a multipart/alternative body so clients without HTML
// rendering fall back to the plain text part.
func buildMIME(from string, msg Message) []byte {
	const boundary = "kian-optics-alt"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Text)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(msg.HTML)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

// OrderConfirmation references the first created order and the overall total.
func OrderConfirmation(to, name string, orderID uint, totalPrice float64) Message {
	return Message{
		To:      to,
		Subject: "Order Confirmation",
		Text:    "Thank you for shopping with Kian Optics!",
		HTML: fmt.Sprintf(`<html><body>
<h1>Hello %s,</h1>
<p>Thank you for shopping with <strong>Kian Optics</strong>! Your order has been received and is being processed.<br />
You will receive your order within 3 - 4 working days</p>
<p><strong>Order Details:</strong></p>
<p>Order ID: <strong>%d</strong></p>
<p>Total: <strong>Ksh %.2f</strong></p>
<p>If you have any questions, feel free to contact our support team.<br />support@kianoptics.co.ke</p>
<p style="color: red;">This Email is system generated. Please Do not reply</p>
<footer><p>&copy; 2025 Kian Optics. All rights reserved.</p></footer>
</body></html>`, name, orderID, totalPrice),
	}
}

// StatusUpdate notifies the buyer of an order status change.
func StatusUpdate(to, name string, orderID uint, status string, totalPrice float64) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your order status has been updated to: %s", status),
		Text:    fmt.Sprintf("Your order with ID %d is now %s.", orderID, status),
		HTML: fmt.Sprintf(`<html><body>
<h2>Hi %s,</h2>
<p>Your order <strong>#%d</strong> has been updated.</p>
<p><strong>New Status:</strong> %s</p>
<p>Total: Ksh %.2f</p>
<p>Thank you for choosing Kian Optics.</p>
<footer>&copy; 2025 Kian Optics. All rights reserved.</footer>
</body></html>`, name, orderID, status, totalPrice),
	}
}
