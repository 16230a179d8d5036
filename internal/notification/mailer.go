package notification

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"
)

// 注文確認メールのイベント
type OrderConfirmation struct {
	Email       string
	OrderID     int64
	TotalAmount decimal.Decimal
}

type Mailer interface {
	SendOrderConfirmation(ev OrderConfirmation) error
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, user string, pass string, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, pass),
		from:   from,
	}
}

func (m *SMTPMailer) SendOrderConfirmation(ev OrderConfirmation) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", ev.Email)
	msg.SetHeader("Subject", "Order Confirmation")

	body := fmt.Sprintf("Your order #%d has been confirmed. Total: $%s",
		ev.OrderID, ev.TotalAmount.StringFixed(2))
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
