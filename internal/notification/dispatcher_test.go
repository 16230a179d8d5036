package notification

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type mailerSpy struct {
	mu   sync.Mutex
	sent []OrderConfirmation
	err  error
}

func (m *mailerSpy) SendOrderConfirmation(ev OrderConfirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, ev)
	return m.err
}

func TestDispatcher_SendsEnqueuedEvents(t *testing.T) {
	mailer := &mailerSpy{}
	d := NewDispatcher(mailer, 8)

	d.Enqueue(OrderConfirmation{Email: "a@example.com", OrderID: 1, TotalAmount: decimal.NewFromInt(10)})
	d.Enqueue(OrderConfirmation{Email: "b@example.com", OrderID: 2, TotalAmount: decimal.NewFromInt(20)})

	//Closeは残りを送り切ってから戻る
	d.Close()

	assert.Len(t, mailer.sent, 2)
	assert.Equal(t, "a@example.com", mailer.sent[0].Email)
	assert.Equal(t, int64(2), mailer.sent[1].OrderID)
}

func TestDispatcher_MailerFailureIsSwallowed(t *testing.T) {
	mailer := &mailerSpy{err: errors.New("smtp down")}
	d := NewDispatcher(mailer, 8)

	d.Enqueue(OrderConfirmation{Email: "a@example.com", OrderID: 1, TotalAmount: decimal.NewFromInt(10)})
	d.Close()

	//失敗してもpanicせず、呼び出し側には何も返らない
	assert.Len(t, mailer.sent, 1)
}

func TestDispatcher_NilMailerOnlyLogs(t *testing.T) {
	d := NewDispatcher(nil, 8)

	d.Enqueue(OrderConfirmation{Email: "a@example.com", OrderID: 1, TotalAmount: decimal.NewFromInt(10)})
	d.Close()
}
