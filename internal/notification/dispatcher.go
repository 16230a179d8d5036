package notification

import (
	"shop/internal/logging"
)

// リクエストのライフサイクルから切り離したベストエフォート送信。
// 送信失敗はログに残すだけで呼び出し元には返さない。
type Dispatcher struct {
	mailer Mailer
	events chan OrderConfirmation
	done   chan struct{}
}

func NewDispatcher(mailer Mailer, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}

	d := &Dispatcher{
		mailer: mailer,
		events: make(chan OrderConfirmation, buffer),
		done:   make(chan struct{}),
	}

	go d.run()
	return d
}

// Enqueue はブロックしない。バッファが一杯なら捨ててログ。
func (d *Dispatcher) Enqueue(ev OrderConfirmation) {
	select {
	case d.events <- ev:
	default:
		logging.Log(logging.Fields{
			Service: "notification",
			Step:    "enqueue",
			Status:  "dropped",
			OrderID: ev.OrderID,
			Message: "dispatch buffer full",
		})
	}
}

// Close は残りを送り切ってから停止する。
func (d *Dispatcher) Close() {
	close(d.events)
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for ev := range d.events {
		if d.mailer == nil {
			//SMTP未設定。ログだけ残す。
			logging.Log(logging.Fields{
				Service: "notification",
				Step:    "send",
				Status:  "skipped",
				OrderID: ev.OrderID,
				Message: "mailer not configured",
			})
			continue
		}

		if err := d.mailer.SendOrderConfirmation(ev); err != nil {
			logging.Log(logging.Fields{
				Service: "notification",
				Step:    "send",
				Status:  "failed",
				OrderID: ev.OrderID,
				Message: err.Error(),
			})
		}
	}
}
