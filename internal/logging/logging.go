package logging

import (
	"encoding/json"
	"log"
	"time"
)

type Fields struct {
	Service  string `json:"service"`
	Step     string `json:"step,omitempty"`
	Status   string `json:"status,omitempty"`
	UserID   int64  `json:"user_id,omitempty"`
	OrderID  int64  `json:"order_id,omitempty"`
	ChargeID string `json:"charge_id,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Message  string `json:"message,omitempty"`
}

// 構造化ログ（JSON1行）
func Log(fields Fields) {
	payload := map[string]any{
		"service":   fields.Service,
		"step":      fields.Step,
		"status":    fields.Status,
		"user_id":   fields.UserID,
		"order_id":  fields.OrderID,
		"charge_id": fields.ChargeID,
		"amount":    fields.Amount,
		"message":   fields.Message,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("{\"service\":%q,\"status\":\"log_error\",\"error\":%q}", fields.Service, err.Error())
		return
	}
	log.Print(string(data))
}
