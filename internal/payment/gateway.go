package payment

import (
	"context"
	"errors"
	"fmt"
)

// ゲートウェイに渡す金額は最小通貨単位（セント）。
type ChargeInput struct {
	AmountMinor     int64
	Currency        string
	PaymentMethodID string
}

type Charge struct {
	ID     string
	Status string
}

// 決済ゲートウェイの約束。同期で与信＋確定まで行う。
type Gateway interface {
	Charge(ctx context.Context, in ChargeInput) (Charge, error)
}

// ゲートウェイが返した拒否/失敗。Messageはゲートウェイの文言そのまま。
type GatewayError struct {
	Code    string
	Type    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: %s", e.Message)
}

func AsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	ok := errors.As(err, &ge)
	return ge, ok
}
